package api

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindNetwork Kind = iota
	KindTimeout
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindValidation
	KindConflict
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindServer:
		return "server"
	}
	return "unknown"
}

// Error is returned by every Client call that did not get a 2xx response.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Path    string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api %s (%d) %s: %s", e.Kind, e.Status, e.Path, e.Message)
	}
	return fmt.Sprintf("api %s %s: %s", e.Kind, e.Path, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the text shown to the user for this failure.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindNetwork:
		return "Network error. Please check your internet connection."
	case KindTimeout:
		return "Request timeout. Please check your connection and try again."
	case KindUnauthorized:
		return "Your session has expired. Please log in again."
	case KindForbidden:
		return "You do not have permission to perform this action."
	case KindNotFound:
		return "The requested resource was not found."
	case KindServer:
		return "An unexpected server error occurred. Please try again later."
	}
	if e.Message != "" {
		return e.Message
	}
	return "An unexpected error occurred"
}

// KindOf returns the kind of an *Error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

// Retryable reports whether a read that failed with err may be tried again.
// Client errors the server has decided on are final; errors that are not
// *Error (a cancelled context, a decode failure) are not retried either.
func Retryable(err error) bool {
	k, ok := KindOf(err)
	if !ok {
		return false
	}
	switch k {
	case KindUnauthorized, KindForbidden, KindNotFound, KindValidation, KindConflict:
		return false
	}
	return true
}

// Message extracts something presentable from any error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.UserMessage()
	}
	if err != nil {
		return err.Error()
	}
	return "An unexpected error occurred"
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status >= 500:
		return KindServer
	}
	return KindValidation
}
