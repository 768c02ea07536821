package data

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

var ErrValidation = errors.New("validation error")

const (
	MaxDescriptionLength = 5000
	MaxCommentLength     = 5000
	maxDurationHours     = 24
	maxDurationMinutes   = 59
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func ValidateDescription(s string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if n == 0 {
		return invalid("description is required")
	}
	if n > MaxDescriptionLength {
		return invalid("description must be at most %d characters", MaxDescriptionLength)
	}
	return nil
}

func ValidateComment(s string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if n == 0 {
		return invalid("comment is required")
	}
	if n > MaxCommentLength {
		return invalid("comment must be at most %d characters", MaxCommentLength)
	}
	return nil
}

func ValidatePermission(p model.Permission) error {
	if p != model.PermissionView && p != model.PermissionEdit {
		return invalid("permission must be VIEW or EDIT")
	}
	return nil
}

// DurationMinutes validates a manually entered hours/minutes pair and returns
// the total in minutes.
func DurationMinutes(hours, minutes int) (int, error) {
	if hours < 0 || hours > maxDurationHours {
		return 0, invalid("hours must be between 0 and %d", maxDurationHours)
	}
	if minutes < 0 || minutes > maxDurationMinutes {
		return 0, invalid("minutes must be between 0 and %d", maxDurationMinutes)
	}
	return hours*60 + minutes, nil
}

func validateCreate(req model.TaskCreateRequest) error {
	if err := ValidateDescription(req.Description); err != nil {
		return err
	}
	if req.Priority != "" && !req.Priority.Valid() {
		return invalid("unknown priority %q", req.Priority)
	}
	if m := req.EstimatedDurationMinutes; m != nil && *m < 0 {
		return invalid("estimated duration must not be negative")
	}
	return nil
}

func validateUpdate(req model.TaskUpdateRequest) error {
	if req.Description != nil {
		if err := ValidateDescription(*req.Description); err != nil {
			return err
		}
	}
	if req.Priority != nil && !req.Priority.Valid() {
		return invalid("unknown priority %q", *req.Priority)
	}
	if m := req.EstimatedDurationMinutes; m != nil && *m < 0 {
		return invalid("estimated duration must not be negative")
	}
	return nil
}
