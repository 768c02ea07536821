package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/repo"
	"github.com/NhaLeTruc/todo-sync/internal/service"
	"github.com/NhaLeTruc/todo-sync/pkg/respond"
)

var errBadRequest = errors.New("bad request")

func handleErrors(logger *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, repo.ErrorConflict):
		respond.Error(w, r, http.StatusConflict, "conflict")
	case errors.Is(err, repo.ErrorConstraint):
		respond.Error(w, r, http.StatusBadRequest, "invalid reference")
	case errors.Is(err, service.ErrValidation), errors.Is(err, errBadRequest):
		respond.Error(w, r, http.StatusBadRequest, detail(err))
	case errors.Is(err, service.ErrUnauthorized):
		respond.Error(w, r, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, service.ErrForbidden):
		respond.Error(w, r, http.StatusForbidden, "forbidden")
	default:
		logger.Error("internal error", zap.String("path", r.URL.Path), zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}

// detail drops the sentinel prefix so "validation error: x" reads as "x".
func detail(err error) string {
	msg := err.Error()
	for _, prefix := range []string{service.ErrValidation.Error() + ": ", errBadRequest.Error() + ": "} {
		msg = strings.TrimPrefix(msg, prefix)
	}
	return msg
}

func decode(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return fmt.Errorf("%w: empty request body", errBadRequest)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json: %v", errBadRequest, err)
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}
