package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/service"
	"github.com/NhaLeTruc/todo-sync/pkg/respond"
)

type NotificationHandler struct {
	service *service.NotificationService
	logger  *zap.Logger
}

func NewNotificationHandler(srv *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{service: srv, logger: logger}
}

func (h *NotificationHandler) Unread(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Unread(r.Context(), UserID(r))
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, out)
}

func (h *NotificationHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.CountUnread(r.Context(), UserID(r))
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, n)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.MarkRead(r.Context(), UserID(r), chi.URLParam(r, "id"))
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, n)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkAllRead(r.Context(), UserID(r)); err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.NoContent(w)
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), UserID(r), chi.URLParam(r, "id")); err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.NoContent(w)
}
