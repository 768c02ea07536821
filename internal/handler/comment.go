package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/model"
	"github.com/NhaLeTruc/todo-sync/internal/service"
	"github.com/NhaLeTruc/todo-sync/pkg/respond"
)

type CommentHandler struct {
	service *service.CommentService
	logger  *zap.Logger
}

func NewCommentHandler(srv *service.CommentService, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{service: srv, logger: logger}
}

func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	taskID, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	comments, err := h.service.List(r.Context(), UserID(r), taskID)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, comments)
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	taskID, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	var req model.CommentRequest
	if err := decode(r, &req); err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	c, err := h.service.Create(r.Context(), UserID(r), taskID, req)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusCreated, c)
}

func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	var req model.CommentRequest
	if err := decode(r, &req); err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	c, err := h.service.Update(r.Context(), UserID(r), id, req)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, c)
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), UserID(r), id); err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.NoContent(w)
}
