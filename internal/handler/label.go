package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/model"
	"github.com/NhaLeTruc/todo-sync/internal/service"
	"github.com/NhaLeTruc/todo-sync/pkg/respond"
)

// LabelHandler is mounted once for categories and once for tags.
type LabelHandler struct {
	service *service.LabelService
	logger  *zap.Logger
}

func NewLabelHandler(srv *service.LabelService, logger *zap.Logger) *LabelHandler {
	return &LabelHandler{service: srv, logger: logger}
}

func (h *LabelHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

func (h *LabelHandler) List(w http.ResponseWriter, r *http.Request) {
	labels, err := h.service.List(r.Context(), UserID(r))
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, labels)
}

func (h *LabelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.LabelRequest
	if err := decode(r, &req); err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	l, err := h.service.Create(r.Context(), UserID(r), req)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusCreated, l)
}

func (h *LabelHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	var req model.LabelRequest
	if err := decode(r, &req); err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	l, err := h.service.Update(r.Context(), UserID(r), id, req)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, l)
}

func (h *LabelHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
