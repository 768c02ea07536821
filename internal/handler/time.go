package handler

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/model"
	"github.com/NhaLeTruc/todo-sync/internal/service"
	"github.com/NhaLeTruc/todo-sync/pkg/respond"
)

type TimeHandler struct {
	service *service.TimeService
	logger  *zap.Logger
}

func NewTimeHandler(srv *service.TimeService, logger *zap.Logger) *TimeHandler {
	return &TimeHandler{service: srv, logger: logger}
}

func (h *TimeHandler) Start(w http.ResponseWriter, r *http.Request) {
	taskID, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	var req model.StartTimerRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			handleErrors(h.logger, w, r, err)
			return
		}
	}
	e, err := h.service.Start(r.Context(), UserID(r), taskID, req)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusCreated, e)
}

func (h *TimeHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	e, err := h.service.Stop(r.Context(), UserID(r), id)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, e)
}

func (h *TimeHandler) LogManual(w http.ResponseWriter, r *http.Request) {
	taskID, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	var req model.ManualTimeRequest
	if err := decode(r, &req); err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	e, err := h.service.LogManual(r.Context(), UserID(r), taskID, req)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusCreated, e)
}

func (h *TimeHandler) List(w http.ResponseWriter, r *http.Request) {
	taskID, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	entries, err := h.service.List(r.Context(), UserID(r), taskID)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, entries)
}

// Active answers 204 when no timer is running on the task.
func (h *TimeHandler) Active(w http.ResponseWriter, r *http.Request) {
	taskID, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	e, err := h.service.Active(r.Context(), UserID(r), taskID)
	h.activeResponse(w, r, e, err)
}

func (h *TimeHandler) ActiveForUser(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.ActiveForUser(r.Context(), UserID(r))
	h.activeResponse(w, r, e, err)
}

func (h *TimeHandler) activeResponse(w http.ResponseWriter, r *http.Request, e *model.TimeEntry, err error) {
	switch {
	case err != nil:
		handleErrors(h.logger, w, r, err)
	case e == nil:
		w.WriteHeader(http.StatusNoContent)
	default:
		respond.JSON(w, r, http.StatusOK, e)
	}
}

func (h *TimeHandler) Total(w http.ResponseWriter, r *http.Request) {
	taskID, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	total, err := h.service.Total(r.Context(), UserID(r), taskID)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, total)
}

func (h *TimeHandler) Report(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := reportTime(q.Get("startDate"), "startDate")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	to, err := reportTime(q.Get("endDate"), "endDate")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	report, err := h.service.Report(r.Context(), UserID(r), from, to)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, report)
}

func (h *TimeHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	var req model.TimeNotesRequest
	if err := decode(r, &req); err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	e, err := h.service.UpdateNotes(r.Context(), UserID(r), id, req)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, e)
}

func (h *TimeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), UserID(r), id); err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reportTime reads RFC 3339 or a plain date, which means its midnight UTC.
func reportTime(v, name string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", errBadRequest, name)
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid %s", errBadRequest, name)
}
