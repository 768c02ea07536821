package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/model"
	"github.com/NhaLeTruc/todo-sync/internal/service"
	"github.com/NhaLeTruc/todo-sync/pkg/respond"
)

// IdempotencyHeader names the request header that makes a task create safe
// to retry.
const IdempotencyHeader = "Idempotency-Key"

type TaskHandler struct {
	service *service.TaskService
	logger  *zap.Logger
}

func NewTaskHandler(srv *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  logger,
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.TaskCreateRequest
	if err := decode(r, &req); err != nil {
		h.logger.Debug("failed to decode json", zap.Error(err))
		handleErrors(h.logger, w, r, err)
		return
	}

	task, err := h.service.Create(r.Context(), UserID(r), req, r.Header.Get(IdempotencyHeader))
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/tasks/%d", task.ID))
	respond.JSON(w, r, http.StatusCreated, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}

	task, err := h.service.Get(r.Context(), UserID(r), id)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, page, err := listQuery(r)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	filter.UserID = UserID(r)

	out, err := h.service.List(r.Context(), filter, page)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, out)
}

func (h *TaskHandler) Count(w http.ResponseWriter, r *http.Request) {
	completed, err := optionalBool(r, "completed")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	n, err := h.service.Count(r.Context(), UserID(r), completed)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, n)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	var req model.TaskUpdateRequest
	if err := decode(r, &req); err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}

	task, err := h.service.Update(r.Context(), UserID(r), id, req)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.setCompleted(w, r, true)
}

func (h *TaskHandler) Uncomplete(w http.ResponseWriter, r *http.Request) {
	h.setCompleted(w, r, false)
}

func (h *TaskHandler) setCompleted(w http.ResponseWriter, r *http.Request, done bool) {
	id, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	task, err := h.service.SetCompleted(r.Context(), UserID(r), id, done)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Subtasks(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	tasks, err := h.service.Subtasks(r.Context(), UserID(r), id)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tasks)
}

func (h *TaskHandler) CreateSubtask(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	var req model.TaskCreateRequest
	if err := decode(r, &req); err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	task, err := h.service.CreateSubtask(r.Context(), UserID(r), id, req, r.Header.Get(IdempotencyHeader))
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/tasks/%d", task.ID))
	respond.JSON(w, r, http.StatusCreated, task)
}

func (h *TaskHandler) HasSubtasks(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	ok, err := h.service.HasSubtasks(r.Context(), UserID(r), id)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, ok)
}

func (h *TaskHandler) Share(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	var req model.ShareRequest
	if err := decode(r, &req); err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	share, err := h.service.Share(r.Context(), UserID(r), id, req)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusCreated, share)
}

func (h *TaskHandler) Shares(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	shares, err := h.service.Shares(r.Context(), UserID(r), id)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, shares)
}

func (h *TaskHandler) RevokeShare(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	target, err := idParam(r, "userId")
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	if err := h.service.RevokeShare(r.Context(), UserID(r), id, target); err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.NoContent(w)
}

func (h *TaskHandler) SharedWithMe(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.SharedWithMe(r.Context(), UserID(r))
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tasks)
}

func listQuery(r *http.Request) (model.TaskFilter, model.PageRequest, error) {
	q := r.URL.Query()
	var (
		filter model.TaskFilter
		page   = model.PageRequest{SortBy: q.Get("sortBy"), SortDirection: q.Get("sortDirection")}
		err    error
	)
	if page.Page, err = optionalInt(q.Get("page"), 0); err != nil {
		return filter, page, fmt.Errorf("%w: invalid page", errBadRequest)
	}
	if page.Size, err = optionalInt(q.Get("size"), 0); err != nil {
		return filter, page, fmt.Errorf("%w: invalid size", errBadRequest)
	}
	if filter.Completed, err = optionalBool(r, "completed"); err != nil {
		return filter, page, err
	}
	filter.Search = q.Get("search")
	if v := q.Get("categoryId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, page, fmt.Errorf("%w: invalid categoryId", errBadRequest)
		}
		filter.CategoryID = &id
	}
	for _, v := range q["tagIds"] {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, page, fmt.Errorf("%w: invalid tagIds", errBadRequest)
		}
		filter.TagIDs = append(filter.TagIDs, id)
	}
	return filter, page, nil
}

func optionalInt(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func optionalBool(r *http.Request, name string) (*bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return &b, nil
}
