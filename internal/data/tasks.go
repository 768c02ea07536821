package data

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/api"
	"github.com/NhaLeTruc/todo-sync/internal/cache"
	"github.com/NhaLeTruc/todo-sync/internal/model"
)

type taskPage = model.Page[model.Task]

// CreateTask shows the new task at the top of every cached list page until
// the server answers.
func (d *Data) CreateTask(ctx context.Context, req model.TaskCreateRequest) (model.Task, error) {
	if err := validateCreate(req); err != nil {
		d.fail("create task", err)
		return model.Task{}, err
	}

	ctx = withCreateKey(ctx)
	opt := d.optimisticTask(req)
	var created model.Task
	err := d.mutate(ctx, "create task", cache.Mutation{
		Scope:  scopeTasks,
		Cancel: []cache.Key{TaskListsKey()},
		Patch: func(tx *cache.Tx) {
			cache.PatchMatching(tx, TaskListsKey(), func(p taskPage) (taskPage, bool) {
				p.Content = append([]model.Task{opt}, p.Content...)
				p.TotalElements++
				p.Empty = false
				return p, true
			})
		},
		Send: func(ctx context.Context) error {
			var err error
			created, err = d.backend.CreateTask(ctx, req)
			return err
		},
		Invalidate: []cache.Key{TaskListsKey()},
	})
	return created, err
}

// UpdateTask shallow-merges req into the cached task wherever it appears.
func (d *Data) UpdateTask(ctx context.Context, id int64, req model.TaskUpdateRequest) (model.Task, error) {
	if err := validateUpdate(req); err != nil {
		d.fail("update task", err)
		return model.Task{}, err
	}

	now := d.now()
	var updated model.Task
	err := d.mutate(ctx, "update task", cache.Mutation{
		Scope:  scopeTasks,
		Cancel: []cache.Key{TasksKey()},
		Patch: func(tx *cache.Tx) {
			patchTask(tx, id, func(t model.Task) model.Task {
				t = req.Apply(t)
				t.UpdatedAt = now
				t.IsOverdue = t.Overdue(now)
				return t
			})
		},
		Send: func(ctx context.Context) error {
			var err error
			updated, err = d.backend.UpdateTask(ctx, id, req)
			return err
		},
		Invalidate: []cache.Key{TaskKey(id), TaskListsKey(), SubtaskListsKey(), SharedTasksKey()},
	})
	return updated, err
}

// DeleteTask hides the task from every cached list. Its detail entry is
// dropped once the server confirms.
func (d *Data) DeleteTask(ctx context.Context, id int64) error {
	return d.mutate(ctx, "delete task", cache.Mutation{
		Scope:  scopeTasks,
		Cancel: []cache.Key{TasksKey()},
		Patch: func(tx *cache.Tx) {
			cache.PatchMatching(tx, TaskListsKey(), func(p taskPage) (taskPage, bool) {
				rows, removed := withoutTask(p.Content, id)
				if !removed {
					return p, false
				}
				p.Content = rows
				if p.TotalElements > 0 {
					p.TotalElements--
				}
				p.Empty = len(rows) == 0
				return p, true
			})
			cache.PatchMatching(tx, SubtaskListsKey(), func(rows []model.Task) ([]model.Task, bool) {
				return withoutTask(rows, id)
			})
			cache.Patch(tx, SharedTasksKey(), func(rows []model.Task) ([]model.Task, bool) {
				return withoutTask(rows, id)
			})
		},
		Send: func(ctx context.Context) error {
			return d.backend.DeleteTask(ctx, id)
		},
		Remove:     []cache.Key{TaskKey(id), SubtasksKey(id)},
		Invalidate: []cache.Key{TaskListsKey(), SubtaskListsKey(), SharedTasksKey()},
	})
}

// ToggleComplete flips completion locally, then asks the server.
func (d *Data) ToggleComplete(ctx context.Context, id int64, completed bool) (model.Task, error) {
	now := d.now()
	var result model.Task
	err := d.mutate(ctx, "toggle task", cache.Mutation{
		Scope:  scopeTasks,
		Cancel: []cache.Key{TasksKey()},
		Patch: func(tx *cache.Tx) {
			patchTask(tx, id, func(t model.Task) model.Task {
				t.IsCompleted = completed
				if completed {
					at := now
					t.CompletedAt = &at
				} else {
					t.CompletedAt = nil
				}
				t.UpdatedAt = now
				t.IsOverdue = t.Overdue(now)
				return t
			})
		},
		Send: func(ctx context.Context) error {
			var err error
			result, err = d.backend.ToggleComplete(ctx, id, completed)
			return err
		},
		Invalidate: []cache.Key{TaskKey(id), TaskListsKey(), SubtaskListsKey(), SharedTasksKey()},
	})
	return result, err
}

// CreateSubtask nests a new task under parentID. Parents already at
// model.MaxSubtaskDepth are rejected before any request is made.
func (d *Data) CreateSubtask(ctx context.Context, parentID int64, req model.TaskCreateRequest) (model.Task, error) {
	if err := validateCreate(req); err != nil {
		d.fail("create subtask", err)
		return model.Task{}, err
	}
	parent, err := d.Task(ctx, parentID)
	if err != nil {
		return model.Task{}, err
	}
	if parent.Depth >= model.MaxSubtaskDepth {
		err := invalid("subtasks can be nested at most %d levels deep", model.MaxSubtaskDepth)
		d.fail("create subtask", err)
		return model.Task{}, err
	}

	ctx = withCreateKey(ctx)
	opt := d.optimisticTask(req)
	opt.ParentTaskID = &parentID
	opt.Depth = parent.Depth + 1

	var created model.Task
	err = d.mutate(ctx, "create subtask", cache.Mutation{
		Scope:  scopeTasks,
		Cancel: []cache.Key{SubtasksKey(parentID)},
		Patch: func(tx *cache.Tx) {
			cache.Patch(tx, SubtasksKey(parentID), func(rows []model.Task) ([]model.Task, bool) {
				return append([]model.Task{opt}, rows...), true
			})
		},
		Send: func(ctx context.Context) error {
			var err error
			created, err = d.backend.CreateSubtask(ctx, parentID, req)
			return err
		},
		Invalidate: []cache.Key{SubtasksKey(parentID), TaskKey(parentID), TaskListsKey()},
	})
	return created, err
}

// ShareTask has no optimistic effect; shared-task views are refreshed after
// the server accepts it.
func (d *Data) ShareTask(ctx context.Context, id int64, req model.ShareRequest) (model.TaskShare, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Permission = model.Permission(strings.ToUpper(string(req.Permission)))
	if req.Email == "" {
		err := invalid("email is required")
		d.fail("share task", err)
		return model.TaskShare{}, err
	}
	if err := ValidatePermission(req.Permission); err != nil {
		d.fail("share task", err)
		return model.TaskShare{}, err
	}

	var share model.TaskShare
	err := d.mutate(ctx, "share task", cache.Mutation{
		Scope: scopeTasks,
		Send: func(ctx context.Context) error {
			var err error
			share, err = d.backend.ShareTask(ctx, id, req)
			return err
		},
		Invalidate: []cache.Key{SharedTasksKey(), TaskKey(id)},
	})
	if err == nil {
		d.logger.Info("task shared", zap.Int64("task_id", id), zap.String("with", req.Email))
		d.notifier.Info("Task shared with " + req.Email)
	}
	return share, err
}

// withCreateKey gives a create request an idempotency key unless the caller
// chose one, so a retried POST cannot create the task twice.
func withCreateKey(ctx context.Context) context.Context {
	if _, ok := api.IdempotencyKey(ctx); ok {
		return ctx
	}
	return api.WithIdempotencyKey(ctx, uuid.NewString())
}

func (d *Data) optimisticTask(req model.TaskCreateRequest) model.Task {
	now := d.now()
	prio := req.Priority
	if prio == "" {
		prio = model.PriorityMedium
	}
	t := model.Task{
		ID:                       d.nextTempID(),
		Description:              strings.TrimSpace(req.Description),
		Priority:                 prio,
		DueDate:                  req.DueDate,
		CategoryID:               req.CategoryID,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	t.IsOverdue = t.Overdue(now)
	return t
}

// patchTask applies fn to task id in its detail entry and in every cached
// collection that holds it.
func patchTask(tx *cache.Tx, id int64, fn func(model.Task) model.Task) {
	cache.Patch(tx, TaskKey(id), func(t model.Task) (model.Task, bool) {
		return fn(t), true
	})
	cache.PatchMatching(tx, TaskListsKey(), func(p taskPage) (taskPage, bool) {
		rows, changed := mapTask(p.Content, id, fn)
		p.Content = rows
		return p, changed
	})
	cache.PatchMatching(tx, SubtaskListsKey(), func(rows []model.Task) ([]model.Task, bool) {
		return mapTask(rows, id, fn)
	})
	cache.Patch(tx, SharedTasksKey(), func(rows []model.Task) ([]model.Task, bool) {
		return mapTask(rows, id, fn)
	})
}

func mapTask(rows []model.Task, id int64, fn func(model.Task) model.Task) ([]model.Task, bool) {
	idx := -1
	for i, t := range rows {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return rows, false
	}
	out := append([]model.Task(nil), rows...)
	out[idx] = fn(out[idx])
	return out, true
}

func withoutTask(rows []model.Task, id int64) ([]model.Task, bool) {
	out := make([]model.Task, 0, len(rows))
	for _, t := range rows {
		if t.ID != id {
			out = append(out, t)
		}
	}
	if len(out) == len(rows) {
		return rows, false
	}
	return out, true
}
