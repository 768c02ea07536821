package data

import (
	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

// ApplyTaskUpdate reconciles the cache with a task change pushed by the
// server. It never patches values; it only drops or invalidates entries so
// the next read fetches authoritative data.
func (d *Data) ApplyTaskUpdate(u model.TaskUpdate) {
	switch u.Action {
	case model.ActionDeleted:
		d.store.Remove(TaskKey(u.TaskID))
		d.store.Remove(SubtasksKey(u.TaskID))
		d.store.Invalidate(TaskListsKey())
		d.store.Invalidate(SubtaskListsKey())
	case model.ActionShared:
		d.store.Invalidate(TaskKey(u.TaskID))
		d.store.Invalidate(TaskListsKey())
		d.store.Invalidate(SharedTasksKey())
	case model.ActionCreated, model.ActionUpdated, model.ActionCompleted:
		d.store.Invalidate(TaskKey(u.TaskID))
		d.store.Invalidate(TaskListsKey())
		d.store.Invalidate(SubtaskListsKey())
	default:
		d.logger.Warn("unknown task update action",
			zap.String("action", string(u.Action)),
			zap.Int64("task_id", u.TaskID),
		)
		return
	}
	d.logger.Debug("task update applied", zap.String("action", string(u.Action)), zap.Int64("task_id", u.TaskID))
}

// ApplyNotification refreshes the notification views and shows the message.
func (d *Data) ApplyNotification(n model.Notification) {
	d.store.Invalidate(NotificationsPrefix())
	if n.Message != "" {
		d.notifier.Info(n.Message)
	}
}
