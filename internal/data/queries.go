package data

import (
	"context"

	"github.com/NhaLeTruc/todo-sync/internal/api"
	"github.com/NhaLeTruc/todo-sync/internal/cache"
	"github.com/NhaLeTruc/todo-sync/internal/model"
)

func (d *Data) Tasks(ctx context.Context, p api.ListParams) (model.Page[model.Task], error) {
	p = p.Normalize()
	return cache.Fetch(ctx, d.store, TaskListKey(p), staleTaskList, func(ctx context.Context) (model.Page[model.Task], error) {
		return d.backend.ListTasks(ctx, p)
	})
}

func (d *Data) Task(ctx context.Context, id int64) (model.Task, error) {
	return cache.Fetch(ctx, d.store, TaskKey(id), staleTask, func(ctx context.Context) (model.Task, error) {
		return d.backend.GetTask(ctx, id)
	})
}

func (d *Data) Subtasks(ctx context.Context, parentID int64) ([]model.Task, error) {
	return cache.Fetch(ctx, d.store, SubtasksKey(parentID), staleSubtasks, func(ctx context.Context) ([]model.Task, error) {
		return d.backend.ListSubtasks(ctx, parentID)
	})
}

func (d *Data) SharedWithMe(ctx context.Context) ([]model.Task, error) {
	return cache.Fetch(ctx, d.store, SharedTasksKey(), staleShared, func(ctx context.Context) ([]model.Task, error) {
		return d.backend.SharedWithMe(ctx)
	})
}

func (d *Data) Comments(ctx context.Context, taskID int64) ([]model.Comment, error) {
	return cache.Fetch(ctx, d.store, CommentsKey(taskID), staleComments, func(ctx context.Context) ([]model.Comment, error) {
		return d.backend.ListComments(ctx, taskID)
	})
}

// Notifications returns the unread notifications.
func (d *Data) Notifications(ctx context.Context) ([]model.Notification, error) {
	return cache.Fetch(ctx, d.store, NotificationsKey(), staleNotifications, func(ctx context.Context) ([]model.Notification, error) {
		return d.backend.ListNotifications(ctx)
	})
}

func (d *Data) UnreadCount(ctx context.Context) (int64, error) {
	return cache.Fetch(ctx, d.store, NotificationCountKey(), staleNotifications, func(ctx context.Context) (int64, error) {
		return d.backend.CountUnread(ctx)
	})
}

func (d *Data) Categories(ctx context.Context) ([]model.Category, error) {
	return cache.Fetch(ctx, d.store, CategoriesKey(), staleLabels, func(ctx context.Context) ([]model.Category, error) {
		return d.backend.ListCategories(ctx)
	})
}

func (d *Data) Tags(ctx context.Context) ([]model.Tag, error) {
	return cache.Fetch(ctx, d.store, TagsKey(), staleLabels, func(ctx context.Context) ([]model.Tag, error) {
		return d.backend.ListTags(ctx)
	})
}
