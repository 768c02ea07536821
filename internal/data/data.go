// Package data binds the API client to the query cache: typed queries with
// per-resource stale times and optimistic mutations with rollback.
package data

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/api"
	"github.com/NhaLeTruc/todo-sync/internal/cache"
	"github.com/NhaLeTruc/todo-sync/internal/model"
	"github.com/NhaLeTruc/todo-sync/internal/notify"
)

const (
	staleTaskList      = 30 * time.Second
	staleTask          = 30 * time.Second
	staleSubtasks      = 30 * time.Second
	staleShared        = 30 * time.Second
	staleComments      = 10 * time.Second
	staleNotifications = 5 * time.Second
	staleLabels        = 60 * time.Second
	staleTimeEntries   = 10 * time.Second
)

const (
	scopeTasks         = "tasks"
	scopeComments      = "comments"
	scopeNotifications = "notifications"
	scopeTime          = "time"
)

// Backend is the part of the API the cache layer reads and writes through.
type Backend interface {
	ListTasks(ctx context.Context, p api.ListParams) (model.Page[model.Task], error)
	GetTask(ctx context.Context, id int64) (model.Task, error)
	CreateTask(ctx context.Context, req model.TaskCreateRequest) (model.Task, error)
	UpdateTask(ctx context.Context, id int64, req model.TaskUpdateRequest) (model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	ToggleComplete(ctx context.Context, id int64, completed bool) (model.Task, error)
	ListSubtasks(ctx context.Context, parentID int64) ([]model.Task, error)
	CreateSubtask(ctx context.Context, parentID int64, req model.TaskCreateRequest) (model.Task, error)
	ShareTask(ctx context.Context, id int64, req model.ShareRequest) (model.TaskShare, error)
	SharedWithMe(ctx context.Context) ([]model.Task, error)

	ListComments(ctx context.Context, taskID int64) ([]model.Comment, error)
	CreateComment(ctx context.Context, taskID int64, req model.CommentRequest) (model.Comment, error)
	UpdateComment(ctx context.Context, id int64, req model.CommentRequest) (model.Comment, error)
	DeleteComment(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]model.Category, error)
	ListTags(ctx context.Context) ([]model.Tag, error)

	ListNotifications(ctx context.Context) ([]model.Notification, error)
	CountUnread(ctx context.Context) (int64, error)
	MarkRead(ctx context.Context, id string) (model.Notification, error)
	MarkAllRead(ctx context.Context) error
	DeleteNotification(ctx context.Context, id string) error

	StartTimer(ctx context.Context, taskID int64, notes *string) (model.TimeEntry, error)
	StopTimer(ctx context.Context, id int64) (model.TimeEntry, error)
	LogTime(ctx context.Context, taskID int64, req model.ManualTimeRequest) (model.TimeEntry, error)
	ListTimeEntries(ctx context.Context, taskID int64) ([]model.TimeEntry, error)
	ActiveTimer(ctx context.Context, taskID int64) (*model.TimeEntry, error)
	TotalTime(ctx context.Context, taskID int64) (int, error)
	TimeReport(ctx context.Context, from, to time.Time) (model.TimeReport, error)
	DeleteTimeEntry(ctx context.Context, id int64) error
}

type Data struct {
	store    *cache.Store
	backend  Backend
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
	// tempID hands out negative ids for optimistic rows.
	tempID atomic.Int64
}

func New(store *cache.Store, backend Backend, notifier notify.Notifier, logger *zap.Logger) *Data {
	return &Data{
		store:    store,
		backend:  backend,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// StoreOptions returns cache options that classify API errors and report
// every failed read once through n.
func StoreOptions(n notify.Notifier) cache.Options {
	return cache.Options{
		Retryable:        api.Retryable,
		DefaultStaleTime: staleTask,
		OnError: func(_ cache.Key, err error) {
			n.Error(api.Message(err))
		},
	}
}

func (d *Data) Store() *cache.Store { return d.store }

func (d *Data) nextTempID() int64 {
	return d.tempID.Add(-1)
}

// mutate runs m and reports a failure to the notifier exactly once.
func (d *Data) mutate(ctx context.Context, name string, m cache.Mutation) error {
	err := d.store.Mutate(ctx, m)
	if err != nil {
		d.fail(name, err)
	}
	return err
}

func (d *Data) fail(name string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	d.logger.Warn("mutation failed", zap.String("mutation", name), zap.Error(err))
	if errors.Is(err, ErrValidation) {
		d.notifier.Error(err.Error())
		return
	}
	d.notifier.Error(api.Message(err))
}
