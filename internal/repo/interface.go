package repo

import (
	"context"
	"time"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

type TaskRepository interface {
	Create(ctx context.Context, userID int64, t model.Task, tagIDs []int64) (model.Task, error)
	Get(ctx context.Context, id int64) (model.Task, error)
	Owner(ctx context.Context, id int64) (int64, error)
	List(ctx context.Context, filter model.TaskFilter, page model.PageRequest) ([]model.Task, int64, error)
	Count(ctx context.Context, userID int64, completed *bool) (int64, error)
	Subtasks(ctx context.Context, parentID int64) ([]model.Task, error)
	HasSubtasks(ctx context.Context, id int64) (bool, error)
	Update(ctx context.Context, t model.Task, tagIDs []int64) (model.Task, error)
	SetCompleted(ctx context.Context, id int64, done bool) (model.Task, error)
	Delete(ctx context.Context, id int64) error
	SharedWith(ctx context.Context, userID int64) ([]model.Task, error)
	SaveIdempotencyKey(ctx context.Context, userID int64, key string, taskID int64) error
	GetIdempotencyKey(ctx context.Context, userID int64, key string) (int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, email, passwordHash string, fullName *string) (model.User, error)
	Get(ctx context.Context, id int64) (model.User, error)
	// ByEmail returns the user and the stored password hash.
	ByEmail(ctx context.Context, email string) (model.User, string, error)
	TouchLogin(ctx context.Context, id int64) error
	CreateToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	UserByToken(ctx context.Context, token string) (int64, error)
	DeleteToken(ctx context.Context, token string) error
}

type ShareRepository interface {
	Upsert(ctx context.Context, taskID, userID int64, perm model.Permission) (model.TaskShare, error)
	List(ctx context.Context, taskID int64) ([]model.TaskShare, error)
	Delete(ctx context.Context, taskID, userID int64) error
	Permission(ctx context.Context, taskID, userID int64) (model.Permission, error)
	Recipients(ctx context.Context, taskID int64) ([]int64, error)
}

type CommentRepository interface {
	List(ctx context.Context, taskID int64) ([]model.Comment, error)
	Get(ctx context.Context, id int64) (model.Comment, error)
	Create(ctx context.Context, taskID, authorID int64, content string) (model.Comment, error)
	Update(ctx context.Context, id int64, content string) (model.Comment, error)
	Delete(ctx context.Context, id int64) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n model.Notification) (model.Notification, error)
	ListUnread(ctx context.Context, userID int64) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, userID int64, id string) (model.Notification, error)
	MarkAllRead(ctx context.Context, userID int64) error
	Delete(ctx context.Context, userID int64, id string) error
}

type LabelRepository interface {
	List(ctx context.Context, userID int64) ([]model.Label, error)
	Create(ctx context.Context, userID int64, req model.LabelRequest) (model.Label, error)
	Update(ctx context.Context, userID, id int64, req model.LabelRequest) (model.Label, error)
	Delete(ctx context.Context, userID, id int64) error
}

type TimeEntryRepository interface {
	StartTimer(ctx context.Context, taskID, userID int64, notes *string) (model.TimeEntry, error)
	Stop(ctx context.Context, id int64) (model.TimeEntry, error)
	LogManual(ctx context.Context, taskID, userID int64, minutes int, notes *string, loggedAt time.Time) (model.TimeEntry, error)
	Get(ctx context.Context, id int64) (model.TimeEntry, error)
	ListForTask(ctx context.Context, taskID int64) ([]model.TimeEntry, error)
	Active(ctx context.Context, taskID, userID int64) (model.TimeEntry, error)
	ActiveForUser(ctx context.Context, userID int64) (model.TimeEntry, error)
	TotalForTask(ctx context.Context, taskID int64) (int, error)
	ListForUser(ctx context.Context, userID int64, from, to time.Time) ([]model.TimeEntry, error)
	UpdateNotes(ctx context.Context, id int64, notes *string) (model.TimeEntry, error)
	Delete(ctx context.Context, id int64) error
}
