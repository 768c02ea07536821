package data

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/NhaLeTruc/todo-sync/internal/api"
	"github.com/NhaLeTruc/todo-sync/internal/model"
)

// MockBackend is a testify mock of the API surface used by Data.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) ListTasks(ctx context.Context, p api.ListParams) (model.Page[model.Task], error) {
	args := m.Called(ctx, p)
	return args.Get(0).(model.Page[model.Task]), args.Error(1)
}

func (m *MockBackend) GetTask(ctx context.Context, id int64) (model.Task, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockBackend) CreateTask(ctx context.Context, req model.TaskCreateRequest) (model.Task, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockBackend) UpdateTask(ctx context.Context, id int64, req model.TaskUpdateRequest) (model.Task, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockBackend) DeleteTask(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBackend) ToggleComplete(ctx context.Context, id int64, completed bool) (model.Task, error) {
	args := m.Called(ctx, id, completed)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockBackend) ListSubtasks(ctx context.Context, parentID int64) ([]model.Task, error) {
	args := m.Called(ctx, parentID)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockBackend) CreateSubtask(ctx context.Context, parentID int64, req model.TaskCreateRequest) (model.Task, error) {
	args := m.Called(ctx, parentID, req)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockBackend) ShareTask(ctx context.Context, id int64, req model.ShareRequest) (model.TaskShare, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(model.TaskShare), args.Error(1)
}

func (m *MockBackend) SharedWithMe(ctx context.Context) ([]model.Task, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockBackend) ListComments(ctx context.Context, taskID int64) ([]model.Comment, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).([]model.Comment), args.Error(1)
}

func (m *MockBackend) CreateComment(ctx context.Context, taskID int64, req model.CommentRequest) (model.Comment, error) {
	args := m.Called(ctx, taskID, req)
	return args.Get(0).(model.Comment), args.Error(1)
}

func (m *MockBackend) UpdateComment(ctx context.Context, id int64, req model.CommentRequest) (model.Comment, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(model.Comment), args.Error(1)
}

func (m *MockBackend) DeleteComment(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBackend) ListCategories(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Category), args.Error(1)
}

func (m *MockBackend) ListTags(ctx context.Context) ([]model.Tag, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Tag), args.Error(1)
}

func (m *MockBackend) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Notification), args.Error(1)
}

func (m *MockBackend) CountUnread(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBackend) MarkRead(ctx context.Context, id string) (model.Notification, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Notification), args.Error(1)
}

func (m *MockBackend) MarkAllRead(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBackend) DeleteNotification(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBackend) StartTimer(ctx context.Context, taskID int64, notes *string) (model.TimeEntry, error) {
	args := m.Called(ctx, taskID, notes)
	return args.Get(0).(model.TimeEntry), args.Error(1)
}

func (m *MockBackend) StopTimer(ctx context.Context, id int64) (model.TimeEntry, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.TimeEntry), args.Error(1)
}

func (m *MockBackend) LogTime(ctx context.Context, taskID int64, req model.ManualTimeRequest) (model.TimeEntry, error) {
	args := m.Called(ctx, taskID, req)
	return args.Get(0).(model.TimeEntry), args.Error(1)
}

func (m *MockBackend) ListTimeEntries(ctx context.Context, taskID int64) ([]model.TimeEntry, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).([]model.TimeEntry), args.Error(1)
}

func (m *MockBackend) ActiveTimer(ctx context.Context, taskID int64) (*model.TimeEntry, error) {
	args := m.Called(ctx, taskID)
	e, _ := args.Get(0).(*model.TimeEntry)
	return e, args.Error(1)
}

func (m *MockBackend) TotalTime(ctx context.Context, taskID int64) (int, error) {
	args := m.Called(ctx, taskID)
	return args.Int(0), args.Error(1)
}

func (m *MockBackend) TimeReport(ctx context.Context, from, to time.Time) (model.TimeReport, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(model.TimeReport), args.Error(1)
}

func (m *MockBackend) DeleteTimeEntry(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
