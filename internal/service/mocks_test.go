package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, userID int64, t model.Task, tagIDs []int64) (model.Task, error) {
	args := m.Called(ctx, userID, t, tagIDs)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) SaveIdempotencyKey(ctx context.Context, userID int64, key string, taskID int64) error {
	return m.Called(ctx, userID, key, taskID).Error(0)
}

func (m *MockTaskRepository) GetIdempotencyKey(ctx context.Context, userID int64, key string) (int64, error) {
	args := m.Called(ctx, userID, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskRepository) Get(ctx context.Context, id int64) (model.Task, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Owner(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context, filter model.TaskFilter, page model.PageRequest) ([]model.Task, int64, error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).([]model.Task), args.Get(1).(int64), args.Error(2)
}

func (m *MockTaskRepository) Count(ctx context.Context, userID int64, completed *bool) (int64, error) {
	args := m.Called(ctx, userID, completed)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskRepository) Subtasks(ctx context.Context, parentID int64) ([]model.Task, error) {
	args := m.Called(ctx, parentID)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) HasSubtasks(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, t model.Task, tagIDs []int64) (model.Task, error) {
	args := m.Called(ctx, t, tagIDs)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) SetCompleted(ctx context.Context, id int64, done bool) (model.Task, error) {
	args := m.Called(ctx, id, done)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskRepository) SharedWith(ctx context.Context, userID int64) ([]model.Task, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Task), args.Error(1)
}

type MockShareRepository struct {
	mock.Mock
}

func (m *MockShareRepository) Upsert(ctx context.Context, taskID, userID int64, perm model.Permission) (model.TaskShare, error) {
	args := m.Called(ctx, taskID, userID, perm)
	return args.Get(0).(model.TaskShare), args.Error(1)
}

func (m *MockShareRepository) List(ctx context.Context, taskID int64) ([]model.TaskShare, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).([]model.TaskShare), args.Error(1)
}

func (m *MockShareRepository) Delete(ctx context.Context, taskID, userID int64) error {
	args := m.Called(ctx, taskID, userID)
	return args.Error(0)
}

func (m *MockShareRepository) Permission(ctx context.Context, taskID, userID int64) (model.Permission, error) {
	args := m.Called(ctx, taskID, userID)
	return args.Get(0).(model.Permission), args.Error(1)
}

func (m *MockShareRepository) Recipients(ctx context.Context, taskID int64) ([]int64, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).([]int64), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, email, passwordHash string, fullName *string) (model.User, error) {
	args := m.Called(ctx, email, passwordHash, fullName)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) Get(ctx context.Context, id int64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) ByEmail(ctx context.Context, email string) (model.User, string, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.String(1), args.Error(2)
}

func (m *MockUserRepository) TouchLogin(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserRepository) CreateToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	return m.Called(ctx, token, userID, expiresAt).Error(0)
}

func (m *MockUserRepository) UserByToken(ctx context.Context, token string) (int64, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) DeleteToken(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n model.Notification) (model.Notification, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(model.Notification), args.Error(1)
}

func (m *MockNotificationRepository) ListUnread(ctx context.Context, userID int64) ([]model.Notification, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Notification), args.Error(1)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, userID int64, id string) (model.Notification, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(model.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockNotificationRepository) Delete(ctx context.Context, userID int64, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) List(ctx context.Context, taskID int64) ([]model.Comment, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).([]model.Comment), args.Error(1)
}

func (m *MockCommentRepository) Get(ctx context.Context, id int64) (model.Comment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Comment), args.Error(1)
}

func (m *MockCommentRepository) Create(ctx context.Context, taskID, authorID int64, content string) (model.Comment, error) {
	args := m.Called(ctx, taskID, authorID, content)
	return args.Get(0).(model.Comment), args.Error(1)
}

func (m *MockCommentRepository) Update(ctx context.Context, id int64, content string) (model.Comment, error) {
	args := m.Called(ctx, id, content)
	return args.Get(0).(model.Comment), args.Error(1)
}

func (m *MockCommentRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishJSON(userID int64, destination string, v any) (int, error) {
	args := m.Called(userID, destination, v)
	return args.Int(0), args.Error(1)
}

type MockTimeEntryRepository struct {
	mock.Mock
}

func (m *MockTimeEntryRepository) StartTimer(ctx context.Context, taskID, userID int64, notes *string) (model.TimeEntry, error) {
	args := m.Called(ctx, taskID, userID, notes)
	return args.Get(0).(model.TimeEntry), args.Error(1)
}

func (m *MockTimeEntryRepository) Stop(ctx context.Context, id int64) (model.TimeEntry, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.TimeEntry), args.Error(1)
}

func (m *MockTimeEntryRepository) LogManual(ctx context.Context, taskID, userID int64, minutes int, notes *string, loggedAt time.Time) (model.TimeEntry, error) {
	args := m.Called(ctx, taskID, userID, minutes, notes, loggedAt)
	return args.Get(0).(model.TimeEntry), args.Error(1)
}

func (m *MockTimeEntryRepository) Get(ctx context.Context, id int64) (model.TimeEntry, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.TimeEntry), args.Error(1)
}

func (m *MockTimeEntryRepository) ListForTask(ctx context.Context, taskID int64) ([]model.TimeEntry, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).([]model.TimeEntry), args.Error(1)
}

func (m *MockTimeEntryRepository) Active(ctx context.Context, taskID, userID int64) (model.TimeEntry, error) {
	args := m.Called(ctx, taskID, userID)
	return args.Get(0).(model.TimeEntry), args.Error(1)
}

func (m *MockTimeEntryRepository) ActiveForUser(ctx context.Context, userID int64) (model.TimeEntry, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.TimeEntry), args.Error(1)
}

func (m *MockTimeEntryRepository) TotalForTask(ctx context.Context, taskID int64) (int, error) {
	args := m.Called(ctx, taskID)
	return args.Int(0), args.Error(1)
}

func (m *MockTimeEntryRepository) ListForUser(ctx context.Context, userID int64, from, to time.Time) ([]model.TimeEntry, error) {
	args := m.Called(ctx, userID, from, to)
	return args.Get(0).([]model.TimeEntry), args.Error(1)
}

func (m *MockTimeEntryRepository) UpdateNotes(ctx context.Context, id int64, notes *string) (model.TimeEntry, error) {
	args := m.Called(ctx, id, notes)
	return args.Get(0).(model.TimeEntry), args.Error(1)
}

func (m *MockTimeEntryRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
