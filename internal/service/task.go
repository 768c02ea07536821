package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/model"
	"github.com/NhaLeTruc/todo-sync/internal/push"
	"github.com/NhaLeTruc/todo-sync/internal/repo"
)

const (
	maxTextLength   = 5000
	defaultPageSize = 20
	maxPageSize     = 100
)

// Publisher delivers a JSON message to one user's push destination.
type Publisher interface {
	PublishJSON(userID int64, destination string, v any) (int, error)
}

type nopPublisher struct{}

func (nopPublisher) PublishJSON(int64, string, any) (int, error) { return 0, nil }

type TaskService struct {
	tasks  repo.TaskRepository
	shares repo.ShareRepository
	users  repo.UserRepository
	notes  repo.NotificationRepository
	pub    Publisher
	logger *zap.Logger
}

// NewTaskService wires the task repositories. A nil pub disables push.
func NewTaskService(tasks repo.TaskRepository, shares repo.ShareRepository, users repo.UserRepository,
	notes repo.NotificationRepository, pub Publisher, logger *zap.Logger) *TaskService {
	if pub == nil {
		pub = nopPublisher{}
	}
	return &TaskService{tasks: tasks, shares: shares, users: users, notes: notes, pub: pub, logger: logger}
}

func (s *TaskService) List(ctx context.Context, filter model.TaskFilter, page model.PageRequest) (model.Page[model.Task], error) {
	if page.Page < 0 {
		page.Page = 0
	}
	if page.Size <= 0 || page.Size > maxPageSize {
		page.Size = defaultPageSize
	}
	tasks, total, err := s.tasks.List(ctx, filter, page)
	if err != nil {
		return model.Page[model.Task]{}, err
	}
	return model.NewPage(tasks, total, page.Page, page.Size), nil
}

func (s *TaskService) Get(ctx context.Context, userID, id int64) (model.Task, error) {
	if _, err := s.Authorize(ctx, userID, id, false); err != nil {
		return model.Task{}, err
	}
	return s.tasks.Get(ctx, id)
}

func (s *TaskService) Count(ctx context.Context, userID int64, completed *bool) (int64, error) {
	return s.tasks.Count(ctx, userID, completed)
}

// Create makes a root task. A non-empty idempKey that already produced a
// task for this user returns that task instead of creating another.
func (s *TaskService) Create(ctx context.Context, userID int64, req model.TaskCreateRequest, idempKey string) (model.Task, error) {
	if t, ok := s.replay(ctx, userID, idempKey); ok {
		return t, nil
	}
	t, err := newTask(req)
	if err != nil {
		return t, err
	}
	created, err := s.tasks.Create(ctx, userID, t, req.TagIDs)
	if err != nil {
		return created, err
	}
	s.remember(ctx, userID, idempKey, created.ID)
	s.publish(model.ActionCreated, userID, created, userID)
	return created, nil
}

// CreateSubtask nests a task under parentID. The subtask belongs to the
// parent's owner and may be at most MaxSubtaskDepth levels deep.
func (s *TaskService) CreateSubtask(ctx context.Context, userID, parentID int64, req model.TaskCreateRequest, idempKey string) (model.Task, error) {
	if t, ok := s.replay(ctx, userID, idempKey); ok {
		return t, nil
	}
	t, err := newTask(req)
	if err != nil {
		return t, err
	}
	owner, err := s.Authorize(ctx, userID, parentID, true)
	if err != nil {
		return t, err
	}
	parent, err := s.tasks.Get(ctx, parentID)
	if err != nil {
		return t, err
	}
	if parent.Depth+1 > model.MaxSubtaskDepth {
		return t, invalid("subtasks may be nested at most %d levels deep", model.MaxSubtaskDepth)
	}
	t.ParentTaskID = &parent.ID
	t.Depth = parent.Depth + 1

	created, err := s.tasks.Create(ctx, owner, t, req.TagIDs)
	if err != nil {
		return created, err
	}
	s.remember(ctx, userID, idempKey, created.ID)
	s.publish(model.ActionCreated, userID, created, owner)
	return created, nil
}

// replay finds the task an earlier request with the same key created.
func (s *TaskService) replay(ctx context.Context, userID int64, key string) (model.Task, bool) {
	if key == "" {
		return model.Task{}, false
	}
	id, err := s.tasks.GetIdempotencyKey(ctx, userID, key)
	if err != nil {
		return model.Task{}, false
	}
	t, err := s.tasks.Get(ctx, id)
	if err != nil {
		return model.Task{}, false
	}
	return t, true
}

func (s *TaskService) remember(ctx context.Context, userID int64, key string, taskID int64) {
	if key == "" {
		return
	}
	if err := s.tasks.SaveIdempotencyKey(ctx, userID, key, taskID); err != nil {
		s.logger.Warn("failed to save idempotency key", zap.Int64("task_id", taskID), zap.Error(err))
	}
}

func (s *TaskService) Subtasks(ctx context.Context, userID, parentID int64) ([]model.Task, error) {
	if _, err := s.Authorize(ctx, userID, parentID, false); err != nil {
		return nil, err
	}
	return s.tasks.Subtasks(ctx, parentID)
}

func (s *TaskService) HasSubtasks(ctx context.Context, userID, id int64) (bool, error) {
	if _, err := s.Authorize(ctx, userID, id, false); err != nil {
		return false, err
	}
	return s.tasks.HasSubtasks(ctx, id)
}

func (s *TaskService) Update(ctx context.Context, userID, id int64, req model.TaskUpdateRequest) (model.Task, error) {
	if err := validateUpdate(&req); err != nil {
		return model.Task{}, err
	}
	owner, err := s.Authorize(ctx, userID, id, true)
	if err != nil {
		return model.Task{}, err
	}
	current, err := s.tasks.Get(ctx, id)
	if err != nil {
		return current, err
	}
	updated, err := s.tasks.Update(ctx, req.Apply(current), req.TagIDs)
	if err != nil {
		return updated, err
	}
	s.publish(model.ActionUpdated, userID, updated, s.audience(ctx, owner, id)...)
	return updated, nil
}

func (s *TaskService) SetCompleted(ctx context.Context, userID, id int64, done bool) (model.Task, error) {
	owner, err := s.Authorize(ctx, userID, id, true)
	if err != nil {
		return model.Task{}, err
	}
	t, err := s.tasks.SetCompleted(ctx, id, done)
	if err != nil {
		return t, err
	}
	action := model.ActionUpdated
	if done {
		action = model.ActionCompleted
	}
	s.publish(action, userID, t, s.audience(ctx, owner, id)...)
	return t, nil
}

// Delete is reserved for the owner.
func (s *TaskService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.ownerOnly(ctx, userID, id); err != nil {
		return err
	}
	audience := s.audience(ctx, userID, id)
	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(model.ActionDeleted, userID, model.Task{ID: id}, audience...)
	return nil
}

func (s *TaskService) Share(ctx context.Context, userID, taskID int64, req model.ShareRequest) (model.TaskShare, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Permission = model.Permission(strings.ToUpper(strings.TrimSpace(string(req.Permission))))
	if req.Email == "" {
		return model.TaskShare{}, invalid("email is required")
	}
	if req.Permission != model.PermissionView && req.Permission != model.PermissionEdit {
		return model.TaskShare{}, invalid("permission must be VIEW or EDIT")
	}
	if err := s.ownerOnly(ctx, userID, taskID); err != nil {
		return model.TaskShare{}, err
	}

	target, _, err := s.users.ByEmail(ctx, req.Email)
	if errors.Is(err, repo.ErrorNotFound) {
		return model.TaskShare{}, invalid("no user with email %s", req.Email)
	}
	if err != nil {
		return model.TaskShare{}, err
	}
	if target.ID == userID {
		return model.TaskShare{}, invalid("a task cannot be shared with its owner")
	}

	share, err := s.shares.Upsert(ctx, taskID, target.ID, req.Permission)
	if err != nil {
		return share, err
	}
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return share, err
	}
	s.publish(model.ActionShared, userID, task, target.ID)
	s.notify(ctx, model.Notification{
		UserID:        target.ID,
		Type:          model.NotificationShared,
		Message:       "A task was shared with you: " + task.Description,
		RelatedTaskID: &task.ID,
	})
	return share, nil
}

func (s *TaskService) Shares(ctx context.Context, userID, taskID int64) ([]model.TaskShare, error) {
	if err := s.ownerOnly(ctx, userID, taskID); err != nil {
		return nil, err
	}
	return s.shares.List(ctx, taskID)
}

func (s *TaskService) RevokeShare(ctx context.Context, userID, taskID, targetID int64) error {
	if err := s.ownerOnly(ctx, userID, taskID); err != nil {
		return err
	}
	if err := s.shares.Delete(ctx, taskID, targetID); err != nil {
		return err
	}
	s.publish(model.ActionShared, userID, model.Task{ID: taskID}, targetID)
	return nil
}

func (s *TaskService) SharedWithMe(ctx context.Context, userID int64) ([]model.Task, error) {
	return s.tasks.SharedWith(ctx, userID)
}

// Authorize returns the task owner when userID may see the task, and may
// edit it when edit is set. Tasks the user cannot see are reported as not
// found.
func (s *TaskService) Authorize(ctx context.Context, userID, taskID int64, edit bool) (int64, error) {
	owner, err := s.tasks.Owner(ctx, taskID)
	if err != nil {
		return 0, err
	}
	if owner == userID {
		return owner, nil
	}
	perm, err := s.shares.Permission(ctx, taskID, userID)
	if err != nil {
		return 0, err
	}
	if edit && perm != model.PermissionEdit {
		return 0, ErrForbidden
	}
	return owner, nil
}

func (s *TaskService) ownerOnly(ctx context.Context, userID, taskID int64) error {
	owner, err := s.Authorize(ctx, userID, taskID, false)
	if err != nil {
		return err
	}
	if owner != userID {
		return ErrForbidden
	}
	return nil
}

// audience is the owner plus everyone the task is shared with.
func (s *TaskService) audience(ctx context.Context, owner, taskID int64) []int64 {
	ids := []int64{owner}
	others, err := s.shares.Recipients(ctx, taskID)
	if err != nil {
		s.logger.Warn("failed to load share recipients", zap.Int64("task_id", taskID), zap.Error(err))
		return ids
	}
	return append(ids, others...)
}

func (s *TaskService) publish(action model.Action, actor int64, t model.Task, to ...int64) {
	msg := model.NewTaskUpdate(action, actor, t)
	if t.Description == "" {
		// Only the id is known.
		msg = model.TaskUpdate{TaskID: t.ID, Action: action, UserID: actor, Timestamp: msg.Timestamp}
	}
	seen := make(map[int64]bool, len(to))
	for _, uid := range to {
		if seen[uid] {
			continue
		}
		seen[uid] = true
		if _, err := s.pub.PublishJSON(uid, push.TaskUpdates, msg); err != nil {
			s.logger.Warn("failed to publish task update", zap.Int64("task_id", t.ID), zap.Error(err))
		}
	}
}

func (s *TaskService) notify(ctx context.Context, n model.Notification) {
	created, err := s.notes.Create(ctx, n)
	if err != nil {
		s.logger.Error("failed to create notification", zap.Int64("user_id", n.UserID), zap.Error(err))
		return
	}
	if _, err := s.pub.PublishJSON(n.UserID, push.Notifications, created); err != nil {
		s.logger.Warn("failed to publish notification", zap.Int64("user_id", n.UserID), zap.Error(err))
	}
}

func newTask(req model.TaskCreateRequest) (model.Task, error) {
	if err := validateText("description", req.Description); err != nil {
		return model.Task{}, err
	}
	prio, ok := model.ParsePriority(string(req.Priority))
	if !ok {
		return model.Task{}, invalid("unknown priority %q", req.Priority)
	}
	if m := req.EstimatedDurationMinutes; m != nil && *m < 0 {
		return model.Task{}, invalid("estimated duration must not be negative")
	}
	return model.Task{
		Description:              strings.TrimSpace(req.Description),
		Priority:                 prio,
		DueDate:                  req.DueDate,
		CategoryID:               req.CategoryID,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
	}, nil
}

func validateUpdate(req *model.TaskUpdateRequest) error {
	if req.Description != nil {
		if err := validateText("description", *req.Description); err != nil {
			return err
		}
		d := strings.TrimSpace(*req.Description)
		req.Description = &d
	}
	if req.Priority != nil {
		p, ok := model.ParsePriority(string(*req.Priority))
		if !ok || *req.Priority == "" {
			return invalid("unknown priority %q", *req.Priority)
		}
		req.Priority = &p
	}
	if m := req.EstimatedDurationMinutes; m != nil && *m < 0 {
		return invalid("estimated duration must not be negative")
	}
	return nil
}

func validateText(field, s string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if n == 0 {
		return invalid("%s is required", field)
	}
	if n > maxTextLength {
		return invalid("%s must be at most %d characters", field, maxTextLength)
	}
	return nil
}
