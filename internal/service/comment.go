package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/model"
	"github.com/NhaLeTruc/todo-sync/internal/repo"
)

type CommentService struct {
	comments repo.CommentRepository
	tasks    *TaskService
	logger   *zap.Logger
}

func NewCommentService(comments repo.CommentRepository, tasks *TaskService, logger *zap.Logger) *CommentService {
	return &CommentService{comments: comments, tasks: tasks, logger: logger}
}

func (s *CommentService) List(ctx context.Context, userID, taskID int64) ([]model.Comment, error) {
	if _, err := s.tasks.Authorize(ctx, userID, taskID, false); err != nil {
		return nil, err
	}
	return s.comments.List(ctx, taskID)
}

// Create lets anyone who can see the task comment on it. The owner is
// notified about comments by others.
func (s *CommentService) Create(ctx context.Context, userID, taskID int64, req model.CommentRequest) (model.Comment, error) {
	if err := validateText("comment", req.Content); err != nil {
		return model.Comment{}, err
	}
	owner, err := s.tasks.Authorize(ctx, userID, taskID, false)
	if err != nil {
		return model.Comment{}, err
	}
	c, err := s.comments.Create(ctx, taskID, userID, strings.TrimSpace(req.Content))
	if err != nil {
		return c, err
	}
	if owner != userID {
		s.tasks.notify(ctx, model.Notification{
			UserID:        owner,
			Type:          model.NotificationCommented,
			Message:       c.AuthorEmail + " commented on your task",
			RelatedTaskID: &taskID,
		})
	}
	return c, nil
}

// Update is reserved for the author.
func (s *CommentService) Update(ctx context.Context, userID, id int64, req model.CommentRequest) (model.Comment, error) {
	if err := validateText("comment", req.Content); err != nil {
		return model.Comment{}, err
	}
	c, err := s.comments.Get(ctx, id)
	if err != nil {
		return c, err
	}
	if c.AuthorID != userID {
		return model.Comment{}, ErrForbidden
	}
	return s.comments.Update(ctx, id, strings.TrimSpace(req.Content))
}

// Delete is allowed for the author and the task owner.
func (s *CommentService) Delete(ctx context.Context, userID, id int64) error {
	c, err := s.comments.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.AuthorID != userID {
		owner, err := s.tasks.Authorize(ctx, userID, c.TaskID, false)
		if err != nil {
			return err
		}
		if owner != userID {
			return ErrForbidden
		}
	}
	return s.comments.Delete(ctx, id)
}
