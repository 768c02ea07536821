package service

import (
	"context"

	"github.com/NhaLeTruc/todo-sync/internal/model"
	"github.com/NhaLeTruc/todo-sync/internal/repo"
)

type NotificationService struct {
	notes repo.NotificationRepository
}

func NewNotificationService(notes repo.NotificationRepository) *NotificationService {
	return &NotificationService{notes: notes}
}

func (s *NotificationService) Unread(ctx context.Context, userID int64) ([]model.Notification, error) {
	return s.notes.ListUnread(ctx, userID)
}

func (s *NotificationService) CountUnread(ctx context.Context, userID int64) (int64, error) {
	return s.notes.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID int64, id string) (model.Notification, error) {
	return s.notes.MarkRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) error {
	return s.notes.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID int64, id string) error {
	return s.notes.Delete(ctx, userID, id)
}
