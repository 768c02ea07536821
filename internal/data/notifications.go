package data

import (
	"context"

	"github.com/NhaLeTruc/todo-sync/internal/cache"
	"github.com/NhaLeTruc/todo-sync/internal/model"
)

// MarkRead drops the notification from the unread list.
func (d *Data) MarkRead(ctx context.Context, id string) error {
	return d.mutate(ctx, "mark notification read", cache.Mutation{
		Scope:  scopeNotifications,
		Cancel: []cache.Key{NotificationsPrefix()},
		Patch:  func(tx *cache.Tx) { dropNotification(tx, id) },
		Send: func(ctx context.Context) error {
			_, err := d.backend.MarkRead(ctx, id)
			return err
		},
		Invalidate: []cache.Key{NotificationsPrefix()},
	})
}

func (d *Data) DeleteNotification(ctx context.Context, id string) error {
	return d.mutate(ctx, "delete notification", cache.Mutation{
		Scope:  scopeNotifications,
		Cancel: []cache.Key{NotificationsPrefix()},
		Patch:  func(tx *cache.Tx) { dropNotification(tx, id) },
		Send: func(ctx context.Context) error {
			return d.backend.DeleteNotification(ctx, id)
		},
		Invalidate: []cache.Key{NotificationsPrefix()},
	})
}

func (d *Data) MarkAllRead(ctx context.Context) error {
	return d.mutate(ctx, "mark all notifications read", cache.Mutation{
		Scope:  scopeNotifications,
		Cancel: []cache.Key{NotificationsPrefix()},
		Patch: func(tx *cache.Tx) {
			cache.Patch(tx, NotificationsKey(), func(rows []model.Notification) ([]model.Notification, bool) {
				return []model.Notification{}, len(rows) > 0
			})
			cache.Patch(tx, NotificationCountKey(), func(n int64) (int64, bool) {
				return 0, n != 0
			})
		},
		Send: func(ctx context.Context) error {
			return d.backend.MarkAllRead(ctx)
		},
		Invalidate: []cache.Key{NotificationsPrefix()},
	})
}

// dropNotification removes id from the unread list and, when it was there,
// lowers the unread count without going below zero.
func dropNotification(tx *cache.Tx, id string) {
	removed := false
	cache.Patch(tx, NotificationsKey(), func(rows []model.Notification) ([]model.Notification, bool) {
		out := make([]model.Notification, 0, len(rows))
		for _, n := range rows {
			if n.ID != id {
				out = append(out, n)
			}
		}
		removed = len(out) != len(rows)
		return out, removed
	})
	_, listCached := tx.Peek(NotificationsKey())
	if listCached && !removed {
		return
	}
	cache.Patch(tx, NotificationCountKey(), func(n int64) (int64, bool) {
		if n <= 0 {
			return 0, n != 0
		}
		return n - 1, true
	})
}
