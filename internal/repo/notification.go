package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

const notificationSelect = `
	SELECT n.id::text, n.user_id, n.type, n.message, n.related_task_id, t.description,
	       n.is_read, n.created_at, n.read_at
	FROM notifications n LEFT JOIN tasks t ON t.id = n.related_task_id`

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// Create stores n, assigning a fresh id when n.ID is empty.
func (r *NotificationRepo) Create(ctx context.Context, n model.Notification) (model.Notification, error) {
	return InsertNotification(ctx, r.pool, n)
}

// InsertNotification is Create for callers that hold their own transaction.
func InsertNotification(ctx context.Context, q querier, n model.Notification) (model.Notification, error) {
	id := uuid.New()
	if n.ID != "" {
		parsed, err := uuid.Parse(n.ID)
		if err != nil {
			return n, ErrorConstraint
		}
		id = parsed
	}
	_, err := q.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, message, related_task_id)
		VALUES ($1, $2, $3, $4, $5)
	`, id, n.UserID, n.Type, n.Message, n.RelatedTaskID)
	if err != nil {
		return n, mapError(err)
	}
	out, err := scanNotification(q.QueryRow(ctx, notificationSelect+` WHERE n.id = $1`, id))
	return out, mapError(err)
}

func (r *NotificationRepo) ListUnread(ctx context.Context, userID int64) ([]model.Notification, error) {
	rows, err := r.pool.Query(ctx, notificationSelect+`
		WHERE n.user_id = $1 AND NOT n.is_read
		ORDER BY n.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID).Scan(&n)
	return n, err
}

func (r *NotificationRepo) MarkRead(ctx context.Context, userID int64, id string) (model.Notification, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return model.Notification{}, ErrorNotFound
	}
	cmd, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, now())
		WHERE id = $1 AND user_id = $2
	`, uid, userID)
	if err != nil {
		return model.Notification{}, err
	}
	if cmd.RowsAffected() == 0 {
		return model.Notification{}, ErrorNotFound
	}
	n, err := scanNotification(r.pool.QueryRow(ctx, notificationSelect+` WHERE n.id = $1`, uid))
	return n, mapError(err)
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = now() WHERE user_id = $1 AND NOT is_read
	`, userID)
	return err
}

func (r *NotificationRepo) Delete(ctx context.Context, userID int64, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrorNotFound
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, uid, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func scanNotification(row pgx.Row) (model.Notification, error) {
	var n model.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.RelatedTaskID, &n.RelatedTaskDescription,
		&n.IsRead, &n.CreatedAt, &n.ReadAt)
	return n, err
}
