package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

type ShareRepo struct {
	pool *pgxpool.Pool
}

func NewShareRepo(pool *pgxpool.Pool) *ShareRepo {
	return &ShareRepo{pool: pool}
}

// Upsert shares the task, or changes the permission of an existing share.
func (r *ShareRepo) Upsert(ctx context.Context, taskID, userID int64, perm model.Permission) (model.TaskShare, error) {
	var s model.TaskShare
	err := r.pool.QueryRow(ctx, `
		WITH s AS (
			INSERT INTO task_shares (task_id, shared_with_user_id, permission)
			VALUES ($1, $2, $3)
			ON CONFLICT (task_id, shared_with_user_id) DO UPDATE SET permission = excluded.permission
			RETURNING id, task_id, shared_with_user_id, permission, created_at
		)
		SELECT s.id, s.task_id, s.shared_with_user_id, u.email, s.permission, s.created_at
		FROM s JOIN users u ON u.id = s.shared_with_user_id
	`, taskID, userID, perm).Scan(&s.ID, &s.TaskID, &s.SharedWithUserID, &s.SharedWithEmail, &s.Permission, &s.CreatedAt)
	return s, mapError(err)
}

func (r *ShareRepo) List(ctx context.Context, taskID int64) ([]model.TaskShare, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.task_id, s.shared_with_user_id, u.email, s.permission, s.created_at
		FROM task_shares s JOIN users u ON u.id = s.shared_with_user_id
		WHERE s.task_id = $1
		ORDER BY s.created_at, s.id
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shares := make([]model.TaskShare, 0)
	for rows.Next() {
		var s model.TaskShare
		if err := rows.Scan(&s.ID, &s.TaskID, &s.SharedWithUserID, &s.SharedWithEmail, &s.Permission, &s.CreatedAt); err != nil {
			return nil, err
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

func (r *ShareRepo) Delete(ctx context.Context, taskID, userID int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM task_shares WHERE task_id = $1 AND shared_with_user_id = $2`, taskID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

// Permission returns ErrorNotFound when the task is not shared with userID.
// Subtasks inherit the share of any ancestor.
func (r *ShareRepo) Permission(ctx context.Context, taskID, userID int64) (model.Permission, error) {
	var perm model.Permission
	err := r.pool.QueryRow(ctx, `
		WITH RECURSIVE chain AS (
			SELECT id, parent_task_id FROM tasks WHERE id = $1
			UNION ALL
			SELECT t.id, t.parent_task_id FROM tasks t JOIN chain ON t.id = chain.parent_task_id
		)
		SELECT s.permission
		FROM task_shares s JOIN chain ON chain.id = s.task_id
		WHERE s.shared_with_user_id = $2
		ORDER BY CASE s.permission WHEN 'EDIT' THEN 0 ELSE 1 END
		LIMIT 1
	`, taskID, userID).Scan(&perm)
	return perm, mapError(err)
}

// Recipients lists the users a task is shared with.
func (r *ShareRepo) Recipients(ctx context.Context, taskID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT shared_with_user_id FROM task_shares WHERE task_id = $1`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
