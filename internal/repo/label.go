package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

// LabelRepo serves categories and tags, which share a table shape.
type LabelRepo struct {
	pool  *pgxpool.Pool
	table string
}

func NewCategoryRepo(pool *pgxpool.Pool) *LabelRepo {
	return &LabelRepo{pool: pool, table: "categories"}
}

func NewTagRepo(pool *pgxpool.Pool) *LabelRepo {
	return &LabelRepo{pool: pool, table: "tags"}
}

func (r *LabelRepo) List(ctx context.Context, userID int64) ([]model.Label, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, color, created_at, updated_at FROM `+r.table+`
		WHERE user_id = $1 ORDER BY name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	labels := make([]model.Label, 0)
	for rows.Next() {
		var l model.Label
		if err := rows.Scan(&l.ID, &l.Name, &l.Color, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

func (r *LabelRepo) Create(ctx context.Context, userID int64, req model.LabelRequest) (model.Label, error) {
	var l model.Label
	err := r.pool.QueryRow(ctx, `
		INSERT INTO `+r.table+` (user_id, name, color) VALUES ($1, $2, $3)
		RETURNING id, name, color, created_at, updated_at
	`, userID, req.Name, req.Color).Scan(&l.ID, &l.Name, &l.Color, &l.CreatedAt, &l.UpdatedAt)
	return l, mapError(err)
}

func (r *LabelRepo) Update(ctx context.Context, userID, id int64, req model.LabelRequest) (model.Label, error) {
	var l model.Label
	err := r.pool.QueryRow(ctx, `
		UPDATE `+r.table+` SET name = $3, color = $4, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING id, name, color, created_at, updated_at
	`, id, userID, req.Name, req.Color).Scan(&l.ID, &l.Name, &l.Color, &l.CreatedAt, &l.UpdatedAt)
	return l, mapError(err)
}

func (r *LabelRepo) Delete(ctx context.Context, userID, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM `+r.table+` WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}
