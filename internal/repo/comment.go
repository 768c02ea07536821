package repo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

const commentSelect = `
	SELECT c.id, c.task_id, c.author_id, u.email, c.content, c.is_edited, c.created_at, c.updated_at
	FROM comments c JOIN users u ON u.id = c.author_id`

type CommentRepo struct {
	pool *pgxpool.Pool
}

func NewCommentRepo(pool *pgxpool.Pool) *CommentRepo {
	return &CommentRepo{pool: pool}
}

// List returns a task's comments oldest first.
func (r *CommentRepo) List(ctx context.Context, taskID int64) ([]model.Comment, error) {
	rows, err := r.pool.Query(ctx, commentSelect+` WHERE c.task_id = $1 ORDER BY c.created_at, c.id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]model.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *CommentRepo) Get(ctx context.Context, id int64) (model.Comment, error) {
	c, err := scanComment(r.pool.QueryRow(ctx, commentSelect+` WHERE c.id = $1`, id))
	return c, mapError(err)
}

func (r *CommentRepo) Create(ctx context.Context, taskID, authorID int64, content string) (model.Comment, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO comments (task_id, author_id, content) VALUES ($1, $2, $3) RETURNING id
	`, taskID, authorID, content).Scan(&id)
	if err != nil {
		return model.Comment{}, mapError(err)
	}
	return r.Get(ctx, id)
}

func (r *CommentRepo) Update(ctx context.Context, id int64, content string) (model.Comment, error) {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE comments SET content = $2, is_edited = TRUE, updated_at = now() WHERE id = $1
	`, id, content)
	if err != nil {
		return model.Comment{}, mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return model.Comment{}, ErrorNotFound
	}
	return r.Get(ctx, id)
}

func (r *CommentRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func scanComment(row pgx.Row) (model.Comment, error) {
	var c model.Comment
	err := row.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.AuthorEmail, &c.Content, &c.IsEdited, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
