package repo

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

var (
	ErrorNotFound   = errors.New("not found")
	ErrorConflict   = errors.New("conflict")
	ErrorConstraint = errors.New("constraint violation")
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const taskSelect = `
	SELECT t.id, t.description, t.is_completed, t.priority, t.due_date, t.completed_at,
	       t.position, t.category_id, c.name, c.color,
	       t.estimated_duration_minutes, t.actual_duration_minutes,
	       (NOT t.is_completed AND t.due_date IS NOT NULL AND t.due_date < now()) AS is_overdue,
	       t.parent_task_id, t.depth, t.created_at, t.updated_at,
	       COALESCE((
	           SELECT json_agg(json_build_object(
	                      'id', tg.id, 'name', tg.name, 'color', tg.color,
	                      'createdAt', tg.created_at, 'updatedAt', tg.updated_at) ORDER BY tg.name)
	           FROM task_tags tt JOIN tags tg ON tg.id = tt.tag_id
	           WHERE tt.task_id = t.id), '[]'::json) AS tags
	FROM tasks t
	LEFT JOIN categories c ON c.id = t.category_id`

var sortColumns = map[string]string{
	"createdAt":   "t.created_at",
	"updatedAt":   "t.updated_at",
	"dueDate":     "t.due_date",
	"description": "t.description",
	"position":    "t.position",
	"priority":    "CASE t.priority WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END",
}

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{
		pool: pool,
	}
}

// Create inserts t at the end of its sibling list. Tags and the category are
// only attached when they belong to userID.
func (r *TaskRepo) Create(ctx context.Context, userID int64, t model.Task, tagIDs []int64) (model.Task, error) {
	var out model.Task
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO tasks (user_id, description, priority, due_date, category_id,
			                   estimated_duration_minutes, parent_task_id, depth, position)
			VALUES ($1, $2, $3, $4,
			        (SELECT id FROM categories WHERE id = $5 AND user_id = $1),
			        $6, $7, $8,
			        (SELECT COALESCE(MAX(position) + 1, 0) FROM tasks
			          WHERE user_id = $1 AND parent_task_id IS NOT DISTINCT FROM $7))
			RETURNING id
		`, userID, t.Description, t.Priority, t.DueDate, t.CategoryID,
			t.EstimatedDurationMinutes, t.ParentTaskID, t.Depth).Scan(&id)
		if err != nil {
			return err
		}
		if err := setTags(ctx, tx, id, tagIDs); err != nil {
			return err
		}
		out, err = getTask(ctx, tx, id)
		return err
	})
	return out, mapError(err)
}

func (r *TaskRepo) Get(ctx context.Context, id int64) (model.Task, error) {
	t, err := getTask(ctx, r.pool, id)
	return t, mapError(err)
}

func (r *TaskRepo) Owner(ctx context.Context, id int64) (int64, error) {
	var owner int64
	err := r.pool.QueryRow(ctx, `SELECT user_id FROM tasks WHERE id = $1`, id).Scan(&owner)
	return owner, mapError(err)
}

// List returns one page of the user's tasks plus the total matching count.
// Without a ParentID filter only root tasks are listed.
func (r *TaskRepo) List(ctx context.Context, filter model.TaskFilter, page model.PageRequest) ([]model.Task, int64, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	where = append(where, "t.user_id = "+arg(filter.UserID))
	if filter.ParentID != nil {
		where = append(where, "t.parent_task_id = "+arg(*filter.ParentID))
	} else {
		where = append(where, "t.parent_task_id IS NULL")
	}
	if filter.Completed != nil {
		where = append(where, "t.is_completed = "+arg(*filter.Completed))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, "t.description ILIKE '%' || "+arg(s)+" || '%'")
	}
	if filter.CategoryID != nil {
		where = append(where, "t.category_id = "+arg(*filter.CategoryID))
	}
	if len(filter.TagIDs) > 0 {
		where = append(where, "EXISTS (SELECT 1 FROM task_tags tt WHERE tt.task_id = t.id AND tt.tag_id = ANY("+arg(filter.TagIDs)+"))")
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tasks t"+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := sortColumns[page.SortBy]
	if !ok {
		col = sortColumns["createdAt"]
	}
	dir := "DESC"
	if strings.EqualFold(page.SortDirection, "asc") {
		dir = "ASC"
	}
	query := taskSelect + clause +
		" ORDER BY " + col + " " + dir + " NULLS LAST, t.id " + dir +
		" LIMIT " + arg(page.Size) + " OFFSET " + arg(page.Page*page.Size)

	tasks, err := collectTasks(r.pool.Query(ctx, query, args...))
	return tasks, total, err
}

func (r *TaskRepo) Count(ctx context.Context, userID int64, completed *bool) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM tasks
		WHERE user_id = $1 AND ($2::boolean IS NULL OR is_completed = $2)
	`, userID, completed).Scan(&n)
	return n, err
}

func (r *TaskRepo) Subtasks(ctx context.Context, parentID int64) ([]model.Task, error) {
	return collectTasks(r.pool.Query(ctx, taskSelect+`
		WHERE t.parent_task_id = $1
		ORDER BY t.position, t.id
	`, parentID))
}

func (r *TaskRepo) HasSubtasks(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE parent_task_id = $1)`, id).Scan(&ok)
	return ok, err
}

// Update writes the editable fields of t. A nil tagIDs leaves tags untouched.
func (r *TaskRepo) Update(ctx context.Context, t model.Task, tagIDs []int64) (model.Task, error) {
	var out model.Task
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `
			UPDATE tasks
			SET description = $2, priority = $3, due_date = $4,
			    category_id = (SELECT c.id FROM categories c WHERE c.id = $5 AND c.user_id = tasks.user_id),
			    estimated_duration_minutes = $6, updated_at = now(),
			    due_notified_at = CASE WHEN due_date IS DISTINCT FROM $4 THEN NULL ELSE due_notified_at END
			WHERE id = $1
		`, t.ID, t.Description, t.Priority, t.DueDate, t.CategoryID, t.EstimatedDurationMinutes)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrorNotFound
		}
		if tagIDs != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM task_tags WHERE task_id = $1`, t.ID); err != nil {
				return err
			}
			if err := setTags(ctx, tx, t.ID, tagIDs); err != nil {
				return err
			}
		}
		out, err = getTask(ctx, tx, t.ID)
		return err
	})
	return out, mapError(err)
}

func (r *TaskRepo) SetCompleted(ctx context.Context, id int64, done bool) (model.Task, error) {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET is_completed = $2,
		    completed_at = CASE WHEN $2 THEN COALESCE(completed_at, now()) ELSE NULL END,
		    updated_at = now()
		WHERE id = $1
	`, id, done)
	if err != nil {
		return model.Task{}, mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return model.Task{}, ErrorNotFound
	}
	return r.Get(ctx, id)
}

func (r *TaskRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *TaskRepo) SharedWith(ctx context.Context, userID int64) ([]model.Task, error) {
	return collectTasks(r.pool.Query(ctx, taskSelect+`
		JOIN task_shares s ON s.task_id = t.id
		WHERE s.shared_with_user_id = $1
		ORDER BY s.created_at DESC, t.id DESC
	`, userID))
}

// SaveIdempotencyKey remembers which task a create request with key made.
// A key that is already stored keeps its first task.
func (r *TaskRepo) SaveIdempotencyKey(ctx context.Context, userID int64, key string, taskID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (user_id, key, resource_id) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, key) DO NOTHING
	`, userID, key, taskID)
	return mapError(err)
}

func (r *TaskRepo) GetIdempotencyKey(ctx context.Context, userID int64, key string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT resource_id FROM idempotency_keys WHERE user_id = $1 AND key = $2
	`, userID, key).Scan(&id)
	return id, mapError(err)
}

func getTask(ctx context.Context, q querier, id int64) (model.Task, error) {
	return scanTask(q.QueryRow(ctx, taskSelect+" WHERE t.id = $1", id))
}

func setTags(ctx context.Context, q querier, taskID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}
	_, err := q.Exec(ctx, `
		INSERT INTO task_tags (task_id, tag_id)
		SELECT t.id, tg.id
		FROM tasks t JOIN tags tg ON tg.user_id = t.user_id
		WHERE t.id = $1 AND tg.id = ANY($2)
		ON CONFLICT DO NOTHING
	`, taskID, tagIDs)
	return err
}

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID, &t.Description, &t.IsCompleted, &t.Priority, &t.DueDate, &t.CompletedAt,
		&t.Position, &t.CategoryID, &t.CategoryName, &t.CategoryColor,
		&t.EstimatedDurationMinutes, &t.ActualDurationMinutes,
		&t.IsOverdue, &t.ParentTaskID, &t.Depth, &t.CreatedAt, &t.UpdatedAt, &t.Tags,
	)
	return t, err
}

func collectTasks(rows pgx.Rows, err error) ([]model.Task, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrorNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrorConflict
		case "23503", "23514":
			return ErrorConstraint
		}
	}
	return err
}
