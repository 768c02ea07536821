package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

const timeEntrySelect = `
	SELECT id, task_id, user_id, entry_type, start_time, end_time, duration_minutes,
	       logged_at, notes, created_at,
	       (entry_type = 'TIMER' AND end_time IS NULL) AS running
	FROM time_entries`

// A timer entry gets its whole-minute duration when it is stopped, so sums
// only need duration_minutes.

type TimeEntryRepo struct {
	pool *pgxpool.Pool
}

func NewTimeEntryRepo(pool *pgxpool.Pool) *TimeEntryRepo {
	return &TimeEntryRepo{pool: pool}
}

// StartTimer opens a timer entry. A second running timer for the same task
// and user is a conflict.
func (r *TimeEntryRepo) StartTimer(ctx context.Context, taskID, userID int64, notes *string) (model.TimeEntry, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO time_entries (task_id, user_id, entry_type, start_time, notes)
		VALUES ($1, $2, 'TIMER', now(), $3)
		RETURNING id
	`, taskID, userID, notes).Scan(&id)
	if err != nil {
		return model.TimeEntry{}, mapError(err)
	}
	return r.Get(ctx, id)
}

// Stop closes a running timer. Entries that are not running timers are
// reported as not found.
func (r *TimeEntryRepo) Stop(ctx context.Context, id int64) (model.TimeEntry, error) {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE time_entries
		SET end_time = now(),
		    duration_minutes = FLOOR(EXTRACT(EPOCH FROM (now() - start_time)) / 60)::int
		WHERE id = $1 AND entry_type = 'TIMER' AND end_time IS NULL
	`, id)
	if err != nil {
		return model.TimeEntry{}, mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return model.TimeEntry{}, ErrorNotFound
	}
	return r.Get(ctx, id)
}

func (r *TimeEntryRepo) LogManual(ctx context.Context, taskID, userID int64, minutes int, notes *string, loggedAt time.Time) (model.TimeEntry, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO time_entries (task_id, user_id, entry_type, duration_minutes, logged_at, notes)
		VALUES ($1, $2, 'MANUAL', $3, $4, $5)
		RETURNING id
	`, taskID, userID, minutes, loggedAt, notes).Scan(&id)
	if err != nil {
		return model.TimeEntry{}, mapError(err)
	}
	return r.Get(ctx, id)
}

func (r *TimeEntryRepo) Get(ctx context.Context, id int64) (model.TimeEntry, error) {
	e, err := scanTimeEntry(r.pool.QueryRow(ctx, timeEntrySelect+` WHERE id = $1`, id))
	return e, mapError(err)
}

// ListForTask returns a task's entries newest first.
func (r *TimeEntryRepo) ListForTask(ctx context.Context, taskID int64) ([]model.TimeEntry, error) {
	return collectTimeEntries(r.pool.Query(ctx, timeEntrySelect+`
		WHERE task_id = $1 ORDER BY created_at DESC, id DESC`, taskID))
}

func (r *TimeEntryRepo) Active(ctx context.Context, taskID, userID int64) (model.TimeEntry, error) {
	e, err := scanTimeEntry(r.pool.QueryRow(ctx, timeEntrySelect+`
		WHERE task_id = $1 AND user_id = $2 AND entry_type = 'TIMER' AND end_time IS NULL`, taskID, userID))
	return e, mapError(err)
}

// ActiveForUser returns the user's most recently started running timer.
func (r *TimeEntryRepo) ActiveForUser(ctx context.Context, userID int64) (model.TimeEntry, error) {
	e, err := scanTimeEntry(r.pool.QueryRow(ctx, timeEntrySelect+`
		WHERE user_id = $1 AND entry_type = 'TIMER' AND end_time IS NULL
		ORDER BY start_time DESC LIMIT 1`, userID))
	return e, mapError(err)
}

func (r *TimeEntryRepo) TotalForTask(ctx context.Context, taskID int64) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(duration_minutes), 0)::int FROM time_entries WHERE task_id = $1
	`, taskID).Scan(&total)
	return total, mapError(err)
}

// ListForUser returns entries whose start (timers) or log time (manual
// entries) falls in [from, to), newest first.
func (r *TimeEntryRepo) ListForUser(ctx context.Context, userID int64, from, to time.Time) ([]model.TimeEntry, error) {
	return collectTimeEntries(r.pool.Query(ctx, timeEntrySelect+`
		WHERE user_id = $1
		  AND COALESCE(start_time, logged_at) >= $2
		  AND COALESCE(start_time, logged_at) < $3
		ORDER BY COALESCE(start_time, logged_at) DESC, id DESC`, userID, from, to))
}

func (r *TimeEntryRepo) UpdateNotes(ctx context.Context, id int64, notes *string) (model.TimeEntry, error) {
	cmd, err := r.pool.Exec(ctx, `UPDATE time_entries SET notes = $2 WHERE id = $1`, id, notes)
	if err != nil {
		return model.TimeEntry{}, mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return model.TimeEntry{}, ErrorNotFound
	}
	return r.Get(ctx, id)
}

func (r *TimeEntryRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM time_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func scanTimeEntry(row pgx.Row) (model.TimeEntry, error) {
	var e model.TimeEntry
	err := row.Scan(&e.ID, &e.TaskID, &e.UserID, &e.EntryType, &e.StartTime, &e.EndTime,
		&e.DurationMinutes, &e.LoggedAt, &e.Notes, &e.CreatedAt, &e.Running)
	return e, err
}

func collectTimeEntries(rows pgx.Rows, err error) ([]model.TimeEntry, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]model.TimeEntry, 0)
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
