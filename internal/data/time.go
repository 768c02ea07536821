package data

import (
	"context"
	"strconv"
	"time"

	"github.com/NhaLeTruc/todo-sync/internal/cache"
	"github.com/NhaLeTruc/todo-sync/internal/model"
)

func timeScope(taskID int64) string {
	return scopeTime + "/" + strconv.FormatInt(taskID, 10)
}

// TimeReportKey caches one report range.
func TimeReportKey(from, to time.Time) cache.Key {
	return cache.K("time-entries", "report", from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
}

func (d *Data) TimeEntries(ctx context.Context, taskID int64) ([]model.TimeEntry, error) {
	return cache.Fetch(ctx, d.store, TimeEntriesKey(taskID), staleTimeEntries, func(ctx context.Context) ([]model.TimeEntry, error) {
		return d.backend.ListTimeEntries(ctx, taskID)
	})
}

// ActiveTimer is the caller's running timer on the task, or nil.
func (d *Data) ActiveTimer(ctx context.Context, taskID int64) (*model.TimeEntry, error) {
	return cache.Fetch(ctx, d.store, ActiveTimerKey(taskID), staleTimeEntries, func(ctx context.Context) (*model.TimeEntry, error) {
		return d.backend.ActiveTimer(ctx, taskID)
	})
}

func (d *Data) TotalTime(ctx context.Context, taskID int64) (int, error) {
	return cache.Fetch(ctx, d.store, TimeTotalKey(taskID), staleTimeEntries, func(ctx context.Context) (int, error) {
		return d.backend.TotalTime(ctx, taskID)
	})
}

func (d *Data) TimeReport(ctx context.Context, from, to time.Time) (model.TimeReport, error) {
	if !from.Before(to) {
		err := invalid("start date must be before end date")
		d.fail("time report", err)
		return model.TimeReport{}, err
	}
	return cache.Fetch(ctx, d.store, TimeReportKey(from, to), staleTimeEntries, func(ctx context.Context) (model.TimeReport, error) {
		return d.backend.TimeReport(ctx, from, to)
	})
}

// StartTimer shows a running timer on the task until the server answers.
func (d *Data) StartTimer(ctx context.Context, taskID int64, notes *string) (model.TimeEntry, error) {
	if err := validateTimeNotes(notes); err != nil {
		d.fail("start timer", err)
		return model.TimeEntry{}, err
	}
	now := d.now()
	opt := model.TimeEntry{
		ID:        d.nextTempID(),
		TaskID:    taskID,
		EntryType: model.EntryTimer,
		StartTime: &now,
		Notes:     notes,
		CreatedAt: now,
		Running:   true,
	}

	var started model.TimeEntry
	err := d.mutate(ctx, "start timer", cache.Mutation{
		Scope:  timeScope(taskID),
		Cancel: []cache.Key{TimeEntriesPrefix(taskID)},
		Patch: func(tx *cache.Tx) {
			cache.Patch(tx, ActiveTimerKey(taskID), func(*model.TimeEntry) (*model.TimeEntry, bool) {
				return &opt, true
			})
			cache.Patch(tx, TimeEntriesKey(taskID), func(rows []model.TimeEntry) ([]model.TimeEntry, bool) {
				return append([]model.TimeEntry{opt}, rows...), true
			})
		},
		Send: func(ctx context.Context) error {
			var err error
			started, err = d.backend.StartTimer(ctx, taskID, notes)
			return err
		},
		Invalidate: []cache.Key{TimeEntriesPrefix(taskID)},
	})
	return started, err
}

// StopTimer ends the running timer locally and adds its whole minutes to the
// cached total.
func (d *Data) StopTimer(ctx context.Context, taskID, entryID int64) (model.TimeEntry, error) {
	now := d.now()
	var stopped model.TimeEntry
	err := d.mutate(ctx, "stop timer", cache.Mutation{
		Scope:  timeScope(taskID),
		Cancel: []cache.Key{TimeEntriesPrefix(taskID)},
		Patch: func(tx *cache.Tx) {
			cache.Patch(tx, ActiveTimerKey(taskID), func(e *model.TimeEntry) (*model.TimeEntry, bool) {
				if e == nil || e.ID != entryID {
					return e, false
				}
				return nil, true
			})
			added := 0
			cache.Patch(tx, TimeEntriesKey(taskID), func(rows []model.TimeEntry) ([]model.TimeEntry, bool) {
				for i, e := range rows {
					if e.ID != entryID || !e.Running {
						continue
					}
					out := append([]model.TimeEntry(nil), rows...)
					out[i].EndTime = &now
					out[i].Running = false
					added, _ = out[i].Minutes()
					out[i].DurationMinutes = &added
					return out, true
				}
				return rows, false
			})
			cache.Patch(tx, TimeTotalKey(taskID), func(total int) (int, bool) {
				return total + added, added > 0
			})
		},
		Send: func(ctx context.Context) error {
			var err error
			stopped, err = d.backend.StopTimer(ctx, entryID)
			return err
		},
		Invalidate: []cache.Key{TimeEntriesPrefix(taskID)},
	})
	return stopped, err
}

// LogTime records hours and minutes worked without a timer.
func (d *Data) LogTime(ctx context.Context, taskID int64, hours, minutes int, notes *string) (model.TimeEntry, error) {
	total, err := DurationMinutes(hours, minutes)
	if err == nil && total == 0 {
		err = invalid("duration must be greater than zero")
	}
	if err == nil {
		err = validateTimeNotes(notes)
	}
	if err != nil {
		d.fail("log time", err)
		return model.TimeEntry{}, err
	}

	now := d.now()
	opt := model.TimeEntry{
		ID:              d.nextTempID(),
		TaskID:          taskID,
		EntryType:       model.EntryManual,
		DurationMinutes: &total,
		LoggedAt:        &now,
		Notes:           notes,
		CreatedAt:       now,
	}
	var logged model.TimeEntry
	err = d.mutate(ctx, "log time", cache.Mutation{
		Scope:  timeScope(taskID),
		Cancel: []cache.Key{TimeEntriesPrefix(taskID)},
		Patch: func(tx *cache.Tx) {
			cache.Patch(tx, TimeEntriesKey(taskID), func(rows []model.TimeEntry) ([]model.TimeEntry, bool) {
				return append([]model.TimeEntry{opt}, rows...), true
			})
			cache.Patch(tx, TimeTotalKey(taskID), func(t int) (int, bool) {
				return t + total, true
			})
		},
		Send: func(ctx context.Context) error {
			var err error
			logged, err = d.backend.LogTime(ctx, taskID, model.ManualTimeRequest{
				DurationMinutes: total,
				Notes:           notes,
				LoggedAt:        &now,
			})
			return err
		},
		Invalidate: []cache.Key{TimeEntriesPrefix(taskID)},
	})
	return logged, err
}

func (d *Data) DeleteTimeEntry(ctx context.Context, taskID, entryID int64) error {
	return d.mutate(ctx, "delete time entry", cache.Mutation{
		Scope:  timeScope(taskID),
		Cancel: []cache.Key{TimeEntriesPrefix(taskID)},
		Patch: func(tx *cache.Tx) {
			removed := 0
			cache.Patch(tx, TimeEntriesKey(taskID), func(rows []model.TimeEntry) ([]model.TimeEntry, bool) {
				out := make([]model.TimeEntry, 0, len(rows))
				for _, e := range rows {
					if e.ID == entryID {
						removed, _ = e.Minutes()
						continue
					}
					out = append(out, e)
				}
				return out, len(out) != len(rows)
			})
			cache.Patch(tx, TimeTotalKey(taskID), func(t int) (int, bool) {
				return max(0, t-removed), removed > 0
			})
			cache.Patch(tx, ActiveTimerKey(taskID), func(e *model.TimeEntry) (*model.TimeEntry, bool) {
				if e == nil || e.ID != entryID {
					return e, false
				}
				return nil, true
			})
		},
		Send: func(ctx context.Context) error {
			return d.backend.DeleteTimeEntry(ctx, entryID)
		},
		Invalidate: []cache.Key{TimeEntriesPrefix(taskID)},
	})
}

func validateTimeNotes(notes *string) error {
	if notes != nil && len([]rune(*notes)) > MaxCommentLength {
		return invalid("notes must be at most %d characters", MaxCommentLength)
	}
	return nil
}
