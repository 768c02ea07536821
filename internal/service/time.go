package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/model"
	"github.com/NhaLeTruc/todo-sync/internal/repo"
)

type TimeService struct {
	entries repo.TimeEntryRepository
	tasks   *TaskService
	now     func() time.Time
	logger  *zap.Logger
}

func NewTimeService(entries repo.TimeEntryRepository, tasks *TaskService, logger *zap.Logger) *TimeService {
	return &TimeService{entries: entries, tasks: tasks, now: time.Now, logger: logger}
}

// Start opens a timer on the task for userID. Only one timer per task and
// user may run at a time.
func (s *TimeService) Start(ctx context.Context, userID, taskID int64, req model.StartTimerRequest) (model.TimeEntry, error) {
	if err := validateNotes(req.Notes); err != nil {
		return model.TimeEntry{}, err
	}
	if _, err := s.tasks.Authorize(ctx, userID, taskID, true); err != nil {
		return model.TimeEntry{}, err
	}
	_, err := s.entries.Active(ctx, taskID, userID)
	switch {
	case err == nil:
		return model.TimeEntry{}, invalid("a timer is already running for this task")
	case !errors.Is(err, repo.ErrorNotFound):
		return model.TimeEntry{}, err
	}
	e, err := s.entries.StartTimer(ctx, taskID, userID, req.Notes)
	if errors.Is(err, repo.ErrorConflict) {
		return model.TimeEntry{}, invalid("a timer is already running for this task")
	}
	if err != nil {
		return e, err
	}
	s.logger.Debug("timer started", zap.Int64("task_id", taskID), zap.Int64("entry_id", e.ID))
	return e, nil
}

// Stop ends a running timer. Only the user who started it may stop it.
func (s *TimeService) Stop(ctx context.Context, userID, id int64) (model.TimeEntry, error) {
	e, err := s.own(ctx, userID, id)
	if err != nil {
		return e, err
	}
	if !e.Running {
		return model.TimeEntry{}, invalid("timer is not running")
	}
	return s.entries.Stop(ctx, id)
}

// LogManual records a duration the user worked without a timer. loggedAt
// defaults to now.
func (s *TimeService) LogManual(ctx context.Context, userID, taskID int64, req model.ManualTimeRequest) (model.TimeEntry, error) {
	if req.DurationMinutes <= 0 {
		return model.TimeEntry{}, invalid("duration must be greater than zero")
	}
	if req.DurationMinutes > model.MaxManualMinutes {
		return model.TimeEntry{}, invalid("duration must be at most %d minutes", model.MaxManualMinutes)
	}
	if err := validateNotes(req.Notes); err != nil {
		return model.TimeEntry{}, err
	}
	if _, err := s.tasks.Authorize(ctx, userID, taskID, true); err != nil {
		return model.TimeEntry{}, err
	}
	loggedAt := s.now()
	if req.LoggedAt != nil {
		loggedAt = *req.LoggedAt
	}
	return s.entries.LogManual(ctx, taskID, userID, req.DurationMinutes, req.Notes, loggedAt)
}

func (s *TimeService) List(ctx context.Context, userID, taskID int64) ([]model.TimeEntry, error) {
	if _, err := s.tasks.Authorize(ctx, userID, taskID, false); err != nil {
		return nil, err
	}
	return s.entries.ListForTask(ctx, taskID)
}

// Active returns userID's running timer on the task, or nil when none runs.
func (s *TimeService) Active(ctx context.Context, userID, taskID int64) (*model.TimeEntry, error) {
	if _, err := s.tasks.Authorize(ctx, userID, taskID, false); err != nil {
		return nil, err
	}
	return running(s.entries.Active(ctx, taskID, userID))
}

func (s *TimeService) ActiveForUser(ctx context.Context, userID int64) (*model.TimeEntry, error) {
	return running(s.entries.ActiveForUser(ctx, userID))
}

func running(e model.TimeEntry, err error) (*model.TimeEntry, error) {
	if errors.Is(err, repo.ErrorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *TimeService) Total(ctx context.Context, userID, taskID int64) (model.TimeTotal, error) {
	if _, err := s.tasks.Authorize(ctx, userID, taskID, false); err != nil {
		return model.TimeTotal{}, err
	}
	total, err := s.entries.TotalForTask(ctx, taskID)
	return model.TimeTotal{TotalMinutes: total}, err
}

// Report lists userID's entries in [from, to) with their sum.
func (s *TimeService) Report(ctx context.Context, userID int64, from, to time.Time) (model.TimeReport, error) {
	if !from.Before(to) {
		return model.TimeReport{}, invalid("startDate must be before endDate")
	}
	entries, err := s.entries.ListForUser(ctx, userID, from, to)
	if err != nil {
		return model.TimeReport{}, err
	}
	return model.TimeReport{
		Entries:      entries,
		TotalMinutes: model.TotalMinutes(entries),
		StartDate:    from,
		EndDate:      to,
	}, nil
}

func (s *TimeService) UpdateNotes(ctx context.Context, userID, id int64, req model.TimeNotesRequest) (model.TimeEntry, error) {
	if err := validateNotes(req.Notes); err != nil {
		return model.TimeEntry{}, err
	}
	if _, err := s.own(ctx, userID, id); err != nil {
		return model.TimeEntry{}, err
	}
	return s.entries.UpdateNotes(ctx, id, req.Notes)
}

func (s *TimeService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.own(ctx, userID, id); err != nil {
		return err
	}
	return s.entries.Delete(ctx, id)
}

// own loads an entry that must belong to userID.
func (s *TimeService) own(ctx context.Context, userID, id int64) (model.TimeEntry, error) {
	e, err := s.entries.Get(ctx, id)
	if err != nil {
		return e, err
	}
	if e.UserID != userID {
		return model.TimeEntry{}, ErrForbidden
	}
	return e, nil
}

func validateNotes(notes *string) error {
	if notes != nil && utf8.RuneCountInString(*notes) > maxTextLength {
		return invalid("notes must be at most %d characters", maxTextLength)
	}
	return nil
}
