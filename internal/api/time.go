package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

func timePath(id int64) string { return fmt.Sprintf("/time-entries/%d", id) }

func (c *Client) StartTimer(ctx context.Context, taskID int64, notes *string) (model.TimeEntry, error) {
	var e model.TimeEntry
	err := c.do(ctx, http.MethodPost, taskPath(taskID)+"/time-entries/start", nil, model.StartTimerRequest{Notes: notes}, &e)
	return e, err
}

func (c *Client) StopTimer(ctx context.Context, id int64) (model.TimeEntry, error) {
	var e model.TimeEntry
	err := c.do(ctx, http.MethodPost, timePath(id)+"/stop", nil, nil, &e)
	return e, err
}

func (c *Client) LogTime(ctx context.Context, taskID int64, req model.ManualTimeRequest) (model.TimeEntry, error) {
	var e model.TimeEntry
	err := c.do(ctx, http.MethodPost, taskPath(taskID)+"/time-entries", nil, req, &e)
	return e, err
}

func (c *Client) ListTimeEntries(ctx context.Context, taskID int64) ([]model.TimeEntry, error) {
	var out []model.TimeEntry
	err := c.get(ctx, taskPath(taskID)+"/time-entries", nil, &out)
	return out, err
}

// ActiveTimer returns the running timer on the task, or nil when there is none.
func (c *Client) ActiveTimer(ctx context.Context, taskID int64) (*model.TimeEntry, error) {
	return c.active(ctx, taskPath(taskID)+"/time-entries/active")
}

// MyActiveTimer returns the caller's running timer on any task.
func (c *Client) MyActiveTimer(ctx context.Context) (*model.TimeEntry, error) {
	return c.active(ctx, "/time-entries/active")
}

func (c *Client) active(ctx context.Context, path string) (*model.TimeEntry, error) {
	var e model.TimeEntry
	if err := c.get(ctx, path, nil, &e); err != nil {
		return nil, err
	}
	if e.ID == 0 {
		return nil, nil
	}
	return &e, nil
}

func (c *Client) TotalTime(ctx context.Context, taskID int64) (int, error) {
	var t model.TimeTotal
	err := c.get(ctx, taskPath(taskID)+"/time-entries/total", nil, &t)
	return t.TotalMinutes, err
}

// TimeReport lists the caller's entries in [from, to).
func (c *Client) TimeReport(ctx context.Context, from, to time.Time) (model.TimeReport, error) {
	q := url.Values{
		"startDate": {from.UTC().Format(time.RFC3339)},
		"endDate":   {to.UTC().Format(time.RFC3339)},
	}
	var r model.TimeReport
	err := c.get(ctx, "/time-entries/report", q, &r)
	return r, err
}

func (c *Client) UpdateTimeNotes(ctx context.Context, id int64, notes *string) (model.TimeEntry, error) {
	var e model.TimeEntry
	err := c.do(ctx, http.MethodPatch, timePath(id)+"/notes", nil, model.TimeNotesRequest{Notes: notes}, &e)
	return e, err
}

func (c *Client) DeleteTimeEntry(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, timePath(id), nil, nil, nil)
}
