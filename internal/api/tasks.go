package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

func (c *Client) ListTasks(ctx context.Context, p ListParams) (model.Page[model.Task], error) {
	var page model.Page[model.Task]
	err := c.get(ctx, "/tasks", p.Values(), &page)
	return page, err
}

func (c *Client) GetTask(ctx context.Context, id int64) (model.Task, error) {
	var t model.Task
	err := c.get(ctx, taskPath(id), nil, &t)
	return t, err
}

func (c *Client) CreateTask(ctx context.Context, req model.TaskCreateRequest) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodPost, "/tasks", nil, req, &t)
	return t, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, req model.TaskUpdateRequest) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodPut, taskPath(id), nil, req, &t)
	return t, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil, nil)
}

// ToggleComplete marks the task completed or open.
func (c *Client) ToggleComplete(ctx context.Context, id int64, completed bool) (model.Task, error) {
	path := taskPath(id) + "/uncomplete"
	if completed {
		path = taskPath(id) + "/complete"
	}
	var t model.Task
	err := c.do(ctx, http.MethodPatch, path, nil, nil, &t)
	return t, err
}

// CountTasks counts the user's tasks, optionally only completed or open ones.
func (c *Client) CountTasks(ctx context.Context, completed *bool) (int64, error) {
	var q url.Values
	if completed != nil {
		q = url.Values{"completed": {strconv.FormatBool(*completed)}}
	}
	var n int64
	err := c.get(ctx, "/tasks/count", q, &n)
	return n, err
}

func (c *Client) ListSubtasks(ctx context.Context, parentID int64) ([]model.Task, error) {
	var out []model.Task
	err := c.get(ctx, taskPath(parentID)+"/subtasks", nil, &out)
	return out, err
}

func (c *Client) CreateSubtask(ctx context.Context, parentID int64, req model.TaskCreateRequest) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodPost, taskPath(parentID)+"/subtasks", nil, req, &t)
	return t, err
}

func (c *Client) HasSubtasks(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := c.get(ctx, taskPath(id)+"/has-subtasks", nil, &ok)
	return ok, err
}

func (c *Client) ShareTask(ctx context.Context, id int64, req model.ShareRequest) (model.TaskShare, error) {
	var s model.TaskShare
	err := c.do(ctx, http.MethodPost, taskPath(id)+"/share", nil, req, &s)
	return s, err
}

func (c *Client) ListShares(ctx context.Context, id int64) ([]model.TaskShare, error) {
	var out []model.TaskShare
	err := c.get(ctx, taskPath(id)+"/shares", nil, &out)
	return out, err
}

func (c *Client) RevokeShare(ctx context.Context, id, userID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/share/%d", taskPath(id), userID), nil, nil, nil)
}

func (c *Client) SharedWithMe(ctx context.Context) ([]model.Task, error) {
	var out []model.Task
	err := c.get(ctx, "/tasks/shared-with-me", nil, &out)
	return out, err
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10)
}
