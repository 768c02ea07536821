package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &u)
	return u, err
}

func (c *Client) Login(ctx context.Context, req model.LoginRequest) (model.LoginResponse, error) {
	var out model.LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &out)
	return out, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

func (c *Client) Me(ctx context.Context) (model.User, error) {
	var u model.User
	err := c.get(ctx, "/auth/me", nil, &u)
	return u, err
}

// Comments

func (c *Client) ListComments(ctx context.Context, taskID int64) ([]model.Comment, error) {
	var out []model.Comment
	err := c.get(ctx, taskPath(taskID)+"/comments", nil, &out)
	return out, err
}

func (c *Client) CreateComment(ctx context.Context, taskID int64, req model.CommentRequest) (model.Comment, error) {
	var out model.Comment
	err := c.do(ctx, http.MethodPost, taskPath(taskID)+"/comments", nil, req, &out)
	return out, err
}

func (c *Client) UpdateComment(ctx context.Context, id int64, req model.CommentRequest) (model.Comment, error) {
	var out model.Comment
	err := c.do(ctx, http.MethodPut, commentPath(id), nil, req, &out)
	return out, err
}

func (c *Client) DeleteComment(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, commentPath(id), nil, nil, nil)
}

func commentPath(id int64) string {
	return "/comments/" + strconv.FormatInt(id, 10)
}

// Categories and tags share one wire shape under different collections.

func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	return c.listLabels(ctx, "/categories")
}

func (c *Client) CreateCategory(ctx context.Context, req model.LabelRequest) (model.Category, error) {
	return c.writeLabel(ctx, http.MethodPost, "/categories", req)
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, req model.LabelRequest) (model.Category, error) {
	return c.writeLabel(ctx, http.MethodPut, labelPath("/categories", id), req)
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, labelPath("/categories", id), nil, nil, nil)
}

func (c *Client) ListTags(ctx context.Context) ([]model.Tag, error) {
	return c.listLabels(ctx, "/tags")
}

func (c *Client) CreateTag(ctx context.Context, req model.LabelRequest) (model.Tag, error) {
	return c.writeLabel(ctx, http.MethodPost, "/tags", req)
}

func (c *Client) UpdateTag(ctx context.Context, id int64, req model.LabelRequest) (model.Tag, error) {
	return c.writeLabel(ctx, http.MethodPut, labelPath("/tags", id), req)
}

func (c *Client) DeleteTag(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, labelPath("/tags", id), nil, nil, nil)
}

func (c *Client) listLabels(ctx context.Context, path string) ([]model.Label, error) {
	var out []model.Label
	err := c.get(ctx, path, nil, &out)
	return out, err
}

func (c *Client) writeLabel(ctx context.Context, method, path string, req model.LabelRequest) (model.Label, error) {
	var out model.Label
	err := c.do(ctx, method, path, nil, req, &out)
	return out, err
}

func labelPath(collection string, id int64) string {
	return collection + "/" + strconv.FormatInt(id, 10)
}

// Notifications

// ListNotifications returns the unread notifications.
func (c *Client) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	var out []model.Notification
	err := c.get(ctx, "/notifications", nil, &out)
	return out, err
}

func (c *Client) CountUnread(ctx context.Context) (int64, error) {
	var n int64
	err := c.get(ctx, "/notifications/count", nil, &n)
	return n, err
}

func (c *Client) MarkRead(ctx context.Context, id string) (model.Notification, error) {
	var out model.Notification
	err := c.do(ctx, http.MethodPut, notificationPath(id)+"/read", nil, nil, &out)
	return out, err
}

func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/notifications/read-all", nil, nil, nil)
}

func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, notificationPath(id), nil, nil, nil)
}

func notificationPath(id string) string {
	return "/notifications/" + url.PathEscape(id)
}
