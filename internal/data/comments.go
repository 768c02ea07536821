package data

import (
	"context"
	"strconv"

	"github.com/NhaLeTruc/todo-sync/internal/cache"
	"github.com/NhaLeTruc/todo-sync/internal/model"
)

func commentScope(taskID int64) string {
	return scopeComments + "/" + strconv.FormatInt(taskID, 10)
}

func (d *Data) CreateComment(ctx context.Context, taskID int64, content string) (model.Comment, error) {
	if err := ValidateComment(content); err != nil {
		d.fail("create comment", err)
		return model.Comment{}, err
	}

	now := d.now()
	opt := model.Comment{ID: d.nextTempID(), TaskID: taskID, Content: content, CreatedAt: now, UpdatedAt: now}
	key := CommentsKey(taskID)

	var created model.Comment
	err := d.mutate(ctx, "create comment", cache.Mutation{
		Scope:  commentScope(taskID),
		Cancel: []cache.Key{key},
		Patch: func(tx *cache.Tx) {
			cache.Patch(tx, key, func(rows []model.Comment) ([]model.Comment, bool) {
				out := append(append([]model.Comment(nil), rows...), opt)
				return out, true
			})
		},
		Send: func(ctx context.Context) error {
			var err error
			created, err = d.backend.CreateComment(ctx, taskID, model.CommentRequest{Content: content})
			return err
		},
		Invalidate: []cache.Key{key},
	})
	return created, err
}

func (d *Data) UpdateComment(ctx context.Context, taskID, commentID int64, content string) (model.Comment, error) {
	if err := ValidateComment(content); err != nil {
		d.fail("update comment", err)
		return model.Comment{}, err
	}

	now := d.now()
	key := CommentsKey(taskID)
	var updated model.Comment
	err := d.mutate(ctx, "update comment", cache.Mutation{
		Scope:  commentScope(taskID),
		Cancel: []cache.Key{key},
		Patch: func(tx *cache.Tx) {
			cache.Patch(tx, key, func(rows []model.Comment) ([]model.Comment, bool) {
				for i, c := range rows {
					if c.ID != commentID {
						continue
					}
					out := append([]model.Comment(nil), rows...)
					out[i].Content = content
					out[i].IsEdited = true
					out[i].UpdatedAt = now
					return out, true
				}
				return rows, false
			})
		},
		Send: func(ctx context.Context) error {
			var err error
			updated, err = d.backend.UpdateComment(ctx, commentID, model.CommentRequest{Content: content})
			return err
		},
		Invalidate: []cache.Key{key},
	})
	return updated, err
}

func (d *Data) DeleteComment(ctx context.Context, taskID, commentID int64) error {
	key := CommentsKey(taskID)
	return d.mutate(ctx, "delete comment", cache.Mutation{
		Scope:  commentScope(taskID),
		Cancel: []cache.Key{key},
		Patch: func(tx *cache.Tx) {
			cache.Patch(tx, key, func(rows []model.Comment) ([]model.Comment, bool) {
				out := make([]model.Comment, 0, len(rows))
				for _, c := range rows {
					if c.ID != commentID {
						out = append(out, c)
					}
				}
				return out, len(out) != len(rows)
			})
		},
		Send: func(ctx context.Context) error {
			return d.backend.DeleteComment(ctx, commentID)
		},
		Invalidate: []cache.Key{key},
	})
}
