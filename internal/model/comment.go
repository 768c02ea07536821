package model

import "time"

type Comment struct {
	ID          int64     `json:"id"`
	TaskID      int64     `json:"taskId"`
	AuthorID    int64     `json:"authorId"`
	AuthorEmail string    `json:"authorEmail"`
	Content     string    `json:"content"`
	IsEdited    bool      `json:"isEdited"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CommentRequest struct {
	Content string `json:"content"`
}
