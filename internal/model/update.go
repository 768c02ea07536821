package model

import "time"

type Action string

const (
	ActionCreated   Action = "CREATED"
	ActionUpdated   Action = "UPDATED"
	ActionDeleted   Action = "DELETED"
	ActionCompleted Action = "COMPLETED"
	ActionShared    Action = "SHARED"
)

// TaskUpdate is the push message delivered on /user/queue/task-updates.
type TaskUpdate struct {
	TaskID      int64      `json:"taskId"`
	Action      Action     `json:"action"`
	UserID      int64      `json:"userId"`
	Description *string    `json:"description,omitempty"`
	IsCompleted *bool      `json:"isCompleted,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// NewTaskUpdate builds an update message carrying t's current fields.
func NewTaskUpdate(action Action, userID int64, t Task) TaskUpdate {
	desc := t.Description
	done := t.IsCompleted
	prio := t.Priority
	return TaskUpdate{
		TaskID:      t.ID,
		Action:      action,
		UserID:      userID,
		Description: &desc,
		IsCompleted: &done,
		Priority:    &prio,
		DueDate:     t.DueDate,
		Timestamp:   time.Now().UTC(),
	}
}
