package model

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// MaxSubtaskDepth is the deepest a subtask may be nested under its root task.
const MaxSubtaskDepth = 5

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority accepts any casing; empty input means MEDIUM.
func ParsePriority(s string) (Priority, bool) {
	if s == "" {
		return PriorityMedium, true
	}
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	return p, p.Valid()
}

type Task struct {
	ID                       int64      `json:"id"`
	Description              string     `json:"description"`
	IsCompleted              bool       `json:"isCompleted"`
	Priority                 Priority   `json:"priority"`
	DueDate                  *time.Time `json:"dueDate"`
	CompletedAt              *time.Time `json:"completedAt"`
	Position                 int        `json:"position"`
	CategoryID               *int64     `json:"categoryId"`
	CategoryName             *string    `json:"categoryName"`
	CategoryColor            *string    `json:"categoryColor"`
	Tags                     []Tag      `json:"tags"`
	EstimatedDurationMinutes *int       `json:"estimatedDurationMinutes"`
	ActualDurationMinutes    *int       `json:"actualDurationMinutes"`
	IsOverdue                bool       `json:"isOverdue"`
	ParentTaskID             *int64     `json:"parentTaskId"`
	Depth                    int        `json:"depth"`
	CreatedAt                time.Time  `json:"createdAt"`
	UpdatedAt                time.Time  `json:"updatedAt"`
}

// Overdue reports whether an open task is past its due date at now.
func (t Task) Overdue(now time.Time) bool {
	return !t.IsCompleted && t.DueDate != nil && t.DueDate.Before(now)
}

// SubtaskProgress returns the completed share of subtasks as a 0..100 percentage.
func SubtaskProgress(subtasks []Task) int {
	if len(subtasks) == 0 {
		return 0
	}
	done := 0
	for _, s := range subtasks {
		if s.IsCompleted {
			done++
		}
	}
	return done * 100 / len(subtasks)
}

type TaskCreateRequest struct {
	Description              string     `json:"description"`
	Priority                 Priority   `json:"priority,omitempty"`
	DueDate                  *time.Time `json:"dueDate,omitempty"`
	CategoryID               *int64     `json:"categoryId,omitempty"`
	TagIDs                   []int64    `json:"tagIds,omitempty"`
	EstimatedDurationMinutes *int       `json:"estimatedDurationMinutes,omitempty"`
}

// TaskUpdateRequest is a partial update; nil fields are left untouched.
type TaskUpdateRequest struct {
	Description              *string    `json:"description,omitempty"`
	Priority                 *Priority  `json:"priority,omitempty"`
	DueDate                  *time.Time `json:"dueDate,omitempty"`
	CategoryID               *int64     `json:"categoryId,omitempty"`
	TagIDs                   []int64    `json:"tagIds,omitempty"`
	EstimatedDurationMinutes *int       `json:"estimatedDurationMinutes,omitempty"`
}

// Apply shallow-merges the request into t and returns the result.
func (r TaskUpdateRequest) Apply(t Task) Task {
	if r.Description != nil {
		t.Description = *r.Description
	}
	if r.Priority != nil {
		t.Priority = *r.Priority
	}
	if r.DueDate != nil {
		d := *r.DueDate
		t.DueDate = &d
	}
	if r.CategoryID != nil {
		id := *r.CategoryID
		t.CategoryID = &id
	}
	if r.EstimatedDurationMinutes != nil {
		m := *r.EstimatedDurationMinutes
		t.EstimatedDurationMinutes = &m
	}
	return t
}

type Permission string

const (
	PermissionView Permission = "VIEW"
	PermissionEdit Permission = "EDIT"
)

type ShareRequest struct {
	Email      string     `json:"sharedWithEmail"`
	Permission Permission `json:"permission"`
}

type TaskShare struct {
	ID               int64      `json:"id"`
	TaskID           int64      `json:"taskId"`
	SharedWithUserID int64      `json:"sharedWithUserId"`
	SharedWithEmail  string     `json:"sharedWithEmail"`
	Permission       Permission `json:"permission"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type TaskFilter struct {
	UserID     int64
	Completed  *bool
	Search     string
	CategoryID *int64
	TagIDs     []int64
	ParentID   *int64
}

type PageRequest struct {
	Page          int
	Size          int
	SortBy        string
	SortDirection string
}
