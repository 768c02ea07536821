package model

import "time"

type NotificationType string

const (
	NotificationDueSoon   NotificationType = "TASK_DUE_SOON"
	NotificationOverdue   NotificationType = "TASK_OVERDUE"
	NotificationShared    NotificationType = "TASK_SHARED"
	NotificationCommented NotificationType = "TASK_COMMENTED"
	NotificationMentioned NotificationType = "TASK_MENTIONED"
	NotificationAssigned  NotificationType = "TASK_ASSIGNED"
	NotificationReminder  NotificationType = "REMINDER"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationDueSoon, NotificationOverdue, NotificationShared, NotificationCommented,
		NotificationMentioned, NotificationAssigned, NotificationReminder:
		return true
	}
	return false
}

type Notification struct {
	ID                     string           `json:"id"`
	UserID                 int64            `json:"userId"`
	Type                   NotificationType `json:"type"`
	Message                string           `json:"message"`
	RelatedTaskID          *int64           `json:"relatedTaskId,omitempty"`
	RelatedTaskDescription *string          `json:"relatedTaskDescription,omitempty"`
	IsRead                 bool             `json:"isRead"`
	CreatedAt              time.Time        `json:"createdAt"`
	ReadAt                 *time.Time       `json:"readAt,omitempty"`
}
