package data

import (
	"github.com/NhaLeTruc/todo-sync/internal/api"
	"github.com/NhaLeTruc/todo-sync/internal/cache"
)

func TasksKey() cache.Key        { return cache.K("tasks") }
func TaskListsKey() cache.Key    { return cache.K("tasks", "list") }
func SharedTasksKey() cache.Key  { return cache.K("tasks", "shared") }
func SubtaskListsKey() cache.Key { return cache.K("tasks", "subtasks") }
func CategoriesKey() cache.Key   { return cache.K("categories") }
func TagsKey() cache.Key         { return cache.K("tags") }

func NotificationsPrefix() cache.Key  { return cache.K("notifications") }
func NotificationsKey() cache.Key     { return cache.K("notifications", "unread") }
func NotificationCountKey() cache.Key { return cache.K("notifications", "count") }

// TaskListKey is one page of the list; equal params map to the same key.
func TaskListKey(p api.ListParams) cache.Key {
	return cache.K("tasks", "list", p.Canonical())
}

func TaskKey(id int64) cache.Key         { return cache.K("tasks", "detail", id) }
func SubtasksKey(id int64) cache.Key     { return cache.K("tasks", "subtasks", id) }
func CommentsKey(taskID int64) cache.Key { return cache.K("comments", taskID) }

func TimeEntriesPrefix(taskID int64) cache.Key { return cache.K("time-entries", taskID) }
func TimeEntriesKey(taskID int64) cache.Key    { return cache.K("time-entries", taskID, "list") }
func ActiveTimerKey(taskID int64) cache.Key    { return cache.K("time-entries", taskID, "active") }
func TimeTotalKey(taskID int64) cache.Key      { return cache.K("time-entries", taskID, "total") }
