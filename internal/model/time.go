package model

import (
	"strconv"
	"time"
)

type EntryType string

const (
	// EntryTimer is started and stopped; its duration is the time between.
	EntryTimer EntryType = "TIMER"
	// EntryManual carries a duration the user typed in.
	EntryManual EntryType = "MANUAL"
)

// MaxManualMinutes is the longest single manual entry: 24h 59m.
const MaxManualMinutes = 24*60 + 59

type TimeEntry struct {
	ID              int64      `json:"id"`
	TaskID          int64      `json:"taskId"`
	UserID          int64      `json:"userId"`
	EntryType       EntryType  `json:"entryType"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	DurationMinutes *int       `json:"durationMinutes,omitempty"`
	LoggedAt        *time.Time `json:"loggedAt,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	Running         bool       `json:"running"`
}

// Minutes is the tracked duration. A running timer has none yet.
func (e TimeEntry) Minutes() (int, bool) {
	switch {
	case e.EntryType == EntryManual && e.DurationMinutes != nil:
		return *e.DurationMinutes, true
	case e.EntryType == EntryTimer && e.StartTime != nil && e.EndTime != nil:
		return int(e.EndTime.Sub(*e.StartTime) / time.Minute), true
	}
	return 0, false
}

// TotalMinutes sums the finished entries.
func TotalMinutes(entries []TimeEntry) int {
	total := 0
	for _, e := range entries {
		if m, ok := e.Minutes(); ok {
			total += m
		}
	}
	return total
}

type StartTimerRequest struct {
	Notes *string `json:"notes,omitempty"`
}

type ManualTimeRequest struct {
	DurationMinutes int        `json:"durationMinutes"`
	Notes           *string    `json:"notes,omitempty"`
	LoggedAt        *time.Time `json:"loggedAt,omitempty"`
}

type TimeNotesRequest struct {
	Notes *string `json:"notes"`
}

type TimeTotal struct {
	TotalMinutes int `json:"totalMinutes"`
}

type TimeReport struct {
	Entries      []TimeEntry `json:"entries"`
	TotalMinutes int         `json:"totalMinutes"`
	StartDate    time.Time   `json:"startDate"`
	EndDate      time.Time   `json:"endDate"`
}

// FormatMinutes renders a duration as "45m", "2h" or "1h 30m".
func FormatMinutes(m int) string {
	if m < 60 {
		return strconv.Itoa(m) + "m"
	}
	h, rest := m/60, m%60
	if rest == 0 {
		return strconv.Itoa(h) + "h"
	}
	return strconv.Itoa(h) + "h " + strconv.Itoa(rest) + "m"
}
