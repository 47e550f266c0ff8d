package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ScheduleKind determines how a reminder repeats.
type ScheduleKind string

const (
	ScheduleDaily  ScheduleKind = "DAILY"
	ScheduleWeekly ScheduleKind = "WEEKLY"
	ScheduleOneOff ScheduleKind = "ONE_OFF"
)

// OccurrenceState is the lifecycle state of a single reminder occurrence.
type OccurrenceState string

const (
	OccurrencePending OccurrenceState = "PENDING"
	OccurrenceDone    OccurrenceState = "DONE"
	OccurrenceMissed  OccurrenceState = "MISSED"
	OccurrenceSkipped OccurrenceState = "SKIPPED"
)

// Notification channels a reminder can be delivered on.
const (
	ChannelTelegram = "telegram"
	ChannelESP32    = "esp32"
)

// Reminder is a scheduled task definition. TimeOfDay is "HH:MM" in the
// device's local timezone. DaysOfWeek uses 0=Monday .. 6=Sunday and only
// applies to WEEKLY reminders.
type Reminder struct {
	ID             int64        `json:"id"`
	Label          string       `json:"label"`
	Description    *string      `json:"description,omitempty"`
	ScheduleKind   ScheduleKind `json:"scheduleKind"`
	TimeOfDay      string       `json:"timeOfDay"`
	DaysOfWeek     []int        `json:"daysOfWeek,omitempty"`
	OneOffAt       *time.Time   `json:"oneOffAt,omitempty"`
	GraceBeforeMin int          `json:"graceBeforeMin"`
	GraceAfterMin  int          `json:"graceAfterMin"`
	Channels       []string     `json:"channels"`
	Enabled        bool         `json:"enabled"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// ReminderOccurrence is one concrete instance of a reminder on a given day.
// The window [WindowStartAt, WindowEndAt] is the grace period around DueAt;
// a PENDING occurrence past its window end is considered missed.
type ReminderOccurrence struct {
	ID            int64           `json:"id"`
	ReminderID    int64           `json:"reminderId"`
	DueAt         time.Time       `json:"dueAt"`
	WindowStartAt time.Time       `json:"windowStartAt"`
	WindowEndAt   time.Time       `json:"windowEndAt"`
	State         OccurrenceState `json:"state"`
	DoneAt        *time.Time      `json:"doneAt,omitempty"`
	SkippedAt     *time.Time      `json:"skippedAt,omitempty"`
	AlertedAt     *time.Time      `json:"alertedAt,omitempty"`
	Note          *string         `json:"note,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// ParseTimeOfDay parses an "HH:MM" string into hour and minute components.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time of day must be in HH:MM format, got %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("time of day must be in HH:MM format, got %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("time of day must be in HH:MM format, got %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time of day out of range: %q", s)
	}
	return hour, minute, nil
}

// ValidateScheduleKind normalizes and checks a schedule kind string.
func ValidateScheduleKind(s string) (ScheduleKind, error) {
	kind := ScheduleKind(strings.ToUpper(s))
	switch kind {
	case ScheduleDaily, ScheduleWeekly, ScheduleOneOff:
		return kind, nil
	}
	return "", fmt.Errorf("scheduleKind must be one of DAILY, WEEKLY, ONE_OFF, got %q", s)
}

// ValidateDaysOfWeek checks that all entries are in 0..6 (0=Monday).
func ValidateDaysOfWeek(days []int) error {
	for _, d := range days {
		if d < 0 || d > 6 {
			return fmt.Errorf("daysOfWeek entries must be between 0 and 6, got %d", d)
		}
	}
	return nil
}
