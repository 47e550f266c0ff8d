package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/minerva-brain/backend/internal/models"
)

const reminderColumns = `id, label, description, schedule_kind, time_of_day, days_of_week,
	one_off_at, grace_before_min, grace_after_min, channels, enabled, created_at, updated_at`

// Days and channels are stored as comma-separated strings, one row per reminder.

func daysToString(days []int) *string {
	if days == nil {
		return nil
	}
	uniq := map[int]struct{}{}
	for _, d := range days {
		uniq[d] = struct{}{}
	}
	sorted := make([]int, 0, len(uniq))
	for d := range uniq {
		sorted = append(sorted, d)
	}
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, d := range sorted {
		parts[i] = strconv.Itoa(d)
	}
	s := strings.Join(parts, ",")
	return &s
}

func stringToDays(s *string) []int {
	if s == nil || *s == "" {
		return nil
	}
	var days []int
	for _, part := range strings.Split(*s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if d, err := strconv.Atoi(part); err == nil {
			days = append(days, d)
		}
	}
	return days
}

func channelsToString(channels []string) string {
	if len(channels) == 0 {
		return ""
	}
	uniq := map[string]struct{}{}
	for _, c := range channels {
		uniq[c] = struct{}{}
	}
	sorted := make([]string, 0, len(uniq))
	for c := range uniq {
		sorted = append(sorted, c)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func stringToChannels(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

func scanReminder(row interface{ Scan(...any) error }) (*models.Reminder, error) {
	var r models.Reminder
	var description, days sql.NullString
	var oneOff sql.NullTime
	var channels string
	err := row.Scan(&r.ID, &r.Label, &description, &r.ScheduleKind, &r.TimeOfDay, &days,
		&oneOff, &r.GraceBeforeMin, &r.GraceAfterMin, &channels, &r.Enabled, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Description = nullableString(description)
	r.DaysOfWeek = stringToDays(nullableString(days))
	r.OneOffAt = nullableTime(oneOff)
	r.Channels = stringToChannels(channels)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

// ListReminders returns all reminders ordered by id.
func (d *Duck) ListReminders() ([]*models.Reminder, error) {
	rows, err := d.db.Query("SELECT " + reminderColumns + " FROM reminders ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// GetReminder returns a reminder by id.
func (d *Duck) GetReminder(id int64) (*models.Reminder, error) {
	r, err := scanReminder(d.db.QueryRow("SELECT "+reminderColumns+" FROM reminders WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// CreateReminder inserts a reminder, filling in its ID and timestamps.
func (d *Duck) CreateReminder(r *models.Reminder) error {
	ts := now()
	r.CreatedAt = ts
	r.UpdatedAt = ts
	err := d.db.QueryRow(
		`INSERT INTO reminders (label, description, schedule_kind, time_of_day, days_of_week,
			one_off_at, grace_before_min, grace_after_min, channels, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		r.Label, r.Description, string(r.ScheduleKind), r.TimeOfDay, daysToString(r.DaysOfWeek),
		r.OneOffAt, r.GraceBeforeMin, r.GraceAfterMin, channelsToString(r.Channels), r.Enabled,
		r.CreatedAt, r.UpdatedAt,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("creating reminder: %w", err)
	}
	return nil
}

// UpdateReminder rewrites a reminder row.
func (d *Duck) UpdateReminder(r *models.Reminder) error {
	r.UpdatedAt = now()
	res, err := d.db.Exec(
		`UPDATE reminders SET label = ?, description = ?, schedule_kind = ?, time_of_day = ?,
			days_of_week = ?, one_off_at = ?, grace_before_min = ?, grace_after_min = ?,
			channels = ?, enabled = ?, updated_at = ?
		 WHERE id = ?`,
		r.Label, r.Description, string(r.ScheduleKind), r.TimeOfDay, daysToString(r.DaysOfWeek),
		r.OneOffAt, r.GraceBeforeMin, r.GraceAfterMin, channelsToString(r.Channels), r.Enabled,
		r.UpdatedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("updating reminder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReminder removes a reminder by id. Its occurrences are left behind
// and reaped by CleanupOrphanOccurrences.
func (d *Duck) DeleteReminder(id int64) error {
	res, err := d.db.Exec("DELETE FROM reminders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting reminder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
