package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/minerva-brain/backend/internal/models"
)

const occurrenceColumns = `id, reminder_id, due_at, window_start_at, window_end_at, state,
	done_at, skipped_at, alerted_at, note, created_at, updated_at`

func scanOccurrence(row interface{ Scan(...any) error }) (*models.ReminderOccurrence, error) {
	var o models.ReminderOccurrence
	var doneAt, skippedAt, alertedAt sql.NullTime
	var note sql.NullString
	err := row.Scan(&o.ID, &o.ReminderID, &o.DueAt, &o.WindowStartAt, &o.WindowEndAt, &o.State,
		&doneAt, &skippedAt, &alertedAt, &note, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.DueAt = o.DueAt.UTC()
	o.WindowStartAt = o.WindowStartAt.UTC()
	o.WindowEndAt = o.WindowEndAt.UTC()
	o.DoneAt = nullableTime(doneAt)
	o.SkippedAt = nullableTime(skippedAt)
	o.AlertedAt = nullableTime(alertedAt)
	o.Note = nullableString(note)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}

// CreateOccurrence inserts an occurrence, filling in its ID and timestamps.
func (d *Duck) CreateOccurrence(o *models.ReminderOccurrence) error {
	ts := now()
	o.CreatedAt = ts
	o.UpdatedAt = ts
	if o.State == "" {
		o.State = models.OccurrencePending
	}
	err := d.db.QueryRow(
		`INSERT INTO reminder_occurrences (reminder_id, due_at, window_start_at, window_end_at,
			state, done_at, skipped_at, alerted_at, note, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		o.ReminderID, o.DueAt, o.WindowStartAt, o.WindowEndAt, string(o.State),
		o.DoneAt, o.SkippedAt, o.AlertedAt, o.Note, o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("creating occurrence: %w", err)
	}
	return nil
}

// GetOccurrence returns an occurrence by id.
func (d *Duck) GetOccurrence(id int64) (*models.ReminderOccurrence, error) {
	o, err := scanOccurrence(d.db.QueryRow(
		"SELECT "+occurrenceColumns+" FROM reminder_occurrences WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return o, err
}

// UpdateOccurrence rewrites the mutable fields of an occurrence row.
func (d *Duck) UpdateOccurrence(o *models.ReminderOccurrence) error {
	o.UpdatedAt = now()
	res, err := d.db.Exec(
		`UPDATE reminder_occurrences SET state = ?, done_at = ?, skipped_at = ?, alerted_at = ?,
			note = ?, updated_at = ?
		 WHERE id = ?`,
		string(o.State), o.DoneAt, o.SkippedAt, o.AlertedAt, o.Note, o.UpdatedAt, o.ID,
	)
	if err != nil {
		return fmt.Errorf("updating occurrence: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOccurrences returns occurrences due in [start, end], optionally filtered
// by state and reminder id (zero values disable the filters). Orphans whose
// reminder no longer exists are excluded.
func (d *Duck) ListOccurrences(start, end time.Time, state models.OccurrenceState, reminderID int64) ([]*models.ReminderOccurrence, error) {
	query := `SELECT o.id, o.reminder_id, o.due_at, o.window_start_at, o.window_end_at, o.state,
		o.done_at, o.skipped_at, o.alerted_at, o.note, o.created_at, o.updated_at
		FROM reminder_occurrences o
		JOIN reminders r ON r.id = o.reminder_id
		WHERE o.due_at >= ? AND o.due_at <= ?`
	args := []any{start, end}
	if state != "" {
		query += " AND o.state = ?"
		args = append(args, string(state))
	}
	if reminderID != 0 {
		query += " AND o.reminder_id = ?"
		args = append(args, reminderID)
	}
	query += " ORDER BY o.due_at, o.id"

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing occurrences: %w", err)
	}
	defer rows.Close()

	var occurrences []*models.ReminderOccurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, err
		}
		occurrences = append(occurrences, o)
	}
	return occurrences, rows.Err()
}

// HasOccurrenceBetween reports whether a reminder already has an occurrence
// due in [start, end].
func (d *Duck) HasOccurrenceBetween(reminderID int64, start, end time.Time) (bool, error) {
	var count int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM reminder_occurrences
		 WHERE reminder_id = ? AND due_at >= ? AND due_at <= ?`,
		reminderID, start, end,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking occurrence existence: %w", err)
	}
	return count > 0, nil
}

// MarkMissedBefore flips PENDING occurrences whose grace window closed before
// now to MISSED and returns how many changed.
func (d *Duck) MarkMissedBefore(nowAt time.Time) (int64, error) {
	res, err := d.db.Exec(
		`UPDATE reminder_occurrences SET state = ?, updated_at = ?
		 WHERE state = ? AND window_end_at < ?`,
		string(models.OccurrenceMissed), now(), string(models.OccurrencePending), nowAt,
	)
	if err != nil {
		return 0, fmt.Errorf("marking missed occurrences: %w", err)
	}
	return res.RowsAffected()
}

// DueUnalerted returns PENDING occurrences that are due and have not been
// alerted yet.
func (d *Duck) DueUnalerted(nowAt time.Time) ([]*models.ReminderOccurrence, error) {
	rows, err := d.db.Query(
		`SELECT `+occurrenceColumns+` FROM reminder_occurrences
		 WHERE state = ? AND due_at <= ? AND alerted_at IS NULL
		 ORDER BY due_at, id`,
		string(models.OccurrencePending), nowAt,
	)
	if err != nil {
		return nil, fmt.Errorf("listing due occurrences: %w", err)
	}
	defer rows.Close()

	var occurrences []*models.ReminderOccurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, err
		}
		occurrences = append(occurrences, o)
	}
	return occurrences, rows.Err()
}

// CountOrphanOccurrences counts occurrences whose reminder has been deleted.
func (d *Duck) CountOrphanOccurrences() (int64, error) {
	var count int64
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM reminder_occurrences o
		 WHERE NOT EXISTS (SELECT 1 FROM reminders r WHERE r.id = o.reminder_id)`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting orphan occurrences: %w", err)
	}
	return count, nil
}

// CleanupOrphanOccurrences deletes occurrences whose reminder has been deleted.
func (d *Duck) CleanupOrphanOccurrences() (int64, error) {
	res, err := d.db.Exec(
		`DELETE FROM reminder_occurrences
		 WHERE NOT EXISTS (SELECT 1 FROM reminders r WHERE r.id = reminder_occurrences.reminder_id)`,
	)
	if err != nil {
		return 0, fmt.Errorf("cleaning orphan occurrences: %w", err)
	}
	return res.RowsAffected()
}
