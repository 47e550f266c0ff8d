package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/minerva-brain/backend/internal/models"
)

const notificationColumns = `id, channel, payload_json, status, attempt_count, last_error,
	locked_at, locked_by, sent_at, acked_at, created_at, updated_at`

func scanNotification(row interface{ Scan(...any) error }) (*models.NotificationEvent, error) {
	var n models.NotificationEvent
	var payloadJSON string
	var lastError, lockedBy sql.NullString
	var lockedAt, sentAt, ackedAt sql.NullTime
	err := row.Scan(&n.ID, &n.Channel, &payloadJSON, &n.Status, &n.AttemptCount, &lastError,
		&lockedAt, &lockedBy, &sentAt, &ackedAt, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payloadJSON), &n.Payload); err != nil {
		// A corrupt payload should not make the event unreadable
		n.Payload = map[string]any{}
	}
	n.LastError = nullableString(lastError)
	n.LockedBy = nullableString(lockedBy)
	n.LockedAt = nullableTime(lockedAt)
	n.SentAt = nullableTime(sentAt)
	n.AckedAt = nullableTime(ackedAt)
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	return &n, nil
}

// CreateNotification persists a new outbox event in PENDING state.
func (d *Duck) CreateNotification(channel string, payload map[string]any) (*models.NotificationEvent, error) {
	if channel == "" {
		channel = "default"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding notification payload: %w", err)
	}

	ts := now()
	n := &models.NotificationEvent{
		Channel:   channel,
		Payload:   payload,
		Status:    models.NotificationPending,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	err = d.db.QueryRow(
		`INSERT INTO notification_events (channel, payload_json, status, attempt_count, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?) RETURNING id`,
		channel, string(data), string(models.NotificationPending), n.CreatedAt, n.UpdatedAt,
	).Scan(&n.ID)
	if err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}
	return n, nil
}

// GetNotification returns an outbox event by id.
func (d *Duck) GetNotification(id int64) (*models.NotificationEvent, error) {
	n, err := scanNotification(d.db.QueryRow(
		"SELECT "+notificationColumns+" FROM notification_events WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return n, err
}

// ClaimPendingNotifications locks deliverable events (unsent, under the
// attempt limit, not locked or with an expired lock), flips them to SENDING
// and returns them oldest first. A non-empty channels list restricts the
// claim to those channels; nil claims across all of them. Select and lock
// run as one statement, so two concurrent consumers can never claim the
// same row.
func (d *Duck) ClaimPendingNotifications(limit int, consumerID string, lockTimeout time.Duration, maxAttempts int, channels []string) ([]*models.NotificationEvent, error) {
	d.claimMu.Lock()
	defer d.claimMu.Unlock()

	nowAt := now()
	lockThreshold := nowAt.Add(-lockTimeout)

	channelFilter := ""
	args := []any{
		string(models.NotificationSending), nowAt, consumerID, nowAt,
		maxAttempts, string(models.NotificationPending), string(models.NotificationFailed),
		lockThreshold,
	}
	if len(channels) > 0 {
		channelFilter = " AND channel IN (" + strings.Repeat("?, ", len(channels)-1) + "?)"
		for _, ch := range channels {
			args = append(args, ch)
		}
	}
	args = append(args, limit)

	rows, err := d.db.Query(
		`UPDATE notification_events SET status = ?, locked_at = ?, locked_by = ?, updated_at = ?
		 WHERE id IN (
			SELECT id FROM notification_events
			WHERE sent_at IS NULL
			  AND attempt_count < ?
			  AND status IN (?, ?)
			  AND (locked_at IS NULL OR locked_at < ?)`+channelFilter+`
			ORDER BY created_at, id
			LIMIT ?
		 )
		 RETURNING `+notificationColumns,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("claiming pending notifications: %w", err)
	}
	defer rows.Close()

	var claimed []*models.NotificationEvent
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// RETURNING does not promise row order
	sort.Slice(claimed, func(i, j int) bool {
		if claimed[i].CreatedAt.Equal(claimed[j].CreatedAt) {
			return claimed[i].ID < claimed[j].ID
		}
		return claimed[i].CreatedAt.Before(claimed[j].CreatedAt)
	})
	return claimed, nil
}

// AckNotification marks an event as delivered and releases its lock.
func (d *Duck) AckNotification(id int64) (*models.NotificationEvent, error) {
	nowAt := now()
	res, err := d.db.Exec(
		`UPDATE notification_events SET status = ?, sent_at = ?, acked_at = ?,
			locked_at = NULL, locked_by = NULL, updated_at = ?
		 WHERE id = ?`,
		string(models.NotificationSent), nowAt, nowAt, nowAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("acking notification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return d.GetNotification(id)
}

// FailNotification records a delivery failure, bumps the attempt counter and
// releases the lock so the event can be retried.
func (d *Duck) FailNotification(id int64, errorMessage string) (*models.NotificationEvent, error) {
	nowAt := now()
	res, err := d.db.Exec(
		`UPDATE notification_events SET status = ?, attempt_count = attempt_count + 1,
			last_error = ?, locked_at = NULL, locked_by = NULL, updated_at = ?
		 WHERE id = ?`,
		string(models.NotificationFailed), errorMessage, nowAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failing notification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return d.GetNotification(id)
}
