package models

import "time"

// NotificationStatus is the delivery state of an outbox event.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "PENDING"
	NotificationSending NotificationStatus = "SENDING"
	NotificationFailed  NotificationStatus = "FAILED"
	NotificationSent    NotificationStatus = "SENT"
)

// NotificationEvent is a durable outbox entry. Events are claimed by a
// consumer (locked), delivered, then acked or failed. Failed events are
// retried until MaxAttempts is reached.
type NotificationEvent struct {
	ID           int64              `json:"id"`
	Channel      string             `json:"channel"`
	Payload      map[string]any     `json:"payload"`
	Status       NotificationStatus `json:"status"`
	AttemptCount int                `json:"attemptCount"`
	LastError    *string            `json:"lastError,omitempty"`
	LockedAt     *time.Time         `json:"lockedAt,omitempty"`
	LockedBy     *string            `json:"lockedBy,omitempty"`
	SentAt       *time.Time         `json:"sentAt,omitempty"`
	AckedAt      *time.Time         `json:"ackedAt,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}
