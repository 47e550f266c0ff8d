// handlers_notifications.go - Notification outbox handlers for external consumers
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/minerva-brain/backend/internal/store"
)

// NotificationHandler exposes the outbox to external consumers such as
// a standalone telegram bot process. Claiming locks events so the
// in-process dispatcher and external consumers never double-deliver.
type NotificationHandler struct {
	store       store.Store
	maxAttempts int
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(st store.Store, maxAttempts int) *NotificationHandler {
	return &NotificationHandler{store: st, maxAttempts: maxAttempts}
}

type failRequest struct {
	ErrorMessage string `json:"errorMessage"`
}

type ackResponse struct {
	OK           bool    `json:"ok"`
	ID           int64   `json:"id"`
	Status       string  `json:"status"`
	AttemptCount int     `json:"attemptCount"`
	LastError    *string `json:"lastError,omitempty"`
}

// HandlePendingNotifications claims a batch of deliverable events.
// Query params: limit (default 50), consumerId, lockSeconds, channel.
func (h *NotificationHandler) HandlePendingNotifications(c echo.Context) error {
	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > 100 {
			return NewBadRequestError("limit must be between 1 and 100", err)
		}
		limit = parsed
	}

	consumerID := c.QueryParam("consumerId")
	if consumerID == "" {
		consumerID = "telegram-bot"
	}

	lockSeconds := 60
	if l := c.QueryParam("lockSeconds"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > 3600 {
			return NewBadRequestError("lockSeconds must be between 1 and 3600", err)
		}
		lockSeconds = parsed
	}

	var channels []string
	if ch := c.QueryParam("channel"); ch != "" {
		channels = []string{ch}
	}

	claimed, err := h.store.ClaimPendingNotifications(limit, consumerID, time.Duration(lockSeconds)*time.Second, h.maxAttempts, channels)
	if err != nil {
		return NewInternalError("failed to claim notifications", err)
	}
	return c.JSON(http.StatusOK, claimed)
}

// HandleAckNotification marks a claimed event as delivered
func (h *NotificationHandler) HandleAckNotification(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewBadRequestError("invalid notification id", err)
	}

	evt, err := h.store.AckNotification(id)
	if err != nil {
		return storeError(err, "notification", c.Param("id"))
	}
	return c.JSON(http.StatusOK, ackResponse{
		OK: true, ID: evt.ID, Status: string(evt.Status),
		AttemptCount: evt.AttemptCount, LastError: evt.LastError,
	})
}

// HandleFailNotification records a delivery failure and releases the lock
func (h *NotificationHandler) HandleFailNotification(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewBadRequestError("invalid notification id", err)
	}

	var req failRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.ErrorMessage == "" {
		return NewValidationError("errorMessage")
	}

	evt, err := h.store.FailNotification(id, req.ErrorMessage)
	if err != nil {
		return storeError(err, "notification", c.Param("id"))
	}
	return c.JSON(http.StatusOK, ackResponse{
		OK: true, ID: evt.ID, Status: string(evt.Status),
		AttemptCount: evt.AttemptCount, LastError: evt.LastError,
	})
}
