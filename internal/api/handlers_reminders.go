// handlers_reminders.go - Reminder CRUD handlers
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/minerva-brain/backend/internal/models"
	"github.com/minerva-brain/backend/internal/store"
)

// ReminderHandler manages reminders and their schedules
type ReminderHandler struct {
	store store.Store
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(st store.Store) *ReminderHandler {
	return &ReminderHandler{store: st}
}

type createReminderRequest struct {
	Label          string     `json:"label"`
	Description    *string    `json:"description"`
	ScheduleKind   string     `json:"scheduleKind"`
	TimeOfDay      string     `json:"timeOfDay"`
	DaysOfWeek     []int      `json:"daysOfWeek"`
	OneOffAt       *time.Time `json:"oneOffAt"`
	GraceBeforeMin int        `json:"graceBeforeMin"`
	GraceAfterMin  *int       `json:"graceAfterMin"`
	Channels       []string   `json:"channels"`
	Enabled        *bool      `json:"enabled"`
}

type updateReminderRequest struct {
	Label          *string    `json:"label"`
	Description    *string    `json:"description"`
	ScheduleKind   *string    `json:"scheduleKind"`
	TimeOfDay      *string    `json:"timeOfDay"`
	DaysOfWeek     []int      `json:"daysOfWeek"`
	OneOffAt       *time.Time `json:"oneOffAt"`
	GraceBeforeMin *int       `json:"graceBeforeMin"`
	GraceAfterMin  *int       `json:"graceAfterMin"`
	Channels       []string   `json:"channels"`
	Enabled        *bool      `json:"enabled"`
}

// HandleListReminders returns all reminders
func (h *ReminderHandler) HandleListReminders(c echo.Context) error {
	reminders, err := h.store.ListReminders()
	if err != nil {
		return NewInternalError("failed to list reminders", err)
	}
	return c.JSON(http.StatusOK, reminders)
}

// HandleGetReminder returns one reminder by id
func (h *ReminderHandler) HandleGetReminder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewBadRequestError("invalid reminder id", err)
	}

	r, err := h.store.GetReminder(id)
	if err != nil {
		return storeError(err, "reminder", c.Param("id"))
	}
	return c.JSON(http.StatusOK, r)
}

// HandleCreateReminder validates the schedule and stores the reminder
func (h *ReminderHandler) HandleCreateReminder(c echo.Context) error {
	var req createReminderRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.Label == "" {
		return NewValidationError("label")
	}

	kind, err := models.ValidateScheduleKind(req.ScheduleKind)
	if err != nil {
		return NewBadRequestError(err.Error(), nil)
	}
	if _, _, err := models.ParseTimeOfDay(req.TimeOfDay); err != nil {
		return NewBadRequestError(err.Error(), nil)
	}
	if err := models.ValidateDaysOfWeek(req.DaysOfWeek); err != nil {
		return NewBadRequestError(err.Error(), nil)
	}

	graceAfter := 60
	if req.GraceAfterMin != nil {
		graceAfter = *req.GraceAfterMin
	}
	channels := req.Channels
	if channels == nil {
		channels = []string{models.ChannelTelegram, models.ChannelESP32}
	}

	r := &models.Reminder{
		Label:          req.Label,
		Description:    req.Description,
		ScheduleKind:   kind,
		TimeOfDay:      req.TimeOfDay,
		DaysOfWeek:     req.DaysOfWeek,
		OneOffAt:       req.OneOffAt,
		GraceBeforeMin: req.GraceBeforeMin,
		GraceAfterMin:  graceAfter,
		Channels:       channels,
		Enabled:        true,
	}
	if req.Enabled != nil {
		r.Enabled = *req.Enabled
	}

	if err := h.store.CreateReminder(r); err != nil {
		return NewInternalError("failed to create reminder", err)
	}
	return c.JSON(http.StatusCreated, r)
}

// HandleUpdateReminder patches the provided fields only
func (h *ReminderHandler) HandleUpdateReminder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewBadRequestError("invalid reminder id", err)
	}

	var req updateReminderRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	r, err := h.store.GetReminder(id)
	if err != nil {
		return storeError(err, "reminder", c.Param("id"))
	}

	if req.Label != nil {
		r.Label = *req.Label
	}
	if req.Description != nil {
		r.Description = req.Description
	}
	if req.ScheduleKind != nil {
		kind, err := models.ValidateScheduleKind(*req.ScheduleKind)
		if err != nil {
			return NewBadRequestError(err.Error(), nil)
		}
		r.ScheduleKind = kind
	}
	if req.TimeOfDay != nil {
		if _, _, err := models.ParseTimeOfDay(*req.TimeOfDay); err != nil {
			return NewBadRequestError(err.Error(), nil)
		}
		r.TimeOfDay = *req.TimeOfDay
	}
	if req.DaysOfWeek != nil {
		if err := models.ValidateDaysOfWeek(req.DaysOfWeek); err != nil {
			return NewBadRequestError(err.Error(), nil)
		}
		r.DaysOfWeek = req.DaysOfWeek
	}
	if req.OneOffAt != nil {
		r.OneOffAt = req.OneOffAt
	}
	if req.GraceBeforeMin != nil {
		r.GraceBeforeMin = *req.GraceBeforeMin
	}
	if req.GraceAfterMin != nil {
		r.GraceAfterMin = *req.GraceAfterMin
	}
	if req.Channels != nil {
		r.Channels = req.Channels
	}
	if req.Enabled != nil {
		r.Enabled = *req.Enabled
	}

	if err := h.store.UpdateReminder(r); err != nil {
		return storeError(err, "reminder", c.Param("id"))
	}
	return c.JSON(http.StatusOK, r)
}

// HandleDeleteReminder removes a reminder. Its occurrences become
// orphans and are reaped by the cleanup endpoint.
func (h *ReminderHandler) HandleDeleteReminder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewBadRequestError("invalid reminder id", err)
	}

	if err := h.store.DeleteReminder(id); err != nil {
		return storeError(err, "reminder", c.Param("id"))
	}
	return c.NoContent(http.StatusNoContent)
}
