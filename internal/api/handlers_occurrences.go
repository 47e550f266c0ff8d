// handlers_occurrences.go - Reminder occurrence handlers
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/minerva-brain/backend/internal/models"
	"github.com/minerva-brain/backend/internal/store"
)

// OccurrenceHandler manages materialized reminder occurrences. changed is
// called after a state change so connected displays get fresh status.
type OccurrenceHandler struct {
	store   store.Store
	loc     *time.Location
	changed func()
}

// NewOccurrenceHandler creates a new occurrence handler
func NewOccurrenceHandler(st store.Store, loc *time.Location, changed func()) *OccurrenceHandler {
	if loc == nil {
		loc = time.UTC
	}
	if changed == nil {
		changed = func() {}
	}
	return &OccurrenceHandler{store: st, loc: loc, changed: changed}
}

// occurrenceOut is the list view: the occurrence plus its reminder label
type occurrenceOut struct {
	ID         int64      `json:"id"`
	ReminderID int64      `json:"reminderId"`
	Label      string     `json:"label"`
	DueAt      time.Time  `json:"dueAt"`
	State      string     `json:"state"`
	DoneAt     *time.Time `json:"doneAt,omitempty"`
	SkippedAt  *time.Time `json:"skippedAt,omitempty"`
}

type stateChangeResponse struct {
	ID        int64      `json:"id"`
	State     string     `json:"state"`
	DoneAt    *time.Time `json:"doneAt,omitempty"`
	SkippedAt *time.Time `json:"skippedAt,omitempty"`
}

// HandleListOccurrences lists occurrences for one device-local day.
// Optional filters: ?date=YYYY-MM-DD (default today), ?state=, ?reminderId=.
func (h *OccurrenceHandler) HandleListOccurrences(c echo.Context) error {
	day := time.Now().In(h.loc)
	if dateStr := c.QueryParam("date"); dateStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateStr, h.loc)
		if err != nil {
			return NewBadRequestError("date must be YYYY-MM-DD", err)
		}
		day = parsed
	}
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, h.loc)
	dayEnd := dayStart.Add(24 * time.Hour)

	var state models.OccurrenceState
	if s := c.QueryParam("state"); s != "" {
		state = models.OccurrenceState(s)
	}

	var reminderID int64
	if rid := c.QueryParam("reminderId"); rid != "" {
		parsed, err := strconv.ParseInt(rid, 10, 64)
		if err != nil {
			return NewBadRequestError("invalid reminderId", err)
		}
		reminderID = parsed
	}

	occs, err := h.store.ListOccurrences(dayStart, dayEnd, state, reminderID)
	if err != nil {
		return NewInternalError("failed to list occurrences", err)
	}

	labels := make(map[int64]string)
	out := make([]occurrenceOut, 0, len(occs))
	for _, o := range occs {
		label, ok := labels[o.ReminderID]
		if !ok {
			label = "Unknown"
			if r, err := h.store.GetReminder(o.ReminderID); err == nil {
				label = r.Label
			}
			labels[o.ReminderID] = label
		}
		out = append(out, occurrenceOut{
			ID:         o.ID,
			ReminderID: o.ReminderID,
			Label:      label,
			DueAt:      o.DueAt,
			State:      string(o.State),
			DoneAt:     o.DoneAt,
			SkippedAt:  o.SkippedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// HandleMarkDone marks an occurrence DONE. Calling it on an occurrence
// already DONE or SKIPPED returns the stored state unchanged.
func (h *OccurrenceHandler) HandleMarkDone(c echo.Context) error {
	return h.changeState(c, models.OccurrenceDone)
}

// HandleMarkSkipped marks an occurrence SKIPPED, same idempotency rule
// as HandleMarkDone.
func (h *OccurrenceHandler) HandleMarkSkipped(c echo.Context) error {
	return h.changeState(c, models.OccurrenceSkipped)
}

func (h *OccurrenceHandler) changeState(c echo.Context, target models.OccurrenceState) error {
	id, err := pathID(c)
	if err != nil {
		return NewBadRequestError("invalid occurrence id", err)
	}

	occ, err := h.store.GetOccurrence(id)
	if err != nil {
		return storeError(err, "occurrence", c.Param("id"))
	}

	// Terminal states stay put
	if occ.State == models.OccurrenceDone || occ.State == models.OccurrenceSkipped {
		return c.JSON(http.StatusOK, stateChangeResponse{
			ID: occ.ID, State: string(occ.State), DoneAt: occ.DoneAt, SkippedAt: occ.SkippedAt,
		})
	}

	now := time.Now().UTC()
	occ.State = target
	switch target {
	case models.OccurrenceDone:
		occ.DoneAt = &now
		occ.SkippedAt = nil
	case models.OccurrenceSkipped:
		occ.SkippedAt = &now
		occ.DoneAt = nil
	}

	if err := h.store.UpdateOccurrence(occ); err != nil {
		return NewInternalError("failed to update occurrence", err)
	}
	h.changed()
	return c.JSON(http.StatusOK, stateChangeResponse{
		ID: occ.ID, State: string(occ.State), DoneAt: occ.DoneAt, SkippedAt: occ.SkippedAt,
	})
}

// HandleCleanupOrphans deletes occurrences whose reminder is gone.
// Requires ?confirm=true; without it the count is reported but nothing
// is deleted.
func (h *OccurrenceHandler) HandleCleanupOrphans(c echo.Context) error {
	if c.QueryParam("confirm") != "true" {
		count, err := h.store.CountOrphanOccurrences()
		if err != nil {
			return NewInternalError("failed to count orphans", err)
		}
		return RespondWithError(c, NewBadRequestError(
			fmt.Sprintf("set confirm=true to delete %d orphan occurrence(s)", count), nil))
	}

	deleted, err := h.store.CleanupOrphanOccurrences()
	if err != nil {
		return NewInternalError("failed to delete orphans", err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"deleted": deleted})
}
