// handlers_status.go - Daily status handlers for the display
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/minerva-brain/backend/internal/status"
	"github.com/vmihailenco/msgpack/v5"
)

// StatusHandler serves the aggregate payload the display polls
type StatusHandler struct {
	aggregator *status.Aggregator
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(agg *status.Aggregator) *StatusHandler {
	return &StatusHandler{aggregator: agg}
}

// HandleStatusToday returns the daily status as JSON
func (h *StatusHandler) HandleStatusToday(c echo.Context) error {
	st, err := h.aggregator.BuildToday(time.Now())
	if err != nil {
		return NewInternalError("failed to build status", err)
	}
	return c.JSON(http.StatusOK, st)
}

// HandleStatusTodayMsgpack returns the daily status as MessagePack.
// The compact encoding keeps the payload within the display's buffers.
func (h *StatusHandler) HandleStatusTodayMsgpack(c echo.Context) error {
	st, err := h.aggregator.BuildToday(time.Now())
	if err != nil {
		return NewInternalError("failed to build status", err)
	}

	data, err := msgpack.Marshal(st)
	if err != nil {
		return NewInternalError("failed to encode status", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}
