// handlers_assistant.go - Assistant chat handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/minerva-brain/backend/internal/assistant"
)

// AssistantHandler exposes the assistant chat endpoint
type AssistantHandler struct {
	assistant *assistant.Assistant
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(a *assistant.Assistant) *AssistantHandler {
	return &AssistantHandler{assistant: a}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// HandleChat runs one assistant turn. Omitting sessionId starts a fresh
// conversation; the response carries the id to continue it.
func (h *AssistantHandler) HandleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.Message == "" {
		return NewValidationError("message")
	}

	result, err := h.assistant.Chat(c.Request().Context(), req.Message, req.SessionID)
	if err != nil {
		return NewInternalError("assistant chat failed", err)
	}
	return c.JSON(http.StatusOK, result)
}
