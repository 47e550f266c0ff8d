// handlers_telegram.go - Telegram chat registry handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/minerva-brain/backend/internal/store"
)

// TelegramHandler registers the chats reminder alerts go to
type TelegramHandler struct {
	store store.Store
}

// NewTelegramHandler creates a new telegram handler
func NewTelegramHandler(st store.Store) *TelegramHandler {
	return &TelegramHandler{store: st}
}

type telegramRegisterRequest struct {
	ChatID   int64   `json:"chatId"`
	ChatType string  `json:"chatType"`
	Username *string `json:"username"`
	Title    *string `json:"title"`
}

type telegramRegisterResponse struct {
	OK      bool  `json:"ok"`
	ChatID  int64 `json:"chatId"`
	Enabled bool  `json:"enabled"`
}

// HandleRegisterChat upserts a chat. Re-registering refreshes the
// metadata but never flips a chat that was disabled by hand.
func (h *TelegramHandler) HandleRegisterChat(c echo.Context) error {
	var req telegramRegisterRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.ChatID == 0 {
		return NewValidationError("chatId")
	}
	if req.ChatType == "" {
		req.ChatType = "private"
	}

	chat, err := h.store.UpsertTelegramChat(req.ChatID, req.ChatType, req.Username, req.Title)
	if err != nil {
		return NewInternalError("failed to register chat", err)
	}
	return c.JSON(http.StatusOK, telegramRegisterResponse{
		OK: true, ChatID: chat.ChatID, Enabled: chat.Enabled,
	})
}
