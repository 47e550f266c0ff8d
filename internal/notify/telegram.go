package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minerva-brain/backend/internal/config"
	"github.com/minerva-brain/backend/internal/models"
)

// TelegramSender delivers notifications through the Telegram Bot API.
// The payload must carry a chat_id and a text.
type TelegramSender struct {
	token   string
	apiBase string
	client  *http.Client
}

// NewTelegramSender builds a sender from the notify settings. Returns
// nil when no bot token is configured, which disables the channel.
func NewTelegramSender(cfg config.NotifyConfig) *TelegramSender {
	if cfg.TelegramBotToken == "" {
		return nil
	}
	return &TelegramSender{
		token:   cfg.TelegramBotToken,
		apiBase: cfg.TelegramAPIBase,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *TelegramSender) Send(ctx context.Context, evt *models.NotificationEvent) error {
	chatID, ok := evt.Payload["chat_id"]
	if !ok {
		return fmt.Errorf("payload has no chat_id")
	}
	text, _ := evt.Payload["text"].(string)
	if text == "" {
		return fmt.Errorf("payload has no text")
	}

	body, err := json.Marshal(map[string]any{"chat_id": chatID, "text": text})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling telegram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, snippet)
	}

	var apiResp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("decoding telegram response: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram rejected message: %s", apiResp.Description)
	}
	return nil
}
