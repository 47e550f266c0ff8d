package models

import "time"

// TelegramChat is a registered chat that receives reminder notifications.
type TelegramChat struct {
	ID          int64     `json:"id"`
	ChatID      int64     `json:"chatId"`
	ChatType    string    `json:"chatType"`
	Username    *string   `json:"username,omitempty"`
	Title       *string   `json:"title,omitempty"`
	Enabled     bool      `json:"enabled"`
	FirstSeenAt time.Time `json:"firstSeenAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}
