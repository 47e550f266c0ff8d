package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/minerva-brain/backend/internal/models"
)

const telegramColumns = "id, chat_id, chat_type, username, title, enabled, first_seen_at, last_seen_at"

func scanTelegramChat(row interface{ Scan(...any) error }) (*models.TelegramChat, error) {
	var c models.TelegramChat
	var username, title sql.NullString
	err := row.Scan(&c.ID, &c.ChatID, &c.ChatType, &username, &title, &c.Enabled,
		&c.FirstSeenAt, &c.LastSeenAt)
	if err != nil {
		return nil, err
	}
	c.Username = nullableString(username)
	c.Title = nullableString(title)
	c.FirstSeenAt = c.FirstSeenAt.UTC()
	c.LastSeenAt = c.LastSeenAt.UTC()
	return &c, nil
}

// UpsertTelegramChat registers a chat or refreshes an existing registration.
// The enabled flag of an existing chat is left untouched.
func (d *Duck) UpsertTelegramChat(chatID int64, chatType string, username, title *string) (*models.TelegramChat, error) {
	if chatType == "" {
		chatType = "private"
	}

	existing, err := scanTelegramChat(d.db.QueryRow(
		"SELECT "+telegramColumns+" FROM telegram_chats WHERE chat_id = ?", chatID))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("looking up telegram chat: %w", err)
	}

	nowAt := now()
	if existing == nil {
		c := &models.TelegramChat{
			ChatID:      chatID,
			ChatType:    chatType,
			Username:    username,
			Title:       title,
			Enabled:     true,
			FirstSeenAt: nowAt,
			LastSeenAt:  nowAt,
		}
		err := d.db.QueryRow(
			`INSERT INTO telegram_chats (chat_id, chat_type, username, title, enabled, first_seen_at, last_seen_at)
			 VALUES (?, ?, ?, ?, true, ?, ?) RETURNING id`,
			chatID, chatType, username, title, nowAt, nowAt,
		).Scan(&c.ID)
		if err != nil {
			return nil, fmt.Errorf("registering telegram chat: %w", err)
		}
		return c, nil
	}

	existing.ChatType = chatType
	existing.Username = username
	existing.Title = title
	existing.LastSeenAt = nowAt
	_, err = d.db.Exec(
		`UPDATE telegram_chats SET chat_type = ?, username = ?, title = ?, last_seen_at = ?
		 WHERE chat_id = ?`,
		chatType, username, title, nowAt, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("refreshing telegram chat: %w", err)
	}
	return existing, nil
}

// EnabledTelegramChats returns chats that should receive notifications.
func (d *Duck) EnabledTelegramChats() ([]*models.TelegramChat, error) {
	rows, err := d.db.Query("SELECT " + telegramColumns + " FROM telegram_chats WHERE enabled ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing telegram chats: %w", err)
	}
	defer rows.Close()

	var chats []*models.TelegramChat
	for rows.Next() {
		c, err := scanTelegramChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}
