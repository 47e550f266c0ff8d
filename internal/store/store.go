package store

import (
	"errors"
	"time"

	"github.com/minerva-brain/backend/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a uniqueness constraint would be violated.
var ErrConflict = errors.New("already exists")

// Store is the persistence interface for all Minerva entities.
type Store interface {
	// Words
	ListWords() ([]*models.Word, error)
	GetWord(id int64) (*models.Word, error)
	GetWordByText(word string) (*models.Word, error)
	CreateWord(w *models.Word) error
	UpdateWord(w *models.Word) error
	DeleteWord(id int64) error
	ActiveWords() ([]*models.Word, error)

	// Reminders
	ListReminders() ([]*models.Reminder, error)
	GetReminder(id int64) (*models.Reminder, error)
	CreateReminder(r *models.Reminder) error
	UpdateReminder(r *models.Reminder) error
	DeleteReminder(id int64) error

	// Occurrences
	CreateOccurrence(o *models.ReminderOccurrence) error
	GetOccurrence(id int64) (*models.ReminderOccurrence, error)
	UpdateOccurrence(o *models.ReminderOccurrence) error
	ListOccurrences(start, end time.Time, state models.OccurrenceState, reminderID int64) ([]*models.ReminderOccurrence, error)
	HasOccurrenceBetween(reminderID int64, start, end time.Time) (bool, error)
	MarkMissedBefore(now time.Time) (int64, error)
	DueUnalerted(now time.Time) ([]*models.ReminderOccurrence, error)
	CleanupOrphanOccurrences() (int64, error)
	CountOrphanOccurrences() (int64, error)

	// Services
	ListServices() ([]*models.Service, error)
	GetService(id int64) (*models.Service, error)
	GetServiceBySlug(slug string) (*models.Service, error)
	CreateService(s *models.Service) error
	UpdateService(s *models.Service) error
	DeleteService(id int64) error
	EnabledServices() ([]*models.Service, error)
	GetServiceStatus(serviceID int64) (*models.ServiceStatus, error)
	UpsertServiceStatus(st *models.ServiceStatus) error

	// Notification outbox
	CreateNotification(channel string, payload map[string]any) (*models.NotificationEvent, error)
	GetNotification(id int64) (*models.NotificationEvent, error)
	ClaimPendingNotifications(limit int, consumerID string, lockTimeout time.Duration, maxAttempts int, channels []string) ([]*models.NotificationEvent, error)
	AckNotification(id int64) (*models.NotificationEvent, error)
	FailNotification(id int64, errorMessage string) (*models.NotificationEvent, error)

	// Telegram chats
	UpsertTelegramChat(chatID int64, chatType string, username, title *string) (*models.TelegramChat, error)
	EnabledTelegramChats() ([]*models.TelegramChat, error)

	Close() error
}
