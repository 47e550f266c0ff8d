// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/minerva-brain/backend/internal/assistant"
	"github.com/minerva-brain/backend/internal/config"
	"github.com/minerva-brain/backend/internal/status"
	"github.com/minerva-brain/backend/internal/store"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store      store.Store
	Config     *config.AppConfig
	Aggregator *status.Aggregator
	Assistant  *assistant.Assistant
	Version    string
}

// Handlers holds all handler instances
type Handlers struct {
	Health        *HealthHandler
	Status        *StatusHandler
	Words         *WordHandler
	Reminders     *ReminderHandler
	Occurrences   *OccurrenceHandler
	Services      *ServiceHandler
	Notifications *NotificationHandler
	Telegram      *TelegramHandler
	Assistant     *AssistantHandler
	Provision     *ProvisionHandler
	StatusWS      *StatusWSHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	statusWS := NewStatusWSHandler(deps.Aggregator)
	return &Handlers{
		Health:        NewHealthHandler(deps.Version),
		Status:        NewStatusHandler(deps.Aggregator),
		Words:         NewWordHandler(deps.Store),
		Reminders:     NewReminderHandler(deps.Store),
		Occurrences:   NewOccurrenceHandler(deps.Store, deps.Config.DeviceLocation(), statusWS.Broadcast),
		Services:      NewServiceHandler(deps.Store),
		Notifications: NewNotificationHandler(deps.Store, deps.Config.Notify.MaxAttempts),
		Telegram:      NewTelegramHandler(deps.Store),
		Assistant:     NewAssistantHandler(deps.Assistant),
		Provision:     NewProvisionHandler(deps.Config.Device),
		StatusWS:      statusWS,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, h *Handlers) {
	// Health check
	e.GET("/health", h.Health.HandleHealth)

	// Daily status for the display
	statusGroup := e.Group("/api/status")
	statusGroup.GET("/today", h.Status.HandleStatusToday)
	statusGroup.GET("/today/msgpack", h.Status.HandleStatusTodayMsgpack)

	// Words of the day
	wordGroup := e.Group("/api/words")
	wordGroup.GET("", h.Words.HandleListWords)
	wordGroup.POST("", h.Words.HandleCreateWord)
	wordGroup.GET("/:id", h.Words.HandleGetWord)
	wordGroup.PATCH("/:id", h.Words.HandleUpdateWord)
	wordGroup.DELETE("/:id", h.Words.HandleDeleteWord)

	// Reminders
	reminderGroup := e.Group("/api/reminders")
	reminderGroup.GET("", h.Reminders.HandleListReminders)
	reminderGroup.POST("", h.Reminders.HandleCreateReminder)
	reminderGroup.GET("/:id", h.Reminders.HandleGetReminder)
	reminderGroup.PATCH("/:id", h.Reminders.HandleUpdateReminder)
	reminderGroup.DELETE("/:id", h.Reminders.HandleDeleteReminder)

	// Reminder occurrences
	occGroup := e.Group("/api/occurrences")
	occGroup.GET("", h.Occurrences.HandleListOccurrences)
	occGroup.POST("/cleanup-orphans", h.Occurrences.HandleCleanupOrphans)
	occGroup.POST("/:id/done", h.Occurrences.HandleMarkDone)
	occGroup.POST("/:id/skip", h.Occurrences.HandleMarkSkipped)

	// Monitored services
	serviceGroup := e.Group("/api/services")
	serviceGroup.GET("", h.Services.HandleListServices)
	serviceGroup.POST("", h.Services.HandleCreateService)
	serviceGroup.GET("/:id", h.Services.HandleGetService)
	serviceGroup.PATCH("/:id", h.Services.HandleUpdateService)
	serviceGroup.DELETE("/:id", h.Services.HandleDeleteService)

	// Notification outbox for external consumers
	notifGroup := e.Group("/api/notifications")
	notifGroup.GET("/pending", h.Notifications.HandlePendingNotifications)
	notifGroup.POST("/:id/ack", h.Notifications.HandleAckNotification)
	notifGroup.POST("/:id/fail", h.Notifications.HandleFailNotification)

	// Telegram chat registry
	e.POST("/api/integrations/telegram/register", h.Telegram.HandleRegisterChat)

	// Assistant chat
	e.POST("/api/assistant/chat", h.Assistant.HandleChat)

	// Device provisioning
	provisionGroup := e.Group("/api/provision")
	provisionGroup.GET("", h.Provision.HandleDescribe)
	provisionGroup.GET("/config.h", h.Provision.HandleConfigHeader)
}

// RegisterWebSocketRoutes registers WebSocket routes
func RegisterWebSocketRoutes(e *echo.Echo, h *Handlers) {
	e.GET("/api/ws/status", h.StatusWS.HandleWebSocket)
}
