package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/minerva-brain/backend/internal/api"
	"github.com/minerva-brain/backend/internal/assistant"
	"github.com/minerva-brain/backend/internal/config"
	"github.com/minerva-brain/backend/internal/monitor"
	"github.com/minerva-brain/backend/internal/notify"
	"github.com/minerva-brain/backend/internal/scheduler"
	"github.com/minerva-brain/backend/internal/status"
	"github.com/minerva-brain/backend/internal/store"
	"github.com/minerva-brain/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "minerva.config")
	if p := os.Getenv("MINERVA_CONFIG"); p != "" {
		configPath = p
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	// Check if running in embedded mode (dashboard built into binary)
	embeddedMode := web.HasEmbeddedFiles()

	// Open the database
	st, err := store.Open(cfg.GetDatabasePath(), store.Options{
		Threads:     cfg.Advanced.DuckDBThreads,
		MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
	})
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	// Seed defaults into empty tables
	if err := st.Seed(cfg.Storage.SeedFile); err != nil {
		fmt.Printf("Warning: failed to apply seed file: %v\n", err)
	}

	loc := cfg.DeviceLocation()

	// Background loops share one cancellable context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reminder scheduler and service monitor; started further down, once
	// the WebSocket hub exists and can receive their change notifications
	engine := scheduler.New(st, loc)
	checker := monitor.New(st)

	// Notification dispatcher; senders without config stay unregistered and
	// their events remain claimable by external consumers
	dispatcher := notify.NewDispatcher(st, cfg.Notify.MaxAttempts, time.Duration(cfg.Notify.LockSeconds)*time.Second)
	if mqttSender := notify.NewMQTTSender(cfg.Notify); mqttSender != nil {
		defer mqttSender.Close()
		dispatcher.Register("esp32", mqttSender)
		fmt.Printf("MQTT notifications enabled via %s\n", cfg.Notify.MqttBroker)
	}
	if tgSender := notify.NewTelegramSender(cfg.Notify); tgSender != nil {
		dispatcher.Register("telegram", tgSender)
		fmt.Println("Telegram notifications enabled")
	}
	if len(dispatcher.Channels()) > 0 {
		go dispatcher.Run(ctx, time.Duration(cfg.Monitor.DispatchIntervalSeconds)*time.Second)
	} else {
		fmt.Println("No notification senders configured; outbox left to external consumers")
	}

	// Assistant with session cleanup
	asst := assistant.New(assistant.DummyProvider{})
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Assistant.CleanupIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				asst.Sessions().CleanupOldSessions(time.Duration(cfg.Assistant.SessionTimeoutMinutes) * time.Minute)
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	switch {
	case cfg.DebugEnabled():
		e.Logger.SetLevel(log.DEBUG)
	case cfg.Advanced.LogLevel == "warn":
		e.Logger.SetLevel(log.WARN)
	case cfg.Advanced.LogLevel == "error":
		e.Logger.SetLevel(log.ERROR)
	default:
		e.Logger.SetLevel(log.INFO)
	}

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			// The display polls these constantly; keep them out of the log
			path := c.Request().URL.Path
			return strings.HasPrefix(path, "/api/status/today") || path == "/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
		LogLevel:          0,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/api/ws/")
		},
		ErrorMessage: "Request timeout",
	}))

	e.Use(middleware.Gzip())
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	// API routes
	h := api.NewHandlers(&api.Dependencies{
		Store:      st,
		Config:     cfg,
		Aggregator: status.NewAggregator(st, loc),
		Assistant:  asst,
		Version:    Version,
	})
	api.RegisterRoutes(e, h)
	api.RegisterWebSocketRoutes(e, h)

	// Push fresh status to connected displays when state changes
	engine.NotifyChange(h.StatusWS.Broadcast)
	checker.NotifyChange(h.StatusWS.Broadcast)
	go engine.Run(ctx, time.Duration(cfg.Monitor.SchedulerIntervalSeconds)*time.Second)
	go checker.Run(ctx, time.Duration(cfg.Monitor.CheckIntervalSeconds)*time.Second)

	// Register embedded dashboard if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			fmt.Printf("Warning: failed to register static routes: %v\n", err)
		} else {
			fmt.Println("Serving embedded dashboard from binary")
		}
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Print startup banner
	debugMode := "off"
	if cfg.DebugEnabled() {
		debugMode = "on"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Minerva Backend                                 ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Debug:      %-45s║\n", debugMode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Database:  %-46s║\n", cfg.GetDatabasePath())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}

	e.Logger.Fatal(e.StartServer(s))
}
