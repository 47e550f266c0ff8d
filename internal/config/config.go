// Package config provides XML-based configuration management for the Minerva backend.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"Minerva"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Device configuration shared with the ESP32 display
	Device DeviceConfig `xml:"Device"`

	// Background loop intervals
	Monitor MonitorConfig `xml:"Monitor"`

	// Notification delivery settings
	Notify NotifyConfig `xml:"Notify"`

	// Assistant settings
	Assistant AssistantConfig `xml:"Assistant"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig contains database and seed file settings
type StorageConfig struct {
	DataDirectory string `xml:"DataDirectory"`
	DatabaseFile  string `xml:"DatabaseFile"`
	SeedFile      string `xml:"SeedFile"`
}

// DeviceConfig is the configuration record shared with the display device.
// All six fields are fixed at startup and read-only afterwards; they are the
// values baked into the device's build header at provisioning time.
type DeviceConfig struct {
	WifiSSID              string `xml:"WifiSSID"`
	WifiPass              string `xml:"WifiPass"`
	BackendHost           string `xml:"BackendHost"`
	BackendPort           int    `xml:"BackendPort"`
	TimezoneOffsetSeconds int    `xml:"TimezoneOffsetSeconds"`
	Debug                 int    `xml:"Debug"`
}

// MonitorConfig contains background loop intervals
type MonitorConfig struct {
	CheckIntervalSeconds     int `xml:"CheckIntervalSeconds"`
	SchedulerIntervalSeconds int `xml:"SchedulerIntervalSeconds"`
	DispatchIntervalSeconds  int `xml:"DispatchIntervalSeconds"`
}

// NotifyConfig contains notification channel settings. An empty MqttBroker
// or TelegramBotToken disables the corresponding channel.
type NotifyConfig struct {
	MqttBroker       string `xml:"MqttBroker"`
	MqttClientID     string `xml:"MqttClientID"`
	MqttTopicPrefix  string `xml:"MqttTopicPrefix"`
	TelegramBotToken string `xml:"TelegramBotToken"`
	TelegramAPIBase  string `xml:"TelegramAPIBase"`
	MaxAttempts      int    `xml:"MaxAttempts"`
	LockSeconds      int    `xml:"LockSeconds"`
}

// AssistantConfig contains assistant session settings
type AssistantConfig struct {
	Provider               string `xml:"Provider"`
	SessionTimeoutMinutes  int    `xml:"SessionTimeoutMinutes"`
	CleanupIntervalMinutes int    `xml:"CleanupIntervalMinutes"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
	DuckDBThreads        int    `xml:"DuckDBThreads"`
	DuckDBMemoryLimit    string `xml:"DuckDBMemoryLimit"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8000,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "2M",
		},
		Storage: StorageConfig{
			DataDirectory: "./data",
			DatabaseFile:  "minerva.duckdb",
			SeedFile:      "./data/defaults/seed.yaml",
		},
		Device: DeviceConfig{
			WifiSSID:              "your-ssid",
			WifiPass:              "your-password",
			BackendHost:           "192.168.1.100",
			BackendPort:           8000,
			TimezoneOffsetSeconds: 0,
			Debug:                 0,
		},
		Monitor: MonitorConfig{
			CheckIntervalSeconds:     30,
			SchedulerIntervalSeconds: 60,
			DispatchIntervalSeconds:  15,
		},
		Notify: NotifyConfig{
			MqttBroker:      "",
			MqttClientID:    "minerva-backend",
			MqttTopicPrefix: "minerva",
			TelegramAPIBase: "https://api.telegram.org",
			MaxAttempts:     5,
			LockSeconds:     60,
		},
		Assistant: AssistantConfig{
			Provider:               "dummy",
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			DuckDBThreads:        2,
			DuckDBMemoryLimit:    "256MB",
		},
	}
}

// LoadConfig loads configuration from XML file. Loading is deterministic:
// the same file and environment always produce the same configuration.
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default. Environment overrides and
	// validation still apply, same as the loaded-file path.
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		if err := config.Validate(); err != nil {
			return nil, err
		}
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := xml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Fail fast on an unusable device section rather than let a bad value
	// propagate into the scheduler or a provisioned device build
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Minerva backend configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the device configuration record. Every violation names the
// offending field so a bad deployment fails loudly at startup.
func (c *AppConfig) Validate() error {
	d := c.Device
	if d.WifiSSID == "" {
		return fmt.Errorf("config: Device.WifiSSID must not be empty")
	}
	// WifiPass may be empty: an open network has no passphrase
	if d.BackendHost == "" {
		return fmt.Errorf("config: Device.BackendHost must not be empty")
	}
	if d.BackendPort < 1 || d.BackendPort > 65535 {
		return fmt.Errorf("config: Device.BackendPort must be in 1-65535, got %d", d.BackendPort)
	}
	// Debug is boolean-like; anything but 0 or 1 is rejected rather than normalized
	if d.Debug != 0 && d.Debug != 1 {
		return fmt.Errorf("config: Device.Debug must be 0 or 1, got %d", d.Debug)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: Server.Port must be in 1-65535, got %d", c.Server.Port)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR override
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}

	// Device field overrides, matching the names in the device build header
	if ssid := os.Getenv("MINERVA_WIFI_SSID"); ssid != "" {
		c.Device.WifiSSID = ssid
	}
	if pass, ok := os.LookupEnv("MINERVA_WIFI_PASS"); ok {
		c.Device.WifiPass = pass
	}
	if host := os.Getenv("MINERVA_HOST"); host != "" {
		c.Device.BackendHost = host
	}
	if port := os.Getenv("MINERVA_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Device.BackendPort = p
		}
	}
	if tz := os.Getenv("MINERVA_TZ_OFFSET"); tz != "" {
		if v, err := strconv.Atoi(tz); err == nil {
			c.Device.TimezoneOffsetSeconds = v
		}
	}
	if dbg := os.Getenv("MINERVA_DEBUG"); dbg != "" {
		if v, err := strconv.Atoi(dbg); err == nil {
			c.Device.Debug = v
		}
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		c.Notify.TelegramBotToken = token
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.SeedFile) {
		c.Storage.SeedFile = filepath.Join(configDir, c.Storage.SeedFile)
	}
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetDatabasePath returns the absolute path of the DuckDB file
func (c *AppConfig) GetDatabasePath() string {
	if filepath.IsAbs(c.Storage.DatabaseFile) {
		return c.Storage.DatabaseFile
	}
	return filepath.Join(c.Storage.DataDirectory, c.Storage.DatabaseFile)
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// DebugEnabled reports whether verbose debug output is on (Device.Debug == 1).
func (c *AppConfig) DebugEnabled() bool {
	return c.Device.Debug == 1
}

// DeviceLocation returns the device's timezone built from the configured
// UTC offset. Day boundaries for reminders follow this location.
func (c *AppConfig) DeviceLocation() *time.Location {
	offset := c.Device.TimezoneOffsetSeconds
	if offset == 0 {
		return time.UTC
	}
	return time.FixedZone(fmt.Sprintf("UTC%+d", offset/3600), offset)
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		filepath.Dir(c.Storage.SeedFile),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
