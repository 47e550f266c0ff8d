package models

import (
	"fmt"
	"strings"
	"time"
)

// ServiceKind is the probe type used to check a service.
type ServiceKind string

const (
	ServiceHTTP ServiceKind = "HTTP"
	ServiceTCP  ServiceKind = "TCP"
)

// Service is a monitored homelab service. Target is a URL for HTTP checks
// and "host:port" for TCP checks.
type Service struct {
	ID               int64       `json:"id"`
	Name             string      `json:"name"`
	Slug             string      `json:"slug"`
	Kind             ServiceKind `json:"kind"`
	Target           string      `json:"target"`
	CheckIntervalSec int         `json:"checkIntervalSec"`
	TimeoutSec       int         `json:"timeoutSec"`
	Enabled          bool        `json:"enabled"`
	AlertOnDown      bool        `json:"alertOnDown"`
	AlertOnRecovery  bool        `json:"alertOnRecovery"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// ServiceStatus is the latest check result for a service, one row per service.
type ServiceStatus struct {
	ID                  int64      `json:"id"`
	ServiceID           int64      `json:"serviceId"`
	IsUp                bool       `json:"isUp"`
	LatencyMs           *float64   `json:"latencyMs,omitempty"`
	LastCheckedAt       *time.Time `json:"lastCheckedAt,omitempty"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	LastChangeAt        *time.Time `json:"lastChangeAt,omitempty"`
}

// ValidateServiceKind normalizes and checks a service kind string.
func ValidateServiceKind(s string) (ServiceKind, error) {
	kind := ServiceKind(strings.ToUpper(s))
	switch kind {
	case ServiceHTTP, ServiceTCP:
		return kind, nil
	}
	return "", fmt.Errorf("kind must be HTTP or TCP, got %q", s)
}
