package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/minerva-brain/backend/internal/models"
	"github.com/minerva-brain/backend/internal/store"
)

// Checker probes the configured services and records transitions. A
// service going down or recovering queues notifications when the
// service's alert flags ask for them.
type Checker struct {
	store    store.Store
	client   *http.Client
	onChange func()
}

func New(st store.Store) *Checker {
	return &Checker{
		store:  st,
		client: &http.Client{},
	}
}

// NotifyChange registers a callback invoked after any tick that observed a
// service flip up or down, so connected displays get fresh status.
func (c *Checker) NotifyChange(fn func()) {
	c.onChange = fn
}

// CheckHTTP performs a GET and treats any response below 500 as up.
func (c *Checker) CheckHTTP(ctx context.Context, target string, timeout time.Duration) (bool, *float64) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, nil
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return false, nil
	}
	defer resp.Body.Close()

	latency := float64(time.Since(start)) / float64(time.Millisecond)
	return resp.StatusCode < 500, &latency
}

// CheckTCP opens a connection to host:port and closes it again.
func (c *Checker) CheckTCP(target string, timeout time.Duration) (bool, *float64) {
	start := time.Now()
	conn, err := net.DialTimeout("tcp", target, timeout)
	if err != nil {
		return false, nil
	}
	conn.Close()

	latency := float64(time.Since(start)) / float64(time.Millisecond)
	return true, &latency
}

func (c *Checker) checkOne(ctx context.Context, svc *models.Service) (bool, *float64) {
	timeout := time.Duration(svc.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	switch svc.Kind {
	case models.ServiceHTTP:
		return c.CheckHTTP(ctx, svc.Target, timeout)
	case models.ServiceTCP:
		return c.CheckTCP(svc.Target, timeout)
	}
	return false, nil
}

// Tick checks every enabled service once and persists the results.
func (c *Checker) Tick(ctx context.Context, now time.Time) error {
	services, err := c.store.EnabledServices()
	if err != nil {
		return fmt.Errorf("listing services: %w", err)
	}

	changes := 0
	for _, svc := range services {
		isUp, latency := c.checkOne(ctx, svc)
		changed, err := c.record(svc, isUp, latency, now)
		if err != nil {
			return err
		}
		if changed {
			changes++
		}
	}

	if c.onChange != nil && changes > 0 {
		c.onChange()
	}
	return nil
}

// record updates the status row and queues transition alerts. The first
// check of a service never alerts; only an observed flip does. Reports
// whether the service's up/down state changed.
func (c *Checker) record(svc *models.Service, isUp bool, latency *float64, now time.Time) (bool, error) {
	nowUTC := now.UTC()

	st, err := c.store.GetServiceStatus(svc.ID)
	if errors.Is(err, store.ErrNotFound) {
		failures := 0
		if !isUp {
			failures = 1
		}
		st = &models.ServiceStatus{
			ServiceID:           svc.ID,
			IsUp:                isUp,
			LatencyMs:           latency,
			LastCheckedAt:       &nowUTC,
			ConsecutiveFailures: failures,
			LastChangeAt:        &nowUTC,
		}
		return true, c.store.UpsertServiceStatus(st)
	}
	if err != nil {
		return false, fmt.Errorf("loading status for %s: %w", svc.Slug, err)
	}

	wasUp := st.IsUp
	st.IsUp = isUp
	st.LatencyMs = latency
	st.LastCheckedAt = &nowUTC

	if isUp {
		if !wasUp {
			st.LastChangeAt = &nowUTC
		}
		st.ConsecutiveFailures = 0
	} else {
		if wasUp {
			st.LastChangeAt = &nowUTC
		}
		st.ConsecutiveFailures++
	}

	if err := c.store.UpsertServiceStatus(st); err != nil {
		return false, err
	}

	flipped := wasUp != isUp
	if wasUp && !isUp && svc.AlertOnDown {
		return flipped, c.queueAlert(svc, fmt.Sprintf("🔴 %s is down", svc.Name), "down")
	}
	if !wasUp && isUp && svc.AlertOnRecovery {
		return flipped, c.queueAlert(svc, fmt.Sprintf("🟢 %s recovered", svc.Name), "recovery")
	}
	return flipped, nil
}

func (c *Checker) queueAlert(svc *models.Service, text, event string) error {
	base := map[string]any{
		"text":         text,
		"service_id":   svc.ID,
		"service_slug": svc.Slug,
		"event":        event,
	}

	chats, err := c.store.EnabledTelegramChats()
	if err != nil {
		return fmt.Errorf("loading telegram chats: %w", err)
	}
	for _, chat := range chats {
		payload := map[string]any{"chat_id": chat.ChatID}
		for k, v := range base {
			payload[k] = v
		}
		if _, err := c.store.CreateNotification(models.ChannelTelegram, payload); err != nil {
			return fmt.Errorf("queueing telegram alert: %w", err)
		}
	}

	payload := map[string]any{"kind": "service"}
	for k, v := range base {
		payload[k] = v
	}
	if _, err := c.store.CreateNotification(models.ChannelESP32, payload); err != nil {
		return fmt.Errorf("queueing esp32 alert: %w", err)
	}
	return nil
}

// Run ticks the checker until the context is cancelled.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	fmt.Printf("[Monitor] Service checker started (every %s)\n", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := c.Tick(ctx, time.Now()); err != nil {
			fmt.Printf("[Monitor] Check pass failed: %v\n", err)
		}
		select {
		case <-ctx.Done():
			fmt.Println("[Monitor] Service checker stopped")
			return
		case <-ticker.C:
		}
	}
}
