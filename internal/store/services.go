package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/minerva-brain/backend/internal/models"
)

const serviceColumns = `id, name, slug, kind, target, check_interval_sec, timeout_sec,
	enabled, alert_on_down, alert_on_recovery, created_at, updated_at`

func scanService(row interface{ Scan(...any) error }) (*models.Service, error) {
	var s models.Service
	err := row.Scan(&s.ID, &s.Name, &s.Slug, &s.Kind, &s.Target, &s.CheckIntervalSec,
		&s.TimeoutSec, &s.Enabled, &s.AlertOnDown, &s.AlertOnRecovery, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

func (d *Duck) queryServices(query string, args ...any) ([]*models.Service, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}
	defer rows.Close()

	var services []*models.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

// ListServices returns all services ordered by id.
func (d *Duck) ListServices() ([]*models.Service, error) {
	return d.queryServices("SELECT " + serviceColumns + " FROM services ORDER BY id")
}

// EnabledServices returns enabled services ordered by id.
func (d *Duck) EnabledServices() ([]*models.Service, error) {
	return d.queryServices("SELECT " + serviceColumns + " FROM services WHERE enabled ORDER BY id")
}

// GetService returns a service by id.
func (d *Duck) GetService(id int64) (*models.Service, error) {
	s, err := scanService(d.db.QueryRow("SELECT "+serviceColumns+" FROM services WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// GetServiceBySlug returns a service by its unique slug.
func (d *Duck) GetServiceBySlug(slug string) (*models.Service, error) {
	s, err := scanService(d.db.QueryRow("SELECT "+serviceColumns+" FROM services WHERE slug = ?", slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// CreateService inserts a service, filling in its ID and timestamps.
// Slugs must be unique.
func (d *Duck) CreateService(s *models.Service) error {
	if existing, err := d.GetServiceBySlug(s.Slug); err == nil && existing != nil {
		return ErrConflict
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	ts := now()
	s.CreatedAt = ts
	s.UpdatedAt = ts
	err := d.db.QueryRow(
		`INSERT INTO services (name, slug, kind, target, check_interval_sec, timeout_sec,
			enabled, alert_on_down, alert_on_recovery, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		s.Name, s.Slug, string(s.Kind), s.Target, s.CheckIntervalSec, s.TimeoutSec,
		s.Enabled, s.AlertOnDown, s.AlertOnRecovery, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}
	return nil
}

// UpdateService rewrites a service row. The slug must not collide with
// another service.
func (d *Duck) UpdateService(s *models.Service) error {
	if existing, err := d.GetServiceBySlug(s.Slug); err == nil && existing.ID != s.ID {
		return ErrConflict
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	s.UpdatedAt = now()
	res, err := d.db.Exec(
		`UPDATE services SET name = ?, slug = ?, kind = ?, target = ?, check_interval_sec = ?,
			timeout_sec = ?, enabled = ?, alert_on_down = ?, alert_on_recovery = ?, updated_at = ?
		 WHERE id = ?`,
		s.Name, s.Slug, string(s.Kind), s.Target, s.CheckIntervalSec, s.TimeoutSec,
		s.Enabled, s.AlertOnDown, s.AlertOnRecovery, s.UpdatedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating service: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteService removes a service and its status row.
func (d *Duck) DeleteService(id int64) error {
	if _, err := d.db.Exec("DELETE FROM service_status WHERE service_id = ?", id); err != nil {
		return fmt.Errorf("deleting service status: %w", err)
	}
	res, err := d.db.Exec("DELETE FROM services WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting service: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetServiceStatus returns the latest status row for a service.
func (d *Duck) GetServiceStatus(serviceID int64) (*models.ServiceStatus, error) {
	var st models.ServiceStatus
	var latency sql.NullFloat64
	var lastChecked, lastChange sql.NullTime
	err := d.db.QueryRow(
		`SELECT id, service_id, is_up, latency_ms, last_checked_at, consecutive_failures, last_change_at
		 FROM service_status WHERE service_id = ?`, serviceID,
	).Scan(&st.ID, &st.ServiceID, &st.IsUp, &latency, &lastChecked, &st.ConsecutiveFailures, &lastChange)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting service status: %w", err)
	}
	st.LatencyMs = nullableFloat(latency)
	st.LastCheckedAt = nullableTime(lastChecked)
	st.LastChangeAt = nullableTime(lastChange)
	return &st, nil
}

// UpsertServiceStatus inserts or updates the status row for a service.
func (d *Duck) UpsertServiceStatus(st *models.ServiceStatus) error {
	existing, err := d.GetServiceStatus(st.ServiceID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	if existing == nil {
		err = d.db.QueryRow(
			`INSERT INTO service_status (service_id, is_up, latency_ms, last_checked_at,
				consecutive_failures, last_change_at)
			 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
			st.ServiceID, st.IsUp, st.LatencyMs, st.LastCheckedAt, st.ConsecutiveFailures, st.LastChangeAt,
		).Scan(&st.ID)
		if err != nil {
			return fmt.Errorf("inserting service status: %w", err)
		}
		return nil
	}

	st.ID = existing.ID
	_, err = d.db.Exec(
		`UPDATE service_status SET is_up = ?, latency_ms = ?, last_checked_at = ?,
			consecutive_failures = ?, last_change_at = ?
		 WHERE service_id = ?`,
		st.IsUp, st.LatencyMs, st.LastCheckedAt, st.ConsecutiveFailures, st.LastChangeAt, st.ServiceID,
	)
	if err != nil {
		return fmt.Errorf("updating service status: %w", err)
	}
	return nil
}
