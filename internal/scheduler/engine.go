package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/minerva-brain/backend/internal/models"
	"github.com/minerva-brain/backend/internal/store"
)

// Engine materializes reminder occurrences and alerts the ones that come
// due. Day boundaries and clock-face times follow the device timezone.
type Engine struct {
	store    store.Store
	loc      *time.Location
	onChange func()
}

func New(st store.Store, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{store: st, loc: loc}
}

// NotifyChange registers a callback invoked after any tick that created,
// missed or alerted occurrences, so connected displays get fresh status.
func (e *Engine) NotifyChange(fn func()) {
	e.onChange = fn
}

// ShouldFireOn reports whether a reminder produces an occurrence on the
// given device-local date. Weekdays use 0=Monday .. 6=Sunday.
func (e *Engine) ShouldFireOn(r *models.Reminder, localDate time.Time) bool {
	if !r.Enabled {
		return false
	}
	switch r.ScheduleKind {
	case models.ScheduleDaily:
		return true
	case models.ScheduleWeekly:
		weekday := (int(localDate.Weekday()) + 6) % 7
		for _, d := range r.DaysOfWeek {
			if d == weekday {
				return true
			}
		}
		return false
	case models.ScheduleOneOff:
		if r.OneOffAt == nil {
			return false
		}
		local := r.OneOffAt.In(e.loc)
		return local.Year() == localDate.Year() && local.YearDay() == localDate.YearDay()
	}
	return false
}

// EnsureOccurrencesForDate creates the missing occurrences for a
// device-local date. Creating twice for the same date is a no-op.
func (e *Engine) EnsureOccurrencesForDate(localDate time.Time) (int, error) {
	dayStart := time.Date(localDate.Year(), localDate.Month(), localDate.Day(), 0, 0, 0, 0, e.loc)
	dayEnd := dayStart.Add(24 * time.Hour)

	reminders, err := e.store.ListReminders()
	if err != nil {
		return 0, fmt.Errorf("listing reminders: %w", err)
	}

	created := 0
	for _, r := range reminders {
		if !e.ShouldFireOn(r, dayStart) {
			continue
		}

		exists, err := e.store.HasOccurrenceBetween(r.ID, dayStart, dayEnd)
		if err != nil {
			return created, fmt.Errorf("checking occurrences for %q: %w", r.Label, err)
		}
		if exists {
			continue
		}

		var dueAt time.Time
		if r.ScheduleKind == models.ScheduleOneOff && r.OneOffAt != nil {
			dueAt = r.OneOffAt.UTC()
		} else {
			hour, minute, err := models.ParseTimeOfDay(r.TimeOfDay)
			if err != nil {
				fmt.Printf("[Scheduler] Skipping reminder %q: %v\n", r.Label, err)
				continue
			}
			dueAt = time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day(), hour, minute, 0, 0, e.loc).UTC()
		}

		occ := &models.ReminderOccurrence{
			ReminderID:    r.ID,
			DueAt:         dueAt,
			WindowStartAt: dueAt.Add(-time.Duration(r.GraceBeforeMin) * time.Minute),
			WindowEndAt:   dueAt.Add(time.Duration(r.GraceAfterMin) * time.Minute),
		}
		if err := e.store.CreateOccurrence(occ); err != nil {
			return created, fmt.Errorf("creating occurrence for %q: %w", r.Label, err)
		}
		created++
	}
	return created, nil
}

// Tick runs one scheduler pass: ensure today's occurrences exist, mark
// overdue pending ones missed, and queue alerts for newly due ones.
func (e *Engine) Tick(now time.Time) error {
	local := now.In(e.loc)

	created, err := e.EnsureOccurrencesForDate(local)
	if err != nil {
		return err
	}

	missed, err := e.store.MarkMissedBefore(now.UTC())
	if err != nil {
		return fmt.Errorf("marking missed: %w", err)
	}
	if missed > 0 {
		fmt.Printf("[Scheduler] Marked %d occurrence(s) as missed\n", missed)
	}

	alerted, err := e.alertDue(now)
	if err != nil {
		return err
	}

	if e.onChange != nil && created+int(missed)+alerted > 0 {
		e.onChange()
	}
	return nil
}

// alertDue queues one notification per channel for each occurrence whose
// due time has passed and that has not been alerted yet. An occurrence is
// alerted at most once. Returns the number of occurrences alerted.
func (e *Engine) alertDue(now time.Time) (int, error) {
	due, err := e.store.DueUnalerted(now.UTC())
	if err != nil {
		return 0, fmt.Errorf("loading due occurrences: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	chats, err := e.store.EnabledTelegramChats()
	if err != nil {
		return 0, fmt.Errorf("loading telegram chats: %w", err)
	}

	for _, occ := range due {
		label := "Reminder"
		channels := []string{models.ChannelTelegram, models.ChannelESP32}
		if r, err := e.store.GetReminder(occ.ReminderID); err == nil {
			label = r.Label
			if len(r.Channels) > 0 {
				channels = r.Channels
			}
		}

		text := fmt.Sprintf("⏰ Reminder: %s (%s)", label, occ.DueAt.In(e.loc).Format("15:04"))
		base := map[string]any{
			"text":          text,
			"occurrence_id": occ.ID,
			"label":         label,
			"due_at":        occ.DueAt.UTC().Format(time.RFC3339),
		}

		for _, ch := range channels {
			switch ch {
			case models.ChannelTelegram:
				for _, chat := range chats {
					payload := map[string]any{"chat_id": chat.ChatID}
					for k, v := range base {
						payload[k] = v
					}
					if _, err := e.store.CreateNotification(models.ChannelTelegram, payload); err != nil {
						return 0, fmt.Errorf("queueing telegram alert: %w", err)
					}
				}
			case models.ChannelESP32:
				payload := map[string]any{"kind": "reminder"}
				for k, v := range base {
					payload[k] = v
				}
				if _, err := e.store.CreateNotification(models.ChannelESP32, payload); err != nil {
					return 0, fmt.Errorf("queueing esp32 alert: %w", err)
				}
			}
		}

		alertedAt := now.UTC()
		occ.AlertedAt = &alertedAt
		if err := e.store.UpdateOccurrence(occ); err != nil {
			return 0, fmt.Errorf("marking occurrence alerted: %w", err)
		}
	}
	return len(due), nil
}

// Run ticks the engine until the context is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	fmt.Printf("[Scheduler] Occurrence loop started (every %s)\n", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := e.Tick(time.Now()); err != nil {
			fmt.Printf("[Scheduler] Tick failed: %v\n", err)
		}
		select {
		case <-ctx.Done():
			fmt.Println("[Scheduler] Occurrence loop stopped")
			return
		case <-ticker.C:
		}
	}
}
