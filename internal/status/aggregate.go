package status

import (
	"errors"
	"fmt"
	"time"

	"github.com/minerva-brain/backend/internal/models"
	"github.com/minerva-brain/backend/internal/store"
)

// Aggregator assembles the daily status payload the display polls.
// Day boundaries follow the device timezone, not the server's.
type Aggregator struct {
	store store.Store
	loc   *time.Location
}

func NewAggregator(st store.Store, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{store: st, loc: loc}
}

// BuildToday collects services, word of day, reminder counts and the
// resulting expression into a single snapshot.
func (a *Aggregator) BuildToday(now time.Time) (*models.StatusToday, error) {
	local := now.In(a.loc)

	briefs, failing, err := a.serviceBriefs()
	if err != nil {
		return nil, err
	}

	word, err := a.wordOfDay(local)
	if err != nil {
		return nil, err
	}

	summary, nextLabel, err := a.remindersSummary(local)
	if err != nil {
		return nil, err
	}

	expr := ComputeExpression(local, ExpressionInput{
		PendingCount:    summary.Pending,
		MissedCount:     summary.Missed,
		FailingServices: failing,
		NextLabel:       nextLabel,
	})

	return &models.StatusToday{
		Now:        now.UTC(),
		Services:   briefs,
		WordOfDay:  word,
		Reminders:  summary,
		Expression: expr,
	}, nil
}

func (a *Aggregator) serviceBriefs() ([]models.ServiceBrief, []string, error) {
	services, err := a.store.EnabledServices()
	if err != nil {
		return nil, nil, fmt.Errorf("loading services: %w", err)
	}

	briefs := make([]models.ServiceBrief, 0, len(services))
	var failing []string
	for _, svc := range services {
		brief := models.ServiceBrief{Slug: svc.Slug, Name: svc.Name, IsUp: true}
		st, err := a.store.GetServiceStatus(svc.ID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// Never checked yet; treat as up until proven otherwise.
		case err != nil:
			return nil, nil, fmt.Errorf("loading status for %s: %w", svc.Slug, err)
		default:
			brief.IsUp = st.IsUp
			brief.LatencyMs = st.LatencyMs
		}
		if !brief.IsUp {
			failing = append(failing, svc.Name)
		}
		briefs = append(briefs, brief)
	}
	return briefs, failing, nil
}

// wordOfDay picks deterministically from the active words: the same
// device-local date always maps to the same word.
func (a *Aggregator) wordOfDay(local time.Time) (models.WordOfDay, error) {
	words, err := a.store.ActiveWords()
	if err != nil {
		return models.WordOfDay{}, fmt.Errorf("loading words: %w", err)
	}
	if len(words) == 0 {
		return models.WordOfDay{Word: "placeholder", Definition: "Minerva is waking up."}, nil
	}

	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	dayIndex := int(midnight.Unix() / 86400)
	w := words[dayIndex%len(words)]

	out := models.WordOfDay{Word: w.Word, Definition: w.Definition}
	if w.ExtraJSON != nil {
		out.ExtraJSON = *w.ExtraJSON
	}
	return out, nil
}

func (a *Aggregator) remindersSummary(local time.Time) (models.RemindersSummary, *string, error) {
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, a.loc)
	dayEnd := dayStart.Add(24 * time.Hour)

	occs, err := a.store.ListOccurrences(dayStart, dayEnd, "", 0)
	if err != nil {
		return models.RemindersSummary{}, nil, fmt.Errorf("loading occurrences: %w", err)
	}

	summary := models.RemindersSummary{Date: dayStart.Format("2006-01-02")}
	var next *models.ReminderOccurrence
	for _, o := range occs {
		summary.Total++
		switch o.State {
		case models.OccurrenceDone:
			summary.Done++
		case models.OccurrenceMissed:
			summary.Missed++
		case models.OccurrencePending:
			summary.Pending++
			if next == nil || o.DueAt.Before(next.DueAt) {
				next = o
			}
		}
	}

	var nextLabel *string
	if next != nil {
		r, err := a.store.GetReminder(next.ReminderID)
		if err == nil {
			nextLabel = &r.Label
		}
		summary.Next = nextLabel
	}
	return summary, nextLabel, nil
}
