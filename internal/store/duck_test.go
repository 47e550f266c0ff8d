package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minerva-brain/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Duck {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "test.duckdb"), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestWordCRUD(t *testing.T) {
	d := newTestStore(t)

	w := &models.Word{Word: "serendipity", Definition: "A happy accident.", Active: true}
	require.NoError(t, d.CreateWord(w))
	assert.NotZero(t, w.ID)

	got, err := d.GetWord(w.ID)
	require.NoError(t, err)
	assert.Equal(t, "serendipity", got.Word)
	assert.True(t, got.Active)
	assert.Nil(t, got.ExtraJSON)

	// Unique word text
	dup := &models.Word{Word: "serendipity", Definition: "again"}
	assert.ErrorIs(t, d.CreateWord(dup), ErrConflict)

	got.Definition = "The occurrence of events by chance in a happy way."
	extra := `{"examples":["x"]}`
	got.ExtraJSON = &extra
	require.NoError(t, d.UpdateWord(got))

	again, err := d.GetWord(w.ID)
	require.NoError(t, err)
	require.NotNil(t, again.ExtraJSON)
	assert.Equal(t, extra, *again.ExtraJSON)

	require.NoError(t, d.DeleteWord(w.ID))
	_, err = d.GetWord(w.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, d.DeleteWord(w.ID), ErrNotFound)
}

func TestActiveWords(t *testing.T) {
	d := newTestStore(t)

	require.NoError(t, d.CreateWord(&models.Word{Word: "alpha", Definition: "a", Active: true}))
	require.NoError(t, d.CreateWord(&models.Word{Word: "beta", Definition: "b", Active: false}))

	active, err := d.ActiveWords()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "alpha", active[0].Word)

	all, err := d.ListWords()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReminderRoundTrip(t *testing.T) {
	d := newTestStore(t)

	desc := "Take your morning meds."
	r := &models.Reminder{
		Label:          "Morning pills",
		Description:    &desc,
		ScheduleKind:   models.ScheduleWeekly,
		TimeOfDay:      "09:00",
		DaysOfWeek:     []int{4, 0, 2, 0},
		GraceBeforeMin: 5,
		GraceAfterMin:  60,
		Channels:       []string{models.ChannelESP32, models.ChannelTelegram},
		Enabled:        true,
	}
	require.NoError(t, d.CreateReminder(r))

	got, err := d.GetReminder(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Morning pills", got.Label)
	assert.Equal(t, models.ScheduleWeekly, got.ScheduleKind)
	assert.Equal(t, "09:00", got.TimeOfDay)
	// Days are deduplicated and sorted on the way in
	assert.Equal(t, []int{0, 2, 4}, got.DaysOfWeek)
	assert.Equal(t, []string{"esp32", "telegram"}, got.Channels)
	require.NotNil(t, got.Description)
	assert.Equal(t, desc, *got.Description)

	got.Enabled = false
	got.TimeOfDay = "10:30"
	require.NoError(t, d.UpdateReminder(got))
	updated, err := d.GetReminder(r.ID)
	require.NoError(t, err)
	assert.False(t, updated.Enabled)
	assert.Equal(t, "10:30", updated.TimeOfDay)
}

func TestOccurrenceLifecycle(t *testing.T) {
	d := newTestStore(t)

	r := &models.Reminder{Label: "Water plants", ScheduleKind: models.ScheduleDaily, TimeOfDay: "09:00", Channels: []string{"esp32"}, Enabled: true}
	require.NoError(t, d.CreateReminder(r))

	due := time.Date(2026, 8, 26, 7, 0, 0, 0, time.UTC)
	o := &models.ReminderOccurrence{
		ReminderID:    r.ID,
		DueAt:         due,
		WindowStartAt: due,
		WindowEndAt:   due.Add(time.Hour),
	}
	require.NoError(t, d.CreateOccurrence(o))
	assert.Equal(t, models.OccurrencePending, o.State)

	exists, err := d.HasOccurrenceBetween(r.ID, due.Add(-time.Hour), due.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, exists)

	// Due and unalerted
	dueList, err := d.DueUnalerted(due.Add(10 * time.Minute))
	require.NoError(t, err)
	require.Len(t, dueList, 1)

	alerted := due.Add(10 * time.Minute)
	dueList[0].AlertedAt = &alerted
	require.NoError(t, d.UpdateOccurrence(dueList[0]))

	dueList, err = d.DueUnalerted(due.Add(20 * time.Minute))
	require.NoError(t, err)
	assert.Empty(t, dueList)

	// Past the grace window it becomes missed
	n, err := d.MarkMissedBefore(due.Add(2 * time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := d.GetOccurrence(o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OccurrenceMissed, got.State)
}

func TestOccurrenceOrphans(t *testing.T) {
	d := newTestStore(t)

	r := &models.Reminder{Label: "Old", ScheduleKind: models.ScheduleDaily, TimeOfDay: "08:00", Channels: []string{"esp32"}, Enabled: true}
	require.NoError(t, d.CreateReminder(r))

	due := time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC)
	require.NoError(t, d.CreateOccurrence(&models.ReminderOccurrence{
		ReminderID: r.ID, DueAt: due, WindowStartAt: due, WindowEndAt: due.Add(time.Hour),
	}))

	// Deleting the reminder leaves the occurrence orphaned
	require.NoError(t, d.DeleteReminder(r.ID))

	listed, err := d.ListOccurrences(due.Add(-time.Hour), due.Add(time.Hour), "", 0)
	require.NoError(t, err)
	assert.Empty(t, listed, "orphans must not be listed")

	count, err := d.CountOrphanOccurrences()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	deleted, err := d.CleanupOrphanOccurrences()
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	count, err = d.CountOrphanOccurrences()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestServiceCRUDAndStatus(t *testing.T) {
	d := newTestStore(t)

	s := &models.Service{
		Name: "Cartofia site", Slug: "cartofia", Kind: models.ServiceHTTP,
		Target: "https://cartofia.com", CheckIntervalSec: 60, TimeoutSec: 5,
		Enabled: true, AlertOnDown: true, AlertOnRecovery: true,
	}
	require.NoError(t, d.CreateService(s))

	assert.ErrorIs(t, d.CreateService(&models.Service{Name: "x", Slug: "cartofia", Kind: models.ServiceTCP, Target: "h:1"}), ErrConflict)

	bySlug, err := d.GetServiceBySlug("cartofia")
	require.NoError(t, err)
	assert.Equal(t, s.ID, bySlug.ID)

	_, err = d.GetServiceStatus(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	lat := 123.0
	checked := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	st := &models.ServiceStatus{ServiceID: s.ID, IsUp: true, LatencyMs: &lat, LastCheckedAt: &checked, LastChangeAt: &checked}
	require.NoError(t, d.UpsertServiceStatus(st))
	assert.NotZero(t, st.ID)

	st.IsUp = false
	st.LatencyMs = nil
	st.ConsecutiveFailures = 1
	require.NoError(t, d.UpsertServiceStatus(st))

	got, err := d.GetServiceStatus(s.ID)
	require.NoError(t, err)
	assert.False(t, got.IsUp)
	assert.Nil(t, got.LatencyMs)
	assert.Equal(t, 1, got.ConsecutiveFailures)

	require.NoError(t, d.DeleteService(s.ID))
	_, err = d.GetServiceStatus(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotificationOutbox(t *testing.T) {
	d := newTestStore(t)

	evt, err := d.CreateNotification("telegram", map[string]any{"text": "hi", "chat_id": float64(42)})
	require.NoError(t, err)
	assert.Equal(t, models.NotificationPending, evt.Status)

	claimed, err := d.ClaimPendingNotifications(10, "worker-1", time.Minute, 5, nil)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, models.NotificationSending, claimed[0].Status)
	require.NotNil(t, claimed[0].LockedBy)
	assert.Equal(t, "worker-1", *claimed[0].LockedBy)
	assert.Equal(t, "hi", claimed[0].Payload["text"])

	// A second claim within the lock window gets nothing
	claimed2, err := d.ClaimPendingNotifications(10, "worker-2", time.Minute, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, claimed2)

	// Fail releases the lock and bumps attempts
	failed, err := d.FailNotification(evt.ID, "broker unreachable")
	require.NoError(t, err)
	assert.Equal(t, models.NotificationFailed, failed.Status)
	assert.Equal(t, 1, failed.AttemptCount)
	require.NotNil(t, failed.LastError)
	assert.Nil(t, failed.LockedBy)

	// Failed events are claimable again
	claimed3, err := d.ClaimPendingNotifications(10, "worker-2", time.Minute, 5, nil)
	require.NoError(t, err)
	require.Len(t, claimed3, 1)

	acked, err := d.AckNotification(evt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationSent, acked.Status)
	assert.NotNil(t, acked.SentAt)
	assert.NotNil(t, acked.AckedAt)

	// Sent events are never claimed again
	claimed4, err := d.ClaimPendingNotifications(10, "worker-1", time.Minute, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, claimed4)
}

func TestNotificationClaimChannelFilter(t *testing.T) {
	d := newTestStore(t)

	tgEvt, err := d.CreateNotification("telegram", map[string]any{"text": "hi"})
	require.NoError(t, err)
	espEvt, err := d.CreateNotification("esp32", map[string]any{"text": "beep"})
	require.NoError(t, err)

	// A filtered claim only touches its channels
	claimed, err := d.ClaimPendingNotifications(10, "worker-esp", time.Minute, 5, []string{"esp32"})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, espEvt.ID, claimed[0].ID)

	tg, err := d.GetNotification(tgEvt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationPending, tg.Status)
	assert.Nil(t, tg.LockedBy)

	// The unfiltered consumer still gets the telegram event
	claimed2, err := d.ClaimPendingNotifications(10, "worker-any", time.Minute, 5, nil)
	require.NoError(t, err)
	require.Len(t, claimed2, 1)
	assert.Equal(t, tgEvt.ID, claimed2[0].ID)
}

func TestNotificationClaimIsExclusive(t *testing.T) {
	d := newTestStore(t)

	for i := 0; i < 8; i++ {
		_, err := d.CreateNotification("telegram", map[string]any{"text": "hi"})
		require.NoError(t, err)
	}

	// Two consumers racing on the same rows must split them, never share
	var wg sync.WaitGroup
	results := make([][]*models.NotificationEvent, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			claimed, err := d.ClaimPendingNotifications(10, fmt.Sprintf("worker-%d", i), time.Minute, 5, nil)
			assert.NoError(t, err)
			results[i] = claimed
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]int)
	for _, claimed := range results {
		for _, evt := range claimed {
			seen[evt.ID]++
		}
	}
	assert.Len(t, seen, 8, "every event claimed exactly once")
	for id, n := range seen {
		assert.Equal(t, 1, n, "event %d double-claimed", id)
	}
}

func TestNotificationMaxAttempts(t *testing.T) {
	d := newTestStore(t)

	evt, err := d.CreateNotification("esp32", map[string]any{"text": "beep"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		claimed, err := d.ClaimPendingNotifications(10, "worker", time.Minute, 5, nil)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		_, err = d.FailNotification(evt.ID, "nope")
		require.NoError(t, err)
	}

	claimed, err := d.ClaimPendingNotifications(10, "worker", time.Minute, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, claimed, "events at the attempt limit are dead")
}

func TestTelegramChatUpsert(t *testing.T) {
	d := newTestStore(t)

	user := "alex"
	c, err := d.UpsertTelegramChat(1001, "private", &user, nil)
	require.NoError(t, err)
	assert.True(t, c.Enabled)
	firstSeen := c.FirstSeenAt

	// Re-registering refreshes metadata but keeps enabled and first seen
	title := "Home"
	c2, err := d.UpsertTelegramChat(1001, "group", nil, &title)
	require.NoError(t, err)
	assert.Equal(t, c.ID, c2.ID)
	assert.Equal(t, "group", c2.ChatType)
	assert.Equal(t, firstSeen, c2.FirstSeenAt)
	assert.Nil(t, c2.Username)

	chats, err := d.EnabledTelegramChats()
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestSeed(t *testing.T) {
	d := newTestStore(t)

	seedYAML := `
words:
  - word: serendipity
    definition: The occurrence of events by chance in a happy way.
    extra_json: '{"examples": ["Finding bugs before they happen."]}'
services:
  - name: Cartofia site
    slug: cartofia
    kind: HTTP
    target: https://cartofia.com
reminders:
  - label: Morning pills
    description: Take your morning meds.
    schedule_kind: DAILY
    time_of_day: "09:00"
`
	seed, err := ParseSeedFromReader(strings.NewReader(seedYAML))
	require.NoError(t, err)
	require.NoError(t, d.ApplySeed(seed))

	words, err := d.ListWords()
	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, "serendipity", words[0].Word)

	services, err := d.ListServices()
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, 60, services[0].CheckIntervalSec)

	reminders, err := d.ListReminders()
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, 60, reminders[0].GraceAfterMin)
	assert.Equal(t, []string{"esp32", "telegram"}, reminders[0].Channels)

	// Seeding again is a no-op on non-empty tables
	require.NoError(t, d.ApplySeed(seed))
	words, err = d.ListWords()
	require.NoError(t, err)
	assert.Len(t, words, 1)
}
