package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/minerva-brain/backend/internal/assistant"
	"github.com/minerva-brain/backend/internal/config"
	"github.com/minerva-brain/backend/internal/models"
	"github.com/minerva-brain/backend/internal/status"
	"github.com/minerva-brain/backend/internal/store"
)

func newTestHandlers(t *testing.T) (*Handlers, store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.duckdb"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.DefaultConfig()
	deps := &Dependencies{
		Store:      st,
		Config:     cfg,
		Aggregator: status.NewAggregator(st, cfg.DeviceLocation()),
		Assistant:  assistant.New(assistant.DummyProvider{}),
		Version:    "test",
	}
	return NewHandlers(deps), st
}

// newJSONContext builds an echo context carrying a JSON body
func newJSONContext(t *testing.T, method, target string, body any) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(data))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func apiStatus(t *testing.T, err error) int {
	t.Helper()
	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T: %v", err, err)
	return apiErr.Status
}

func TestHealthHandler(t *testing.T) {
	h, _ := newTestHandlers(t)

	c, rec := newJSONContext(t, http.MethodGet, "/health", nil)
	require.NoError(t, h.Health.HandleHealth(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestWordHandlerCRUD(t *testing.T) {
	h, _ := newTestHandlers(t)

	// Create
	c, rec := newJSONContext(t, http.MethodPost, "/api/words", map[string]any{
		"word":       "petrichor",
		"definition": "The smell of rain on dry earth",
	})
	require.NoError(t, h.Words.HandleCreateWord(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var created models.Word
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "petrichor", created.Word)
	assert.True(t, created.Active)

	// Duplicate word text conflicts
	c, _ = newJSONContext(t, http.MethodPost, "/api/words", map[string]any{
		"word":       "petrichor",
		"definition": "dup",
	})
	err := h.Words.HandleCreateWord(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apiStatus(t, err))

	// Get
	c, rec = newJSONContext(t, http.MethodGet, "/api/words/1", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(created.ID))
	require.NoError(t, h.Words.HandleGetWord(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Patch a single field
	c, rec = newJSONContext(t, http.MethodPatch, "/api/words/1", map[string]any{
		"active": false,
	})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(created.ID))
	require.NoError(t, h.Words.HandleUpdateWord(c))

	var updated models.Word
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.False(t, updated.Active)
	assert.Equal(t, "petrichor", updated.Word, "untouched fields survive a patch")

	// Delete, then get must 404
	c, rec = newJSONContext(t, http.MethodDelete, "/api/words/1", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(created.ID))
	require.NoError(t, h.Words.HandleDeleteWord(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, _ = newJSONContext(t, http.MethodGet, "/api/words/1", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(created.ID))
	err = h.Words.HandleGetWord(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apiStatus(t, err))
}

func TestWordHandlerValidation(t *testing.T) {
	h, _ := newTestHandlers(t)

	c, _ := newJSONContext(t, http.MethodPost, "/api/words", map[string]any{
		"definition": "no word text",
	})
	err := h.Words.HandleCreateWord(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))

	c, _ = newJSONContext(t, http.MethodGet, "/api/words/abc", nil)
	c.SetParamNames("id")
	c.SetParamValues("abc")
	err = h.Words.HandleGetWord(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))
}

func TestReminderHandlerCreateDefaults(t *testing.T) {
	h, _ := newTestHandlers(t)

	c, rec := newJSONContext(t, http.MethodPost, "/api/reminders", map[string]any{
		"label":        "Water plants",
		"scheduleKind": "weekly",
		"timeOfDay":    "18:30",
		"daysOfWeek":   []int{0, 2, 4},
	})
	require.NoError(t, h.Reminders.HandleCreateReminder(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var r models.Reminder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	assert.Equal(t, models.ScheduleWeekly, r.ScheduleKind, "kind is normalized to upper case")
	assert.Equal(t, 60, r.GraceAfterMin)
	assert.Equal(t, []string{models.ChannelTelegram, models.ChannelESP32}, r.Channels)
	assert.True(t, r.Enabled)
}

func TestReminderHandlerValidation(t *testing.T) {
	h, _ := newTestHandlers(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing label", map[string]any{"scheduleKind": "DAILY", "timeOfDay": "08:00"}},
		{"bad kind", map[string]any{"label": "x", "scheduleKind": "HOURLY", "timeOfDay": "08:00"}},
		{"bad time", map[string]any{"label": "x", "scheduleKind": "DAILY", "timeOfDay": "25:00"}},
		{"bad weekday", map[string]any{"label": "x", "scheduleKind": "WEEKLY", "timeOfDay": "08:00", "daysOfWeek": []int{7}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newJSONContext(t, http.MethodPost, "/api/reminders", tc.body)
			err := h.Reminders.HandleCreateReminder(c)
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))
		})
	}
}

func TestReminderHandlerUpdateAndDelete(t *testing.T) {
	h, st := newTestHandlers(t)

	r := &models.Reminder{
		Label:        "Stretch",
		ScheduleKind: models.ScheduleDaily,
		TimeOfDay:    "09:00",
		Channels:     []string{models.ChannelESP32},
		Enabled:      true,
	}
	require.NoError(t, st.CreateReminder(r))

	c, rec := newJSONContext(t, http.MethodPatch, "/api/reminders/1", map[string]any{
		"enabled":   false,
		"timeOfDay": "10:15",
	})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(r.ID))
	require.NoError(t, h.Reminders.HandleUpdateReminder(c))

	var updated models.Reminder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.False(t, updated.Enabled)
	assert.Equal(t, "10:15", updated.TimeOfDay)
	assert.Equal(t, "Stretch", updated.Label)

	c, rec = newJSONContext(t, http.MethodDelete, "/api/reminders/1", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(r.ID))
	require.NoError(t, h.Reminders.HandleDeleteReminder(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := st.GetReminder(r.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func seedOccurrence(t *testing.T, st store.Store, due time.Time) (*models.Reminder, *models.ReminderOccurrence) {
	t.Helper()

	r := &models.Reminder{
		Label:        "Morning pills",
		ScheduleKind: models.ScheduleDaily,
		TimeOfDay:    "08:00",
		Channels:     []string{models.ChannelTelegram},
		Enabled:      true,
	}
	require.NoError(t, st.CreateReminder(r))

	occ := &models.ReminderOccurrence{
		ReminderID:    r.ID,
		DueAt:         due,
		WindowStartAt: due.Add(-5 * time.Minute),
		WindowEndAt:   due.Add(60 * time.Minute),
		State:         models.OccurrencePending,
	}
	require.NoError(t, st.CreateOccurrence(occ))
	return r, occ
}

func TestOccurrenceHandlerList(t *testing.T) {
	h, st := newTestHandlers(t)

	now := time.Now().UTC()
	r, _ := seedOccurrence(t, st, now)

	c, rec := newJSONContext(t, http.MethodGet, "/api/occurrences", nil)
	require.NoError(t, h.Occurrences.HandleListOccurrences(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, r.Label, out[0]["label"])
	assert.Equal(t, "PENDING", out[0]["state"])

	// Explicit date with no occurrences
	c, rec = newJSONContext(t, http.MethodGet, "/api/occurrences?date=2001-01-01", nil)
	require.NoError(t, h.Occurrences.HandleListOccurrences(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Empty(t, out)

	// Malformed date
	c, _ = newJSONContext(t, http.MethodGet, "/api/occurrences?date=tomorrow", nil)
	err := h.Occurrences.HandleListOccurrences(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))
}

func TestOccurrenceHandlerDoneIsIdempotent(t *testing.T) {
	h, st := newTestHandlers(t)
	_, occ := seedOccurrence(t, st, time.Now().UTC())

	c, rec := newJSONContext(t, http.MethodPost, "/api/occurrences/1/done", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(occ.ID))
	require.NoError(t, h.Occurrences.HandleMarkDone(c))

	var first stateChangeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, "DONE", first.State)
	require.NotNil(t, first.DoneAt)

	// Skipping a DONE occurrence leaves it DONE
	c, rec = newJSONContext(t, http.MethodPost, "/api/occurrences/1/skip", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(occ.ID))
	require.NoError(t, h.Occurrences.HandleMarkSkipped(c))

	var second stateChangeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, "DONE", second.State)
	assert.Equal(t, first.DoneAt.Unix(), second.DoneAt.Unix())
	assert.Nil(t, second.SkippedAt)
}

func TestOccurrenceHandlerSkip(t *testing.T) {
	h, st := newTestHandlers(t)
	_, occ := seedOccurrence(t, st, time.Now().UTC())

	c, rec := newJSONContext(t, http.MethodPost, "/api/occurrences/1/skip", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(occ.ID))
	require.NoError(t, h.Occurrences.HandleMarkSkipped(c))

	var resp stateChangeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SKIPPED", resp.State)
	assert.NotNil(t, resp.SkippedAt)
	assert.Nil(t, resp.DoneAt)
}

func TestOccurrenceHandlerNotifiesOnStateChange(t *testing.T) {
	_, st := newTestHandlers(t)
	_, occ := seedOccurrence(t, st, time.Now().UTC())

	changes := 0
	handler := NewOccurrenceHandler(st, time.UTC, func() { changes++ })

	c, _ := newJSONContext(t, http.MethodPost, "/api/occurrences/1/done", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(occ.ID))
	require.NoError(t, handler.HandleMarkDone(c))
	assert.Equal(t, 1, changes)

	// Repeating the terminal state does not notify again
	c, _ = newJSONContext(t, http.MethodPost, "/api/occurrences/1/done", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(occ.ID))
	require.NoError(t, handler.HandleMarkDone(c))
	assert.Equal(t, 1, changes)
}

func TestOccurrenceHandlerCleanupOrphans(t *testing.T) {
	h, st := newTestHandlers(t)

	r, _ := seedOccurrence(t, st, time.Now().UTC())
	require.NoError(t, st.DeleteReminder(r.ID))

	// Without confirm nothing is deleted; the count is reported
	c, _ := newJSONContext(t, http.MethodPost, "/api/occurrences/cleanup-orphans", nil)
	require.NoError(t, h.Occurrences.HandleCleanupOrphans(c))

	count, err := st.CountOrphanOccurrences()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	c, rec := newJSONContext(t, http.MethodPost, "/api/occurrences/cleanup-orphans?confirm=true", nil)
	require.NoError(t, h.Occurrences.HandleCleanupOrphans(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var out map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, int64(1), out["deleted"])

	count, err = st.CountOrphanOccurrences()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestServiceHandlerCRUD(t *testing.T) {
	h, st := newTestHandlers(t)

	c, rec := newJSONContext(t, http.MethodPost, "/api/services", map[string]any{
		"name":   "NAS",
		"slug":   "nas",
		"kind":   "http",
		"target": "http://nas.local:5000",
	})
	require.NoError(t, h.Services.HandleCreateService(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var created serviceOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, models.ServiceHTTP, created.Kind)
	assert.Equal(t, 60, created.CheckIntervalSec)
	assert.Equal(t, 5, created.TimeoutSec)
	assert.True(t, created.AlertOnDown)

	// Slug conflict
	c, _ = newJSONContext(t, http.MethodPost, "/api/services", map[string]any{
		"name":   "NAS copy",
		"slug":   "nas",
		"kind":   "TCP",
		"target": "nas.local:22",
	})
	err := h.Services.HandleCreateService(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apiStatus(t, err))

	// List joins the latest status
	lat := 12.5
	now := time.Now().UTC()
	require.NoError(t, st.UpsertServiceStatus(&models.ServiceStatus{
		ServiceID: created.ID, IsUp: true, LatencyMs: &lat, LastCheckedAt: &now,
	}))

	c, rec = newJSONContext(t, http.MethodGet, "/api/services", nil)
	require.NoError(t, h.Services.HandleListServices(c))

	var list []serviceOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Status)
	assert.True(t, list[0].Status.IsUp)

	// Patch
	c, rec = newJSONContext(t, http.MethodPatch, "/api/services/1", map[string]any{
		"enabled": false,
	})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(created.ID))
	require.NoError(t, h.Services.HandleUpdateService(c))

	var updated serviceOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.False(t, updated.Enabled)

	// Delete
	c, rec = newJSONContext(t, http.MethodDelete, "/api/services/1", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(created.ID))
	require.NoError(t, h.Services.HandleDeleteService(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServiceHandlerValidation(t *testing.T) {
	h, _ := newTestHandlers(t)

	c, _ := newJSONContext(t, http.MethodPost, "/api/services", map[string]any{
		"name":   "bad",
		"slug":   "bad",
		"kind":   "ICMP",
		"target": "x",
	})
	err := h.Services.HandleCreateService(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))
}

func TestNotificationHandlerClaimAckFail(t *testing.T) {
	h, st := newTestHandlers(t)

	evt1, err := st.CreateNotification(models.ChannelTelegram, map[string]any{"text": "hello"})
	require.NoError(t, err)
	_, err = st.CreateNotification(models.ChannelTelegram, map[string]any{"text": "world"})
	require.NoError(t, err)

	c, rec := newJSONContext(t, http.MethodGet, "/api/notifications/pending?consumerId=bot-1", nil)
	require.NoError(t, h.Notifications.HandlePendingNotifications(c))

	var claimed []models.NotificationEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claimed))
	require.Len(t, claimed, 2)
	assert.Equal(t, models.NotificationSending, claimed[0].Status)

	// A second consumer sees nothing while the lock holds
	c, rec = newJSONContext(t, http.MethodGet, "/api/notifications/pending?consumerId=bot-2", nil)
	require.NoError(t, h.Notifications.HandlePendingNotifications(c))
	var empty []models.NotificationEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &empty))
	assert.Empty(t, empty)

	// Ack the first
	c, rec = newJSONContext(t, http.MethodPost, "/api/notifications/1/ack", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(evt1.ID))
	require.NoError(t, h.Notifications.HandleAckNotification(c))

	var acked ackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acked))
	assert.True(t, acked.OK)
	assert.Equal(t, string(models.NotificationSent), acked.Status)

	// Fail the second
	c, rec = newJSONContext(t, http.MethodPost, "/api/notifications/2/fail", map[string]any{
		"errorMessage": "timeout talking to telegram",
	})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(claimed[1].ID))
	require.NoError(t, h.Notifications.HandleFailNotification(c))

	var failed ackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failed))
	assert.Equal(t, string(models.NotificationFailed), failed.Status)
	assert.Equal(t, 1, failed.AttemptCount)
	require.NotNil(t, failed.LastError)
	assert.Equal(t, "timeout talking to telegram", *failed.LastError)
}

func TestNotificationHandlerChannelFilter(t *testing.T) {
	h, st := newTestHandlers(t)

	_, err := st.CreateNotification("telegram", map[string]any{"text": "hi"})
	require.NoError(t, err)
	espEvt, err := st.CreateNotification("esp32", map[string]any{"text": "beep"})
	require.NoError(t, err)

	c, rec := newJSONContext(t, http.MethodGet, "/api/notifications/pending?channel=esp32", nil)
	require.NoError(t, h.Notifications.HandlePendingNotifications(c))

	var claimed []models.NotificationEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claimed))
	require.Len(t, claimed, 1)
	assert.Equal(t, espEvt.ID, claimed[0].ID)
	assert.Equal(t, "esp32", claimed[0].Channel)
}

func TestNotificationHandlerParamBounds(t *testing.T) {
	h, _ := newTestHandlers(t)

	c, _ := newJSONContext(t, http.MethodGet, "/api/notifications/pending?limit=0", nil)
	err := h.Notifications.HandlePendingNotifications(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))

	c, _ = newJSONContext(t, http.MethodGet, "/api/notifications/pending?lockSeconds=99999", nil)
	err = h.Notifications.HandlePendingNotifications(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))

	// Fail without an error message is rejected
	c, _ = newJSONContext(t, http.MethodPost, "/api/notifications/1/fail", map[string]any{})
	c.SetParamNames("id")
	c.SetParamValues("1")
	err = h.Notifications.HandleFailNotification(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))
}

func TestTelegramHandlerRegister(t *testing.T) {
	h, st := newTestHandlers(t)

	username := "alice"
	c, rec := newJSONContext(t, http.MethodPost, "/api/integrations/telegram/register", map[string]any{
		"chatId":   int64(123456),
		"username": username,
	})
	require.NoError(t, h.Telegram.HandleRegisterChat(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp telegramRegisterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, int64(123456), resp.ChatID)
	assert.True(t, resp.Enabled)

	chats, err := st.EnabledTelegramChats()
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "private", chats[0].ChatType)

	// Missing chatId is rejected
	c, _ = newJSONContext(t, http.MethodPost, "/api/integrations/telegram/register", map[string]any{})
	err = h.Telegram.HandleRegisterChat(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))
}

func TestAssistantHandlerChat(t *testing.T) {
	h, _ := newTestHandlers(t)

	c, rec := newJSONContext(t, http.MethodPost, "/api/assistant/chat", map[string]any{
		"message": "what's due today?",
	})
	require.NoError(t, h.Assistant.HandleChat(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp assistant.ChatResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Contains(t, resp.Reply, "what's due today?")

	// Continuing with the returned id keeps the session
	c, rec = newJSONContext(t, http.MethodPost, "/api/assistant/chat", map[string]any{
		"message":   "thanks",
		"sessionId": resp.SessionID,
	})
	require.NoError(t, h.Assistant.HandleChat(c))

	var second assistant.ChatResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, resp.SessionID, second.SessionID)

	// Empty message is rejected
	c, _ = newJSONContext(t, http.MethodPost, "/api/assistant/chat", map[string]any{})
	err := h.Assistant.HandleChat(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))
}

func TestStatusHandlerToday(t *testing.T) {
	h, st := newTestHandlers(t)

	require.NoError(t, st.CreateWord(&models.Word{
		Word: "serendipity", Definition: "A happy accident", Active: true,
	}))

	c, rec := newJSONContext(t, http.MethodGet, "/api/status/today", nil)
	require.NoError(t, h.Status.HandleStatusToday(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var today models.StatusToday
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &today))
	assert.Equal(t, "serendipity", today.WordOfDay.Word)
	assert.NotEmpty(t, today.Expression.State)
}

func TestStatusHandlerMsgpack(t *testing.T) {
	h, st := newTestHandlers(t)

	require.NoError(t, st.CreateWord(&models.Word{
		Word: "serendipity", Definition: "A happy accident", Active: true,
	}))

	c, rec := newJSONContext(t, http.MethodGet, "/api/status/today/msgpack", nil)
	require.NoError(t, h.Status.HandleStatusTodayMsgpack(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))

	var today models.StatusToday
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &today))
	assert.Equal(t, "serendipity", today.WordOfDay.Word)
}

func TestProvisionHandler(t *testing.T) {
	h, _ := newTestHandlers(t)

	c, rec := newJSONContext(t, http.MethodGet, "/api/provision", nil)
	require.NoError(t, h.Provision.HandleDescribe(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var settings map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	assert.Equal(t, "your-ssid", settings["wifiSsid"])
	assert.Equal(t, "********", settings["wifiPass"], "credential is redacted by default")

	c, rec = newJSONContext(t, http.MethodGet, "/api/provision?secrets=1", nil)
	require.NoError(t, h.Provision.HandleDescribe(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	assert.Equal(t, "your-password", settings["wifiPass"])
}

func TestProvisionHandlerConfigHeader(t *testing.T) {
	h, _ := newTestHandlers(t)

	c, rec := newJSONContext(t, http.MethodGet, "/api/provision/config.h?secrets=1", nil)
	require.NoError(t, h.Provision.HandleConfigHeader(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/x-chdr", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="config.h"`, rec.Header().Get(echo.HeaderContentDisposition))

	body := rec.Body.String()
	assert.Contains(t, body, "#pragma once")
	assert.Contains(t, body, `#define WIFI_SSID "your-ssid"`)
	assert.Contains(t, body, `#define WIFI_PASS "your-password"`)
	assert.Contains(t, body, `#define MINERVA_PORT 8000`)
}

func TestRegisterRoutes(t *testing.T) {
	h, _ := newTestHandlers(t)

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	RegisterRoutes(e, h)
	RegisterWebSocketRoutes(e, h)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Unknown word id flows through the error handler as structured JSON
	req = httptest.NewRequest(http.MethodGet, "/api/words/9999", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}
