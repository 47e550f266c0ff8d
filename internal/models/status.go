package models

import "time"

// ExpressionState drives the face shown on the display.
type ExpressionState string

const (
	ExpressionHappy   ExpressionState = "happy"
	ExpressionFocused ExpressionState = "focused"
	ExpressionAlert   ExpressionState = "alert"
	ExpressionWarning ExpressionState = "warning"
	ExpressionSleepy  ExpressionState = "sleepy"
)

// Expression is the display's mood plus a one-line message.
type Expression struct {
	State   ExpressionState `json:"state" msgpack:"s"`
	Message string          `json:"message" msgpack:"m"`
}

// ServiceBrief is the compact per-service view included in the daily status.
type ServiceBrief struct {
	Slug      string   `json:"slug" msgpack:"sl"`
	Name      string   `json:"name" msgpack:"n"`
	IsUp      bool     `json:"isUp" msgpack:"u"`
	LatencyMs *float64 `json:"latencyMs,omitempty" msgpack:"l,omitempty"`
}

// WordOfDay is the featured word included in the daily status.
type WordOfDay struct {
	Word       string `json:"word" msgpack:"w"`
	Definition string `json:"definition" msgpack:"d"`
	ExtraJSON  string `json:"extraJson,omitempty" msgpack:"x,omitempty"`
}

// RemindersSummary aggregates today's occurrences for the display.
type RemindersSummary struct {
	Date    string  `json:"date" msgpack:"dt"`
	Total   int     `json:"total" msgpack:"t"`
	Done    int     `json:"done" msgpack:"dn"`
	Pending int     `json:"pending" msgpack:"p"`
	Missed  int     `json:"missed" msgpack:"ms"`
	Next    *string `json:"next,omitempty" msgpack:"nx,omitempty"`
}

// StatusToday is the aggregate payload the display polls. The msgpack tags
// keep the encoded payload small enough for the ESP32's buffers.
type StatusToday struct {
	Now        time.Time        `json:"now" msgpack:"now"`
	Services   []ServiceBrief   `json:"services" msgpack:"svc"`
	WordOfDay  WordOfDay        `json:"wordOfDay" msgpack:"wod"`
	Reminders  RemindersSummary `json:"remindersSummary" msgpack:"rem"`
	Expression Expression       `json:"expression" msgpack:"exp"`
}
