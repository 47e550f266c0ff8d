package models

import "time"

// Word is a vocabulary entry; one active word is featured per day on the display.
type Word struct {
	ID         int64     `json:"id"`
	Word       string    `json:"word"`
	Definition string    `json:"definition"`
	ExtraJSON  *string   `json:"extraJson,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
