package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusHeld Status = "Held"
	// StatusReleased is reserved in the schema; release flows live outside
	// the settlement engine.
	StatusReleased Status = "Released"
)

// Escrow tracks the amount held against one event. The hold only grows
// through settled top-ups.
type Escrow struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	EventID         snowflake.ID `json:"event_id" gorm:"not null;uniqueIndex"`
	AmountHoldCents int64        `json:"amount_hold_cents" gorm:"not null"`
	Status          Status       `json:"status" gorm:"type:text;not null"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time    `json:"updated_at" gorm:"not null"`
}

func (Escrow) TableName() string { return "escrows" }

// InsufficientError reports the exact top-up needed before an event may
// open, so the caller can prompt the organizer for the right amount.
type InsufficientError struct {
	RequiredCents    int64 `json:"required_cents"`
	HeldCents        int64 `json:"held_cents"`
	TopUpNeededCents int64 `json:"top_up_needed_cents"`
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient_escrow: need %d more cents", e.TopUpNeededCents)
}

func NewInsufficientError(requiredCents, heldCents int64) *InsufficientError {
	needed := requiredCents - heldCents
	if needed < 0 {
		needed = 0
	}
	return &InsufficientError{
		RequiredCents:    requiredCents,
		HeldCents:        heldCents,
		TopUpNeededCents: needed,
	}
}
