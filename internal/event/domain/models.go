package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusDraft     Status = "Draft"
	StatusOpen      Status = "Open"
	StatusCanceled  Status = "Canceled"
	StatusCompleted Status = "Completed"
)

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "Pending"
	RegistrationConfirmed RegistrationStatus = "Confirmed"
	RegistrationCheckedIn RegistrationStatus = "CheckedIn"
	RegistrationCanceled  RegistrationStatus = "Canceled"
	RegistrationRefunded  RegistrationStatus = "Refunded"
)

// Event is the ticketed happening an organizer runs. Price is captured onto
// the intent at registration time, so later edits never change what a
// buyer owes.
type Event struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	OrganizerID    snowflake.ID `json:"organizer_id" gorm:"not null;index"`
	Title          string       `json:"title" gorm:"type:text;not null"`
	PriceCents     int64        `json:"price_cents" gorm:"not null"`
	Capacity       *int         `json:"capacity,omitempty"`
	EscrowMinCents int64        `json:"escrow_min_cents" gorm:"not null"`
	Status         Status       `json:"status" gorm:"type:text;not null"`
	StartsAt       time.Time    `json:"starts_at" gorm:"not null"`
	CreatedAt      time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time    `json:"updated_at" gorm:"not null"`
}

func (Event) TableName() string { return "events" }

// Registration links a user to one purchase attempt for an event. Once
// Confirmed or CheckedIn it is immutable with respect to payment.
type Registration struct {
	ID                snowflake.ID       `json:"id" gorm:"primaryKey"`
	EventID           snowflake.ID       `json:"event_id" gorm:"not null;index"`
	UserID            snowflake.ID       `json:"user_id" gorm:"not null;index"`
	Status            RegistrationStatus `json:"status" gorm:"type:text;not null"`
	PaidTransactionID *snowflake.ID      `json:"paid_transaction_id,omitempty"`
	CreatedAt         time.Time          `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time          `json:"updated_at" gorm:"not null"`
}

func (Registration) TableName() string { return "event_registrations" }

func (r *Registration) Settled() bool {
	return r.Status == RegistrationConfirmed || r.Status == RegistrationCheckedIn
}

func (r *Registration) Dead() bool {
	return r.Status == RegistrationCanceled || r.Status == RegistrationRefunded
}

var (
	ErrNotFound             = errors.New("event_not_found")
	ErrRegistrationNotFound = errors.New("registration_not_found")
	ErrNotOrganizer         = errors.New("not_event_organizer")
	ErrNotOpen              = errors.New("event_not_open")
	ErrInvalidState         = errors.New("invalid_event_state")
	ErrCapacityReached      = errors.New("event_capacity_reached")
	ErrAlreadyRegistered    = errors.New("already_registered")
	ErrAlreadyStarted       = errors.New("event_already_started")
	ErrInvalidTitle         = errors.New("invalid_title")
	ErrInvalidPrice         = errors.New("invalid_price")
	ErrInvalidStartTime     = errors.New("invalid_start_time")
)
