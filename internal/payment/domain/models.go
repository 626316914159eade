package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Purpose string

const (
	PurposeEventTicket Purpose = "EventTicket"
	PurposeTopUp       Purpose = "TopUp"
	PurposeWalletTopUp Purpose = "WalletTopUp"
)

type Status string

const (
	StatusRequiresPayment Status = "RequiresPayment"
	StatusSucceeded       Status = "Succeeded"
	StatusCanceled        Status = "Canceled"
)

// PaymentIntent is a pending financial promise. Rows are never deleted;
// the reconciler is the only writer after creation. Expiry is a derived
// read-time condition, not a stored status.
type PaymentIntent struct {
	ID             snowflake.ID  `json:"id" gorm:"primaryKey"`
	UserID         snowflake.ID  `json:"user_id" gorm:"not null;index"`
	Purpose        Purpose       `json:"purpose" gorm:"type:text;not null"`
	Status         Status        `json:"status" gorm:"type:text;not null"`
	AmountCents    int64         `json:"amount_cents" gorm:"not null"`
	EventID        *snowflake.ID `json:"event_id,omitempty"`
	RegistrationID *snowflake.ID `json:"registration_id,omitempty"`
	// OrderCode is the numeric reference the gateways echo back. Unique so
	// a callback resolves to exactly one intent.
	OrderCode    *int64    `json:"order_code,omitempty" gorm:"uniqueIndex"`
	ClientSecret string    `json:"client_secret" gorm:"type:text;not null"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"not null"`
}

func (PaymentIntent) TableName() string { return "payment_intents" }

func (p *PaymentIntent) Terminal() bool {
	return p.Status == StatusSucceeded || p.Status == StatusCanceled
}

func (p *PaymentIntent) ExpiredAt(now time.Time) bool {
	return p.Status == StatusRequiresPayment && !now.Before(p.ExpiresAt)
}

// Proof is the externally-asserted payment outcome handed to the
// reconciler, whatever the channel it arrived on. ProviderRef uniquely
// identifies the external payment event and keys the idempotency fence.
type Proof struct {
	IntentID    snowflake.ID
	OrderCode   *int64
	Provider    string
	ProviderRef string
	AmountCents int64
	Succeeded   bool
	Raw         datatypes.JSON
}

var (
	ErrIntentNotFound  = errors.New("payment_intent_not_found")
	ErrNotIntentOwner  = errors.New("not_intent_owner")
	ErrIntentExpired   = errors.New("payment_intent_expired")
	ErrIntentCanceled  = errors.New("payment_intent_canceled")
	ErrAmountMismatch  = errors.New("amount_mismatch")
	ErrStaleProof      = errors.New("stale_proof_for_dead_registration")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrAmountTooLarge  = errors.New("amount_too_large")
	ErrTopUpDisabled   = errors.New("wallet_topup_disabled")
	ErrUnknownPurpose  = errors.New("unknown_intent_purpose")
	ErrMissingProvider = errors.New("missing_provider_ref")
)
