package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Direction string

const (
	DirectionIn  Direction = "In"
	DirectionOut Direction = "Out"
)

type Method string

const (
	MethodWallet  Method = "Wallet"
	MethodGateway Method = "Gateway"
)

type Status string

const (
	StatusSucceeded Status = "Succeeded"
	StatusFailed    Status = "Failed"
)

const (
	ProviderLocal = "LOCAL"
	ProviderPayOS = "PAYOS"
	ProviderVNPay = "VNPAY"
)

// Transaction is an immutable ledger row. The (provider, provider_ref) pair
// is unique when provider_ref is set; that constraint is the idempotency
// fence for every settlement path and must never be relaxed.
type Transaction struct {
	ID          snowflake.ID   `json:"id" gorm:"primaryKey"`
	WalletID    snowflake.ID   `json:"wallet_id" gorm:"not null;index"`
	EventID     *snowflake.ID  `json:"event_id,omitempty"`
	AmountCents int64          `json:"amount_cents" gorm:"not null"`
	Direction   Direction      `json:"direction" gorm:"type:text;not null"`
	Method      Method         `json:"method" gorm:"type:text;not null"`
	Status      Status         `json:"status" gorm:"type:text;not null"`
	Provider    string         `json:"provider" gorm:"type:text;not null"`
	ProviderRef *string        `json:"provider_ref,omitempty"`
	Metadata    datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	CreatedAt   time.Time      `json:"created_at" gorm:"not null"`
}

func (Transaction) TableName() string { return "transactions" }

var (
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidProvider = errors.New("invalid_provider")
)
