package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Wallet holds a user's spendable balance in integer cents. One wallet per
// user, created lazily on first use. The balance is mutated only through the
// conditional adjust operation, never read-modify-write.
type Wallet struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID       snowflake.ID `json:"user_id" gorm:"not null;uniqueIndex"`
	BalanceCents int64        `json:"balance_cents" gorm:"not null"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null"`
}

func (Wallet) TableName() string { return "wallets" }

type Summary struct {
	Exists       bool  `json:"exists"`
	BalanceCents int64 `json:"balance_cents"`
}
