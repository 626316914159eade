package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// UnlimitedQuota is the sentinel for memberships without a monthly cap.
const UnlimitedQuota = -1

// Membership is the quota-bearing subset of a user's community membership.
// remaining_event_quota is decremented atomically per event created and
// reset lazily on first use after a month boundary.
type Membership struct {
	ID                  snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID              snowflake.ID `json:"user_id" gorm:"not null;uniqueIndex"`
	MonthlyEventQuota   int          `json:"monthly_event_quota" gorm:"not null"`
	RemainingEventQuota int          `json:"remaining_event_quota" gorm:"not null"`
	LastResetAt         time.Time    `json:"last_reset_at" gorm:"not null"`
	CreatedAt           time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt           time.Time    `json:"updated_at" gorm:"not null"`
}

func (Membership) TableName() string { return "memberships" }

var (
	ErrNotFound       = errors.New("membership_not_found")
	ErrQuotaExhausted = errors.New("event_quota_exhausted")
)
