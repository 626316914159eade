package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Membership, error)
	// ResetMonthlyQuotaIfNeeded restores the monthly allowance when
	// last_reset_at predates periodStart. Conditional update; a no-op for
	// rows already inside the current period.
	ResetMonthlyQuotaIfNeeded(ctx context.Context, db *gorm.DB, membershipID snowflake.ID, periodStart, now time.Time) error
	// DecrementQuotaIfAvailable takes one unit of quota in a single
	// conditional update. Reports false when the quota is exhausted. The
	// unlimited sentinel passes without being decremented.
	DecrementQuotaIfAvailable(ctx context.Context, db *gorm.DB, membershipID snowflake.ID, now time.Time) (bool, error)
}
