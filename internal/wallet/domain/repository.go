package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert creates the wallet unless one already exists for the user.
	// Reports whether a row was written.
	Insert(ctx context.Context, db *gorm.DB, wallet *Wallet) (bool, error)
	FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Wallet, error)
	// AdjustBalance applies balance_cents += delta in a single conditional
	// update guarded by balance_cents + delta >= 0. Reports false without
	// mutation when the guard fails.
	AdjustBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID, deltaCents int64, now time.Time) (bool, error)
}
