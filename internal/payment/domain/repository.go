package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, intent *PaymentIntent) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PaymentIntent, error)
	FindByOrderCode(ctx context.Context, db *gorm.DB, orderCode int64) (*PaymentIntent, error)
	FindByRegistrationID(ctx context.Context, db *gorm.DB, registrationID snowflake.ID) (*PaymentIntent, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, now time.Time) error
	// CountActiveTicketIntents counts RequiresPayment ticket intents for the
	// event that have not yet expired. Each one reserves a capacity slot.
	CountActiveTicketIntents(ctx context.Context, db *gorm.DB, eventID snowflake.ID, now time.Time) (int64, error)
}
