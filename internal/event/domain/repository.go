package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *Event) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Event, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, now time.Time) error

	InsertRegistration(ctx context.Context, db *gorm.DB, reg *Registration) error
	FindRegistrationByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Registration, error)
	FindActiveRegistration(ctx context.Context, db *gorm.DB, eventID, userID snowflake.ID) (*Registration, error)
	ListSettledRegistrations(ctx context.Context, db *gorm.DB, eventID snowflake.ID) ([]*Registration, error)
	ListPendingRegistrations(ctx context.Context, db *gorm.DB, eventID snowflake.ID) ([]*Registration, error)
	CountConfirmed(ctx context.Context, db *gorm.DB, eventID snowflake.ID) (int64, error)
	UpdateRegistration(ctx context.Context, db *gorm.DB, id snowflake.ID, status RegistrationStatus, paidTransactionID *snowflake.ID, now time.Time) error
}
