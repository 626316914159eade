package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID) (*Escrow, error)
	// AddHold creates the escrow on first top-up, otherwise adds to the
	// held amount. One additive statement, no read-modify-write.
	AddHold(ctx context.Context, db *gorm.DB, escrow *Escrow) error
}
