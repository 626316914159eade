package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/campushq/pulse/internal/escrow/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID) (*domain.Escrow, error) {
	var escrow domain.Escrow
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_id, amount_hold_cents, status, created_at, updated_at
		 FROM escrows
		 WHERE event_id = ?
		 LIMIT 1`,
		eventID,
	).Scan(&escrow).Error
	if err != nil {
		return nil, err
	}
	if escrow.ID == 0 {
		return nil, nil
	}
	return &escrow, nil
}

func (r *repo) AddHold(ctx context.Context, db *gorm.DB, escrow *domain.Escrow) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO escrows (id, event_id, amount_hold_cents, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (event_id) DO UPDATE SET
			amount_hold_cents = escrows.amount_hold_cents + excluded.amount_hold_cents,
			updated_at = excluded.updated_at`,
		escrow.ID,
		escrow.EventID,
		escrow.AmountHoldCents,
		escrow.Status,
		escrow.CreatedAt,
		escrow.UpdatedAt,
	).Error
}
