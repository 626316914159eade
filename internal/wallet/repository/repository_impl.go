package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campushq/pulse/internal/wallet/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, wallet *domain.Wallet) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO wallets (id, user_id, balance_cents, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO NOTHING`,
		wallet.ID,
		wallet.UserID,
		wallet.BalanceCents,
		wallet.CreatedAt,
		wallet.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Wallet, error) {
	var wallet domain.Wallet
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, balance_cents, created_at, updated_at
		 FROM wallets
		 WHERE user_id = ?
		 LIMIT 1`,
		userID,
	).Scan(&wallet).Error
	if err != nil {
		return nil, err
	}
	if wallet.ID == 0 {
		return nil, nil
	}
	return &wallet, nil
}

func (r *repo) AdjustBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID, deltaCents int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE wallets
		 SET balance_cents = balance_cents + ?, updated_at = ?
		 WHERE user_id = ? AND balance_cents + ? >= 0`,
		deltaCents,
		now,
		userID,
		deltaCents,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
