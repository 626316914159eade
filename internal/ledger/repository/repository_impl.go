package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campushq/pulse/internal/ledger/domain"
	"github.com/campushq/pulse/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, txn *domain.Transaction) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO transactions (
			id, wallet_id, event_id, amount_cents, direction, method, status,
			provider, provider_ref, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, provider_ref) DO NOTHING`,
		txn.ID,
		txn.WalletID,
		txn.EventID,
		txn.AmountCents,
		txn.Direction,
		txn.Method,
		txn.Status,
		txn.Provider,
		txn.ProviderRef,
		txn.Metadata,
		txn.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ExistsByProviderRef(ctx context.Context, db *gorm.DB, provider, providerRef string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1)
		 FROM transactions
		 WHERE provider = ? AND provider_ref = ?`,
		provider,
		providerRef,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ListByWallet(ctx context.Context, db *gorm.DB, walletID snowflake.ID, page pagination.Pagination) ([]*domain.Transaction, *pagination.PageInfo, error) {
	limit := page.PageSize
	if limit <= 0 {
		limit = 20
	}

	stmt := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("wallet_id = ?", walletID)

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, nil, err
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, nil, err
		}
		id, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return nil, nil, err
		}
		stmt = stmt.Where("(created_at, id) < (?, ?)", createdAt, id)
	}

	var txns []*domain.Transaction
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&txns).Error
	if err != nil {
		return nil, nil, err
	}

	txns, info := pagination.BuildCursorPageInfo(txns, limit, func(t *domain.Transaction) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        t.ID.String(),
			CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		return token
	})
	return txns, info, nil
}
