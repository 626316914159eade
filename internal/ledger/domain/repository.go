package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/campushq/pulse/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert appends the ledger row. When a provider_ref collides with an
	// existing row the insert is a no-op and applied is false; callers treat
	// that as "already applied", not as an error.
	Insert(ctx context.Context, db *gorm.DB, txn *Transaction) (applied bool, err error)
	ExistsByProviderRef(ctx context.Context, db *gorm.DB, provider, providerRef string) (bool, error)
	ListByWallet(ctx context.Context, db *gorm.DB, walletID snowflake.ID, page pagination.Pagination) ([]*Transaction, *pagination.PageInfo, error)
}
