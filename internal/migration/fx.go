package migration

import (
	"github.com/campushq/pulse/internal/config"
	escrowdomain "github.com/campushq/pulse/internal/escrow/domain"
	eventdomain "github.com/campushq/pulse/internal/event/domain"
	ledgerdomain "github.com/campushq/pulse/internal/ledger/domain"
	membershipdomain "github.com/campushq/pulse/internal/membership/domain"
	paymentdomain "github.com/campushq/pulse/internal/payment/domain"
	"github.com/campushq/pulse/internal/seed"
	walletdomain "github.com/campushq/pulse/internal/wallet/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql run from the model definitions; the SQL
			// migrations are postgres-specific.
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}

		return seed.EnsurePlatformWallet(conn, cfg.PlatformUserID)
	}),
)

// AutoMigrate builds the schema from the gorm models, including the
// partial unique indexes the idempotency and reservation guards rely on.
// Used for non-postgres databases and in-memory test stores.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&walletdomain.Wallet{},
		&ledgerdomain.Transaction{},
		&escrowdomain.Escrow{},
		&eventdomain.Event{},
		&eventdomain.Registration{},
		&paymentdomain.PaymentIntent{},
		&membershipdomain.Membership{},
	); err != nil {
		return err
	}
	if conn.Dialector.Name() != "mysql" {
		if err := conn.Exec(
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_registrations_live
			 ON event_registrations (event_id, user_id)
			 WHERE status IN ('Pending', 'Confirmed', 'CheckedIn')`,
		).Error; err != nil {
			return err
		}
	}
	if conn.Dialector.Name() == "mysql" {
		// MySQL has no partial indexes; NULL provider_refs never collide
		// under a plain unique index, which is all the fence needs.
		return conn.Exec(
			`CREATE UNIQUE INDEX idx_transactions_provider_ref
			 ON transactions (provider, provider_ref)`,
		).Error
	}
	return conn.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_provider_ref
		 ON transactions (provider, provider_ref)
		 WHERE provider_ref IS NOT NULL`,
	).Error
}
