package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	walletdomain "github.com/campushq/pulse/internal/wallet/domain"
	walletrepository "github.com/campushq/pulse/internal/wallet/repository"
	walletservice "github.com/campushq/pulse/internal/wallet/service"
	"gorm.io/gorm"
)

// EnsurePlatformWallet seeds the wallet that collects platform-held funds
// for the configured platform user. Safe to run on every startup.
func EnsurePlatformWallet(db *gorm.DB, platformUserID int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if platformUserID == 0 {
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var repo walletdomain.Repository = walletrepository.Provide()
		_, err := walletservice.Ensure(ctx, tx, node, repo, snowflake.ID(platformUserID))
		return err
	})
}
