package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campushq/pulse/internal/migration"
	walletdomain "github.com/campushq/pulse/internal/wallet/domain"
	walletrepo "github.com/campushq/pulse/internal/wallet/repository"
	walletservice "github.com/campushq/pulse/internal/wallet/service"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_wallet_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migration.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newService(t *testing.T, db *gorm.DB) walletdomain.Service {
	t.Helper()

	node, err := snowflake.NewNode(10)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return walletservice.NewService(walletservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  walletrepo.Provide(),
	})
}

func TestEnsureConvergesOnOneWallet(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	userID := snowflake.ID(42)
	first, err := svc.Ensure(ctx, userID)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	second, err := svc.Ensure(ctx, userID)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected one wallet, got %s and %s", first.ID, second.ID)
	}
	if second.BalanceCents != 0 {
		t.Fatalf("expected zero balance, got %d", second.BalanceCents)
	}

	var count int64
	if err := db.Raw(`SELECT COUNT(1) FROM wallets WHERE user_id = ?`, userID).Scan(&count).Error; err != nil {
		t.Fatalf("count wallets: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 wallet row, got %d", count)
	}
}

func TestEnsureRejectsZeroUser(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	if _, err := svc.Ensure(ctx, 0); err == nil {
		t.Fatal("expected error for zero user id")
	}
}

func TestAdjustBalanceNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)
	repo := walletrepo.Provide()

	userID := snowflake.ID(7)
	if _, err := svc.Ensure(ctx, userID); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ok, err := repo.AdjustBalance(ctx, db, userID, 500, now)
	if err != nil || !ok {
		t.Fatalf("credit 500: ok=%v err=%v", ok, err)
	}

	ok, err = repo.AdjustBalance(ctx, db, userID, -600, now)
	if err != nil {
		t.Fatalf("overdraft attempt: %v", err)
	}
	if ok {
		t.Fatal("expected overdraft to be rejected")
	}

	summary, err := svc.GetSummary(ctx, userID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.BalanceCents != 500 {
		t.Fatalf("expected balance 500 after rejected overdraft, got %d", summary.BalanceCents)
	}

	ok, err = repo.AdjustBalance(ctx, db, userID, -500, now)
	if err != nil || !ok {
		t.Fatalf("drain to zero: ok=%v err=%v", ok, err)
	}

	wallet, err := repo.FindByUser(ctx, db, userID)
	if err != nil {
		t.Fatalf("reload wallet: %v", err)
	}
	if !wallet.UpdatedAt.Equal(now) {
		t.Fatalf("expected updated_at stamped with caller time, got %s", wallet.UpdatedAt)
	}
}
