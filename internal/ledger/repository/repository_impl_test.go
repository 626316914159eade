package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/campushq/pulse/internal/ledger/domain"
	ledgerrepo "github.com/campushq/pulse/internal/ledger/repository"
	"github.com/campushq/pulse/internal/migration"
	"github.com/campushq/pulse/pkg/db/pagination"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_ledger_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migration.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTxn(node *snowflake.Node, walletID snowflake.ID, ref *string, createdAt time.Time) *ledgerdomain.Transaction {
	return &ledgerdomain.Transaction{
		ID:          node.Generate(),
		WalletID:    walletID,
		AmountCents: 1000,
		Direction:   ledgerdomain.DirectionIn,
		Method:      ledgerdomain.MethodGateway,
		Status:      ledgerdomain.StatusSucceeded,
		Provider:    ledgerdomain.ProviderPayOS,
		ProviderRef: ref,
		CreatedAt:   createdAt,
	}
}

func TestInsertIsIdempotentPerProviderRef(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := ledgerrepo.Provide()

	node, err := snowflake.NewNode(11)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	walletID := node.Generate()
	ref := "payos-evt-001"
	now := time.Now().UTC()

	applied, err := repo.Insert(ctx, db, newTxn(node, walletID, &ref, now))
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !applied {
		t.Fatal("expected first insert to apply")
	}

	applied, err = repo.Insert(ctx, db, newTxn(node, walletID, &ref, now))
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if applied {
		t.Fatal("expected duplicate provider_ref insert to be a no-op")
	}

	var count int64
	if err := db.Raw(`SELECT COUNT(1) FROM transactions`).Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 ledger row, got %d", count)
	}

	exists, err := repo.ExistsByProviderRef(ctx, db, ledgerdomain.ProviderPayOS, ref)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatal("expected provider_ref to be recorded")
	}
}

func TestNullProviderRefsNeverCollide(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := ledgerrepo.Provide()

	node, err := snowflake.NewNode(12)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	walletID := node.Generate()
	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		applied, err := repo.Insert(ctx, db, newTxn(node, walletID, nil, now))
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if !applied {
			t.Fatalf("expected insert %d without provider_ref to apply", i)
		}
	}
}

func TestListByWalletPagination(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := ledgerrepo.Provide()

	node, err := snowflake.NewNode(13)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	walletID := node.Generate()
	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		ref := fmt.Sprintf("ref-%d", i)
		if _, err := repo.Insert(ctx, db, newTxn(node, walletID, &ref, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	first, info, err := repo.ListByWallet(ctx, db, walletID, pagination.Pagination{PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(first))
	}
	if !info.HasMore {
		t.Fatal("expected more pages")
	}
	if first[0].CreatedAt.Before(first[1].CreatedAt) {
		t.Fatal("expected newest-first ordering")
	}

	rest, info, err := repo.ListByWallet(ctx, db, walletID, pagination.Pagination{PageSize: 2, PageToken: info.NextPageToken})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(rest) != 1 {
		t.Fatalf("expected 1 remaining row, got %d", len(rest))
	}
	if info.HasMore {
		t.Fatal("expected final page")
	}
}
