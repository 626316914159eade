package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	membershipdomain "github.com/campushq/pulse/internal/membership/domain"
	membershiprepo "github.com/campushq/pulse/internal/membership/repository"
	membershipservice "github.com/campushq/pulse/internal/membership/service"
	"github.com/campushq/pulse/internal/migration"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_membership_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migration.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newService(t *testing.T) *membershipservice.Service {
	t.Helper()
	return membershipservice.NewService(membershipservice.Params{
		Log:  zap.NewNop(),
		Repo: membershiprepo.Provide(),
	})
}

func seedMembership(t *testing.T, db *gorm.DB, userID snowflake.ID, quota, remaining int, lastReset time.Time) {
	t.Helper()

	node, err := snowflake.NewNode(20)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	m := membershipdomain.Membership{
		ID:                  node.Generate(),
		UserID:              userID,
		MonthlyEventQuota:   quota,
		RemainingEventQuota: remaining,
		LastResetAt:         lastReset,
		CreatedAt:           lastReset,
		UpdatedAt:           lastReset,
	}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("seed membership: %v", err)
	}
}

func TestConsumeEventQuotaExhaustion(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t)

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	userID := snowflake.ID(1)
	seedMembership(t, db, userID, 2, 2, now.Add(-time.Hour))

	for i := 0; i < 2; i++ {
		if err := svc.ConsumeEventQuota(ctx, db, userID, now); err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
	}

	err := svc.ConsumeEventQuota(ctx, db, userID, now)
	if !errors.Is(err, membershipdomain.ErrQuotaExhausted) {
		t.Fatalf("expected quota exhausted, got %v", err)
	}
}

func TestConsumeEventQuotaResetsOnNewMonth(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t)

	userID := snowflake.ID(2)
	lastMonth := time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)
	seedMembership(t, db, userID, 3, 0, lastMonth)

	now := time.Date(2025, 3, 1, 0, 0, 1, 0, time.UTC)
	if err := svc.ConsumeEventQuota(ctx, db, userID, now); err != nil {
		t.Fatalf("consume after month rollover: %v", err)
	}

	var remaining int
	if err := db.Raw(`SELECT remaining_event_quota FROM memberships WHERE user_id = ?`, userID).Scan(&remaining).Error; err != nil {
		t.Fatalf("read remaining: %v", err)
	}
	if remaining != 2 {
		t.Fatalf("expected remaining 2 after reset and one consume, got %d", remaining)
	}
}

func TestConsumeEventQuotaUnlimited(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t)

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	userID := snowflake.ID(3)
	seedMembership(t, db, userID, membershipdomain.UnlimitedQuota, membershipdomain.UnlimitedQuota, now.Add(-time.Hour))

	for i := 0; i < 10; i++ {
		if err := svc.ConsumeEventQuota(ctx, db, userID, now); err != nil {
			t.Fatalf("unlimited consume %d: %v", i, err)
		}
	}

	var remaining int
	if err := db.Raw(`SELECT remaining_event_quota FROM memberships WHERE user_id = ?`, userID).Scan(&remaining).Error; err != nil {
		t.Fatalf("read remaining: %v", err)
	}
	if remaining != membershipdomain.UnlimitedQuota {
		t.Fatalf("expected unlimited sentinel untouched, got %d", remaining)
	}
}

func TestConsumeEventQuotaMissingMembership(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t)

	err := svc.ConsumeEventQuota(ctx, db, snowflake.ID(99), time.Now().UTC())
	if !errors.Is(err, membershipdomain.ErrNotFound) {
		t.Fatalf("expected membership not found, got %v", err)
	}
}
