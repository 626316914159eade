package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	membershipdomain "github.com/campushq/pulse/internal/membership/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log  *zap.Logger
	Repo membershipdomain.Repository
}

type Service struct {
	log  *zap.Logger
	repo membershipdomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		log:  p.Log.Named("membership.service"),
		repo: p.Repo,
	}
}

// ConsumeEventQuota takes one unit of the user's monthly event-creation
// quota, lazily resetting it when a new calendar month has started. Runs
// against the caller's transaction handle so event creation stays atomic.
func (s *Service) ConsumeEventQuota(ctx context.Context, db *gorm.DB, userID snowflake.ID, now time.Time) error {
	m, err := s.repo.FindByUser(ctx, db, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return membershipdomain.ErrNotFound
	}

	periodStart := monthStart(now)
	if m.LastResetAt.Before(periodStart) {
		if err := s.repo.ResetMonthlyQuotaIfNeeded(ctx, db, m.ID, periodStart, now); err != nil {
			return err
		}
	}

	ok, err := s.repo.DecrementQuotaIfAvailable(ctx, db, m.ID, now)
	if err != nil {
		return err
	}
	if !ok {
		return membershipdomain.ErrQuotaExhausted
	}
	return nil
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
