package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campushq/pulse/internal/membership/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Membership, error) {
	var m domain.Membership
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, monthly_event_quota, remaining_event_quota,
			last_reset_at, created_at, updated_at
		 FROM memberships
		 WHERE user_id = ?
		 LIMIT 1`,
		userID,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) ResetMonthlyQuotaIfNeeded(ctx context.Context, db *gorm.DB, membershipID snowflake.ID, periodStart, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE memberships
		 SET remaining_event_quota = monthly_event_quota, last_reset_at = ?, updated_at = ?
		 WHERE id = ? AND last_reset_at < ? AND monthly_event_quota >= 0`,
		periodStart,
		now,
		membershipID,
		periodStart,
	).Error
}

func (r *repo) DecrementQuotaIfAvailable(ctx context.Context, db *gorm.DB, membershipID snowflake.ID, now time.Time) (bool, error) {
	// -1 is the unlimited sentinel: the row matches but is left unchanged.
	res := db.WithContext(ctx).Exec(
		`UPDATE memberships
		 SET remaining_event_quota = CASE
				WHEN remaining_event_quota > 0 THEN remaining_event_quota - 1
				ELSE remaining_event_quota
			END,
			updated_at = ?
		 WHERE id = ? AND remaining_event_quota <> 0`,
		now,
		membershipID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
