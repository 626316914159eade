package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campushq/pulse/internal/event/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO events (
			id, organizer_id, title, price_cents, capacity, escrow_min_cents,
			status, starts_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.OrganizerID,
		event.Title,
		event.PriceCents,
		event.Capacity,
		event.EscrowMinCents,
		event.Status,
		event.StartsAt,
		event.CreatedAt,
		event.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Event, error) {
	var event domain.Event
	err := db.WithContext(ctx).Raw(
		`SELECT id, organizer_id, title, price_cents, capacity, escrow_min_cents,
			status, starts_at, created_at, updated_at
		 FROM events
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE events SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		now,
		id,
	).Error
}

func (r *repo) InsertRegistration(ctx context.Context, db *gorm.DB, reg *domain.Registration) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO event_registrations (
			id, event_id, user_id, status, paid_transaction_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		reg.ID,
		reg.EventID,
		reg.UserID,
		reg.Status,
		reg.PaidTransactionID,
		reg.CreatedAt,
		reg.UpdatedAt,
	).Error
}

func (r *repo) FindRegistrationByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Registration, error) {
	var reg domain.Registration
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_id, user_id, status, paid_transaction_id, created_at, updated_at
		 FROM event_registrations
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&reg).Error
	if err != nil {
		return nil, err
	}
	if reg.ID == 0 {
		return nil, nil
	}
	return &reg, nil
}

func (r *repo) FindActiveRegistration(ctx context.Context, db *gorm.DB, eventID, userID snowflake.ID) (*domain.Registration, error) {
	var reg domain.Registration
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_id, user_id, status, paid_transaction_id, created_at, updated_at
		 FROM event_registrations
		 WHERE event_id = ? AND user_id = ? AND status IN (?, ?, ?)
		 LIMIT 1`,
		eventID,
		userID,
		domain.RegistrationPending,
		domain.RegistrationConfirmed,
		domain.RegistrationCheckedIn,
	).Scan(&reg).Error
	if err != nil {
		return nil, err
	}
	if reg.ID == 0 {
		return nil, nil
	}
	return &reg, nil
}

func (r *repo) ListSettledRegistrations(ctx context.Context, db *gorm.DB, eventID snowflake.ID) ([]*domain.Registration, error) {
	var regs []*domain.Registration
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_id, user_id, status, paid_transaction_id, created_at, updated_at
		 FROM event_registrations
		 WHERE event_id = ? AND status IN (?, ?)`,
		eventID,
		domain.RegistrationConfirmed,
		domain.RegistrationCheckedIn,
	).Scan(&regs).Error
	if err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *repo) ListPendingRegistrations(ctx context.Context, db *gorm.DB, eventID snowflake.ID) ([]*domain.Registration, error) {
	var regs []*domain.Registration
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_id, user_id, status, paid_transaction_id, created_at, updated_at
		 FROM event_registrations
		 WHERE event_id = ? AND status = ?`,
		eventID,
		domain.RegistrationPending,
	).Scan(&regs).Error
	if err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *repo) CountConfirmed(ctx context.Context, db *gorm.DB, eventID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1)
		 FROM event_registrations
		 WHERE event_id = ? AND status IN (?, ?)`,
		eventID,
		domain.RegistrationConfirmed,
		domain.RegistrationCheckedIn,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) UpdateRegistration(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.RegistrationStatus, paidTransactionID *snowflake.ID, now time.Time) error {
	if paidTransactionID != nil {
		return db.WithContext(ctx).Exec(
			`UPDATE event_registrations
			 SET status = ?, paid_transaction_id = ?, updated_at = ?
			 WHERE id = ?`,
			status,
			paidTransactionID,
			now,
			id,
		).Error
	}
	return db.WithContext(ctx).Exec(
		`UPDATE event_registrations
		 SET status = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		now,
		id,
	).Error
}
