package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campushq/pulse/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, intent *domain.PaymentIntent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_intents (
			id, user_id, purpose, status, amount_cents, event_id,
			registration_id, order_code, client_secret, expires_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		intent.ID,
		intent.UserID,
		intent.Purpose,
		intent.Status,
		intent.AmountCents,
		intent.EventID,
		intent.RegistrationID,
		intent.OrderCode,
		intent.ClientSecret,
		intent.ExpiresAt,
		intent.CreatedAt,
		intent.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, purpose, status, amount_cents, event_id,
			registration_id, order_code, client_secret, expires_at,
			created_at, updated_at
		 FROM payment_intents
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&intent).Error
	if err != nil {
		return nil, err
	}
	if intent.ID == 0 {
		return nil, nil
	}
	return &intent, nil
}

func (r *repo) FindByOrderCode(ctx context.Context, db *gorm.DB, orderCode int64) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, purpose, status, amount_cents, event_id,
			registration_id, order_code, client_secret, expires_at,
			created_at, updated_at
		 FROM payment_intents
		 WHERE order_code = ?
		 LIMIT 1`,
		orderCode,
	).Scan(&intent).Error
	if err != nil {
		return nil, err
	}
	if intent.ID == 0 {
		return nil, nil
	}
	return &intent, nil
}

func (r *repo) FindByRegistrationID(ctx context.Context, db *gorm.DB, registrationID snowflake.ID) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, purpose, status, amount_cents, event_id,
			registration_id, order_code, client_secret, expires_at,
			created_at, updated_at
		 FROM payment_intents
		 WHERE registration_id = ?
		 LIMIT 1`,
		registrationID,
	).Scan(&intent).Error
	if err != nil {
		return nil, err
	}
	if intent.ID == 0 {
		return nil, nil
	}
	return &intent, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_intents SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		now,
		id,
	).Error
}

func (r *repo) CountActiveTicketIntents(ctx context.Context, db *gorm.DB, eventID snowflake.ID, now time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1)
		 FROM payment_intents
		 WHERE event_id = ? AND purpose = ? AND status = ? AND expires_at > ?`,
		eventID,
		domain.PurposeEventTicket,
		domain.StatusRequiresPayment,
		now,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
