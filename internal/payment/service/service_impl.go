package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campushq/pulse/internal/clock"
	"github.com/campushq/pulse/internal/config"
	escrowdomain "github.com/campushq/pulse/internal/escrow/domain"
	eventdomain "github.com/campushq/pulse/internal/event/domain"
	ledgerdomain "github.com/campushq/pulse/internal/ledger/domain"
	"github.com/campushq/pulse/internal/observability/metrics"
	paymentdomain "github.com/campushq/pulse/internal/payment/domain"
	walletdomain "github.com/campushq/pulse/internal/wallet/domain"
	walletservice "github.com/campushq/pulse/internal/wallet/service"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Cfg        config.Config
	Metrics    *metrics.Metrics
	Repo       paymentdomain.Repository
	EventRepo  eventdomain.Repository
	WalletRepo walletdomain.Repository
	LedgerRepo ledgerdomain.Repository
	EscrowRepo escrowdomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	cfg        config.Config
	metrics    *metrics.Metrics
	repo       paymentdomain.Repository
	eventRepo  eventdomain.Repository
	walletRepo walletdomain.Repository
	ledgerRepo ledgerdomain.Repository
	escrowRepo escrowdomain.Repository
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		cfg:        p.Cfg,
		metrics:    p.Metrics,
		repo:       p.Repo,
		eventRepo:  p.EventRepo,
		walletRepo: p.WalletRepo,
		ledgerRepo: p.LedgerRepo,
		escrowRepo: p.EscrowRepo,
	}
}

func (s *Service) intentTTL() time.Duration {
	return time.Duration(s.cfg.IntentTTLMinutes) * time.Minute
}

func (s *Service) newIntent(userID snowflake.ID, purpose paymentdomain.Purpose, amountCents int64, now time.Time) paymentdomain.PaymentIntent {
	orderCode := int64(s.genID.Generate())
	return paymentdomain.PaymentIntent{
		ID:           s.genID.Generate(),
		UserID:       userID,
		Purpose:      purpose,
		Status:       paymentdomain.StatusRequiresPayment,
		AmountCents:  amountCents,
		OrderCode:    &orderCode,
		ClientSecret: uuid.NewString(),
		ExpiresAt:    now.Add(s.intentTTL()),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CreateTicketIntent admits one buyer into the payment window. Confirmed
// registrations plus live pending intents are counted against capacity
// under serializable isolation, so two concurrent checkouts cannot both
// take the last slot.
func (s *Service) CreateTicketIntent(ctx context.Context, userID, eventID snowflake.ID) (*paymentdomain.PaymentIntent, error) {
	now := s.clock.Now()

	var intent paymentdomain.PaymentIntent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event, err := s.eventRepo.FindByID(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if event == nil {
			return eventdomain.ErrNotFound
		}
		if event.Status != eventdomain.StatusOpen {
			return eventdomain.ErrNotOpen
		}
		if !now.Before(event.StartsAt) {
			return eventdomain.ErrAlreadyStarted
		}

		existing, err := s.eventRepo.FindActiveRegistration(ctx, tx, eventID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			released, err := s.releaseAbandonedRegistration(ctx, tx, existing, now)
			if err != nil {
				return err
			}
			if !released {
				return eventdomain.ErrAlreadyRegistered
			}
		}

		if event.Capacity != nil {
			confirmed, err := s.eventRepo.CountConfirmed(ctx, tx, eventID)
			if err != nil {
				return err
			}
			reserved, err := s.repo.CountActiveTicketIntents(ctx, tx, eventID, now)
			if err != nil {
				return err
			}
			if confirmed+reserved >= int64(*event.Capacity) {
				return eventdomain.ErrCapacityReached
			}
		}

		reg := eventdomain.Registration{
			ID:        s.genID.Generate(),
			EventID:   eventID,
			UserID:    userID,
			Status:    eventdomain.RegistrationPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.eventRepo.InsertRegistration(ctx, tx, &reg); err != nil {
			return err
		}

		intent = s.newIntent(userID, paymentdomain.PurposeEventTicket, event.PriceCents, now)
		intent.EventID = &event.ID
		intent.RegistrationID = &reg.ID
		return s.repo.Insert(ctx, tx, &intent)
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordIntentCreated(ctx, string(paymentdomain.PurposeEventTicket))
	s.log.Info("ticket intent created",
		zap.String("intent_id", intent.ID.String()),
		zap.String("event_id", eventID.String()),
		zap.Int64("amount_cents", intent.AmountCents),
	)
	return &intent, nil
}

func (s *Service) CreateEscrowTopUpIntent(ctx context.Context, organizerID, eventID snowflake.ID, amountCents int64) (*paymentdomain.PaymentIntent, error) {
	now := s.clock.Now()

	if amountCents <= 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}
	if amountCents > s.cfg.EscrowTopUpMaxCents {
		return nil, paymentdomain.ErrAmountTooLarge
	}

	event, err := s.eventRepo.FindByID(ctx, s.db, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, eventdomain.ErrNotFound
	}
	if event.OrganizerID != organizerID {
		return nil, eventdomain.ErrNotOrganizer
	}
	if event.Status == eventdomain.StatusCanceled || event.Status == eventdomain.StatusCompleted {
		return nil, eventdomain.ErrInvalidState
	}

	intent := s.newIntent(organizerID, paymentdomain.PurposeTopUp, amountCents, now)
	intent.EventID = &event.ID
	if err := s.repo.Insert(ctx, s.db.WithContext(ctx), &intent); err != nil {
		return nil, err
	}

	s.metrics.RecordIntentCreated(ctx, string(paymentdomain.PurposeTopUp))
	return &intent, nil
}

func (s *Service) CreateWalletTopUpIntent(ctx context.Context, userID snowflake.ID, amountCents int64) (*paymentdomain.PaymentIntent, error) {
	now := s.clock.Now()

	if !s.cfg.WalletTopUpEnabled {
		return nil, paymentdomain.ErrTopUpDisabled
	}
	if amountCents <= 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}
	if amountCents > s.cfg.WalletTopUpMaxCents {
		return nil, paymentdomain.ErrAmountTooLarge
	}

	intent := s.newIntent(userID, paymentdomain.PurposeWalletTopUp, amountCents, now)
	if err := s.repo.Insert(ctx, s.db.WithContext(ctx), &intent); err != nil {
		return nil, err
	}

	s.metrics.RecordIntentCreated(ctx, string(paymentdomain.PurposeWalletTopUp))
	return &intent, nil
}

func (s *Service) GetIntent(ctx context.Context, userID, intentID snowflake.ID) (*paymentdomain.PaymentIntent, error) {
	intent, err := s.repo.FindByID(ctx, s.db, intentID)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, paymentdomain.ErrIntentNotFound
	}
	if intent.UserID != userID {
		return nil, paymentdomain.ErrNotIntentOwner
	}
	return intent, nil
}

// Confirm settles an intent from the caller's wallet. It is the internal
// proof channel; the intent id doubles as the provider reference.
func (s *Service) Confirm(ctx context.Context, userID, intentID snowflake.ID) (*paymentdomain.PaymentIntent, error) {
	intent, err := s.repo.FindByID(ctx, s.db, intentID)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, paymentdomain.ErrIntentNotFound
	}
	if intent.UserID != userID {
		return nil, paymentdomain.ErrNotIntentOwner
	}

	return s.Settle(ctx, paymentdomain.Proof{
		IntentID:    intent.ID,
		Provider:    ledgerdomain.ProviderLocal,
		ProviderRef: intent.ID.String(),
		AmountCents: intent.AmountCents,
		Succeeded:   true,
	})
}

// Settle is the reconciler. One transaction per invocation; every outcome
// is safe to replay because the terminal-state short circuit and the
// (provider, provider_ref) fence make the money movement single-shot.
func (s *Service) Settle(ctx context.Context, proof paymentdomain.Proof) (*paymentdomain.PaymentIntent, error) {
	now := s.clock.Now()
	outcome := "succeeded"

	var intent *paymentdomain.PaymentIntent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		switch {
		case proof.IntentID != 0:
			intent, err = s.repo.FindByID(ctx, tx, proof.IntentID)
		case proof.OrderCode != nil:
			intent, err = s.repo.FindByOrderCode(ctx, tx, *proof.OrderCode)
		default:
			return paymentdomain.ErrIntentNotFound
		}
		if err != nil {
			return err
		}
		if intent == nil {
			return paymentdomain.ErrIntentNotFound
		}

		if intent.Status == paymentdomain.StatusSucceeded {
			outcome = "noop"
			return nil
		}
		if intent.Status == paymentdomain.StatusCanceled {
			return paymentdomain.ErrIntentCanceled
		}
		if intent.ExpiredAt(now) {
			return paymentdomain.ErrIntentExpired
		}

		if !proof.Succeeded {
			outcome = "canceled"
			return s.cancelIntent(ctx, tx, intent, now)
		}

		if proof.AmountCents != intent.AmountCents {
			return paymentdomain.ErrAmountMismatch
		}
		if proof.ProviderRef == "" {
			return paymentdomain.ErrMissingProvider
		}

		switch intent.Purpose {
		case paymentdomain.PurposeEventTicket:
			return s.settleTicket(ctx, tx, intent, proof, now)
		case paymentdomain.PurposeTopUp:
			return s.settleEscrowTopUp(ctx, tx, intent, proof, now)
		case paymentdomain.PurposeWalletTopUp:
			return s.settleWalletTopUp(ctx, tx, intent, proof, now)
		default:
			return paymentdomain.ErrUnknownPurpose
		}
	})
	if err != nil {
		s.metrics.RecordSettlement(ctx, proof.Provider, "failed")
		return nil, err
	}

	s.metrics.RecordSettlement(ctx, proof.Provider, outcome)
	s.log.Info("intent settled",
		zap.String("intent_id", intent.ID.String()),
		zap.String("provider", proof.Provider),
		zap.String("outcome", outcome),
	)
	return intent, nil
}

// releaseAbandonedRegistration frees a Pending registration whose payment
// window closed without a settlement, so the buyer can start a new checkout.
// A Pending registration with a live unexpired intent is still a real
// reservation and is left alone.
func (s *Service) releaseAbandonedRegistration(ctx context.Context, tx *gorm.DB, reg *eventdomain.Registration, now time.Time) (bool, error) {
	if reg.Status != eventdomain.RegistrationPending {
		return false, nil
	}

	prior, err := s.repo.FindByRegistrationID(ctx, tx, reg.ID)
	if err != nil {
		return false, err
	}
	if prior != nil {
		if prior.Status == paymentdomain.StatusSucceeded {
			return false, nil
		}
		if prior.Status == paymentdomain.StatusRequiresPayment {
			if !prior.ExpiredAt(now) {
				return false, nil
			}
			if err := s.repo.UpdateStatus(ctx, tx, prior.ID, paymentdomain.StatusCanceled, now); err != nil {
				return false, err
			}
		}
	}

	if err := s.eventRepo.UpdateRegistration(ctx, tx, reg.ID, eventdomain.RegistrationCanceled, nil, now); err != nil {
		return false, err
	}
	return true, nil
}

// cancelIntent handles a gateway-reported failure. The ledger is never
// touched; a ticket's pending registration is released so its capacity
// slot frees up.
func (s *Service) cancelIntent(ctx context.Context, tx *gorm.DB, intent *paymentdomain.PaymentIntent, now time.Time) error {
	if intent.Purpose == paymentdomain.PurposeEventTicket && intent.RegistrationID != nil {
		reg, err := s.eventRepo.FindRegistrationByID(ctx, tx, *intent.RegistrationID)
		if err != nil {
			return err
		}
		if reg != nil && reg.Status == eventdomain.RegistrationPending {
			if err := s.eventRepo.UpdateRegistration(ctx, tx, reg.ID, eventdomain.RegistrationCanceled, nil, now); err != nil {
				return err
			}
		}
	}
	if err := s.repo.UpdateStatus(ctx, tx, intent.ID, paymentdomain.StatusCanceled, now); err != nil {
		return err
	}
	intent.Status = paymentdomain.StatusCanceled
	intent.UpdatedAt = now
	return nil
}

func (s *Service) settleTicket(ctx context.Context, tx *gorm.DB, intent *paymentdomain.PaymentIntent, proof paymentdomain.Proof, now time.Time) error {
	if intent.RegistrationID == nil || intent.EventID == nil {
		return eventdomain.ErrRegistrationNotFound
	}

	reg, err := s.eventRepo.FindRegistrationByID(ctx, tx, *intent.RegistrationID)
	if err != nil {
		return err
	}
	if reg == nil {
		return eventdomain.ErrRegistrationNotFound
	}
	if reg.Settled() {
		return s.markSucceeded(ctx, tx, intent, now)
	}
	if reg.Dead() {
		return paymentdomain.ErrStaleProof
	}

	event, err := s.eventRepo.FindByID(ctx, tx, *intent.EventID)
	if err != nil {
		return err
	}
	if event == nil {
		return eventdomain.ErrNotFound
	}
	// A payment landing after the event was canceled or completed must not
	// capture the buyer's money; cancellation has already run its refunds.
	if event.Status == eventdomain.StatusCanceled || event.Status == eventdomain.StatusCompleted {
		return eventdomain.ErrInvalidState
	}
	if event.Capacity != nil {
		confirmed, err := s.eventRepo.CountConfirmed(ctx, tx, *intent.EventID)
		if err != nil {
			return err
		}
		if confirmed >= int64(*event.Capacity) {
			return eventdomain.ErrCapacityReached
		}
	}

	applied, txnID, err := s.appendLedger(ctx, tx, intent, proof, ledgerdomain.DirectionOut, now)
	if err != nil {
		return err
	}
	// Wallet-settled purchases debit the buyer; gateway-settled ones moved
	// money outside the wallet system, so the Out row is the whole record.
	if applied && proof.Provider == ledgerdomain.ProviderLocal {
		ok, err := s.walletRepo.AdjustBalance(ctx, tx, intent.UserID, -intent.AmountCents, now)
		if err != nil {
			return err
		}
		if !ok {
			return walletdomain.ErrInsufficientFunds
		}
	}

	var paid *snowflake.ID
	if applied {
		paid = &txnID
	}
	if err := s.eventRepo.UpdateRegistration(ctx, tx, reg.ID, eventdomain.RegistrationConfirmed, paid, now); err != nil {
		return err
	}
	return s.markSucceeded(ctx, tx, intent, now)
}

func (s *Service) settleEscrowTopUp(ctx context.Context, tx *gorm.DB, intent *paymentdomain.PaymentIntent, proof paymentdomain.Proof, now time.Time) error {
	if intent.EventID == nil {
		return eventdomain.ErrNotFound
	}
	event, err := s.eventRepo.FindByID(ctx, tx, *intent.EventID)
	if err != nil {
		return err
	}
	if event == nil {
		return eventdomain.ErrNotFound
	}

	applied, _, err := s.appendLedger(ctx, tx, intent, proof, ledgerdomain.DirectionIn, now)
	if err != nil {
		return err
	}
	if applied {
		// Top-up funds pass through the organizer's wallet into the hold.
		ok, err := s.walletRepo.AdjustBalance(ctx, tx, event.OrganizerID, intent.AmountCents, now)
		if err != nil {
			return err
		}
		if !ok {
			return walletdomain.ErrWalletNotFound
		}
		escrow := escrowdomain.Escrow{
			ID:              s.genID.Generate(),
			EventID:         event.ID,
			AmountHoldCents: intent.AmountCents,
			Status:          escrowdomain.StatusHeld,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.escrowRepo.AddHold(ctx, tx, &escrow); err != nil {
			return err
		}
	}
	return s.markSucceeded(ctx, tx, intent, now)
}

func (s *Service) settleWalletTopUp(ctx context.Context, tx *gorm.DB, intent *paymentdomain.PaymentIntent, proof paymentdomain.Proof, now time.Time) error {
	applied, _, err := s.appendLedger(ctx, tx, intent, proof, ledgerdomain.DirectionIn, now)
	if err != nil {
		return err
	}
	if applied {
		ok, err := s.walletRepo.AdjustBalance(ctx, tx, intent.UserID, intent.AmountCents, now)
		if err != nil {
			return err
		}
		if !ok {
			return walletdomain.ErrWalletNotFound
		}
	}
	return s.markSucceeded(ctx, tx, intent, now)
}

// appendLedger writes the transaction row for the settled intent. The
// wallet is ensured first so the row always has a home. Reports applied
// false when a prior attempt already recorded this provider_ref, in which
// case the caller only replays status flips.
func (s *Service) appendLedger(ctx context.Context, tx *gorm.DB, intent *paymentdomain.PaymentIntent, proof paymentdomain.Proof, direction ledgerdomain.Direction, now time.Time) (bool, snowflake.ID, error) {
	owner := intent.UserID
	if intent.Purpose == paymentdomain.PurposeTopUp && intent.EventID != nil {
		event, err := s.eventRepo.FindByID(ctx, tx, *intent.EventID)
		if err != nil {
			return false, 0, err
		}
		if event != nil {
			owner = event.OrganizerID
		}
	}

	wallet, err := walletservice.Ensure(ctx, tx, s.genID, s.walletRepo, owner)
	if err != nil {
		return false, 0, err
	}

	exists, err := s.ledgerRepo.ExistsByProviderRef(ctx, tx, proof.Provider, proof.ProviderRef)
	if err != nil {
		return false, 0, err
	}
	if exists {
		return false, 0, nil
	}

	method := ledgerdomain.MethodGateway
	if proof.Provider == ledgerdomain.ProviderLocal {
		method = ledgerdomain.MethodWallet
	}

	ref := proof.ProviderRef
	txn := ledgerdomain.Transaction{
		ID:          s.genID.Generate(),
		WalletID:    wallet.ID,
		EventID:     intent.EventID,
		AmountCents: intent.AmountCents,
		Direction:   direction,
		Method:      method,
		Status:      ledgerdomain.StatusSucceeded,
		Provider:    proof.Provider,
		ProviderRef: &ref,
		Metadata:    proof.Raw,
		CreatedAt:   now,
	}
	applied, err := s.ledgerRepo.Insert(ctx, tx, &txn)
	if err != nil {
		return false, 0, err
	}
	if applied {
		s.metrics.RecordLedgerEntry(ctx, string(direction), string(method))
	}
	return applied, txn.ID, nil
}

func (s *Service) markSucceeded(ctx context.Context, tx *gorm.DB, intent *paymentdomain.PaymentIntent, now time.Time) error {
	if err := s.repo.UpdateStatus(ctx, tx, intent.ID, paymentdomain.StatusSucceeded, now); err != nil {
		return err
	}
	intent.Status = paymentdomain.StatusSucceeded
	intent.UpdatedAt = now
	return nil
}
