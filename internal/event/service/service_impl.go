package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campushq/pulse/internal/clock"
	escrowdomain "github.com/campushq/pulse/internal/escrow/domain"
	eventdomain "github.com/campushq/pulse/internal/event/domain"
	ledgerdomain "github.com/campushq/pulse/internal/ledger/domain"
	membershipservice "github.com/campushq/pulse/internal/membership/service"
	paymentdomain "github.com/campushq/pulse/internal/payment/domain"
	walletdomain "github.com/campushq/pulse/internal/wallet/domain"
	walletservice "github.com/campushq/pulse/internal/wallet/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxTitleLen = 200

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo        eventdomain.Repository
	EscrowRepo  escrowdomain.Repository
	WalletRepo  walletdomain.Repository
	LedgerRepo  ledgerdomain.Repository
	PaymentRepo paymentdomain.Repository
	Membership  *membershipservice.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo        eventdomain.Repository
	escrowRepo  escrowdomain.Repository
	walletRepo  walletdomain.Repository
	ledgerRepo  ledgerdomain.Repository
	paymentRepo paymentdomain.Repository
	membership  *membershipservice.Service
}

func NewService(p Params) eventdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("event.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		escrowRepo:  p.EscrowRepo,
		walletRepo:  p.WalletRepo,
		ledgerRepo:  p.LedgerRepo,
		paymentRepo: p.PaymentRepo,
		membership:  p.Membership,
	}
}

func (s *Service) Create(ctx context.Context, organizerID snowflake.ID, in eventdomain.CreateEventInput) (*eventdomain.Event, error) {
	now := s.clock.Now()

	title := strings.TrimSpace(in.Title)
	if title == "" || len(title) > maxTitleLen {
		return nil, eventdomain.ErrInvalidTitle
	}
	if in.PriceCents < 0 || in.EscrowMinCents < 0 {
		return nil, eventdomain.ErrInvalidPrice
	}
	if in.Capacity != nil && *in.Capacity <= 0 {
		return nil, eventdomain.ErrInvalidPrice
	}
	if !in.StartsAt.After(now) {
		return nil, eventdomain.ErrInvalidStartTime
	}

	event := eventdomain.Event{
		ID:             s.genID.Generate(),
		OrganizerID:    organizerID,
		Title:          title,
		PriceCents:     in.PriceCents,
		Capacity:       in.Capacity,
		EscrowMinCents: in.EscrowMinCents,
		Status:         eventdomain.StatusDraft,
		StartsAt:       in.StartsAt.UTC(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.membership.ConsumeEventQuota(ctx, tx, organizerID, now); err != nil {
			return err
		}
		return s.repo.Insert(ctx, tx, &event)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event created",
		zap.String("event_id", event.ID.String()),
		zap.String("organizer_id", organizerID.String()),
	)
	return &event, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*eventdomain.Event, error) {
	event, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, eventdomain.ErrNotFound
	}
	return event, nil
}

func (s *Service) Open(ctx context.Context, organizerID, eventID snowflake.ID) (*eventdomain.Event, error) {
	now := s.clock.Now()

	var event *eventdomain.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		event, err = s.repo.FindByID(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if event == nil {
			return eventdomain.ErrNotFound
		}
		if event.OrganizerID != organizerID {
			return eventdomain.ErrNotOrganizer
		}
		if event.Status != eventdomain.StatusDraft {
			return eventdomain.ErrInvalidState
		}

		if event.EscrowMinCents > 0 {
			held := int64(0)
			escrow, err := s.escrowRepo.FindByEvent(ctx, tx, eventID)
			if err != nil {
				return err
			}
			if escrow != nil {
				held = escrow.AmountHoldCents
			}
			if held < event.EscrowMinCents {
				return escrowdomain.NewInsufficientError(event.EscrowMinCents, held)
			}
		}

		if err := s.repo.UpdateStatus(ctx, tx, eventID, eventdomain.StatusOpen, now); err != nil {
			return err
		}
		event.Status = eventdomain.StatusOpen
		event.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event opened", zap.String("event_id", eventID.String()))
	return event, nil
}

func (s *Service) Cancel(ctx context.Context, organizerID, eventID snowflake.ID) (*eventdomain.Event, error) {
	now := s.clock.Now()

	var event *eventdomain.Event
	var refunded int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		event, err = s.repo.FindByID(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if event == nil {
			return eventdomain.ErrNotFound
		}
		if event.OrganizerID != organizerID {
			return eventdomain.ErrNotOrganizer
		}
		if event.Status == eventdomain.StatusCanceled || event.Status == eventdomain.StatusCompleted {
			return eventdomain.ErrInvalidState
		}
		if !now.Before(event.StartsAt) {
			return eventdomain.ErrAlreadyStarted
		}

		regs, err := s.repo.ListSettledRegistrations(ctx, tx, eventID)
		if err != nil {
			return err
		}
		for _, reg := range regs {
			applied, err := s.refundRegistration(ctx, tx, event, reg, now)
			if err != nil {
				return err
			}
			if applied {
				refunded++
			}
			if err := s.repo.UpdateRegistration(ctx, tx, reg.ID, eventdomain.RegistrationRefunded, nil, now); err != nil {
				return err
			}
		}

		// Pending registrations never settled, so there is nothing to
		// refund; release them and cancel their live intents so a payment
		// landing after this point is rejected, not captured.
		pending, err := s.repo.ListPendingRegistrations(ctx, tx, eventID)
		if err != nil {
			return err
		}
		for _, reg := range pending {
			intent, err := s.paymentRepo.FindByRegistrationID(ctx, tx, reg.ID)
			if err != nil {
				return err
			}
			if intent != nil && intent.Status == paymentdomain.StatusRequiresPayment {
				if err := s.paymentRepo.UpdateStatus(ctx, tx, intent.ID, paymentdomain.StatusCanceled, now); err != nil {
					return err
				}
			}
			if err := s.repo.UpdateRegistration(ctx, tx, reg.ID, eventdomain.RegistrationCanceled, nil, now); err != nil {
				return err
			}
		}

		if err := s.repo.UpdateStatus(ctx, tx, eventID, eventdomain.StatusCanceled, now); err != nil {
			return err
		}
		event.Status = eventdomain.StatusCanceled
		event.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event canceled",
		zap.String("event_id", eventID.String()),
		zap.Int("refunds", refunded),
	)
	return event, nil
}

// refundRegistration credits the buyer's wallet with the ticket price. The
// provider_ref refund-<registration id> keeps the credit single-shot even
// if cancel is retried after a partial failure.
func (s *Service) refundRegistration(ctx context.Context, tx *gorm.DB, event *eventdomain.Event, reg *eventdomain.Registration, now time.Time) (bool, error) {
	if event.PriceCents == 0 {
		return false, nil
	}

	wallet, err := walletservice.Ensure(ctx, tx, s.genID, s.walletRepo, reg.UserID)
	if err != nil {
		return false, err
	}

	ref := fmt.Sprintf("refund-%d", reg.ID)
	txn := ledgerdomain.Transaction{
		ID:          s.genID.Generate(),
		WalletID:    wallet.ID,
		EventID:     &event.ID,
		AmountCents: event.PriceCents,
		Direction:   ledgerdomain.DirectionIn,
		Method:      ledgerdomain.MethodWallet,
		Status:      ledgerdomain.StatusSucceeded,
		Provider:    ledgerdomain.ProviderLocal,
		ProviderRef: &ref,
		CreatedAt:   now,
	}
	applied, err := s.ledgerRepo.Insert(ctx, tx, &txn)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}

	ok, err := s.walletRepo.AdjustBalance(ctx, tx, reg.UserID, event.PriceCents, now)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, walletdomain.ErrWalletNotFound
	}
	return true, nil
}
