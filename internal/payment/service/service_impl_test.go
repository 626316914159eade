package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campushq/pulse/internal/clock"
	"github.com/campushq/pulse/internal/config"
	escrowrepo "github.com/campushq/pulse/internal/escrow/repository"
	eventdomain "github.com/campushq/pulse/internal/event/domain"
	eventrepo "github.com/campushq/pulse/internal/event/repository"
	ledgerdomain "github.com/campushq/pulse/internal/ledger/domain"
	ledgerrepo "github.com/campushq/pulse/internal/ledger/repository"
	"github.com/campushq/pulse/internal/migration"
	paymentdomain "github.com/campushq/pulse/internal/payment/domain"
	paymentrepo "github.com/campushq/pulse/internal/payment/repository"
	paymentservice "github.com/campushq/pulse/internal/payment/service"
	walletdomain "github.com/campushq/pulse/internal/wallet/domain"
	walletrepo "github.com/campushq/pulse/internal/wallet/repository"
	walletservice "github.com/campushq/pulse/internal/wallet/service"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	node      *snowflake.Node
	clock     *clock.FakeClock
	svc       paymentdomain.Service
	eventRepo eventdomain.Repository
}

func testConfig() config.Config {
	return config.Config{
		WalletTopUpEnabled:  true,
		WalletTopUpMaxCents: 1_000_000,
		EscrowTopUpMaxCents: 5_000_000,
		IntentTTLMinutes:    15,
	}
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_payment_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migration.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(31)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	fakeClock := clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	f := &fixture{
		db:        db,
		node:      node,
		clock:     fakeClock,
		eventRepo: eventrepo.Provide(),
	}
	f.svc = paymentservice.NewService(paymentservice.Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      fakeClock,
		Cfg:        testConfig(),
		Metrics:    nil,
		Repo:       paymentrepo.Provide(),
		EventRepo:  f.eventRepo,
		WalletRepo: walletrepo.Provide(),
		LedgerRepo: ledgerrepo.Provide(),
		EscrowRepo: escrowrepo.Provide(),
	})
	return f
}

func (f *fixture) seedOpenEvent(t *testing.T, organizerID snowflake.ID, priceCents int64, capacity *int) *eventdomain.Event {
	t.Helper()
	now := f.clock.Now()
	event := eventdomain.Event{
		ID:          f.node.Generate(),
		OrganizerID: organizerID,
		Title:       "Board Game Night",
		PriceCents:  priceCents,
		Capacity:    capacity,
		Status:      eventdomain.StatusOpen,
		StartsAt:    now.Add(48 * time.Hour),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.eventRepo.Insert(context.Background(), f.db, &event); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return &event
}

func (f *fixture) creditWallet(t *testing.T, userID snowflake.ID, amountCents int64) {
	t.Helper()
	ctx := context.Background()
	repo := walletrepo.Provide()
	if _, err := walletservice.Ensure(ctx, f.db, f.node, repo, userID); err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}
	ok, err := repo.AdjustBalance(ctx, f.db, userID, amountCents, f.clock.Now())
	if err != nil || !ok {
		t.Fatalf("credit wallet: ok=%v err=%v", ok, err)
	}
}

func (f *fixture) balance(t *testing.T, userID snowflake.ID) int64 {
	t.Helper()
	var balance int64
	err := f.db.Raw(`SELECT COALESCE(SUM(balance_cents), 0) FROM wallets WHERE user_id = ?`, userID).Scan(&balance).Error
	if err != nil {
		t.Fatalf("read balance: %v", err)
	}
	return balance
}

func (f *fixture) countTxns(t *testing.T, provider, providerRef string) int64 {
	t.Helper()
	var count int64
	err := f.db.Raw(
		`SELECT COUNT(1) FROM transactions WHERE provider = ? AND provider_ref = ?`,
		provider, providerRef,
	).Scan(&count).Error
	if err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	return count
}

func gatewayProof(intent *paymentdomain.PaymentIntent, ref string) paymentdomain.Proof {
	return paymentdomain.Proof{
		OrderCode:   intent.OrderCode,
		Provider:    ledgerdomain.ProviderPayOS,
		ProviderRef: ref,
		AmountCents: intent.AmountCents,
		Succeeded:   true,
	}
}

func TestGatewaySettledTicket(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	buyer := snowflake.ID(300)
	event := f.seedOpenEvent(t, snowflake.ID(301), 5000, nil)

	intent, err := f.svc.CreateTicketIntent(ctx, buyer, event.ID)
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if intent.Status != paymentdomain.StatusRequiresPayment {
		t.Fatalf("expected RequiresPayment, got %s", intent.Status)
	}

	settled, err := f.svc.Settle(ctx, gatewayProof(intent, "payos-ref-1"))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.Status != paymentdomain.StatusSucceeded {
		t.Fatalf("expected Succeeded, got %s", settled.Status)
	}

	reg, err := f.eventRepo.FindRegistrationByID(ctx, f.db, *intent.RegistrationID)
	if err != nil {
		t.Fatalf("reload registration: %v", err)
	}
	if reg.Status != eventdomain.RegistrationConfirmed {
		t.Fatalf("expected Confirmed, got %s", reg.Status)
	}
	if reg.PaidTransactionID == nil {
		t.Fatal("expected paid transaction id on registration")
	}

	// A gateway settlement moves money outside the wallet system.
	if got := f.balance(t, buyer); got != 0 {
		t.Fatalf("expected untouched wallet, got %d", got)
	}
	if got := f.countTxns(t, ledgerdomain.ProviderPayOS, "payos-ref-1"); got != 1 {
		t.Fatalf("expected 1 ledger row, got %d", got)
	}
}

func TestDuplicateWebhookReplays(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	event := f.seedOpenEvent(t, snowflake.ID(311), 5000, nil)

	intent, err := f.svc.CreateTicketIntent(ctx, snowflake.ID(310), event.ID)
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	proof := gatewayProof(intent, "payos-ref-dup")
	if _, err := f.svc.Settle(ctx, proof); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	replayed, err := f.svc.Settle(ctx, proof)
	if err != nil {
		t.Fatalf("replay settle: %v", err)
	}
	if replayed.Status != paymentdomain.StatusSucceeded {
		t.Fatalf("expected Succeeded on replay, got %s", replayed.Status)
	}
	if got := f.countTxns(t, ledgerdomain.ProviderPayOS, "payos-ref-dup"); got != 1 {
		t.Fatalf("expected single ledger row after replay, got %d", got)
	}
}

func TestSettleAmountMismatch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	event := f.seedOpenEvent(t, snowflake.ID(321), 5000, nil)

	intent, err := f.svc.CreateTicketIntent(ctx, snowflake.ID(320), event.ID)
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	proof := gatewayProof(intent, "payos-ref-bad")
	proof.AmountCents = 4999
	if _, err := f.svc.Settle(ctx, proof); !errors.Is(err, paymentdomain.ErrAmountMismatch) {
		t.Fatalf("expected amount mismatch, got %v", err)
	}
	if got := f.countTxns(t, ledgerdomain.ProviderPayOS, "payos-ref-bad"); got != 0 {
		t.Fatalf("expected no ledger rows, got %d", got)
	}
}

func TestSettleExpiredIntent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	event := f.seedOpenEvent(t, snowflake.ID(331), 5000, nil)

	intent, err := f.svc.CreateTicketIntent(ctx, snowflake.ID(330), event.ID)
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	f.clock.Advance(16 * time.Minute)
	if _, err := f.svc.Settle(ctx, gatewayProof(intent, "payos-ref-late")); !errors.Is(err, paymentdomain.ErrIntentExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestConfirmDebitsBuyerWallet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	buyer := snowflake.ID(340)
	event := f.seedOpenEvent(t, snowflake.ID(341), 5000, nil)
	f.creditWallet(t, buyer, 10000)

	intent, err := f.svc.CreateTicketIntent(ctx, buyer, event.ID)
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	settled, err := f.svc.Confirm(ctx, buyer, intent.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if settled.Status != paymentdomain.StatusSucceeded {
		t.Fatalf("expected Succeeded, got %s", settled.Status)
	}
	if got := f.balance(t, buyer); got != 5000 {
		t.Fatalf("expected 5000 after debit, got %d", got)
	}
	if got := f.countTxns(t, ledgerdomain.ProviderLocal, intent.ID.String()); got != 1 {
		t.Fatalf("expected 1 wallet ledger row, got %d", got)
	}

	// Confirm again is the same settlement replayed.
	if _, err := f.svc.Confirm(ctx, buyer, intent.ID); err != nil {
		t.Fatalf("replay confirm: %v", err)
	}
	if got := f.balance(t, buyer); got != 5000 {
		t.Fatalf("expected balance unchanged after replay, got %d", got)
	}
}

func TestConfirmInsufficientFunds(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	buyer := snowflake.ID(350)
	event := f.seedOpenEvent(t, snowflake.ID(351), 5000, nil)
	f.creditWallet(t, buyer, 100)

	intent, err := f.svc.CreateTicketIntent(ctx, buyer, event.ID)
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	if _, err := f.svc.Confirm(ctx, buyer, intent.ID); !errors.Is(err, walletdomain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	// The whole settlement rolled back; the intent is still payable.
	stored, err := f.svc.GetIntent(ctx, buyer, intent.ID)
	if err != nil {
		t.Fatalf("reload intent: %v", err)
	}
	if stored.Status != paymentdomain.StatusRequiresPayment {
		t.Fatalf("expected RequiresPayment after rollback, got %s", stored.Status)
	}
	if got := f.balance(t, buyer); got != 100 {
		t.Fatalf("expected balance unchanged, got %d", got)
	}
}

func TestGatewayFailureCancelsIntent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	event := f.seedOpenEvent(t, snowflake.ID(361), 5000, nil)

	intent, err := f.svc.CreateTicketIntent(ctx, snowflake.ID(360), event.ID)
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	failure := gatewayProof(intent, "payos-ref-fail")
	failure.Succeeded = false
	canceled, err := f.svc.Settle(ctx, failure)
	if err != nil {
		t.Fatalf("settle failure: %v", err)
	}
	if canceled.Status != paymentdomain.StatusCanceled {
		t.Fatalf("expected Canceled, got %s", canceled.Status)
	}

	reg, err := f.eventRepo.FindRegistrationByID(ctx, f.db, *intent.RegistrationID)
	if err != nil {
		t.Fatalf("reload registration: %v", err)
	}
	if reg.Status != eventdomain.RegistrationCanceled {
		t.Fatalf("expected canceled registration, got %s", reg.Status)
	}
	if got := f.countTxns(t, ledgerdomain.ProviderPayOS, "payos-ref-fail"); got != 0 {
		t.Fatalf("expected no ledger rows on failure, got %d", got)
	}

	// A late success for the same intent must not resurrect it.
	if _, err := f.svc.Settle(ctx, gatewayProof(intent, "payos-ref-late-success")); !errors.Is(err, paymentdomain.ErrIntentCanceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestEscrowTopUpSettlement(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	organizer := snowflake.ID(370)
	event := f.seedOpenEvent(t, organizer, 5000, nil)

	intent, err := f.svc.CreateEscrowTopUpIntent(ctx, organizer, event.ID, 20000)
	if err != nil {
		t.Fatalf("create top-up intent: %v", err)
	}

	proof := gatewayProof(intent, "payos-ref-escrow")
	if _, err := f.svc.Settle(ctx, proof); err != nil {
		t.Fatalf("settle: %v", err)
	}

	if got := f.balance(t, organizer); got != 20000 {
		t.Fatalf("expected organizer wallet 20000, got %d", got)
	}
	escrow, err := escrowrepo.Provide().FindByEvent(ctx, f.db, event.ID)
	if err != nil {
		t.Fatalf("load escrow: %v", err)
	}
	if escrow == nil || escrow.AmountHoldCents != 20000 {
		t.Fatalf("expected hold 20000, got %+v", escrow)
	}

	// Replay must not double the hold or the wallet credit.
	if _, err := f.svc.Settle(ctx, proof); err != nil {
		t.Fatalf("replay settle: %v", err)
	}
	if got := f.balance(t, organizer); got != 20000 {
		t.Fatalf("expected wallet unchanged on replay, got %d", got)
	}
	escrow, err = escrowrepo.Provide().FindByEvent(ctx, f.db, event.ID)
	if err != nil {
		t.Fatalf("reload escrow: %v", err)
	}
	if escrow.AmountHoldCents != 20000 {
		t.Fatalf("expected hold unchanged on replay, got %d", escrow.AmountHoldCents)
	}
}

func TestWalletTopUp(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := snowflake.ID(380)

	intent, err := f.svc.CreateWalletTopUpIntent(ctx, user, 30000)
	if err != nil {
		t.Fatalf("create top-up intent: %v", err)
	}
	if _, err := f.svc.Settle(ctx, gatewayProof(intent, "vnpay-ref-1")); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if got := f.balance(t, user); got != 30000 {
		t.Fatalf("expected 30000, got %d", got)
	}

	if _, err := f.svc.CreateWalletTopUpIntent(ctx, user, 2_000_000); !errors.Is(err, paymentdomain.ErrAmountTooLarge) {
		t.Fatalf("expected amount too large, got %v", err)
	}
	if _, err := f.svc.CreateWalletTopUpIntent(ctx, user, 0); !errors.Is(err, paymentdomain.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestWalletTopUpDisabled(t *testing.T) {
	f := setup(t)
	cfg := testConfig()
	cfg.WalletTopUpEnabled = false
	svc := paymentservice.NewService(paymentservice.Params{
		DB:         f.db,
		Log:        zap.NewNop(),
		GenID:      f.node,
		Clock:      f.clock,
		Cfg:        cfg,
		Metrics:    nil,
		Repo:       paymentrepo.Provide(),
		EventRepo:  f.eventRepo,
		WalletRepo: walletrepo.Provide(),
		LedgerRepo: ledgerrepo.Provide(),
		EscrowRepo: escrowrepo.Provide(),
	})

	if _, err := svc.CreateWalletTopUpIntent(context.Background(), snowflake.ID(390), 100); !errors.Is(err, paymentdomain.ErrTopUpDisabled) {
		t.Fatalf("expected top-up disabled, got %v", err)
	}
}

func TestCapacityCountsLiveIntents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	capacity := 1
	event := f.seedOpenEvent(t, snowflake.ID(401), 5000, &capacity)

	first, err := f.svc.CreateTicketIntent(ctx, snowflake.ID(400), event.ID)
	if err != nil {
		t.Fatalf("first intent: %v", err)
	}

	// The pending intent reserves the only slot.
	if _, err := f.svc.CreateTicketIntent(ctx, snowflake.ID(402), event.ID); !errors.Is(err, eventdomain.ErrCapacityReached) {
		t.Fatalf("expected capacity reached, got %v", err)
	}

	// A gateway failure releases the slot.
	failure := gatewayProof(first, "payos-ref-cap")
	failure.Succeeded = false
	if _, err := f.svc.Settle(ctx, failure); err != nil {
		t.Fatalf("settle failure: %v", err)
	}
	if _, err := f.svc.CreateTicketIntent(ctx, snowflake.ID(402), event.ID); err != nil {
		t.Fatalf("intent after release: %v", err)
	}
}

func TestSettleRejectedForCanceledEvent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	event := f.seedOpenEvent(t, snowflake.ID(431), 5000, nil)

	intent, err := f.svc.CreateTicketIntent(ctx, snowflake.ID(430), event.ID)
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	if err := f.eventRepo.UpdateStatus(ctx, f.db, event.ID, eventdomain.StatusCanceled, f.clock.Now()); err != nil {
		t.Fatalf("cancel event: %v", err)
	}

	// The gateway payment landed after cancellation; capturing it would
	// leave the buyer with no refund path.
	if _, err := f.svc.Settle(ctx, gatewayProof(intent, "payos-ref-dead-event")); !errors.Is(err, eventdomain.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if got := f.countTxns(t, ledgerdomain.ProviderPayOS, "payos-ref-dead-event"); got != 0 {
		t.Fatalf("expected no ledger rows, got %d", got)
	}
	reg, err := f.eventRepo.FindRegistrationByID(ctx, f.db, *intent.RegistrationID)
	if err != nil {
		t.Fatalf("reload registration: %v", err)
	}
	if reg.Status != eventdomain.RegistrationPending {
		t.Fatalf("expected registration untouched, got %s", reg.Status)
	}
}

func TestReRegisterAfterIntentExpiry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	buyer := snowflake.ID(440)
	event := f.seedOpenEvent(t, snowflake.ID(441), 5000, nil)

	first, err := f.svc.CreateTicketIntent(ctx, buyer, event.ID)
	if err != nil {
		t.Fatalf("first intent: %v", err)
	}

	// While the first intent is live the reservation holds.
	if _, err := f.svc.CreateTicketIntent(ctx, buyer, event.ID); !errors.Is(err, eventdomain.ErrAlreadyRegistered) {
		t.Fatalf("expected already registered, got %v", err)
	}

	f.clock.Advance(16 * time.Minute)
	second, err := f.svc.CreateTicketIntent(ctx, buyer, event.ID)
	if err != nil {
		t.Fatalf("intent after expiry: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("expected a fresh intent")
	}

	oldReg, err := f.eventRepo.FindRegistrationByID(ctx, f.db, *first.RegistrationID)
	if err != nil {
		t.Fatalf("reload old registration: %v", err)
	}
	if oldReg.Status != eventdomain.RegistrationCanceled {
		t.Fatalf("expected abandoned registration released, got %s", oldReg.Status)
	}
	oldIntent, err := f.svc.GetIntent(ctx, buyer, first.ID)
	if err != nil {
		t.Fatalf("reload old intent: %v", err)
	}
	if oldIntent.Status != paymentdomain.StatusCanceled {
		t.Fatalf("expected abandoned intent Canceled, got %s", oldIntent.Status)
	}
}

func TestStaleProofForDeadRegistration(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	event := f.seedOpenEvent(t, snowflake.ID(411), 5000, nil)

	intent, err := f.svc.CreateTicketIntent(ctx, snowflake.ID(410), event.ID)
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if err := f.eventRepo.UpdateRegistration(ctx, f.db, *intent.RegistrationID, eventdomain.RegistrationCanceled, nil, f.clock.Now()); err != nil {
		t.Fatalf("cancel registration: %v", err)
	}

	if _, err := f.svc.Settle(ctx, gatewayProof(intent, "payos-ref-stale")); !errors.Is(err, paymentdomain.ErrStaleProof) {
		t.Fatalf("expected stale proof, got %v", err)
	}
}

func TestSettleUnknownOrderCode(t *testing.T) {
	f := setup(t)
	unknown := int64(424242)
	_, err := f.svc.Settle(context.Background(), paymentdomain.Proof{
		OrderCode:   &unknown,
		Provider:    ledgerdomain.ProviderVNPay,
		ProviderRef: "vnpay-ref-unknown",
		AmountCents: 1000,
		Succeeded:   true,
	})
	if !errors.Is(err, paymentdomain.ErrIntentNotFound) {
		t.Fatalf("expected intent not found, got %v", err)
	}
}

func TestGetIntentOwnership(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	event := f.seedOpenEvent(t, snowflake.ID(421), 5000, nil)

	intent, err := f.svc.CreateTicketIntent(ctx, snowflake.ID(420), event.ID)
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if _, err := f.svc.GetIntent(ctx, snowflake.ID(999), intent.ID); !errors.Is(err, paymentdomain.ErrNotIntentOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
}
