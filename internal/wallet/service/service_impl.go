package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	walletdomain "github.com/campushq/pulse/internal/wallet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  walletdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  walletdomain.Repository
}

func NewService(p Params) walletdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("wallet.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Ensure(ctx context.Context, userID snowflake.ID) (*walletdomain.Wallet, error) {
	return Ensure(ctx, s.db, s.genID, s.repo, userID)
}

// Ensure creates the wallet if missing and reloads on conflict, so two
// concurrent callers converge on the same row. Exported for use inside
// settlement transactions.
func Ensure(ctx context.Context, db *gorm.DB, genID *snowflake.Node, repo walletdomain.Repository, userID snowflake.ID) (*walletdomain.Wallet, error) {
	if userID == 0 {
		return nil, walletdomain.ErrInvalidUser
	}

	existing, err := repo.FindByUser(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	wallet := walletdomain.Wallet{
		ID:           genID.Generate(),
		UserID:       userID,
		BalanceCents: 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := repo.Insert(ctx, db, &wallet); err != nil {
		return nil, err
	}

	// Reload regardless of who won the insert race.
	stored, err := repo.FindByUser(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, errors.New("wallet_missing_after_insert")
	}
	return stored, nil
}

func (s *Service) GetSummary(ctx context.Context, userID snowflake.ID) (walletdomain.Summary, error) {
	wallet, err := s.Ensure(ctx, userID)
	if err != nil {
		return walletdomain.Summary{}, err
	}
	return walletdomain.Summary{
		Exists:       true,
		BalanceCents: wallet.BalanceCents,
	}, nil
}
