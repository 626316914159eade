package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Ensure returns the user's wallet, creating it with a zero balance on
	// first use. Safe to call concurrently.
	Ensure(ctx context.Context, userID snowflake.ID) (*Wallet, error)
	GetSummary(ctx context.Context, userID snowflake.ID) (Summary, error)
}

var (
	ErrInvalidUser       = errors.New("invalid_user")
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrWalletNotFound    = errors.New("wallet_not_found")
)
