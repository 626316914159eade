package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// CreateTicketIntent creates a Pending registration plus its intent in
	// one serializable transaction, reserving a capacity slot for the
	// payment window.
	CreateTicketIntent(ctx context.Context, userID, eventID snowflake.ID) (*PaymentIntent, error)
	CreateEscrowTopUpIntent(ctx context.Context, organizerID, eventID snowflake.ID, amountCents int64) (*PaymentIntent, error)
	CreateWalletTopUpIntent(ctx context.Context, userID snowflake.ID, amountCents int64) (*PaymentIntent, error)

	GetIntent(ctx context.Context, userID, intentID snowflake.ID) (*PaymentIntent, error)

	// Confirm settles the intent from the caller's wallet balance.
	Confirm(ctx context.Context, userID, intentID snowflake.ID) (*PaymentIntent, error)

	// Settle is the reconciler. It applies a proof-of-payment exactly once
	// regardless of channel, ordering, or retries.
	Settle(ctx context.Context, proof Proof) (*PaymentIntent, error)
}
