package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateEventInput struct {
	Title          string    `json:"title"`
	PriceCents     int64     `json:"price_cents"`
	Capacity       *int      `json:"capacity,omitempty"`
	EscrowMinCents int64     `json:"escrow_min_cents"`
	StartsAt       time.Time `json:"starts_at"`
}

type Service interface {
	Create(ctx context.Context, organizerID snowflake.ID, in CreateEventInput) (*Event, error)
	Get(ctx context.Context, id snowflake.ID) (*Event, error)
	// Open moves a Draft event to Open once the escrow hold covers the
	// event's minimum. On shortfall it returns *escrow.InsufficientError
	// carrying the exact top-up needed.
	Open(ctx context.Context, organizerID, eventID snowflake.ID) (*Event, error)
	// Cancel refunds every settled registration to its buyer's wallet and
	// closes the event. Rejected once the event has started.
	Cancel(ctx context.Context, organizerID, eventID snowflake.ID) (*Event, error)
}
