package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/campushq/pulse/internal/clock"
	"github.com/campushq/pulse/internal/config"
	"github.com/campushq/pulse/internal/escrow"
	"github.com/campushq/pulse/internal/event"
	"github.com/campushq/pulse/internal/ledger"
	"github.com/campushq/pulse/internal/membership"
	"github.com/campushq/pulse/internal/migration"
	"github.com/campushq/pulse/internal/observability"
	"github.com/campushq/pulse/internal/payment"
	"github.com/campushq/pulse/internal/ratelimit"
	"github.com/campushq/pulse/internal/server"
	"github.com/campushq/pulse/internal/wallet"
	"github.com/campushq/pulse/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,

		wallet.Module,
		ledger.Module,
		escrow.Module,
		membership.Module,
		event.Module,
		payment.Module,
		ratelimit.Module,

		migration.Module,
		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
