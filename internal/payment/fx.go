package payment

import (
	"github.com/campushq/pulse/internal/payment/gateway"
	"github.com/campushq/pulse/internal/payment/gateway/payos"
	"github.com/campushq/pulse/internal/payment/gateway/vnpay"
	"github.com/campushq/pulse/internal/payment/repository"
	paymentservice "github.com/campushq/pulse/internal/payment/service"
	"github.com/campushq/pulse/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(repository.Provide),
	fx.Provide(paymentservice.NewService),
	fx.Provide(newGatewayRegistry),
	fx.Provide(webhook.NewService),
)

func newGatewayRegistry() *gateway.Registry {
	return gateway.NewRegistry(
		payos.New(),
		vnpay.New(),
	)
}
