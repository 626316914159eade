package webhook

import (
	"context"
	"net/http"
	"net/url"

	"github.com/campushq/pulse/internal/config"
	paymentdomain "github.com/campushq/pulse/internal/payment/domain"
	"github.com/campushq/pulse/internal/payment/gateway"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Registry *gateway.Registry
	Holder   *config.GatewayConfigHolder
	Payments paymentdomain.Service
}

// Service is the ingestion edge for gateway deliveries. It authenticates
// the delivery with the provider's adapter, then hands the proof to the
// reconciler. Signature checks run before any database access.
type Service struct {
	log      *zap.Logger
	registry *gateway.Registry
	holder   *config.GatewayConfigHolder
	payments paymentdomain.Service
}

func NewService(p Params) *Service {
	return &Service{
		log:      p.Log.Named("payment.webhook"),
		registry: p.Registry,
		holder:   p.Holder,
		payments: p.Payments,
	}
}

func (s *Service) IngestWebhook(ctx context.Context, provider string, headers http.Header, body []byte) (*paymentdomain.PaymentIntent, error) {
	return s.ingest(ctx, provider, gateway.Delivery{Headers: headers, Body: body})
}

func (s *Service) HandleRedirectCallback(ctx context.Context, provider string, query url.Values) (*paymentdomain.PaymentIntent, error) {
	return s.ingest(ctx, provider, gateway.Delivery{Query: query})
}

func (s *Service) ingest(ctx context.Context, provider string, delivery gateway.Delivery) (*paymentdomain.PaymentIntent, error) {
	adapter, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	proof, err := adapter.Parse(s.holder.Get(), delivery)
	if err != nil {
		s.log.Warn("delivery rejected",
			zap.String("provider", provider),
			zap.Error(err),
		)
		return nil, err
	}

	intent, err := s.payments.Settle(ctx, proof)
	if err != nil {
		return nil, err
	}
	return intent, nil
}
