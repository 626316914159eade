package gateway

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/campushq/pulse/internal/config"
	paymentdomain "github.com/campushq/pulse/internal/payment/domain"
)

var (
	ErrProviderNotFound = errors.New("gateway_provider_not_found")
	ErrGatewayDisabled  = errors.New("gateway_disabled")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrMalformedPayload = errors.New("malformed_payload")
)

// Delivery is the raw inbound material from one gateway callback, before
// authenticity is established. Webhook providers fill Body and Headers;
// redirect providers fill Query.
type Delivery struct {
	Body    []byte
	Headers http.Header
	Query   url.Values
}

// Adapter verifies a delivery against the gateway's shared secret and
// extracts the settlement proof. Verification must fail closed and must
// not reveal whether the referenced order exists.
type Adapter interface {
	Provider() string
	Parse(cfg config.GatewayConfig, delivery Delivery) (paymentdomain.Proof, error)
}

type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	registry := &Registry{adapters: map[string]Adapter{}}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		provider := strings.ToLower(strings.TrimSpace(adapter.Provider()))
		if provider == "" {
			continue
		}
		registry.adapters[provider] = adapter
	}
	return registry
}

func (r *Registry) Get(provider string) (Adapter, error) {
	if r == nil {
		return nil, ErrProviderNotFound
	}
	adapter, ok := r.adapters[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return adapter, nil
}
