package payos

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/campushq/pulse/internal/config"
	ledgerdomain "github.com/campushq/pulse/internal/ledger/domain"
	paymentdomain "github.com/campushq/pulse/internal/payment/domain"
	"github.com/campushq/pulse/internal/payment/gateway"
	"gorm.io/datatypes"
)

const signatureHeader = "X-Signature"

// Adapter handles PAYOS server-to-server webhooks. Authenticity is an
// HMAC-SHA256 over the raw request body with the shared checksum key.
type Adapter struct{}

func New() *Adapter { return &Adapter{} }

func (a *Adapter) Provider() string { return ledgerdomain.ProviderPayOS }

type webhookPayload struct {
	Code    string `json:"code"`
	Desc    string `json:"desc"`
	Success bool   `json:"success"`
	Data    struct {
		OrderCode int64  `json:"orderCode"`
		Amount    int64  `json:"amount"`
		Reference string `json:"reference"`
		Code      string `json:"code"`
	} `json:"data"`
}

func (a *Adapter) Parse(cfg config.GatewayConfig, delivery gateway.Delivery) (paymentdomain.Proof, error) {
	if !cfg.PayOS.Enabled || cfg.PayOS.ChecksumKey == "" {
		return paymentdomain.Proof{}, gateway.ErrGatewayDisabled
	}

	signature := strings.TrimSpace(delivery.Headers.Get(signatureHeader))
	if signature == "" {
		return paymentdomain.Proof{}, gateway.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(cfg.PayOS.ChecksumKey))
	mac.Write(delivery.Body)
	provided, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(provided, mac.Sum(nil)) {
		return paymentdomain.Proof{}, gateway.ErrInvalidSignature
	}

	var payload webhookPayload
	if err := json.Unmarshal(delivery.Body, &payload); err != nil {
		return paymentdomain.Proof{}, gateway.ErrMalformedPayload
	}
	if payload.Data.OrderCode == 0 {
		return paymentdomain.Proof{}, gateway.ErrMalformedPayload
	}

	orderCode := payload.Data.OrderCode
	succeeded := payload.Success && payload.Code == "00"
	ref := strings.TrimSpace(payload.Data.Reference)
	if succeeded && ref == "" {
		return paymentdomain.Proof{}, gateway.ErrMalformedPayload
	}

	return paymentdomain.Proof{
		OrderCode:   &orderCode,
		Provider:    ledgerdomain.ProviderPayOS,
		ProviderRef: ref,
		AmountCents: payload.Data.Amount,
		Succeeded:   succeeded,
		Raw:         datatypes.JSON(delivery.Body),
	}, nil
}
