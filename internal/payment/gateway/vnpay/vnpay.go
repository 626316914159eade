package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/campushq/pulse/internal/config"
	ledgerdomain "github.com/campushq/pulse/internal/ledger/domain"
	paymentdomain "github.com/campushq/pulse/internal/payment/domain"
	"github.com/campushq/pulse/internal/payment/gateway"
	"gorm.io/datatypes"
)

const (
	paramSecureHash     = "vnp_SecureHash"
	paramSecureHashType = "vnp_SecureHashType"
	paramTxnRef         = "vnp_TxnRef"
	paramAmount         = "vnp_Amount"
	paramTransactionNo  = "vnp_TransactionNo"
	paramResponseCode   = "vnp_ResponseCode"

	responseCodeSuccess = "00"
)

// Adapter handles VNPAY browser redirect callbacks. Authenticity is an
// HMAC-SHA512 over the sorted, URL-encoded query parameters, excluding
// the secure-hash parameters themselves.
type Adapter struct{}

func New() *Adapter { return &Adapter{} }

func (a *Adapter) Provider() string { return ledgerdomain.ProviderVNPay }

func (a *Adapter) Parse(cfg config.GatewayConfig, delivery gateway.Delivery) (paymentdomain.Proof, error) {
	if !cfg.VNPay.Enabled || cfg.VNPay.HashSecret == "" {
		return paymentdomain.Proof{}, gateway.ErrGatewayDisabled
	}

	query := delivery.Query
	signature := strings.TrimSpace(query.Get(paramSecureHash))
	if signature == "" {
		return paymentdomain.Proof{}, gateway.ErrInvalidSignature
	}

	mac := hmac.New(sha512.New, []byte(cfg.VNPay.HashSecret))
	mac.Write([]byte(signedPayload(query)))
	provided, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(provided, mac.Sum(nil)) {
		return paymentdomain.Proof{}, gateway.ErrInvalidSignature
	}

	orderCode, err := strconv.ParseInt(strings.TrimSpace(query.Get(paramTxnRef)), 10, 64)
	if err != nil || orderCode == 0 {
		return paymentdomain.Proof{}, gateway.ErrMalformedPayload
	}

	// vnp_Amount is the amount multiplied by 100.
	rawAmount, err := strconv.ParseInt(strings.TrimSpace(query.Get(paramAmount)), 10, 64)
	if err != nil || rawAmount < 0 || rawAmount%100 != 0 {
		return paymentdomain.Proof{}, gateway.ErrMalformedPayload
	}
	amountCents := rawAmount / 100

	succeeded := query.Get(paramResponseCode) == responseCodeSuccess
	ref := strings.TrimSpace(query.Get(paramTransactionNo))
	if succeeded && ref == "" {
		return paymentdomain.Proof{}, gateway.ErrMalformedPayload
	}

	raw, err := json.Marshal(flatten(query))
	if err != nil {
		return paymentdomain.Proof{}, gateway.ErrMalformedPayload
	}

	return paymentdomain.Proof{
		OrderCode:   &orderCode,
		Provider:    ledgerdomain.ProviderVNPay,
		ProviderRef: ref,
		AmountCents: amountCents,
		Succeeded:   succeeded,
		Raw:         datatypes.JSON(raw),
	}, nil
}

// signedPayload rebuilds the string VNPAY signs: parameters sorted by
// name, URL-encoded, joined with &, minus the hash parameters.
func signedPayload(query url.Values) string {
	keys := make([]string, 0, len(query))
	for key := range query {
		if key == paramSecureHash || key == paramSecureHashType {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(query.Get(key)))
	}
	return b.String()
}

func flatten(query url.Values) map[string]string {
	out := make(map[string]string, len(query))
	for key := range query {
		out[key] = query.Get(key)
	}
	return out
}
