package vnpay_test

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/campushq/pulse/internal/config"
	"github.com/campushq/pulse/internal/payment/gateway"
	"github.com/campushq/pulse/internal/payment/gateway/vnpay"
)

const hashSecret = "test-hash-secret"

func enabledConfig() config.GatewayConfig {
	return config.GatewayConfig{
		VNPay: config.VNPayConfig{Enabled: true, TmnCode: "TESTTMN", HashSecret: hashSecret},
	}
}

func signQuery(query url.Values) string {
	keys := make([]string, 0, len(query))
	for key := range query {
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(query.Get(key)))
	}
	mac := hmac.New(sha512.New, []byte(hashSecret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

func successQuery() url.Values {
	query := url.Values{}
	query.Set("vnp_TmnCode", "TESTTMN")
	query.Set("vnp_TxnRef", "123456")
	query.Set("vnp_Amount", "500000")
	query.Set("vnp_TransactionNo", "14226112")
	query.Set("vnp_ResponseCode", "00")
	query.Set("vnp_OrderInfo", "Thanh toan ve su kien")
	query.Set("vnp_SecureHash", signQuery(query))
	return query
}

func TestParseSuccessfulCallback(t *testing.T) {
	proof, err := vnpay.New().Parse(enabledConfig(), gateway.Delivery{Query: successQuery()})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if proof.OrderCode == nil || *proof.OrderCode != 123456 {
		t.Fatalf("expected order code 123456, got %v", proof.OrderCode)
	}
	// vnp_Amount carries the amount multiplied by 100.
	if proof.AmountCents != 5000 {
		t.Fatalf("expected amount 5000, got %d", proof.AmountCents)
	}
	if !proof.Succeeded {
		t.Fatal("expected succeeded proof")
	}
	if proof.ProviderRef != "14226112" {
		t.Fatalf("expected transaction no 14226112, got %q", proof.ProviderRef)
	}
}

func TestParseFailedCallback(t *testing.T) {
	query := url.Values{}
	query.Set("vnp_TxnRef", "123456")
	query.Set("vnp_Amount", "500000")
	query.Set("vnp_ResponseCode", "24")
	query.Set("vnp_SecureHash", signQuery(query))

	proof, err := vnpay.New().Parse(enabledConfig(), gateway.Delivery{Query: query})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if proof.Succeeded {
		t.Fatal("expected failed proof")
	}
}

func TestParseRejectsBadSignature(t *testing.T) {
	query := successQuery()
	query.Set("vnp_SecureHash", "deadbeef")
	if _, err := vnpay.New().Parse(enabledConfig(), gateway.Delivery{Query: query}); !errors.Is(err, gateway.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}

	query.Del("vnp_SecureHash")
	if _, err := vnpay.New().Parse(enabledConfig(), gateway.Delivery{Query: query}); !errors.Is(err, gateway.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature on missing hash, got %v", err)
	}
}

func TestParseRejectsTamperedAmount(t *testing.T) {
	query := successQuery()
	query.Set("vnp_Amount", "999900")
	if _, err := vnpay.New().Parse(enabledConfig(), gateway.Delivery{Query: query}); !errors.Is(err, gateway.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
}

func TestParseRejectsMalformedParams(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(url.Values)
	}{
		{"non-numeric txn ref", func(q url.Values) { q.Set("vnp_TxnRef", "abc") }},
		{"zero txn ref", func(q url.Values) { q.Set("vnp_TxnRef", "0") }},
		{"amount not x100", func(q url.Values) { q.Set("vnp_Amount", "500050") }},
		{"negative amount", func(q url.Values) { q.Set("vnp_Amount", "-500000") }},
		{"success without transaction no", func(q url.Values) { q.Del("vnp_TransactionNo") }},
	}
	for _, tc := range cases {
		query := url.Values{}
		query.Set("vnp_TxnRef", "123456")
		query.Set("vnp_Amount", "500000")
		query.Set("vnp_TransactionNo", "14226112")
		query.Set("vnp_ResponseCode", "00")
		tc.mutate(query)
		query.Set("vnp_SecureHash", signQuery(query))

		if _, err := vnpay.New().Parse(enabledConfig(), gateway.Delivery{Query: query}); !errors.Is(err, gateway.ErrMalformedPayload) {
			t.Fatalf("%s: expected malformed payload, got %v", tc.name, err)
		}
	}
}

func TestParseDisabledGateway(t *testing.T) {
	cfg := config.GatewayConfig{VNPay: config.VNPayConfig{Enabled: false}}
	if _, err := vnpay.New().Parse(cfg, gateway.Delivery{Query: successQuery()}); !errors.Is(err, gateway.ErrGatewayDisabled) {
		t.Fatalf("expected gateway disabled, got %v", err)
	}
}
