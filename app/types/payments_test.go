package types

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestPaymentStatusTerminal(t *testing.T) {
	if PaymentStatusPending.Terminal() {
		t.Fatal("pending must not be terminal")
	}
	if !PaymentStatusCompleted.Terminal() {
		t.Fatal("completed must be terminal")
	}
	if !PaymentStatusFailed.Terminal() {
		t.Fatal("failed must be terminal")
	}
}

func TestNewInitiatePaymentRequestNormalizes(t *testing.T) {
	e := echo.New()
	body := `{"amount":500,"currency":"kes","customer_id":" cust-1 ","method":" Mobile_Money ","description":" top up "}`
	req := httptest.NewRequest("POST", "/payments", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx := e.NewContext(req, httptest.NewRecorder())

	parsed, err := NewInitiatePaymentRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Currency != "KES" {
		t.Fatalf("currency not normalized: %s", parsed.Currency)
	}
	if parsed.Method != "mobile_money" {
		t.Fatalf("method not normalized: %s", parsed.Method)
	}
	if parsed.CustomerID != "cust-1" {
		t.Fatalf("customer id not trimmed: %q", parsed.CustomerID)
	}
}

func TestInitiatePaymentRequestValidate(t *testing.T) {
	valid := InitiatePaymentRequest{Amount: 10, Currency: "USD", CustomerID: "u1", Method: "crypto"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	tests := []struct {
		name string
		req  InitiatePaymentRequest
	}{
		{"zero amount", InitiatePaymentRequest{Currency: "USD", CustomerID: "u1", Method: "crypto"}},
		{"negative amount", InitiatePaymentRequest{Amount: -5, Currency: "USD", CustomerID: "u1", Method: "crypto"}},
		{"bad currency", InitiatePaymentRequest{Amount: 10, Currency: "US", CustomerID: "u1", Method: "crypto"}},
		{"missing method", InitiatePaymentRequest{Amount: 10, Currency: "USD", CustomerID: "u1"}},
		{"missing customer", InitiatePaymentRequest{Amount: 10, Currency: "USD", Method: "crypto"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestVerifyPaymentRequestValidate(t *testing.T) {
	valid := VerifyPaymentRequest{ProviderTransactionID: "ORDER-1", ProviderName: "paypal"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
	if err := (&VerifyPaymentRequest{ProviderName: "paypal"}).Validate(); err == nil {
		t.Fatal("expected error for missing transaction id")
	}
	if err := (&VerifyPaymentRequest{ProviderTransactionID: "ORDER-1"}).Validate(); err == nil {
		t.Fatal("expected error for missing provider")
	}
}
