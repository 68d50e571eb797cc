package provider

import (
	"context"
	"encoding/json"

	"github.com/savannahpay/ms-go-payment-gateway/app/types"
)

type Request struct {
	Amount      float64
	Currency    string
	CustomerID  string
	Method      string
	Description string
	Metadata    map[string]string
}

type Result struct {
	Status                types.PaymentStatus
	ProviderTransactionID string
	ProviderName          string

	// CheckoutURL is populated by redirect-style providers: the caller sends
	// the end user there to complete the payment.
	CheckoutURL string

	// RawPayload is the provider's response body, passed through untouched
	// for audit and debugging. Nothing above the adapter parses it.
	RawPayload json.RawMessage

	ErrorKind    types.ErrorKind
	ErrorMessage string
}

// CallbackEvent is the normalized form of an asynchronous provider
// notification. ProviderTransactionID is the correlation key matching the id
// returned by the original Initiate call.
type CallbackEvent struct {
	ProviderTransactionID string
	Status                types.PaymentStatus
	ResultCode            string
	Message               string
	Raw                   json.RawMessage
}

// Provider is the contract every gateway adapter implements. Initiate and
// Verify return an error only for transport-level faults (network failure,
// timeout, malformed provider response, credential acquisition); business
// outcomes, including validation failures and provider-side declines, come
// back as a Result.
type Provider interface {
	Name() string
	Initiate(ctx context.Context, req *Request) (*Result, error)
	Verify(ctx context.Context, providerTxID string) (*Result, error)
}

// CallbackParser is implemented by push-style providers whose completion
// arrives via webhook rather than a status query.
type CallbackParser interface {
	ParseCallback(payload []byte) (*CallbackEvent, error)
}

func failedResult(name string, kind types.ErrorKind, message string) *Result {
	return &Result{
		Status:       types.PaymentStatusFailed,
		ProviderName: name,
		ErrorKind:    kind,
		ErrorMessage: message,
	}
}
