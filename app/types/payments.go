package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

// PaymentStatus is the normalized status shared by every provider adapter.
// Completed and failed are terminal; a transaction only ever moves
// pending -> completed or pending -> failed.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// ErrorKind classifies a failed result regardless of which adapter produced it.
type ErrorKind string

const (
	ErrorKindNone                        ErrorKind = ""
	ErrorKindInvalidRequest              ErrorKind = "invalid_request"
	ErrorKindUnsupportedMethod           ErrorKind = "unsupported_method"
	ErrorKindCredentialAcquisitionFailed ErrorKind = "credential_acquisition_failed"
	ErrorKindProviderError               ErrorKind = "provider_error"
	ErrorKindTimeout                     ErrorKind = "timeout"
	ErrorKindUnknownProvider             ErrorKind = "unknown_provider"
)

type InitiatePaymentRequest struct {
	Amount      float64           `json:"amount"`
	Currency    string            `json:"currency"`
	CustomerID  string            `json:"customer_id"`
	Method      string            `json:"method"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
}

func NewInitiatePaymentRequestFromContext(ctx echo.Context) (*InitiatePaymentRequest, error) {
	var body InitiatePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.CustomerID = strings.TrimSpace(body.CustomerID)
	body.Method = strings.ToLower(strings.TrimSpace(body.Method))
	body.Description = strings.TrimSpace(body.Description)

	return &body, nil
}

func (r *InitiatePaymentRequest) Validate() error {
	if r.Amount <= 0 {
		return errors.New("amount must be > 0")
	}
	if len(strings.TrimSpace(r.Currency)) != 3 {
		return errors.New("currency must be 3 letters")
	}
	if strings.TrimSpace(r.Method) == "" {
		return errors.New("method is required")
	}
	if strings.TrimSpace(r.CustomerID) == "" {
		return errors.New("customer_id is required")
	}
	return nil
}

type VerifyPaymentRequest struct {
	ProviderTransactionID string
	ProviderName          string
}

func NewVerifyPaymentRequestFromContext(ctx echo.Context) (*VerifyPaymentRequest, error) {
	return &VerifyPaymentRequest{
		ProviderTransactionID: strings.TrimSpace(ctx.Param("id")),
		ProviderName:          strings.ToLower(strings.TrimSpace(ctx.QueryParam("provider"))),
	}, nil
}

func (r *VerifyPaymentRequest) Validate() error {
	if r.ProviderTransactionID == "" {
		return errors.New("transaction id is required")
	}
	if r.ProviderName == "" {
		return errors.New("provider query parameter is required")
	}
	return nil
}

type PaymentResponse struct {
	TransactionID         string        `json:"transaction_id,omitempty"`
	Status                PaymentStatus `json:"status"`
	ProviderTransactionID string        `json:"provider_transaction_id,omitempty"`
	ProviderName          string        `json:"provider_name,omitempty"`
	CheckoutURL           string        `json:"checkout_url,omitempty"`
	ErrorKind             ErrorKind     `json:"error_kind,omitempty"`
	ErrorMessage          string        `json:"error_message,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// MobileMoneyCallbackAck is the acknowledgment shape the mobile-money
// provider expects on its callback endpoint. It is returned with HTTP 200
// regardless of downstream processing outcome, so the provider never treats
// a delivered callback as lost and retries it.
type MobileMoneyCallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}
