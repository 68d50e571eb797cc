package entity

import (
	"time"

	"github.com/savannahpay/ms-go-payment-gateway/app/types"
)

type Transaction struct {
	ID string

	Method   string
	Provider string

	Amount      float64
	Currency    string
	CustomerID  string
	Description string

	Status                types.PaymentStatus
	ProviderTransactionID string
	CheckoutURL           string

	ErrorKind    types.ErrorKind
	ErrorMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transition applies a status change and reports whether it was applied.
// Terminal states never regress: once completed or failed, every further
// transition is rejected, including a repeat of the same terminal status.
func (t *Transaction) Transition(to types.PaymentStatus, kind types.ErrorKind, message string, now time.Time) bool {
	if t.Status.Terminal() {
		return false
	}
	if to == t.Status {
		return false
	}

	t.Status = to
	if to == types.PaymentStatusFailed {
		t.ErrorKind = kind
		t.ErrorMessage = message
	}
	t.UpdatedAt = now
	return true
}
