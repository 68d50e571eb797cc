package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/savannahpay/ms-go-payment-gateway/app/entity"
	"github.com/savannahpay/ms-go-payment-gateway/app/factory"
	"github.com/savannahpay/ms-go-payment-gateway/app/provider"
	"github.com/savannahpay/ms-go-payment-gateway/app/types"
	"github.com/savannahpay/ms-go-payment-gateway/config"
)

const defaultBatchSize = 100

type transactionStore interface {
	Create(ctx context.Context, tx *entity.Transaction) error
	FindByID(ctx context.Context, id string) (*entity.Transaction, error)
	FindByProviderTransactionID(ctx context.Context, provider, providerTxID string) (*entity.Transaction, error)
	Transition(ctx context.Context, id string, to types.PaymentStatus, kind types.ErrorKind, message string) (*entity.Transaction, bool, error)
	ListPending(ctx context.Context, olderThan time.Time, limit int) ([]*entity.Transaction, error)
}

// PaymentService is the single entry point callers use. It owns the adapter
// registry, dispatches Initiate and Verify, and normalizes every adapter
// fault into a Result with a populated error kind — nothing below this
// boundary escapes as a raw error.
type PaymentService struct {
	store       transactionStore
	providerReg *provider.Registry
	paymentsCfg config.PaymentsConfig
	logger      logrus.FieldLogger
}

func NewPaymentService(store transactionStore, providerReg *provider.Registry, paymentsCfg config.PaymentsConfig) *PaymentService {
	return &PaymentService{
		store:       store,
		providerReg: providerReg,
		paymentsCfg: paymentsCfg,
		logger:      factory.NewModuleLogger("payments-service"),
	}
}

// Register adds or replaces an adapter under the given method or provider
// name. Re-registering a key swaps the adapter in place, which is how a
// sandbox-to-production cutover happens without a restart.
func (s *PaymentService) Register(name string, p provider.Provider) {
	s.providerReg.Register(name, p)
}

// Initiate dispatches the request to the adapter registered for its method.
// It never returns an error; the result always carries a persistable status.
// Retries are deliberately absent here: only the caller knows whether
// re-initiating risks a duplicate charge.
func (s *PaymentService) Initiate(ctx context.Context, req *provider.Request) (*provider.Result, *entity.Transaction) {
	providerClient, err := s.providerReg.Get(req.Method)
	if err != nil {
		result := &provider.Result{
			Status:       types.PaymentStatusFailed,
			ErrorKind:    types.ErrorKindUnsupportedMethod,
			ErrorMessage: fmt.Sprintf("no provider registered for method %q", req.Method),
		}
		return result, s.record(ctx, req, result)
	}

	result, err := providerClient.Initiate(ctx, req)
	if err != nil {
		result = s.failureFromError(providerClient.Name(), err)
	}

	return result, s.record(ctx, req, result)
}

// Verify queries the adapter registered under the given provider name for
// the current state of a transaction. If the stored record is already
// terminal the stored outcome is returned without a provider call, so no
// sequence of calls can regress a terminal state. Transport failures
// (including timeouts) are reported to the caller but never persisted as
// terminal, because the underlying provider state is genuinely unknown.
func (s *PaymentService) Verify(ctx context.Context, providerTxID, providerName string) *provider.Result {
	providerClient, err := s.providerReg.Get(providerName)
	if err != nil {
		return &provider.Result{
			Status:                types.PaymentStatusFailed,
			ProviderTransactionID: providerTxID,
			ErrorKind:             types.ErrorKindUnknownProvider,
			ErrorMessage:          fmt.Sprintf("no provider registered under %q", providerName),
		}
	}

	existing, err := s.store.FindByProviderTransactionID(ctx, providerClient.Name(), providerTxID)
	if err != nil {
		s.logger.WithError(err).Warn("Transaction lookup failed during verify")
	}
	if existing != nil && existing.Status.Terminal() {
		return resultFromTransaction(existing)
	}

	result, err := providerClient.Verify(ctx, providerTxID)
	if err != nil {
		return s.failureFromError(providerClient.Name(), err)
	}

	if existing != nil && result.Status.Terminal() {
		updated, applied, err := s.store.Transition(ctx, existing.ID, result.Status, result.ErrorKind, result.ErrorMessage)
		if err != nil {
			s.logger.WithError(err).Error("Transaction transition failed during verify")
		} else if !applied && updated != nil && updated.Status.Terminal() {
			// Lost a race against a callback or concurrent verify; the
			// first terminal outcome wins.
			return resultFromTransaction(updated)
		}
	}

	return result
}

func (s *PaymentService) GetTransaction(ctx context.Context, id string) (*entity.Transaction, error) {
	tx, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}
	return tx, nil
}

func (s *PaymentService) record(ctx context.Context, req *provider.Request, result *provider.Result) *entity.Transaction {
	now := time.Now().UTC()
	tx := &entity.Transaction{
		ID:                    uuid.NewString(),
		Method:                req.Method,
		Provider:              result.ProviderName,
		Amount:                req.Amount,
		Currency:              req.Currency,
		CustomerID:            req.CustomerID,
		Description:           req.Description,
		Status:                result.Status,
		ProviderTransactionID: result.ProviderTransactionID,
		CheckoutURL:           result.CheckoutURL,
		ErrorKind:             result.ErrorKind,
		ErrorMessage:          result.ErrorMessage,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.store.Create(ctx, tx); err != nil {
		s.logger.WithError(err).WithField("transaction_id", tx.ID).Error("Failed to store transaction")
		return nil
	}
	return tx
}

func (s *PaymentService) failureFromError(providerName string, err error) *provider.Result {
	kind := types.ErrorKindProviderError
	switch {
	case errors.Is(err, provider.ErrCredentialAcquisition):
		kind = types.ErrorKindCredentialAcquisitionFailed
	case isTimeout(err):
		kind = types.ErrorKindTimeout
	}

	s.logger.WithError(err).WithFields(logrus.Fields{
		"provider":   providerName,
		"error_kind": kind,
	}).Warn("Provider call failed")

	return &provider.Result{
		Status:       types.PaymentStatusFailed,
		ProviderName: providerName,
		ErrorKind:    kind,
		ErrorMessage: err.Error(),
	}
}

func (s *PaymentService) batchSize() int {
	if s.paymentsCfg.JobBatchSize > 0 {
		return s.paymentsCfg.JobBatchSize
	}
	return defaultBatchSize
}

func resultFromTransaction(tx *entity.Transaction) *provider.Result {
	return &provider.Result{
		Status:                tx.Status,
		ProviderTransactionID: tx.ProviderTransactionID,
		ProviderName:          tx.Provider,
		CheckoutURL:           tx.CheckoutURL,
		ErrorKind:             tx.ErrorKind,
		ErrorMessage:          tx.ErrorMessage,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
