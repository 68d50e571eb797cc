package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/savannahpay/ms-go-payment-gateway/app/types"
)

// RunVerifyPendingBatch re-queries providers for pending transactions that
// have not progressed within the stale-after bound. This is how
// hosted-checkout and crypto completions are discovered when the caller
// never polls.
func (s *PaymentService) RunVerifyPendingBatch(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.paymentsCfg.VerifyStaleAfter)
	items, err := s.store.ListPending(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	for _, tx := range items {
		if tx == nil || strings.TrimSpace(tx.ProviderTransactionID) == "" {
			continue
		}
		result := s.Verify(ctx, tx.ProviderTransactionID, tx.Provider)
		if result.ErrorKind != types.ErrorKindNone {
			s.logger.WithFields(logrus.Fields{
				"transaction_id": tx.ID,
				"error_kind":     result.ErrorKind,
			}).Warn("Pending verify attempt failed")
		}
	}

	return nil
}

// RunExpirePendingBatch fails pending transactions older than the pending
// timeout. The crypto provider never reports an explicit failure, so this is
// the caller-side policy that eventually resolves a charge nobody paid.
func (s *PaymentService) RunExpirePendingBatch(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.paymentsCfg.PendingTimeout)
	items, err := s.store.ListPending(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, tx := range items {
		if tx == nil {
			continue
		}
		_, applied, err := s.store.Transition(ctx, tx.ID, types.PaymentStatusFailed, types.ErrorKindTimeout, "payment did not complete within the pending timeout")
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if applied {
			s.logger.WithField("transaction_id", tx.ID).Info("Pending transaction expired")
		}
	}

	return firstErr
}

func keepFirstErr(current, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
