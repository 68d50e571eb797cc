package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/savannahpay/ms-go-payment-gateway/app/entity"
	"github.com/savannahpay/ms-go-payment-gateway/app/provider"
	"github.com/savannahpay/ms-go-payment-gateway/app/types"
)

// HandleMobileMoneyCallback processes an asynchronous completion notification
// from the mobile-money provider. Processing is idempotent: the transition is
// applied atomically by the store, so a duplicate delivery — or a concurrent
// one — finds the record already terminal and becomes a no-op.
//
// The HTTP acknowledgment to the provider is the controller's concern and
// does not depend on what this method returns.
func (s *PaymentService) HandleMobileMoneyCallback(ctx context.Context, payload []byte) (*entity.Transaction, error) {
	providerClient, err := s.providerReg.Get(provider.MpesaName)
	if err != nil {
		return nil, ErrProviderUnsupported
	}
	parser, ok := providerClient.(provider.CallbackParser)
	if !ok {
		return nil, ErrProviderUnsupported
	}

	event, err := parser.ParseCallback(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCallbackRejected, err)
	}

	tx, err := s.store.FindByProviderTransactionID(ctx, providerClient.Name(), event.ProviderTransactionID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}

	kind := types.ErrorKindNone
	message := ""
	if event.Status == types.PaymentStatusFailed {
		kind = types.ErrorKindProviderError
		message = event.Message
	}

	updated, applied, err := s.store.Transition(ctx, tx.ID, event.Status, kind, message)
	if err != nil {
		return nil, err
	}
	if !applied {
		s.logger.WithFields(logrus.Fields{
			"provider_transaction_id": event.ProviderTransactionID,
			"status":                  updated.Status,
		}).Info("Duplicate callback delivery ignored")
		return updated, nil
	}

	s.logger.WithFields(logrus.Fields{
		"provider_transaction_id": event.ProviderTransactionID,
		"status":                  updated.Status,
		"result_code":             event.ResultCode,
	}).Info("Callback applied")
	return updated, nil
}
