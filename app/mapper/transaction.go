package mapper

import (
	"github.com/savannahpay/ms-go-payment-gateway/app/entity"
	"github.com/savannahpay/ms-go-payment-gateway/app/provider"
	"github.com/savannahpay/ms-go-payment-gateway/app/types"
)

func TransactionToResponse(tx *entity.Transaction) *types.PaymentResponse {
	if tx == nil {
		return nil
	}
	return &types.PaymentResponse{
		TransactionID:         tx.ID,
		Status:                tx.Status,
		ProviderTransactionID: tx.ProviderTransactionID,
		ProviderName:          tx.Provider,
		CheckoutURL:           tx.CheckoutURL,
		ErrorKind:             tx.ErrorKind,
		ErrorMessage:          tx.ErrorMessage,
	}
}

func ResultToResponse(result *provider.Result, transactionID string) *types.PaymentResponse {
	if result == nil {
		return nil
	}
	return &types.PaymentResponse{
		TransactionID:         transactionID,
		Status:                result.Status,
		ProviderTransactionID: result.ProviderTransactionID,
		ProviderName:          result.ProviderName,
		CheckoutURL:           result.CheckoutURL,
		ErrorKind:             result.ErrorKind,
		ErrorMessage:          result.ErrorMessage,
	}
}
