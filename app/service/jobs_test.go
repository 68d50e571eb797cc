package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/savannahpay/ms-go-payment-gateway/app/entity"
	"github.com/savannahpay/ms-go-payment-gateway/app/provider"
	"github.com/savannahpay/ms-go-payment-gateway/app/store"
	"github.com/savannahpay/ms-go-payment-gateway/app/types"
	"github.com/savannahpay/ms-go-payment-gateway/config"
)

func seedTx(t *testing.T, memStore *store.MemoryStore, id, providerName, providerTxID string, age time.Duration) {
	t.Helper()
	createdAt := time.Now().UTC().Add(-age)
	require.NoError(t, memStore.Create(context.Background(), &entity.Transaction{
		ID:                    id,
		Provider:              providerName,
		ProviderTransactionID: providerTxID,
		Status:                types.PaymentStatusPending,
		CreatedAt:             createdAt,
		UpdatedAt:             createdAt,
	}))
}

func TestRunExpirePendingBatch(t *testing.T) {
	memStore := store.NewMemoryStore()
	svc := NewPaymentService(memStore, provider.NewRegistry(), config.PaymentsConfig{
		PendingTimeout: 30 * time.Minute,
	})

	seedTx(t, memStore, "tx-stale", "coinbase", "CHARGE1", 2*time.Hour)
	seedTx(t, memStore, "tx-fresh", "coinbase", "CHARGE2", time.Minute)

	require.NoError(t, svc.RunExpirePendingBatch(context.Background()))

	stale, err := memStore.FindByID(context.Background(), "tx-stale")
	require.NoError(t, err)
	require.Equal(t, types.PaymentStatusFailed, stale.Status)
	require.Equal(t, types.ErrorKindTimeout, stale.ErrorKind)

	fresh, err := memStore.FindByID(context.Background(), "tx-fresh")
	require.NoError(t, err)
	require.Equal(t, types.PaymentStatusPending, fresh.Status)
}

func TestRunVerifyPendingBatch(t *testing.T) {
	memStore := store.NewMemoryStore()
	svc := NewPaymentService(memStore, provider.NewRegistry(), config.PaymentsConfig{
		VerifyStaleAfter: 5 * time.Minute,
	})
	svc.Register("paypal", &stubProvider{
		name: "paypal",
		verifyResult: &provider.Result{
			Status:                types.PaymentStatusCompleted,
			ProviderTransactionID: "ORDER-1",
			ProviderName:          "paypal",
		},
	})

	seedTx(t, memStore, "tx-stale", "paypal", "ORDER-1", time.Hour)

	require.NoError(t, svc.RunVerifyPendingBatch(context.Background()))

	stored, err := memStore.FindByID(context.Background(), "tx-stale")
	require.NoError(t, err)
	require.Equal(t, types.PaymentStatusCompleted, stored.Status)
}
