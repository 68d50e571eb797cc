package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/savannahpay/ms-go-payment-gateway/app/provider"
	"github.com/savannahpay/ms-go-payment-gateway/app/store"
	"github.com/savannahpay/ms-go-payment-gateway/app/types"
	"github.com/savannahpay/ms-go-payment-gateway/config"
)

type stubProvider struct {
	name string

	initiateResult *provider.Result
	initiateErr    error
	verifyResult   *provider.Result
	verifyErr      error

	initiateCalls int32
	verifyCalls   int32
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Initiate(_ context.Context, _ *provider.Request) (*provider.Result, error) {
	atomic.AddInt32(&p.initiateCalls, 1)
	return p.initiateResult, p.initiateErr
}

func (p *stubProvider) Verify(_ context.Context, _ string) (*provider.Result, error) {
	atomic.AddInt32(&p.verifyCalls, 1)
	return p.verifyResult, p.verifyErr
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "request timed out" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func newTestService(providers ...provider.Provider) (*PaymentService, *store.MemoryStore) {
	memStore := store.NewMemoryStore()
	svc := NewPaymentService(memStore, provider.NewRegistry(), config.PaymentsConfig{})
	for _, p := range providers {
		svc.Register(p.Name(), p)
	}
	return svc, memStore
}

func TestInitiateUnsupportedMethod(t *testing.T) {
	stub := &stubProvider{name: "mpesa"}
	svc, _ := newTestService(stub)

	result, tx := svc.Initiate(context.Background(), &provider.Request{Method: "carrier_billing", Amount: 10, Currency: "KES"})

	require.Equal(t, types.PaymentStatusFailed, result.Status)
	require.Equal(t, types.ErrorKindUnsupportedMethod, result.ErrorKind)
	require.NotNil(t, tx)
	require.Zero(t, atomic.LoadInt32(&stub.initiateCalls), "no adapter may be invoked for an unregistered method")
}

func TestInitiateDelegatesAndPersists(t *testing.T) {
	stub := &stubProvider{
		name: "mpesa",
		initiateResult: &provider.Result{
			Status:                types.PaymentStatusPending,
			ProviderTransactionID: "ws_CO_1",
			ProviderName:          "mpesa",
		},
	}
	svc, memStore := newTestService(stub)

	result, tx := svc.Initiate(context.Background(), &provider.Request{
		Method:     "mpesa",
		Amount:     500,
		Currency:   "KES",
		CustomerID: "cust-1",
	})

	require.Equal(t, types.PaymentStatusPending, result.Status)
	require.Equal(t, "ws_CO_1", result.ProviderTransactionID)
	require.NotNil(t, tx)

	stored, err := memStore.FindByProviderTransactionID(context.Background(), "mpesa", "ws_CO_1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, types.PaymentStatusPending, stored.Status)
	require.Equal(t, 500.0, stored.Amount)
}

func TestInitiateErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected types.ErrorKind
	}{
		{
			name:     "credential acquisition",
			err:      provider.ErrCredentialAcquisition,
			expected: types.ErrorKindCredentialAcquisitionFailed,
		},
		{
			name:     "context deadline",
			err:      context.DeadlineExceeded,
			expected: types.ErrorKindTimeout,
		},
		{
			name:     "net timeout",
			err:      timeoutError{},
			expected: types.ErrorKindTimeout,
		},
		{
			name:     "generic provider fault",
			err:      errors.New("connection reset"),
			expected: types.ErrorKindProviderError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubProvider{name: "paypal", initiateErr: tt.err}
			svc, _ := newTestService(stub)

			result, _ := svc.Initiate(context.Background(), &provider.Request{Method: "paypal", Amount: 20, Currency: "USD"})

			require.Equal(t, types.PaymentStatusFailed, result.Status)
			require.Equal(t, tt.expected, result.ErrorKind)
			require.NotEmpty(t, result.ErrorMessage)
		})
	}
}

func TestVerifyUnknownProvider(t *testing.T) {
	svc, _ := newTestService()

	result := svc.Verify(context.Background(), "tx-1", "nonexistent")

	require.Equal(t, types.PaymentStatusFailed, result.Status)
	require.Equal(t, types.ErrorKindUnknownProvider, result.ErrorKind)
}

func TestVerifyAppliesTerminalTransition(t *testing.T) {
	stub := &stubProvider{
		name: "paypal",
		initiateResult: &provider.Result{
			Status:                types.PaymentStatusPending,
			ProviderTransactionID: "ORDER-1",
			ProviderName:          "paypal",
		},
		verifyResult: &provider.Result{
			Status:                types.PaymentStatusCompleted,
			ProviderTransactionID: "ORDER-1",
			ProviderName:          "paypal",
		},
	}
	svc, memStore := newTestService(stub)

	_, tx := svc.Initiate(context.Background(), &provider.Request{Method: "paypal", Amount: 20, Currency: "USD"})
	require.NotNil(t, tx)

	result := svc.Verify(context.Background(), "ORDER-1", "paypal")
	require.Equal(t, types.PaymentStatusCompleted, result.Status)

	stored, err := memStore.FindByID(context.Background(), tx.ID)
	require.NoError(t, err)
	require.Equal(t, types.PaymentStatusCompleted, stored.Status)
}

func TestVerifyTerminalRecordShortCircuitsProvider(t *testing.T) {
	stub := &stubProvider{
		name: "paypal",
		initiateResult: &provider.Result{
			Status:                types.PaymentStatusPending,
			ProviderTransactionID: "ORDER-1",
			ProviderName:          "paypal",
		},
		verifyResult: &provider.Result{
			Status:                types.PaymentStatusCompleted,
			ProviderTransactionID: "ORDER-1",
			ProviderName:          "paypal",
		},
	}
	svc, _ := newTestService(stub)

	svc.Initiate(context.Background(), &provider.Request{Method: "paypal", Amount: 20, Currency: "USD"})
	svc.Verify(context.Background(), "ORDER-1", "paypal")

	// The record is now terminal; a later verify must not hit the provider
	// again, and must not regress the state even if the adapter would
	// report something else.
	stub.verifyResult = &provider.Result{
		Status:       types.PaymentStatusFailed,
		ProviderName: "paypal",
		ErrorKind:    types.ErrorKindProviderError,
	}

	result := svc.Verify(context.Background(), "ORDER-1", "paypal")
	require.Equal(t, types.PaymentStatusCompleted, result.Status)
	require.Equal(t, int32(1), atomic.LoadInt32(&stub.verifyCalls))
}

func TestVerifyTransportFailureIsNotPersisted(t *testing.T) {
	stub := &stubProvider{
		name: "paypal",
		initiateResult: &provider.Result{
			Status:                types.PaymentStatusPending,
			ProviderTransactionID: "ORDER-1",
			ProviderName:          "paypal",
		},
		verifyErr: timeoutError{},
	}
	svc, memStore := newTestService(stub)

	_, tx := svc.Initiate(context.Background(), &provider.Request{Method: "paypal", Amount: 20, Currency: "USD"})

	result := svc.Verify(context.Background(), "ORDER-1", "paypal")
	require.Equal(t, types.PaymentStatusFailed, result.Status)
	require.Equal(t, types.ErrorKindTimeout, result.ErrorKind)

	// The stored record stays pending: the provider-side state is unknown
	// and the caller is expected to re-verify.
	stored, err := memStore.FindByID(context.Background(), tx.ID)
	require.NoError(t, err)
	require.Equal(t, types.PaymentStatusPending, stored.Status)
}

func TestRegisterReplacesAdapter(t *testing.T) {
	sandbox := &stubProvider{
		name:           "paypal",
		initiateResult: &provider.Result{Status: types.PaymentStatusPending, ProviderTransactionID: "SANDBOX-1", ProviderName: "paypal"},
	}
	production := &stubProvider{
		name:           "paypal",
		initiateResult: &provider.Result{Status: types.PaymentStatusPending, ProviderTransactionID: "LIVE-1", ProviderName: "paypal"},
	}
	svc, _ := newTestService(sandbox)

	svc.Register("paypal", production)
	result, _ := svc.Initiate(context.Background(), &provider.Request{Method: "paypal", Amount: 20, Currency: "USD"})

	require.Equal(t, "LIVE-1", result.ProviderTransactionID)
	require.Zero(t, atomic.LoadInt32(&sandbox.initiateCalls))
}
