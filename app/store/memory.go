package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/savannahpay/ms-go-payment-gateway/app/entity"
	"github.com/savannahpay/ms-go-payment-gateway/app/types"
)

var ErrTransactionExists = errors.New("transaction already exists")

// MemoryStore is an in-memory transaction store. Persistence is the caller's
// concern in this subsystem; this store is the reference implementation of
// that hook, and the one the service runs with out of the box. All state
// transitions go through Transition, which is atomic under the store lock —
// that is what makes duplicate callback deliveries safe.
type MemoryStore struct {
	mu           sync.RWMutex
	transactions map[string]*entity.Transaction
	byProviderID map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions: make(map[string]*entity.Transaction),
		byProviderID: make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, tx *entity.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[tx.ID]; ok {
		return ErrTransactionExists
	}

	stored := *tx
	s.transactions[tx.ID] = &stored
	if tx.ProviderTransactionID != "" {
		s.byProviderID[providerKey(tx.Provider, tx.ProviderTransactionID)] = tx.ID
	}
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*entity.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, nil
	}
	clone := *tx
	return &clone, nil
}

func (s *MemoryStore) FindByProviderTransactionID(_ context.Context, provider, providerTxID string) (*entity.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byProviderID[providerKey(provider, providerTxID)]
	if !ok {
		return nil, nil
	}
	tx, ok := s.transactions[id]
	if !ok {
		return nil, nil
	}
	clone := *tx
	return &clone, nil
}

// Transition applies a status change atomically. The returned bool reports
// whether the transition was applied; it is false when the record is already
// terminal, which is how a second delivery of the same callback becomes a
// no-op.
func (s *MemoryStore) Transition(_ context.Context, id string, to types.PaymentStatus, kind types.ErrorKind, message string) (*entity.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, false, nil
	}

	applied := tx.Transition(to, kind, message, time.Now().UTC())
	clone := *tx
	return &clone, applied, nil
}

func (s *MemoryStore) ListPending(_ context.Context, olderThan time.Time, limit int) ([]*entity.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*entity.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.Status != types.PaymentStatusPending {
			continue
		}
		if !tx.CreatedAt.Before(olderThan) {
			continue
		}
		clone := *tx
		items = append(items, &clone)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func providerKey(provider, providerTxID string) string {
	return provider + "/" + providerTxID
}
