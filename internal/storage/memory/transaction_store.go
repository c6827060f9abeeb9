package memory

import (
	"context"
	"sort"
	"sync"

	solanago "github.com/gagliardetto/solana-go"

	"solana-tx-resolver/internal/domain"
	"solana-tx-resolver/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu          sync.RWMutex
	data        map[string]*domain.StoredTransaction // keyed by lookup_key
	bySignature map[solanago.Signature][]string
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		data:        make(map[string]*domain.StoredTransaction),
		bySignature: make(map[solanago.Signature][]string),
	}
}

// Insert adds a validated transaction. Returns ErrDuplicateKey if lookup_key exists.
func (s *TransactionStore) Insert(_ context.Context, tx *domain.StoredTransaction) error {
	if err := storage.ValidateTransaction(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[tx.LookupKey]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[tx.LookupKey] = copyTransaction(tx)
	s.bySignature[tx.Signature] = append(s.bySignature[tx.Signature], tx.LookupKey)
	return nil
}

// GetByKey retrieves a transaction by its lookup key. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByKey(_ context.Context, lookupKey string) (*domain.StoredTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.data[lookupKey]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyTransaction(tx), nil
}

// GetBySignature retrieves every stored shape of a signature, ordered by fetched_at ASC.
func (s *TransactionStore) GetBySignature(_ context.Context, signature solanago.Signature) ([]*domain.StoredTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.bySignature[signature]
	result := make([]*domain.StoredTransaction, 0, len(keys))
	for _, key := range keys {
		result = append(result, copyTransaction(s.data[key]))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].FetchedAt < result[j].FetchedAt
	})

	return result, nil
}

// copyTransaction prevents callers from mutating stored payloads.
func copyTransaction(tx *domain.StoredTransaction) *domain.StoredTransaction {
	c := *tx
	c.Payload = append([]byte(nil), tx.Payload...)
	if tx.MaxVersion != nil {
		v := *tx.MaxVersion
		c.MaxVersion = &v
	}
	if tx.BlockTime != nil {
		bt := *tx.BlockTime
		c.BlockTime = &bt
	}
	return &c
}

// Verify interface compliance at compile time.
var _ storage.TransactionStore = (*TransactionStore)(nil)
