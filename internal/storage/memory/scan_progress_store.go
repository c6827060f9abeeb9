package memory

import (
	"context"
	"sync"

	solanago "github.com/gagliardetto/solana-go"

	"solana-tx-resolver/internal/storage"
)

// ScanProgressStore is an in-memory implementation of storage.ScanProgressStore.
type ScanProgressStore struct {
	mu      sync.RWMutex
	cursors map[solanago.PublicKey]storage.ScanCursor
}

// NewScanProgressStore creates a new in-memory scan progress store.
func NewScanProgressStore() *ScanProgressStore {
	return &ScanProgressStore{
		cursors: make(map[solanago.PublicKey]storage.ScanCursor),
	}
}

// GetCursor returns the scan cursor for address.
func (s *ScanProgressStore) GetCursor(_ context.Context, address solanago.PublicKey) (*storage.ScanCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cursor, ok := s.cursors[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &cursor, nil
}

// SetCursor saves the scan cursor for address.
func (s *ScanProgressStore) SetCursor(_ context.Context, address solanago.PublicKey, cursor *storage.ScanCursor) error {
	if cursor == nil || address == (solanago.PublicKey{}) {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors[address] = *cursor
	return nil
}

// Verify interface compliance at compile time.
var _ storage.ScanProgressStore = (*ScanProgressStore)(nil)
