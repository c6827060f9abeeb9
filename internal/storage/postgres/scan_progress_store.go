package postgres

import (
	"context"
	"fmt"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"solana-tx-resolver/internal/storage"
)

// ScanProgressStore is a PostgreSQL implementation of storage.ScanProgressStore.
// One row per scanned address in scan_progress.
type ScanProgressStore struct {
	pool *Pool
}

// NewScanProgressStore creates a new PostgreSQL scan progress store.
func NewScanProgressStore(pool *Pool) *ScanProgressStore {
	return &ScanProgressStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScanProgressStore = (*ScanProgressStore)(nil)

// GetCursor returns the scan cursor for address.
func (s *ScanProgressStore) GetCursor(ctx context.Context, address solanago.PublicKey) (_ *storage.ScanCursor, err error) {
	defer func(start time.Time) { observe("get_scan_cursor", start, err) }(time.Now())

	row := s.pool.QueryRow(ctx, `
		SELECT slot, signature
		FROM scan_progress
		WHERE address = $1
	`, address.String())

	var (
		slot      int64
		signature string
	)
	if err := row.Scan(&slot, &signature); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get scan cursor: %w", err)
	}

	sig, err := solanago.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("parse stored signature %q: %w", signature, err)
	}
	return &storage.ScanCursor{Slot: uint64(slot), Signature: sig}, nil
}

// SetCursor saves the scan cursor for address.
// Uses upsert to handle initial insert and subsequent updates.
func (s *ScanProgressStore) SetCursor(ctx context.Context, address solanago.PublicKey, cursor *storage.ScanCursor) (err error) {
	if cursor == nil || address == (solanago.PublicKey{}) {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("set_scan_cursor", start, err) }(time.Now())

	_, err = s.pool.Exec(ctx, `
		INSERT INTO scan_progress (address, slot, signature, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (address) DO UPDATE
		SET slot = EXCLUDED.slot,
		    signature = EXCLUDED.signature,
		    updated_at = NOW()
	`, address.String(), int64(cursor.Slot), cursor.Signature.String())
	if err != nil {
		return fmt.Errorf("set scan cursor: %w", err)
	}
	return nil
}
