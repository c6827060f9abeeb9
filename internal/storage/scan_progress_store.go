package storage

import (
	"context"

	solanago "github.com/gagliardetto/solana-go"
)

// ScanCursor is the newest signature already scanned for an address.
type ScanCursor struct {
	Slot      uint64
	Signature solanago.Signature
}

// ScanProgressStore provides persistence for per-address scan state.
// This enables resumption after restarts without looking up the same history twice.
type ScanProgressStore interface {
	// GetCursor returns the scan cursor for address.
	// Returns ErrNotFound if the address has never been scanned.
	GetCursor(ctx context.Context, address solanago.PublicKey) (*ScanCursor, error)

	// SetCursor saves the scan cursor for address.
	SetCursor(ctx context.Context, address solanago.PublicKey, cursor *ScanCursor) error
}
