package storage

import (
	"errors"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"

	"solana-tx-resolver/internal/domain"
)

// Storage errors for append-only stores.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a key that already exists.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidateTransaction rejects transactions that cannot be keyed or decoded later.
func ValidateTransaction(tx *domain.StoredTransaction) error {
	switch {
	case tx == nil:
		return ErrInvalidInput
	case tx.LookupKey == "":
		return fmt.Errorf("%w: empty lookup key", ErrInvalidInput)
	case tx.Signature == (solanago.Signature{}):
		return fmt.Errorf("%w: zero signature", ErrInvalidInput)
	case len(tx.Payload) == 0:
		return fmt.Errorf("%w: empty payload", ErrInvalidInput)
	}
	return nil
}

// ValidateOutcome rejects outcomes without an ID or with an unknown outcome value.
func ValidateOutcome(o *domain.LookupOutcome) error {
	switch {
	case o == nil:
		return ErrInvalidInput
	case o.OutcomeID == "":
		return fmt.Errorf("%w: empty outcome id", ErrInvalidInput)
	case !o.Outcome.IsValid():
		return fmt.Errorf("%w: outcome %q", ErrInvalidInput, o.Outcome)
	}
	return nil
}
