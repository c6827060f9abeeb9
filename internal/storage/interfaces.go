package storage

import (
	"context"

	solanago "github.com/gagliardetto/solana-go"

	"solana-tx-resolver/internal/domain"
)

// TransactionStore provides access to transactions storage.
type TransactionStore interface {
	// Insert adds a validated transaction. Returns ErrDuplicateKey if lookup_key exists.
	Insert(ctx context.Context, tx *domain.StoredTransaction) error

	// GetByKey retrieves a transaction by its lookup key. Returns ErrNotFound if not exists.
	GetByKey(ctx context.Context, lookupKey string) (*domain.StoredTransaction, error)

	// GetBySignature retrieves every stored shape of a signature, ordered by fetched_at ASC.
	GetBySignature(ctx context.Context, signature solanago.Signature) ([]*domain.StoredTransaction, error)
}

// OutcomeStore provides access to lookup_outcomes storage.
type OutcomeStore interface {
	// Insert adds a new outcome. Returns ErrDuplicateKey if outcome_id exists.
	Insert(ctx context.Context, o *domain.LookupOutcome) error

	// InsertBulk adds multiple outcomes atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, outcomes []*domain.LookupOutcome) error

	// CountByOutcome aggregates outcomes observed within [start, end] (inclusive, unix ms),
	// ordered by shape then outcome.
	CountByOutcome(ctx context.Context, start, end int64) ([]domain.OutcomeCount, error)
}
