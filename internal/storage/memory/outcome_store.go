package memory

import (
	"context"
	"sort"
	"sync"

	"solana-tx-resolver/internal/domain"
	"solana-tx-resolver/internal/storage"
	"solana-tx-resolver/internal/txshape"
)

// OutcomeStore is an in-memory implementation of storage.OutcomeStore.
type OutcomeStore struct {
	mu   sync.RWMutex
	data map[string]domain.LookupOutcome // keyed by outcome_id
}

// NewOutcomeStore creates a new in-memory outcome store.
func NewOutcomeStore() *OutcomeStore {
	return &OutcomeStore{
		data: make(map[string]domain.LookupOutcome),
	}
}

// Insert adds a new outcome. Returns ErrDuplicateKey if outcome_id exists.
func (s *OutcomeStore) Insert(_ context.Context, o *domain.LookupOutcome) error {
	if err := storage.ValidateOutcome(o); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[o.OutcomeID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[o.OutcomeID] = *o
	return nil
}

// InsertBulk adds multiple outcomes atomically. Fails entire batch on any duplicate.
func (s *OutcomeStore) InsertBulk(_ context.Context, outcomes []*domain.LookupOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(outcomes))
	for _, o := range outcomes {
		if err := storage.ValidateOutcome(o); err != nil {
			return err
		}
		if _, dup := seen[o.OutcomeID]; dup {
			return storage.ErrDuplicateKey
		}
		seen[o.OutcomeID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range outcomes {
		if _, exists := s.data[o.OutcomeID]; exists {
			return storage.ErrDuplicateKey
		}
	}
	for _, o := range outcomes {
		s.data[o.OutcomeID] = *o
	}
	return nil
}

// CountByOutcome aggregates outcomes observed within [start, end] (inclusive).
func (s *OutcomeStore) CountByOutcome(_ context.Context, start, end int64) ([]domain.OutcomeCount, error) {
	type key struct {
		shape   txshape.Shape
		outcome domain.Outcome
	}

	s.mu.RLock()
	counts := make(map[key]uint64)
	for _, o := range s.data {
		if o.ObservedAt >= start && o.ObservedAt <= end {
			counts[key{o.Shape, o.Outcome}]++
		}
	}
	s.mu.RUnlock()

	result := make([]domain.OutcomeCount, 0, len(counts))
	for k, n := range counts {
		result = append(result, domain.OutcomeCount{Shape: k.shape, Outcome: k.outcome, Count: n})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Shape != result[j].Shape {
			return result[i].Shape < result[j].Shape
		}
		return result[i].Outcome < result[j].Outcome
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.OutcomeStore = (*OutcomeStore)(nil)
