package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-tx-resolver/internal/domain"
	"solana-tx-resolver/internal/storage"
	"solana-tx-resolver/internal/txshape"
)

// OutcomeStore implements storage.OutcomeStore using ClickHouse.
// The table is a ReplacingMergeTree, so append-only semantics are enforced
// with an existence check before insert.
type OutcomeStore struct {
	conn *Conn
}

// NewOutcomeStore creates a new OutcomeStore.
func NewOutcomeStore(conn *Conn) *OutcomeStore {
	return &OutcomeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.OutcomeStore = (*OutcomeStore)(nil)

const insertOutcomes = `
	INSERT INTO lookup_outcomes (
		outcome_id, signature, shape, outcome, error_kind, error_path,
		slot, duration_ms, observed_at
	)
`

// Insert adds a new outcome. Returns ErrDuplicateKey if outcome_id exists.
func (s *OutcomeStore) Insert(ctx context.Context, o *domain.LookupOutcome) (err error) {
	if err := storage.ValidateOutcome(o); err != nil {
		return err
	}
	defer func(start time.Time) { observe("insert_outcome", start, err) }(time.Now())

	exists, err := s.exists(ctx, o.OutcomeID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	err = s.conn.Exec(ctx, insertOutcomes+` VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OutcomeID, o.Signature, uint8(o.Shape), string(o.Outcome), o.ErrorKind, o.ErrorPath,
		o.Slot, o.DurationMs, o.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// InsertBulk adds multiple outcomes atomically. Fails entire batch on any duplicate.
func (s *OutcomeStore) InsertBulk(ctx context.Context, outcomes []*domain.LookupOutcome) (err error) {
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
	defer func(start time.Time) { observe("insert_outcomes_bulk", start, err) }(time.Now())

	for _, o := range outcomes {
		exists, err := s.exists(ctx, o.OutcomeID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, insertOutcomes)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range outcomes {
		err = batch.Append(
			o.OutcomeID, o.Signature, uint8(o.Shape), string(o.Outcome), o.ErrorKind, o.ErrorPath,
			o.Slot, o.DurationMs, o.ObservedAt,
		)
		if err != nil {
			batch.Abort()
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// CountByOutcome aggregates outcomes observed within [start, end] (inclusive).
func (s *OutcomeStore) CountByOutcome(ctx context.Context, start, end int64) (_ []domain.OutcomeCount, err error) {
	defer func(t time.Time) { observe("count_outcomes", t, err) }(time.Now())

	rows, err := s.conn.Query(ctx, `
		SELECT shape, outcome, count() AS n
		FROM lookup_outcomes FINAL
		WHERE observed_at >= ? AND observed_at <= ?
		GROUP BY shape, outcome
		ORDER BY shape ASC, outcome ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query outcome counts: %w", err)
	}
	defer rows.Close()

	var result []domain.OutcomeCount
	for rows.Next() {
		var (
			shape   uint8
			outcome string
			n       uint64
		)
		if err := rows.Scan(&shape, &outcome, &n); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		result = append(result, domain.OutcomeCount{
			Shape:   txshape.Shape(shape),
			Outcome: domain.Outcome(outcome),
			Count:   n,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome counts: %w", err)
	}
	return result, nil
}

func (s *OutcomeStore) exists(ctx context.Context, outcomeID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count() FROM lookup_outcomes FINAL
		WHERE outcome_id = ?
	`, outcomeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
