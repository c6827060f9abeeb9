package postgres

import (
	"context"
	"fmt"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	"solana-tx-resolver/internal/domain"
	"solana-tx-resolver/internal/storage"
	"solana-tx-resolver/internal/txshape"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
// Payloads are kept as JSONB so they stay queryable; key order is not preserved,
// which decoding does not depend on.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const transactionColumns = `
	lookup_key, signature, shape, encoding, max_version, commitment,
	slot, block_time, payload, fetched_at
`

// Insert adds a validated transaction. Returns ErrDuplicateKey if lookup_key exists.
func (s *TransactionStore) Insert(ctx context.Context, tx *domain.StoredTransaction) (err error) {
	if err := storage.ValidateTransaction(tx); err != nil {
		return err
	}
	defer func(start time.Time) { observe("insert_transaction", start, err) }(time.Now())

	var maxVersion *int16
	if tx.MaxVersion != nil {
		v := int16(*tx.MaxVersion)
		maxVersion = &v
	}

	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = s.pool.Exec(ctx, query,
		tx.LookupKey,
		tx.Signature.String(),
		int16(tx.Shape),
		string(tx.Encoding),
		maxVersion,
		tx.Commitment,
		int64(tx.Slot),
		tx.BlockTime,
		string(tx.Payload),
		tx.FetchedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByKey retrieves a transaction by its lookup key. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByKey(ctx context.Context, lookupKey string) (_ *domain.StoredTransaction, err error) {
	defer func(start time.Time) { observe("get_transaction", start, err) }(time.Now())

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE lookup_key = $1
	`

	tx, err := scanTransaction(s.pool.QueryRow(ctx, query, lookupKey))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction by key: %w", err)
	}
	return tx, nil
}

// GetBySignature retrieves every stored shape of a signature, ordered by fetched_at ASC.
func (s *TransactionStore) GetBySignature(ctx context.Context, signature solanago.Signature) (_ []*domain.StoredTransaction, err error) {
	defer func(start time.Time) { observe("get_transactions_by_signature", start, err) }(time.Now())

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE signature = $1
		ORDER BY fetched_at ASC, lookup_key ASC
	`

	rows, err := s.pool.Query(ctx, query, signature.String())
	if err != nil {
		return nil, fmt.Errorf("query transactions by signature: %w", err)
	}
	defer rows.Close()

	var result []*domain.StoredTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return result, nil
}

func scanTransaction(row pgx.Row) (*domain.StoredTransaction, error) {
	var (
		tx         domain.StoredTransaction
		signature  string
		shape      int16
		encoding   string
		maxVersion *int16
		slot       int64
		payload    []byte
	)

	err := row.Scan(
		&tx.LookupKey,
		&signature,
		&shape,
		&encoding,
		&maxVersion,
		&tx.Commitment,
		&slot,
		&tx.BlockTime,
		&payload,
		&tx.FetchedAt,
	)
	if err != nil {
		return nil, err
	}

	sig, err := solanago.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("parse stored signature %q: %w", signature, err)
	}
	tx.Signature = sig
	tx.Shape = txshape.Shape(shape)
	tx.Encoding = txshape.Encoding(encoding)
	tx.Slot = uint64(slot)
	tx.Payload = payload
	if maxVersion != nil {
		v := uint8(*maxVersion)
		tx.MaxVersion = &v
	}
	return &tx, nil
}
