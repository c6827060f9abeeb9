package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-tx-resolver/internal/domain"
	"solana-tx-resolver/internal/idhash"
	"solana-tx-resolver/internal/storage"
	"solana-tx-resolver/internal/txshape"
)

func storedTransaction(t *testing.T, b byte, cfg txshape.RequestConfig, fetchedAt int64) *domain.StoredTransaction {
	t.Helper()

	sig := testSignature(b)
	desc := txshape.Resolve(cfg)

	tx := &domain.StoredTransaction{
		LookupKey:  idhash.ComputeLookupKey(sig, cfg),
		Signature:  sig,
		Shape:      desc.Shape,
		Encoding:   desc.Encoding,
		Commitment: string(cfg.Commitment),
		Slot:       18446744073709551,
		BlockTime:  ptr(int64(1700000000)),
		Payload:    json.RawMessage(`{"slot":18446744073709551,"blockTime":1700000000,"meta":null,"transaction":["AQID","base64"]}`),
		FetchedAt:  fetchedAt,
	}
	if v, ok := cfg.MaxSupportedTransactionVersion.Get(); ok {
		tx.MaxVersion = ptr(v)
	}
	return tx
}

func TestTransactionStore_InsertAndGetByKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransactionStore(pool)
	ctx := context.Background()

	cfg := txshape.RequestConfig{
		Encoding:                       txshape.EncodingBase64,
		MaxSupportedTransactionVersion: txshape.MaxVersion(0),
		Commitment:                     rpc.CommitmentConfirmed,
	}
	tx := storedTransaction(t, 1, cfg, 1700000000123)
	tx.Payload = json.RawMessage(`{"slot":18446744073709551,"blockTime":1700000000,"version":0,"meta":null,"transaction":["AQID","base64"]}`)

	require.NoError(t, store.Insert(ctx, tx))

	got, err := store.GetByKey(ctx, tx.LookupKey)
	require.NoError(t, err)

	assert.Equal(t, tx.Signature, got.Signature)
	assert.Equal(t, txshape.ShapeBase64Versioned, got.Shape)
	assert.Equal(t, txshape.EncodingBase64, got.Encoding)
	require.NotNil(t, got.MaxVersion)
	assert.Equal(t, uint8(0), *got.MaxVersion)
	assert.Equal(t, "confirmed", got.Commitment)
	assert.Equal(t, tx.Slot, got.Slot)
	assert.Equal(t, *tx.BlockTime, *got.BlockTime)
	assert.Equal(t, tx.FetchedAt, got.FetchedAt)
	assert.JSONEq(t, string(tx.Payload), string(got.Payload))

	// JSONB reorders keys; the payload must still decode against its shape.
	rec, err := got.Record()
	require.NoError(t, err)
	assert.Equal(t, tx.Slot, rec.Slot)
	body, ok := rec.Transaction.(*txshape.Base64Body)
	require.True(t, ok)
	raw, err := body.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, raw)
}

func TestTransactionStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransactionStore(pool)
	ctx := context.Background()

	tx := storedTransaction(t, 2, txshape.RequestConfig{Encoding: txshape.EncodingBase64}, 1)
	require.NoError(t, store.Insert(ctx, tx))

	err := store.Insert(ctx, tx)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTransactionStore_GetByKeyNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransactionStore(pool)

	_, err := store.GetByKey(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTransactionStore_GetBySignature(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransactionStore(pool)
	ctx := context.Background()

	legacy := storedTransaction(t, 3, txshape.RequestConfig{Encoding: txshape.EncodingBase64}, 200)
	commitment := storedTransaction(t, 3, txshape.RequestConfig{Encoding: txshape.EncodingBase64, Commitment: rpc.CommitmentProcessed}, 100)
	other := storedTransaction(t, 4, txshape.RequestConfig{Encoding: txshape.EncodingBase64}, 50)

	for _, tx := range []*domain.StoredTransaction{legacy, commitment, other} {
		require.NoError(t, store.Insert(ctx, tx))
	}

	got, err := store.GetBySignature(ctx, testSignature(3))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, commitment.LookupKey, got[0].LookupKey)
	assert.Equal(t, legacy.LookupKey, got[1].LookupKey)
	assert.Nil(t, got[1].MaxVersion)

	none, err := store.GetBySignature(ctx, testSignature(9))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTransactionStore_InvalidInput(t *testing.T) {
	store := NewTransactionStore(nil)

	err := store.Insert(context.Background(), &domain.StoredTransaction{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
