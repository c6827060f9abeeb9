package lookup

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-tx-resolver/internal/domain"
	"solana-tx-resolver/internal/solana"
	"solana-tx-resolver/internal/solana/stub"
	"solana-tx-resolver/internal/storage"
	"solana-tx-resolver/internal/txshape"
)

// history registers n transactions for the address, newest (highest slot) first.
func history(rpcClient *stub.RPCClient, n int, firstByte byte) []solana.SignatureInfo {
	infos := make([]solana.SignatureInfo, n)
	for i := range infos {
		sig := testSignature(firstByte + byte(i))
		slot := uint64(1000 - i)
		infos[i] = solana.SignatureInfo{Signature: sig, Slot: slot}
		rpcClient.AddTransaction(sig, txshape.ShapeBase64Legacy, base64Payload(slot))
	}
	return infos
}

func TestScan_PagesAndSavesCursor(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.PageSize = 2 })
	ctx := context.Background()
	addr := testKey(9)

	infos := history(f.rpc, 5, 1)
	infos[3].Err = json.RawMessage(`{"InstructionError":[0,"Custom"]}`)
	f.rpc.AddSignatures(addr, infos)

	result, err := f.service.Scan(ctx, addr, base64Config, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Signatures)
	assert.Equal(t, 5, result.Found)
	assert.Zero(t, result.Failed)
	require.Len(t, result.Results, 5)
	assert.Equal(t, infos[4].Signature, result.Results[4].Signature)

	cursor, err := f.progress.GetCursor(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, &storage.ScanCursor{Slot: 1000, Signature: infos[0].Signature}, cursor)
	assert.Equal(t, cursor, result.Cursor)
}

func TestScan_ResumesFromCursor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	addr := testKey(9)

	infos := history(f.rpc, 3, 1)
	f.rpc.AddSignatures(addr, infos)

	_, err := f.service.Scan(ctx, addr, base64Config, 0)
	require.NoError(t, err)

	newer := solana.SignatureInfo{Signature: testSignature(50), Slot: 2000}
	f.rpc.AddTransaction(newer.Signature, txshape.ShapeBase64Legacy, base64Payload(2000))
	f.rpc.AddSignatures(addr, append([]solana.SignatureInfo{newer}, infos...))

	result, err := f.service.Scan(ctx, addr, base64Config, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Signatures)
	assert.Equal(t, 1, result.Found)
	assert.Equal(t, newer.Signature, result.Cursor.Signature)

	again, err := f.service.Scan(ctx, addr, base64Config, 0)
	require.NoError(t, err)
	assert.Zero(t, again.Signatures)
	assert.Nil(t, again.Cursor)
}

func TestScan_Limit(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.PageSize = 2 })
	addr := testKey(9)
	f.rpc.AddSignatures(addr, history(f.rpc, 5, 1))

	result, err := f.service.Scan(context.Background(), addr, base64Config, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Signatures)
}

func TestScan_CachedAndMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	addr := testKey(9)

	infos := history(f.rpc, 2, 1)
	missing := solana.SignatureInfo{Signature: testSignature(77), Slot: 1}
	f.rpc.AddSignatures(addr, append(infos, missing))

	_, err := f.service.Lookup(ctx, infos[0].Signature, base64Config)
	require.NoError(t, err)

	result, err := f.service.Scan(ctx, addr, base64Config, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Cached)
	assert.Equal(t, 1, result.Found)
	assert.Equal(t, 1, result.NotFound)
	assert.Equal(t, domain.OutcomeNotFound, result.Results[2].Outcome)
}

func TestScan_TransportFailureKeepsCursor(t *testing.T) {
	f := newFixture(t)
	addr := testKey(9)
	f.rpc.AddSignatures(addr, history(f.rpc, 2, 1))
	f.rpc.SetFailure(stub.ErrUnavailable)

	_, err := f.service.Scan(context.Background(), addr, base64Config, 0)
	assert.ErrorIs(t, err, stub.ErrUnavailable)

	_, err = f.progress.GetCursor(context.Background(), addr)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
