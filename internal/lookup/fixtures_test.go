package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"

	"solana-tx-resolver/internal/domain"
	"solana-tx-resolver/internal/solana/stub"
	"solana-tx-resolver/internal/storage/memory"
	"solana-tx-resolver/internal/txshape"
)

var base64Config = txshape.RequestConfig{
	Encoding:   txshape.EncodingBase64,
	Commitment: rpc.CommitmentConfirmed,
}

func testSignature(b byte) solanago.Signature {
	var sig solanago.Signature
	for i := range sig {
		sig[i] = b
	}
	return sig
}

func testKey(b byte) solanago.PublicKey {
	var pk solanago.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

// base64Payload is a minimal base64/legacy getTransaction result.
func base64Payload(slot uint64) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"slot": %d,
		"blockTime": 1700000000,
		"meta": {
			"err": null,
			"fee": 5000,
			"preBalances": [10, 0],
			"postBalances": [5, 5],
			"logMessages": ["Program log: hi"],
			"status": {"Ok": null}
		},
		"transaction": ["AQID", "base64"]
	}`, slot))
}

// testClock advances one millisecond per reading so outcome IDs never collide.
type testClock struct {
	mu sync.Mutex
	ms int64
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ms++
	return time.UnixMilli(1700000000000 + c.ms)
}

type fixture struct {
	rpc          *stub.RPCClient
	transactions *memory.TransactionStore
	outcomes     *memory.OutcomeStore
	progress     *memory.ScanProgressStore
	service      *Service
}

func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		rpc:          stub.NewRPCClient(),
		transactions: memory.NewTransactionStore(),
		outcomes:     memory.NewOutcomeStore(),
		progress:     memory.NewScanProgressStore(),
	}
	o := Options{
		RPC:          f.rpc,
		Transactions: f.transactions,
		Outcomes:     f.outcomes,
		Progress:     f.progress,
		Now:          (&testClock{}).Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	svc, err := NewService(o)
	require.NoError(t, err)
	f.service = svc
	return f
}

// outcomeCounts returns every recorded outcome keyed by outcome value.
func (f *fixture) outcomeCounts(t *testing.T) map[domain.Outcome]uint64 {
	t.Helper()
	counts, err := f.outcomes.CountByOutcome(context.Background(), 0, 1<<62)
	require.NoError(t, err)
	out := make(map[domain.Outcome]uint64)
	for _, c := range counts {
		out[c.Outcome] += c.Count
	}
	return out
}
