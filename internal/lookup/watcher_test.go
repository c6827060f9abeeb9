package lookup

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-tx-resolver/internal/domain"
	"solana-tx-resolver/internal/solana"
	"solana-tx-resolver/internal/txshape"
)

// fakeWS hands out one channel per SubscribeLogs call.
type fakeWS struct {
	mu      sync.Mutex
	filters []solana.LogsFilter
	chans   []chan solana.LogNotification
}

func (f *fakeWS) SubscribeLogs(_ context.Context, filter solana.LogsFilter) (<-chan solana.LogNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan solana.LogNotification, 10)
	f.filters = append(f.filters, filter)
	f.chans = append(f.chans, ch)
	return ch, nil
}

func (f *fakeWS) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.chans {
		close(ch)
	}
	f.chans = nil
	return nil
}

func (f *fakeWS) send(i int, n solana.LogNotification) {
	f.mu.Lock()
	ch := f.chans[i]
	f.mu.Unlock()
	ch <- n
}

func receive(t *testing.T, ch <-chan *Result) *Result {
	t.Helper()
	select {
	case res, ok := <-ch:
		require.True(t, ok, "results channel closed")
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
		return nil
	}
}

func TestNewWatcher_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := NewWatcher(WatcherOptions{Service: f.service})
	assert.ErrorIs(t, err, ErrNoWSClient)

	_, err = NewWatcher(WatcherOptions{WS: &fakeWS{}, Service: f.service, Config: txshape.RequestConfig{Encoding: "hex"}})
	assert.ErrorIs(t, err, txshape.ErrInvalidEnumValue)
}

func TestWatcher_Subscribe(t *testing.T) {
	f := newFixture(t)
	ws := &fakeWS{}
	mentions := []solanago.PublicKey{testKey(1), testKey(2)}

	w, err := NewWatcher(WatcherOptions{
		WS:         ws,
		Service:    f.service,
		Mentions:   mentions,
		Config:     base64Config,
		SkipFailed: true,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results, err := w.Subscribe(ctx)
	require.NoError(t, err)

	require.Len(t, ws.filters, 2, "one subscription per address")
	assert.Equal(t, []solanago.PublicKey{testKey(1)}, ws.filters[0].Mentions)
	assert.Equal(t, base64Config.Commitment, ws.filters[1].Commitment)

	ok := testSignature(10)
	failed := testSignature(11)
	f.rpc.AddTransaction(ok, txshape.ShapeBase64Legacy, base64Payload(42))
	f.rpc.AddTransaction(failed, txshape.ShapeBase64Legacy, base64Payload(43))

	ws.send(0, solana.LogNotification{Signature: failed, Slot: 43, Err: json.RawMessage(`{"InstructionError":[0,"Custom"]}`)})
	ws.send(0, solana.LogNotification{Signature: ok, Slot: 42})
	ws.send(1, solana.LogNotification{Signature: ok, Slot: 42})

	res := receive(t, results)
	assert.Equal(t, ok, res.Signature)
	assert.Equal(t, domain.OutcomeFound, res.Outcome)

	// Delivered twice, looked up once.
	select {
	case extra := <-results:
		t.Fatalf("unexpected result for %s", extra.Signature)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Len(t, f.rpc.Calls(), 1)
}

func TestWatcher_RetriesUntilServed(t *testing.T) {
	f := newFixture(t)
	ws := &fakeWS{}

	w, err := NewWatcher(WatcherOptions{
		WS:         ws,
		Service:    f.service,
		Config:     base64Config,
		Retries:    2,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results, err := w.Subscribe(ctx)
	require.NoError(t, err)
	require.Len(t, ws.filters, 1)
	assert.Empty(t, ws.filters[0].Mentions)

	ws.send(0, solana.LogNotification{Signature: testSignature(20), Slot: 1})

	res := receive(t, results)
	assert.Equal(t, domain.OutcomeNotFound, res.Outcome)
	assert.Len(t, f.rpc.Calls(), 3, "initial attempt plus two retries")
}

func TestWatcher_RunStopsWhenStreamEnds(t *testing.T) {
	f := newFixture(t)
	ws := &fakeWS{}
	sig := testSignature(30)
	f.rpc.AddTransaction(sig, txshape.ShapeBase64Legacy, base64Payload(7))

	w, err := NewWatcher(WatcherOptions{WS: ws, Service: f.service, Config: base64Config})
	require.NoError(t, err)

	var got []*Result
	done := make(chan error, 1)
	go func() {
		done <- w.Run(context.Background(), func(r *Result) { got = append(got, r) })
	}()

	require.Eventually(t, func() bool {
		ws.mu.Lock()
		defer ws.mu.Unlock()
		return len(ws.chans) == 1
	}, time.Second, time.Millisecond)
	ws.send(0, solana.LogNotification{Signature: sig, Slot: 7})
	require.Eventually(t, func() bool { return len(f.rpc.Calls()) == 1 }, time.Second, time.Millisecond)
	ws.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSubscriptionsClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	require.Len(t, got, 1)
	assert.Equal(t, uint64(7), got[0].Record.Slot)
}

func TestRecentSet(t *testing.T) {
	r := newRecentSet(2)
	assert.True(t, r.add(testSignature(1)))
	assert.False(t, r.add(testSignature(1)))
	assert.True(t, r.add(testSignature(2)))
	assert.True(t, r.add(testSignature(3)))
	assert.True(t, r.add(testSignature(1)), "oldest entry is evicted")
}
