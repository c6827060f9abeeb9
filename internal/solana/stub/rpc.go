// Package stub provides in-memory fakes of the Solana transport.
package stub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"solana-tx-resolver/internal/solana"
	"solana-tx-resolver/internal/txshape"
)

// ErrUnavailable is returned for every call after SetFailure.
var ErrUnavailable = errors.New("stub rpc unavailable")

// Call records one GetTransaction request.
type Call struct {
	Signature solanago.Signature
	Config    txshape.RequestConfig
}

// RPCClient implements solana.RPCClient for testing.
// Unknown signatures answer null, as a node does.
type RPCClient struct {
	mu           sync.Mutex
	transactions map[solanago.Signature]map[txshape.Shape]json.RawMessage
	signatures   map[solanago.PublicKey][]solana.SignatureInfo
	slot         uint64
	failure      error
	calls        []Call
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		transactions: make(map[solanago.Signature]map[txshape.Shape]json.RawMessage),
		signatures:   make(map[solanago.PublicKey][]solana.SignatureInfo),
	}
}

// GetTransaction returns the payload registered for the signature and the
// shape cfg resolves to.
func (c *RPCClient) GetTransaction(_ context.Context, signature solanago.Signature, cfg txshape.RequestConfig) (json.RawMessage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, Call{Signature: signature, Config: cfg})
	if c.failure != nil {
		return nil, c.failure
	}

	byShape, ok := c.transactions[signature]
	if !ok {
		return nil, nil
	}
	return byShape[txshape.Resolve(cfg).Shape], nil
}

// GetSignaturesForAddress pages through the signatures registered for address,
// newest first, honoring Before, Until and Limit.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address solanago.PublicKey, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failure != nil {
		return nil, c.failure
	}

	sigs := c.signatures[address]
	if opts == nil {
		return append([]solana.SignatureInfo(nil), sigs...), nil
	}

	start := 0
	if opts.Before != (solanago.Signature{}) {
		start = len(sigs)
		for i, s := range sigs {
			if s.Signature == opts.Before {
				start = i + 1
				break
			}
		}
	}

	var out []solana.SignatureInfo
	for _, s := range sigs[start:] {
		if opts.Until != (solanago.Signature{}) && s.Signature == opts.Until {
			break
		}
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
		out = append(out, s)
	}
	return out, nil
}

// GetSlot returns the slot set with SetSlot.
func (c *RPCClient) GetSlot(_ context.Context, _ rpc.CommitmentType) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failure != nil {
		return 0, c.failure
	}
	return c.slot, nil
}

// AddTransaction registers the payload returned for signature under shape.
func (c *RPCClient) AddTransaction(signature solanago.Signature, shape txshape.Shape, payload json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byShape, ok := c.transactions[signature]
	if !ok {
		byShape = make(map[txshape.Shape]json.RawMessage)
		c.transactions[signature] = byShape
	}
	byShape[shape] = payload
}

// AddSignatures sets the signatures for an address, newest first.
func (c *RPCClient) AddSignatures(address solanago.PublicKey, sigs []solana.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signatures[address] = sigs
}

// SetSlot sets the value returned by GetSlot.
func (c *RPCClient) SetSlot(slot uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slot = slot
}

// SetFailure makes every call fail with err. Nil restores normal behavior.
func (c *RPCClient) SetFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failure = err
}

// Calls returns the GetTransaction requests seen so far.
func (c *RPCClient) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}
