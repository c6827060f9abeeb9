package solana

import (
	"context"
	"encoding/json"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"solana-tx-resolver/internal/txshape"
)

// RPCClient defines Solana RPC HTTP interface.
type RPCClient interface {
	// GetTransaction returns the untouched getTransaction result for cfg.
	// A nil result means the node does not know the signature.
	GetTransaction(ctx context.Context, signature solanago.Signature, cfg txshape.RequestConfig) (json.RawMessage, error)

	// GetSignaturesForAddress retrieves signatures for an address with pagination.
	GetSignaturesForAddress(ctx context.Context, address solanago.PublicKey, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetSlot returns the current slot at the given commitment.
	GetSlot(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
}
