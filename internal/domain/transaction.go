package domain

import (
	"encoding/json"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"solana-tx-resolver/internal/txshape"
)

// StoredTransaction is a validated getTransaction response kept for reuse.
// Corresponds to the transactions table.
type StoredTransaction struct {
	LookupKey string             // deterministic hash of signature and request config
	Signature solanago.Signature // first transaction signature

	// Request that produced the payload
	Shape      txshape.Shape
	Encoding   txshape.Encoding
	MaxVersion *uint8 // nil when no maxSupportedTransactionVersion was sent
	Commitment string

	Slot      uint64
	BlockTime *int64          // unix seconds (nullable)
	Payload   json.RawMessage // canonical wire JSON, decodable with the shape's descriptor
	FetchedAt int64           // unix ms
}

// RequestConfig rebuilds the getTransaction config the payload was fetched with.
func (t *StoredTransaction) RequestConfig() txshape.RequestConfig {
	bound := txshape.NoVersionBound()
	if t.MaxVersion != nil {
		bound = txshape.MaxVersion(*t.MaxVersion)
	}
	return txshape.RequestConfig{
		Encoding:                       t.Encoding,
		MaxSupportedTransactionVersion: bound,
		Commitment:                     rpc.CommitmentType(t.Commitment),
	}
}

// Record decodes the stored payload against its shape.
func (t *StoredTransaction) Record() (*txshape.TransactionRecord, error) {
	return txshape.Decode(txshape.Resolve(t.RequestConfig()), t.Payload)
}
