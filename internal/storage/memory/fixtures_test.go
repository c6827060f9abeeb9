package memory

import (
	"encoding/json"

	solanago "github.com/gagliardetto/solana-go"

	"solana-tx-resolver/internal/domain"
	"solana-tx-resolver/internal/idhash"
	"solana-tx-resolver/internal/txshape"
)

func testSignature(b byte) solanago.Signature {
	var sig solanago.Signature
	for i := range sig {
		sig[i] = b
	}
	return sig
}

func testTransaction(sig solanago.Signature, enc txshape.Encoding, fetchedAt int64) *domain.StoredTransaction {
	cfg := txshape.RequestConfig{Encoding: enc}
	blockTime := int64(1700000000)
	return &domain.StoredTransaction{
		LookupKey: idhash.ComputeLookupKey(sig, cfg),
		Signature: sig,
		Shape:     txshape.Resolve(cfg).Shape,
		Encoding:  enc,
		Slot:      100,
		BlockTime: &blockTime,
		Payload:   json.RawMessage(`{"slot":100}`),
		FetchedAt: fetchedAt,
	}
}

func testOutcome(id string, shape txshape.Shape, outcome domain.Outcome, observedAt int64) *domain.LookupOutcome {
	return &domain.LookupOutcome{
		OutcomeID:  id,
		Signature:  testSignature(1).String(),
		Shape:      shape,
		Outcome:    outcome,
		ObservedAt: observedAt,
	}
}
