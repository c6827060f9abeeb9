// Package idhash derives deterministic identifiers for stored lookups.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"solana-tx-resolver/internal/txshape"
)

// ComputeLookupKey computes the cache key for a signature fetched under cfg.
// Formula: SHA256(signature|encoding|max_version|commitment)
// Returns hex-encoded hash (64 characters).
//
// Unset encoding and commitment are replaced by the node defaults, so an
// explicit default and an omitted field share a key.
func ComputeLookupKey(signature solanago.Signature, cfg txshape.RequestConfig) string {
	commitment := cfg.Commitment
	if commitment == "" {
		commitment = rpc.CommitmentFinalized
	}

	data := fmt.Sprintf("%s|%s|%s|%s",
		signature.String(),
		cfg.EffectiveEncoding(),
		cfg.MaxSupportedTransactionVersion.String(),
		commitment,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
