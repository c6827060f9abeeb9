package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"

	"solana-tx-resolver/internal/txshape"
)

// ComputeOutcomeID computes a deterministic outcome_id using SHA256.
// Formula: SHA256(signature|shape|observed_at_ms)
// Returns hex-encoded hash (64 characters).
func ComputeOutcomeID(
	signature solanago.Signature,
	shape txshape.Shape,
	observedAtMs int64,
) string {
	data := fmt.Sprintf("%s|%s|%d",
		signature.String(),
		shape,
		observedAtMs,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
