package solana

import (
	"encoding/json"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature          solanago.Signature
	Slot               uint64
	BlockTime          *int64
	Err                json.RawMessage // nil when the transaction succeeded
	ConfirmationStatus string
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
// Zero signatures are treated as unset.
type SignaturesOpts struct {
	Before     solanago.Signature // Start searching backwards from this signature
	Until      solanago.Signature // Search until this signature
	Limit      int                // Maximum number of signatures to return
	Commitment rpc.CommitmentType
}
