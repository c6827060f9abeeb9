package solana

import (
	"context"
	"encoding/json"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeLogs subscribes to transaction logs matching the filter.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// LogsFilter selects which transactions produce log notifications.
type LogsFilter struct {
	// Mentions restricts notifications to transactions mentioning these accounts.
	// Empty subscribes to all transactions.
	Mentions []solanago.PublicKey
	// Commitment defaults to confirmed.
	Commitment rpc.CommitmentType
}

func (f LogsFilter) params() []interface{} {
	mentions := make(map[string]interface{})
	if len(f.Mentions) > 0 {
		keys := make([]string, len(f.Mentions))
		for i, k := range f.Mentions {
			keys[i] = k.String()
		}
		mentions["mentions"] = keys
	} else {
		mentions["all"] = nil
	}

	commitment := f.Commitment
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return []interface{}{mentions, map[string]string{"commitment": string(commitment)}}
}

// LogNotification is one logsNotification message.
type LogNotification struct {
	Signature solanago.Signature
	Slot      uint64
	Logs      []string
	// Err is the transaction error, nil when it succeeded.
	Err json.RawMessage
}

// Failed reports whether the notified transaction failed.
func (n LogNotification) Failed() bool {
	return n.Err != nil
}
