package domain

import "solana-tx-resolver/internal/txshape"

// Outcome is how a single lookup ended.
type Outcome string

const (
	OutcomeFound          Outcome = "FOUND"
	OutcomeCached         Outcome = "CACHED"
	OutcomeNotFound       Outcome = "NOT_FOUND"
	OutcomeDecodeError    Outcome = "DECODE_ERROR"
	OutcomeTransportError Outcome = "TRANSPORT_ERROR"
)

// String returns the string representation of Outcome.
func (o Outcome) String() string {
	return string(o)
}

// IsValid checks if the outcome is a valid value.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeFound, OutcomeCached, OutcomeNotFound, OutcomeDecodeError, OutcomeTransportError:
		return true
	}
	return false
}

// IsFailure reports whether the lookup produced no record because of an error.
func (o Outcome) IsFailure() bool {
	return o == OutcomeDecodeError || o == OutcomeTransportError
}

// LookupOutcome is one row of the lookup outcome log.
// Corresponds to the lookup_outcomes table.
type LookupOutcome struct {
	OutcomeID  string // deterministic hash
	Signature  string
	Shape      txshape.Shape
	Outcome    Outcome
	ErrorKind  string // decode error kind, empty unless Outcome is DECODE_ERROR
	ErrorPath  string // offending field path, empty unless Outcome is DECODE_ERROR
	Slot       uint64 // zero when no record was produced
	DurationMs int64
	ObservedAt int64 // unix ms
}

// OutcomeCount aggregates outcomes per shape.
type OutcomeCount struct {
	Shape   txshape.Shape
	Outcome Outcome
	Count   uint64
}
