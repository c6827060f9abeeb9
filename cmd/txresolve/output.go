package main

import (
	"encoding/json"
	"io"

	"solana-tx-resolver/internal/lookup"
	"solana-tx-resolver/internal/txshape"
)

// resultView is the JSON line printed per lookup.
type resultView struct {
	Signature  string           `json:"signature"`
	Shape      string           `json:"shape"`
	Outcome    string           `json:"outcome"`
	Error      string           `json:"error,omitempty"`
	DurationMs int64            `json:"durationMs"`
	Summary    *txshape.Summary `json:"summary,omitempty"`
	Payload    json.RawMessage  `json:"payload,omitempty"`
}

func newResultView(res *lookup.Result, withPayload bool) resultView {
	v := resultView{
		Signature:  res.Signature.String(),
		Shape:      res.Descriptor.Shape.String(),
		Outcome:    res.Outcome.String(),
		DurationMs: res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		v.Error = res.Err.Error()
	}
	if res.Record != nil {
		sum := txshape.Summarize(res.Descriptor, res.Record)
		v.Summary = &sum
		if withPayload {
			if payload, err := txshape.Encode(res.Descriptor, res.Record); err == nil {
				v.Payload = payload
			}
		}
	}
	return v
}

func printResult(w io.Writer, res *lookup.Result, withPayload bool) error {
	return json.NewEncoder(w).Encode(newResultView(res, withPayload))
}
