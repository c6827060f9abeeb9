package idhash

import (
	"testing"

	"solana-tx-resolver/internal/txshape"
)

func TestComputeOutcomeID(t *testing.T) {
	tests := []struct {
		name       string
		shape      txshape.Shape
		observedAt int64
	}{
		{"json legacy", txshape.ShapeJSONLegacy, 1700000000000},
		{"base64 versioned", txshape.ShapeBase64Versioned, 1700000000000},
		{"later observation", txshape.ShapeJSONLegacy, 1700000000001},
	}

	seen := make(map[string]string)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeOutcomeID(sig(9), tt.shape, tt.observedAt)

			if len(got) != 64 {
				t.Errorf("ComputeOutcomeID() length = %d, want 64", len(got))
			}
			if again := ComputeOutcomeID(sig(9), tt.shape, tt.observedAt); again != got {
				t.Errorf("ComputeOutcomeID() not deterministic")
			}
			if prev, ok := seen[got]; ok {
				t.Errorf("ComputeOutcomeID() collides with %q", prev)
			}
			seen[got] = tt.name
		})
	}
}
