package txshape

import (
	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"
)

// IsOnCurve reports whether pk is a valid ed25519 point. Program derived
// addresses are off the curve and have no private key.
func IsOnCurve(pk solana.PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(pk[:])
	return err == nil
}

// Summary is a flat view of a record used for CLI output and outcome rows.
type Summary struct {
	Shape     Shape
	Slot      uint64
	BlockTime *int64
	Version   string // "legacy", "0", or "" when the response carries no version

	Signature         string
	AccountCount      int
	InstructionCount  int
	InnerInstructions int
	ProgramIDs        []string
	OffCurveAccounts  []string
	LogLines          int // -1 when recording was disabled

	HasMeta   bool
	Succeeded bool
	Fee       uint64
}

// Summarize flattens rec. Blob bodies are opaque so their account and
// instruction counts come from meta only.
func Summarize(desc ShapeDescriptor, rec *TransactionRecord) Summary {
	s := Summary{Shape: desc.Shape, LogLines: -1}
	if rec == nil {
		return s
	}
	s.Slot = rec.Slot
	if bt, ok := rec.BlockTime.Get(); ok {
		s.BlockTime = &bt
	}
	if v, ok := rec.Version.Get(); ok {
		s.Version = v.String()
	}

	var keys []solana.PublicKey
	seenProgram := make(map[solana.PublicKey]bool)
	addProgram := func(pk solana.PublicKey) {
		if !seenProgram[pk] {
			seenProgram[pk] = true
			s.ProgramIDs = append(s.ProgramIDs, pk.String())
		}
	}

	switch body := rec.Transaction.(type) {
	case *JSONBody:
		if len(body.Signatures) > 0 {
			s.Signature = body.Signatures[0].String()
		}
		keys = append(keys, body.Message.AccountKeys...)
		s.InstructionCount = len(body.Message.Instructions)
		for _, ix := range body.Message.Instructions {
			if int(ix.ProgramIDIndex) < len(keys) {
				addProgram(keys[ix.ProgramIDIndex])
			}
		}
	case *JSONParsedBody:
		if len(body.Signatures) > 0 {
			s.Signature = body.Signatures[0].String()
		}
		for _, k := range body.Message.AccountKeys {
			keys = append(keys, k.Pubkey)
		}
		s.InstructionCount = len(body.Message.Instructions)
		for _, ix := range body.Message.Instructions {
			switch v := ix.(type) {
			case *ParsedInstruction:
				addProgram(v.ProgramID)
			case *PartiallyDecodedInstruction:
				addProgram(v.ProgramID)
			}
		}
	}

	if m := rec.Meta; m != nil {
		s.HasMeta = true
		s.Succeeded = m.Succeeded()
		s.Fee = m.Fee
		if logs, ok := m.LogMessages.Get(); ok {
			s.LogLines = len(logs)
		}
		groups, _ := m.InnerInstructions.Get()
		for _, g := range groups {
			s.InnerInstructions += len(g.Instructions)
		}
		if la, ok := m.LoadedAddresses.Get(); ok {
			keys = append(keys, la.Writable...)
			keys = append(keys, la.Readonly...)
		}
	}

	s.AccountCount = len(keys)
	for _, k := range keys {
		if !IsOnCurve(k) {
			s.OffCurveAccounts = append(s.OffCurveAccounts, k.String())
		}
	}
	return s
}
