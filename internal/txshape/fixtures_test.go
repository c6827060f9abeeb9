package txshape

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

func testSignature(b byte) solana.Signature {
	var sig solana.Signature
	for i := range sig {
		sig[i] = b
	}
	return sig
}

func testHash(b byte) solana.Hash {
	var h solana.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

// recordOpts compares records including unexported Field state.
var recordOpts = cmp.Options{
	cmp.Exporter(func(reflect.Type) bool { return true }),
	cmpopts.EquateEmpty(),
}

func resolveFor(enc Encoding, versioned bool) ShapeDescriptor {
	cfg := RequestConfig{Encoding: enc}
	if versioned {
		cfg.MaxSupportedTransactionVersion = MaxVersion(0)
	}
	return Resolve(cfg)
}

func compiledFixture() *CompiledInstruction {
	return &CompiledInstruction{ProgramIDIndex: 2, Accounts: []uint16{0, 1}, Data: []byte{2, 0, 0, 0, 136, 19, 0, 0}}
}

func parsedFixtures() []Instruction {
	return []Instruction{
		&ParsedInstruction{
			Program:   "system",
			ProgramID: solana.SystemProgramID,
			Parsed: ParsedInfo{
				Type: "transfer",
				Info: Some(json.RawMessage(`{"destination":"` + testKey(2).String() + `","lamports":5000,"source":"` + testKey(1).String() + `"}`)),
			},
		},
		&PartiallyDecodedInstruction{
			ProgramID: testKey(4),
			Accounts:  []solana.PublicKey{testKey(1), testKey(2)},
			Data:      []byte{9, 8, 7},
		},
	}
}

func instructionsFor(repr InstructionRepr) []Instruction {
	if repr == InstructionsParsed {
		return parsedFixtures()
	}
	return []Instruction{compiledFixture()}
}

// sampleRecord builds a fully populated record that fits desc.
func sampleRecord(desc ShapeDescriptor) *TransactionRecord {
	rec := &TransactionRecord{
		Slot:      250000123,
		BlockTime: Some(int64(1700000000)),
	}
	versioned := desc.VersionMode == VersionModeVersioned
	if versioned {
		rec.Version = Some(TransactionVersion(0))
	}

	lookups := Absent[[]AddressTableLookup]()
	if versioned {
		lookups = Some([]AddressTableLookup{{
			AccountKey:      testKey(7),
			WritableIndexes: []uint8{1},
			ReadonlyIndexes: []uint8{0, 2},
		}})
	}

	switch desc.Family {
	case FamilyJSON:
		rec.Transaction = &JSONBody{
			Signatures: []solana.Signature{testSignature(1)},
			Message: JSONMessage{
				AccountKeys:         []solana.PublicKey{testKey(1), testKey(2), solana.SystemProgramID},
				Header:              MessageHeader{NumRequiredSignatures: 1, NumReadonlyUnsignedAccounts: 1},
				RecentBlockhash:     testHash(9),
				Instructions:        []*CompiledInstruction{compiledFixture()},
				AddressTableLookups: lookups,
			},
		}
	case FamilyJSONParsed:
		rec.Transaction = &JSONParsedBody{
			Signatures: []solana.Signature{testSignature(1)},
			Message: JSONParsedMessage{
				AccountKeys: []ParsedAccountKey{
					{Pubkey: testKey(1), Signer: true, Writable: true, Source: SourceTransaction},
					{Pubkey: testKey(2), Writable: true, Source: SourceTransaction},
					{Pubkey: solana.SystemProgramID, Source: SourceTransaction},
				},
				RecentBlockhash:     testHash(9),
				Instructions:        parsedFixtures(),
				AddressTableLookups: lookups,
			},
		}
	case FamilyBase64:
		rec.Transaction = &Base64Body{Data: base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4})}
	case FamilyBase58:
		rec.Transaction = &Base58Body{Data: base58.Encode([]byte{1, 2, 3, 4})}
	}

	rec.Meta = &TransactionMeta{
		Fee:          5000,
		PreBalances:  []uint64{1000000, 0, 1},
		PostBalances: []uint64{990000, 5000, 1},
		PreTokenBalances: Some([]TokenBalance{{
			AccountIndex: 1,
			Mint:         testKey(5),
			Owner:        Some(testKey(1)),
			ProgramID:    Some(solana.TokenProgramID),
			UITokenAmount: TokenAmount{
				Amount:         "1500000",
				Decimals:       6,
				UIAmount:       Some(1.5),
				UIAmountString: "1.5",
			},
		}}),
		PostTokenBalances:    Some([]TokenBalance{}),
		ComputeUnitsConsumed: Some(uint64(150)),
		LogMessages: Some([]string{
			"Program 11111111111111111111111111111111 invoke [1]",
			"Program 11111111111111111111111111111111 success",
		}),
		ReturnData: Some(ReturnData{ProgramID: testKey(4), Data: []byte("ok")}),
		Rewards: Some([]Reward{{
			Pubkey:      testKey(8),
			Lamports:    -20,
			PostBalance: 499980,
			RewardType:  Some("Rent"),
			Commission:  Null[uint8](),
		}}),
		Status: Some(TransactionStatus{}),
		InnerInstructions: Some([]InnerInstructions{{
			Index:        0,
			Instructions: instructionsFor(desc.InnerInstructions),
		}}),
	}
	if desc.LoadedAddresses != PresenceForbidden {
		rec.Meta.LoadedAddresses = Some(LoadedAddresses{
			Writable: []solana.PublicKey{testKey(10)},
			Readonly: []solana.PublicKey{testKey(11)},
		})
	}
	return rec
}

// wireMap encodes rec and returns it as a mutable JSON object.
func wireMap(t *testing.T, desc ShapeDescriptor, rec *TransactionRecord) map[string]any {
	t.Helper()
	raw, err := Encode(desc, rec)
	require.NoError(t, err)
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	require.NoError(t, dec.Decode(&m))
	return m
}

func marshalWire(t *testing.T, m any) []byte {
	t.Helper()
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	return raw
}

// obj walks nested objects by key.
func obj(t *testing.T, m map[string]any, keys ...string) map[string]any {
	t.Helper()
	cur := m
	for _, k := range keys {
		next, ok := cur[k].(map[string]any)
		require.Truef(t, ok, "%s is not an object", k)
		cur = next
	}
	return cur
}

func firstElem(t *testing.T, m map[string]any, key string) map[string]any {
	t.Helper()
	list, ok := m[key].([]any)
	require.Truef(t, ok, "%s is not an array", key)
	require.NotEmpty(t, list)
	elem, ok := list[0].(map[string]any)
	require.Truef(t, ok, "%s[0] is not an object", key)
	return elem
}
