package txshape

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	for _, s := range Shapes {
		desc, ok := Describe(s)
		require.True(t, ok)

		t.Run(s.String(), func(t *testing.T) {
			want := sampleRecord(desc)

			wire, err := Encode(desc, want)
			require.NoError(t, err)

			got, err := Decode(desc, wire)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got, recordOpts); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}

			again, err := Encode(desc, got)
			require.NoError(t, err)
			assert.JSONEq(t, string(wire), string(again))
		})
	}
}

func TestEncodeDecode_SparseRecord(t *testing.T) {
	desc := resolveFor(EncodingJSON, false)
	want := &TransactionRecord{
		Slot:      1,
		BlockTime: Null[int64](),
		Transaction: &JSONBody{
			Message: JSONMessage{Instructions: []*CompiledInstruction{{ProgramIDIndex: 0}}},
		},
		Meta: &TransactionMeta{
			Err:         json.RawMessage(`"AccountNotFound"`),
			LogMessages: Null[[]string](),
		},
	}

	wire, err := Encode(desc, want)
	require.NoError(t, err)

	got, err := Decode(desc, wire)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got, recordOpts); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_Nil(t *testing.T) {
	wire, err := Encode(resolveFor(EncodingBase64, true), nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(wire))

	rec, err := Decode(resolveFor(EncodingBase64, true), wire)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestEncode_RejectsMismatchedRecords(t *testing.T) {
	tests := []struct {
		name   string
		desc   ShapeDescriptor
		record func() *TransactionRecord
	}{
		{
			name: "body family differs",
			desc: resolveFor(EncodingBase64, false),
			record: func() *TransactionRecord {
				return sampleRecord(resolveFor(EncodingBase58, false))
			},
		},
		{
			name: "version in legacy mode",
			desc: resolveFor(EncodingJSON, false),
			record: func() *TransactionRecord {
				rec := sampleRecord(resolveFor(EncodingJSON, false))
				rec.Version = Some(TransactionVersion(0))
				return rec
			},
		},
		{
			name: "missing lookups in versioned mode",
			desc: resolveFor(EncodingJSONParsed, true),
			record: func() *TransactionRecord {
				rec := sampleRecord(resolveFor(EncodingJSONParsed, true))
				rec.Transaction.(*JSONParsedBody).Message.AddressTableLookups = Absent[[]AddressTableLookup]()
				return rec
			},
		},
		{
			name: "compiled instruction in parsed body",
			desc: resolveFor(EncodingJSONParsed, false),
			record: func() *TransactionRecord {
				rec := sampleRecord(resolveFor(EncodingJSONParsed, false))
				body := rec.Transaction.(*JSONParsedBody)
				body.Message.Instructions = append(body.Message.Instructions, compiledFixture())
				return rec
			},
		},
		{
			name: "parsed inner instruction under json",
			desc: resolveFor(EncodingJSON, false),
			record: func() *TransactionRecord {
				rec := sampleRecord(resolveFor(EncodingJSON, false))
				rec.Meta.InnerInstructions = Some([]InnerInstructions{{Instructions: parsedFixtures()}})
				return rec
			},
		},
		{
			name: "loaded addresses missing for versioned blob",
			desc: resolveFor(EncodingBase58, true),
			record: func() *TransactionRecord {
				rec := sampleRecord(resolveFor(EncodingBase58, true))
				rec.Meta.LoadedAddresses = Absent[LoadedAddresses]()
				return rec
			},
		},
		{
			name: "version above bound",
			desc: resolveFor(EncodingBase64, true),
			record: func() *TransactionRecord {
				rec := sampleRecord(resolveFor(EncodingBase64, true))
				rec.Version = Some(TransactionVersion(1))
				return rec
			},
		},
		{
			name: "absent blockTime",
			desc: resolveFor(EncodingBase64, false),
			record: func() *TransactionRecord {
				rec := sampleRecord(resolveFor(EncodingBase64, false))
				rec.BlockTime = Absent[int64]()
				return rec
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.desc, tt.record())
			assert.ErrorIs(t, err, ErrShapeMismatch)
		})
	}
}

func TestEncode_ShapeTagOverridesEditedDescriptor(t *testing.T) {
	desc := resolveFor(EncodingBase64, true)
	rec := sampleRecord(desc)
	rec.Meta.LoadedAddresses = Absent[LoadedAddresses]()

	edited := desc
	edited.LoadedAddresses = PresenceOptional
	_, err := Encode(edited, rec)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Encode(ShapeDescriptor{}, sampleRecord(desc))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
