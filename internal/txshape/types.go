package txshape

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// TransactionRecord is a decoded getTransaction result.
// A nil *TransactionRecord means the node does not know the signature.
type TransactionRecord struct {
	Slot        uint64
	BlockTime   Field[int64] // null when the node has no estimate
	Version     Field[TransactionVersion]
	Meta        *TransactionMeta // nil when the node recorded no metadata
	Transaction TransactionBody
}

// TransactionVersion is the version tag of a transaction message.
type TransactionVersion int16

// VersionLegacy tags unversioned transactions.
const VersionLegacy TransactionVersion = -1

// IsLegacy reports whether v is the legacy tag.
func (v TransactionVersion) IsLegacy() bool {
	return v == VersionLegacy
}

func (v TransactionVersion) String() string {
	if v.IsLegacy() {
		return "legacy"
	}
	return strconv.Itoa(int(v))
}

// TransactionBody is the transaction field of a record. Exactly one of
// *JSONBody, *JSONParsedBody, *Base64Body or *Base58Body.
type TransactionBody interface {
	Family() BodyFamily
	isTransactionBody()
}

// MessageHeader holds the signature and read-only account counts.
type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// AddressTableLookup references accounts stored in an address lookup table.
type AddressTableLookup struct {
	AccountKey      solana.PublicKey
	WritableIndexes []uint8
	ReadonlyIndexes []uint8
}

// JSONMessage is the message of a json-encoded transaction.
type JSONMessage struct {
	AccountKeys         []solana.PublicKey
	Header              MessageHeader
	RecentBlockhash     solana.Hash
	Instructions        []*CompiledInstruction
	AddressTableLookups Field[[]AddressTableLookup]
}

// JSONBody is a transaction rendered with encoding "json".
type JSONBody struct {
	Signatures []solana.Signature
	Message    JSONMessage
}

func (*JSONBody) Family() BodyFamily { return FamilyJSON }
func (*JSONBody) isTransactionBody() {}

// AccountKeySource says where a parsed account key came from.
type AccountKeySource string

const (
	SourceTransaction AccountKeySource = "transaction"
	SourceLookupTable AccountKeySource = "lookupTable"
)

// ParsedAccountKey is an account key annotated by a jsonParsed response.
type ParsedAccountKey struct {
	Pubkey   solana.PublicKey
	Signer   bool
	Writable bool
	Source   AccountKeySource
}

// JSONParsedMessage is the message of a jsonParsed transaction.
// Instructions hold only *ParsedInstruction and *PartiallyDecodedInstruction.
type JSONParsedMessage struct {
	AccountKeys         []ParsedAccountKey
	RecentBlockhash     solana.Hash
	Instructions        []Instruction
	AddressTableLookups Field[[]AddressTableLookup]
}

// JSONParsedBody is a transaction rendered with encoding "jsonParsed".
type JSONParsedBody struct {
	Signatures []solana.Signature
	Message    JSONParsedMessage
}

func (*JSONParsedBody) Family() BodyFamily { return FamilyJSONParsed }
func (*JSONParsedBody) isTransactionBody() {}

// Base64Body is a wire-serialized transaction rendered as base64.
type Base64Body struct {
	Data string
}

func (*Base64Body) Family() BodyFamily { return FamilyBase64 }
func (*Base64Body) isTransactionBody() {}

// Bytes returns the serialized transaction.
func (b *Base64Body) Bytes() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(b.Data)
	if err != nil {
		return nil, fmt.Errorf("decode base64 transaction: %w", err)
	}
	return raw, nil
}

// Base58Body is a wire-serialized transaction rendered as base58.
type Base58Body struct {
	Data string
}

func (*Base58Body) Family() BodyFamily { return FamilyBase58 }
func (*Base58Body) isTransactionBody() {}

// Bytes returns the serialized transaction.
func (b *Base58Body) Bytes() ([]byte, error) {
	raw, err := base58.Decode(b.Data)
	if err != nil {
		return nil, fmt.Errorf("decode base58 transaction: %w", err)
	}
	return raw, nil
}

// Instruction is one instruction inside a record. Exactly one of
// *CompiledInstruction, *ParsedInstruction or *PartiallyDecodedInstruction.
type Instruction interface {
	Representation() InstructionRepr
	isInstruction()
}

// CompiledInstruction references its program and accounts by index into the
// message account keys.
type CompiledInstruction struct {
	ProgramIDIndex uint16
	Accounts       []uint16
	Data           []byte
}

func (*CompiledInstruction) Representation() InstructionRepr { return InstructionsCompiled }
func (*CompiledInstruction) isInstruction()                  {}

// ParsedInfo is the structured payload filled in by a program parser.
// Info is opaque; its layout is keyed by Type and the program.
type ParsedInfo struct {
	Type string
	Info Field[json.RawMessage]
}

// ParsedInstruction is an instruction recognized by a program parser.
type ParsedInstruction struct {
	Program   string
	ProgramID solana.PublicKey
	Parsed    ParsedInfo
}

func (*ParsedInstruction) Representation() InstructionRepr { return InstructionsParsed }
func (*ParsedInstruction) isInstruction()                  {}

// PartiallyDecodedInstruction is an instruction of a program no parser
// recognized, with accounts resolved to addresses.
type PartiallyDecodedInstruction struct {
	ProgramID solana.PublicKey
	Accounts  []solana.PublicKey
	Data      []byte
}

func (*PartiallyDecodedInstruction) Representation() InstructionRepr { return InstructionsParsed }
func (*PartiallyDecodedInstruction) isInstruction()                  {}

// InnerInstructions groups the instructions invoked by one top-level instruction.
type InnerInstructions struct {
	Index        uint8
	Instructions []Instruction
}

// TransactionMeta is execution metadata recorded by the node.
type TransactionMeta struct {
	// Err is the transaction error as sent by the node; nil on success.
	Err json.RawMessage
	Fee uint64

	PreBalances  []uint64
	PostBalances []uint64

	PreTokenBalances  Field[[]TokenBalance]
	PostTokenBalances Field[[]TokenBalance]

	ComputeUnitsConsumed Field[uint64]

	// LogMessages is null when log recording was disabled; an empty
	// list means the transaction emitted no lines.
	LogMessages Field[[]string]

	ReturnData Field[ReturnData]
	Rewards    Field[[]Reward]

	// Status mirrors Err. Deprecated by the node; kept for old payloads.
	Status Field[TransactionStatus]

	InnerInstructions Field[[]InnerInstructions]
	LoadedAddresses   Field[LoadedAddresses]
}

// Succeeded reports whether the transaction executed without error.
func (m *TransactionMeta) Succeeded() bool {
	return m.Err == nil
}

// TransactionStatus is the deprecated {"Ok": null} / {"Err": ...} mirror of Err.
type TransactionStatus struct {
	Err json.RawMessage
}

// Ok reports whether the status is the Ok variant.
func (s TransactionStatus) Ok() bool {
	return s.Err == nil
}

// TokenAmount is a token quantity in raw and UI units.
type TokenAmount struct {
	Amount         string
	Decimals       uint8
	UIAmount       Field[float64]
	UIAmountString string
}

// TokenBalance is a token account balance before or after execution.
type TokenBalance struct {
	AccountIndex  uint16
	Mint          solana.PublicKey
	Owner         Field[solana.PublicKey]
	ProgramID     Field[solana.PublicKey]
	UITokenAmount TokenAmount
}

// ReturnData is the most recent data returned by a cross-program invocation.
type ReturnData struct {
	ProgramID solana.PublicKey
	Data      []byte
}

// Reward is a balance change credited or debited by the runtime.
type Reward struct {
	Pubkey      solana.PublicKey
	Lamports    int64
	PostBalance uint64
	RewardType  Field[string]
	Commission  Field[uint8]
}

// LoadedAddresses are the accounts resolved from address lookup tables.
type LoadedAddresses struct {
	Writable []solana.PublicKey
	Readonly []solana.PublicKey
}
