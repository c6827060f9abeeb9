package txshape

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Decoder validates getTransaction results against a ShapeDescriptor.
// A Decoder holds no per-call state and is safe for concurrent use.
type Decoder struct {
	logger           zerolog.Logger
	onStatusMismatch func()
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithLogger sets the logger used for tolerated anomalies.
func WithLogger(logger zerolog.Logger) DecoderOption {
	return func(d *Decoder) {
		d.logger = logger
	}
}

// WithStatusMismatchHook registers fn to run whenever meta.status disagrees with meta.err.
func WithStatusMismatchHook(fn func()) DecoderOption {
	return func(d *Decoder) {
		d.onStatusMismatch = fn
	}
}

// NewDecoder creates a Decoder. Without options it logs nothing.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDecoder = NewDecoder()

// Decode validates wire with a silent Decoder.
func Decode(desc ShapeDescriptor, wire []byte) (*TransactionRecord, error) {
	return defaultDecoder.Decode(desc, wire)
}

// Decode validates wire against desc.
//
// It returns (nil, nil) when wire is empty or JSON null: the node does not
// know the signature at the requested commitment. Any structural violation
// is returned as a *DecodeError and no partial record is produced.
// Fields the descriptor does not mention are ignored. The rules come from
// desc.Shape; of the remaining fields only MaxVersion is honored.
func (d *Decoder) Decode(desc ShapeDescriptor, wire []byte) (*TransactionRecord, error) {
	desc, ok := desc.canonical()
	if !ok {
		return nil, invalidEnumValue("shape", desc.Shape.String())
	}

	wire = bytes.TrimSpace(wire)
	if len(wire) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(wire) {
		return nil, typeMismatch("result", "JSON value", "invalid JSON")
	}
	root := node{r: gjson.ParseBytes(wire)}
	if root.r.Type == gjson.Null {
		return nil, nil
	}
	if !root.r.IsObject() {
		return nil, typeMismatch("result", "object", kindOf(root.r))
	}

	rec := &TransactionRecord{}
	var err error
	if rec.Slot, err = required(root, "slot", node.u64); err != nil {
		return nil, err
	}
	if rec.BlockTime, err = decodeField(root, "blockTime", ruleRequiredNullable, node.i64); err != nil {
		return nil, err
	}
	if rec.Version, err = decodeGated(root, "version", desc.Version, versionParser(desc.MaxVersion)); err != nil {
		return nil, err
	}
	if rec.Transaction, err = decodeBody(desc.forVersion(rec.Version), root.at("transaction")); err != nil {
		return nil, err
	}
	if rec.Meta, err = d.decodeMeta(desc, root.at("meta")); err != nil {
		return nil, err
	}
	return rec, nil
}

func versionParser(bound uint8) func(node) (TransactionVersion, error) {
	return func(n node) (TransactionVersion, error) {
		switch n.r.Type {
		case gjson.String:
			if n.r.Str == "legacy" {
				return VersionLegacy, nil
			}
			return 0, invalidEnumValue(n.path, n.r.Str)
		case gjson.Number:
			v, err := strconv.ParseUint(n.r.Raw, 10, 8)
			if err != nil || uint8(v) > bound {
				return 0, invalidEnumValue(n.path, n.r.Raw)
			}
			return TransactionVersion(v), nil
		default:
			return 0, typeMismatch(n.path, `"legacy" or version number`, kindOf(n.r))
		}
	}
}

func decodeBody(desc ShapeDescriptor, n node) (TransactionBody, error) {
	if !n.exists() {
		return nil, missingField(n.path)
	}
	switch desc.Family {
	case FamilyJSON:
		body, err := decodeJSONBody(desc, n)
		if err != nil {
			return nil, err
		}
		return body, nil
	case FamilyJSONParsed:
		body, err := decodeJSONParsedBody(desc, n)
		if err != nil {
			return nil, err
		}
		return body, nil
	case FamilyBase64:
		data, err := decodeBlob(n, EncodingBase64)
		if err != nil {
			return nil, err
		}
		return &Base64Body{Data: data}, nil
	case FamilyBase58:
		data, err := decodeBlob(n, EncodingBase58)
		if err != nil {
			return nil, err
		}
		return &Base58Body{Data: data}, nil
	default:
		return nil, invalidEnumValue("encoding", desc.Family.String())
	}
}

// decodeBlob reads a [data, encoding] pair, checks the encoding tag and
// that the data decodes under it.
func decodeBlob(n node, want Encoding) (string, error) {
	items, err := n.array()
	if err != nil {
		return "", err
	}
	if len(items) != 2 {
		return "", typeMismatch(n.path, "[data, encoding] pair", fmt.Sprintf("array of %d", len(items)))
	}
	data, err := items[0].str()
	if err != nil {
		return "", err
	}
	tag, err := items[1].str()
	if err != nil {
		return "", err
	}
	enc, ok := lookupEncoding(tag)
	if !ok {
		return "", invalidEnumValue(items[1].path, tag)
	}
	if enc != want {
		return "", typeMismatch(items[1].path, string(want), tag)
	}
	switch want {
	case EncodingBase64:
		_, err = base64.StdEncoding.DecodeString(data)
	case EncodingBase58:
		_, err = base58.Decode(data)
	}
	if err != nil {
		return "", typeMismatch(items[0].path, string(want)+" data", "malformed string")
	}
	return data, nil
}

func decodeJSONBody(desc ShapeDescriptor, n node) (*JSONBody, error) {
	if _, err := n.object(); err != nil {
		return nil, err
	}
	sigs, err := required(n, "signatures", listOf(node.signature))
	if err != nil {
		return nil, err
	}
	msg, err := required(n, "message", node.object)
	if err != nil {
		return nil, err
	}

	body := &JSONBody{Signatures: sigs}
	m := &body.Message
	if m.AccountKeys, err = required(msg, "accountKeys", listOf(node.address)); err != nil {
		return nil, err
	}
	if m.Header, err = required(msg, "header", parseHeader); err != nil {
		return nil, err
	}
	if m.RecentBlockhash, err = required(msg, "recentBlockhash", node.blockhash); err != nil {
		return nil, err
	}
	if m.Instructions, err = required(msg, "instructions", listOf(parseCompiled)); err != nil {
		return nil, err
	}
	if m.AddressTableLookups, err = decodeGated(msg, "addressTableLookups", desc.AddressTableLookups, listOf(parseLookup)); err != nil {
		return nil, err
	}
	return body, nil
}

func decodeJSONParsedBody(desc ShapeDescriptor, n node) (*JSONParsedBody, error) {
	if _, err := n.object(); err != nil {
		return nil, err
	}
	sigs, err := required(n, "signatures", listOf(node.signature))
	if err != nil {
		return nil, err
	}
	msg, err := required(n, "message", node.object)
	if err != nil {
		return nil, err
	}

	body := &JSONParsedBody{Signatures: sigs}
	m := &body.Message
	if m.AccountKeys, err = required(msg, "accountKeys", listOf(parseAccountKey)); err != nil {
		return nil, err
	}
	if m.RecentBlockhash, err = required(msg, "recentBlockhash", node.blockhash); err != nil {
		return nil, err
	}
	if m.Instructions, err = required(msg, "instructions", listOf(parseParsedInstruction)); err != nil {
		return nil, err
	}
	if m.AddressTableLookups, err = decodeGated(msg, "addressTableLookups", desc.AddressTableLookups, listOf(parseLookup)); err != nil {
		return nil, err
	}
	return body, nil
}

func parseHeader(n node) (MessageHeader, error) {
	var h MessageHeader
	if _, err := n.object(); err != nil {
		return h, err
	}
	var err error
	if h.NumRequiredSignatures, err = required(n, "numRequiredSignatures", node.u8); err != nil {
		return h, err
	}
	if h.NumReadonlySignedAccounts, err = required(n, "numReadonlySignedAccounts", node.u8); err != nil {
		return h, err
	}
	if h.NumReadonlyUnsignedAccounts, err = required(n, "numReadonlyUnsignedAccounts", node.u8); err != nil {
		return h, err
	}
	return h, nil
}

func parseLookup(n node) (AddressTableLookup, error) {
	var l AddressTableLookup
	if _, err := n.object(); err != nil {
		return l, err
	}
	var err error
	if l.AccountKey, err = required(n, "accountKey", node.address); err != nil {
		return l, err
	}
	if l.WritableIndexes, err = required(n, "writableIndexes", listOf(node.u8)); err != nil {
		return l, err
	}
	// Some clients spell the readonly list "readableIndexes".
	key := "readonlyIndexes"
	if !n.at(key).exists() && n.at("readableIndexes").exists() {
		key = "readableIndexes"
	}
	if l.ReadonlyIndexes, err = required(n, key, listOf(node.u8)); err != nil {
		return l, err
	}
	return l, nil
}

func parseAccountKey(n node) (ParsedAccountKey, error) {
	var k ParsedAccountKey
	if _, err := n.object(); err != nil {
		return k, err
	}
	var err error
	if k.Pubkey, err = required(n, "pubkey", node.address); err != nil {
		return k, err
	}
	if k.Signer, err = required(n, "signer", node.boolean); err != nil {
		return k, err
	}
	if k.Writable, err = required(n, "writable", node.boolean); err != nil {
		return k, err
	}
	if k.Source, err = required(n, "source", parseSource); err != nil {
		return k, err
	}
	return k, nil
}

func parseSource(n node) (AccountKeySource, error) {
	s, err := n.str()
	if err != nil {
		return "", err
	}
	switch src := AccountKeySource(s); src {
	case SourceTransaction, SourceLookupTable:
		return src, nil
	default:
		return "", invalidEnumValue(n.path, s)
	}
}

// parseCompiled reads the raw-indexed instruction form. Parsed-form keys are
// rejected so a jsonParsed payload never decodes under a json descriptor.
func parseCompiled(n node) (*CompiledInstruction, error) {
	if _, err := n.object(); err != nil {
		return nil, err
	}
	if err := forbidKeys(n, "parsed", "programId"); err != nil {
		return nil, err
	}
	ix := &CompiledInstruction{}
	var err error
	if ix.ProgramIDIndex, err = required(n, "programIdIndex", node.u16); err != nil {
		return nil, err
	}
	if ix.Accounts, err = required(n, "accounts", listOf(node.u16)); err != nil {
		return nil, err
	}
	if ix.Data, err = required(n, "data", node.base58Bytes); err != nil {
		return nil, err
	}
	return ix, nil
}

func parseCompiledInstruction(n node) (Instruction, error) {
	ix, err := parseCompiled(n)
	if err != nil {
		return nil, err
	}
	return ix, nil
}

// parseParsedInstruction reads the parsed / partially-decoded union. The
// presence of "parsed" selects the variant.
func parseParsedInstruction(n node) (Instruction, error) {
	if _, err := n.object(); err != nil {
		return nil, err
	}
	if err := forbidKeys(n, "programIdIndex"); err != nil {
		return nil, err
	}
	programID, err := required(n, "programId", node.address)
	if err != nil {
		return nil, err
	}

	if n.at("parsed").exists() {
		ix := &ParsedInstruction{ProgramID: programID}
		if ix.Program, err = required(n, "program", node.str); err != nil {
			return nil, err
		}
		if ix.Parsed, err = required(n, "parsed", parseParsedInfo); err != nil {
			return nil, err
		}
		return ix, nil
	}

	ix := &PartiallyDecodedInstruction{ProgramID: programID}
	if ix.Accounts, err = required(n, "accounts", listOf(node.address)); err != nil {
		return nil, err
	}
	if ix.Data, err = required(n, "data", node.base58Bytes); err != nil {
		return nil, err
	}
	return ix, nil
}

func parseParsedInfo(n node) (ParsedInfo, error) {
	var p ParsedInfo
	if _, err := n.object(); err != nil {
		return p, err
	}
	var err error
	if p.Type, err = required(n, "type", node.str); err != nil {
		return p, err
	}
	if p.Info, err = decodeField(n, "info", ruleOptionalNullable, node.rawJSON); err != nil {
		return p, err
	}
	return p, nil
}

func instructionParser(repr InstructionRepr) func(node) (Instruction, error) {
	if repr == InstructionsParsed {
		return parseParsedInstruction
	}
	return parseCompiledInstruction
}

func (d *Decoder) decodeMeta(desc ShapeDescriptor, n node) (*TransactionMeta, error) {
	if !n.exists() {
		return nil, missingField(n.path)
	}
	if n.isNull() {
		return nil, nil
	}
	if _, err := n.object(); err != nil {
		return nil, err
	}

	m := &TransactionMeta{}
	errNode := n.at("err")
	if !errNode.exists() {
		return nil, missingField(errNode.path)
	}
	if !errNode.isNull() {
		raw, err := errNode.rawJSON()
		if err != nil {
			return nil, err
		}
		m.Err = raw
	}

	var err error
	if m.Fee, err = required(n, "fee", node.u64); err != nil {
		return nil, err
	}
	if m.PreBalances, err = required(n, "preBalances", listOf(node.u64)); err != nil {
		return nil, err
	}
	if m.PostBalances, err = required(n, "postBalances", listOf(node.u64)); err != nil {
		return nil, err
	}
	if m.PreTokenBalances, err = decodeField(n, "preTokenBalances", ruleOptionalNullable, listOf(parseTokenBalance)); err != nil {
		return nil, err
	}
	if m.PostTokenBalances, err = decodeField(n, "postTokenBalances", ruleOptionalNullable, listOf(parseTokenBalance)); err != nil {
		return nil, err
	}
	if m.ComputeUnitsConsumed, err = decodeField(n, "computeUnitsConsumed", ruleOptionalNullable, node.u64); err != nil {
		return nil, err
	}
	if m.LogMessages, err = decodeField(n, "logMessages", ruleRequiredNullable, listOf(node.str)); err != nil {
		return nil, err
	}
	if m.ReturnData, err = decodeField(n, "returnData", ruleOptionalNullable, parseReturnData); err != nil {
		return nil, err
	}
	if m.Rewards, err = decodeField(n, "rewards", ruleOptionalNullable, listOf(parseReward)); err != nil {
		return nil, err
	}

	parseInner := func(n node) (InnerInstructions, error) {
		var g InnerInstructions
		if _, err := n.object(); err != nil {
			return g, err
		}
		var err error
		if g.Index, err = required(n, "index", node.u8); err != nil {
			return g, err
		}
		if g.Instructions, err = required(n, "instructions", listOf(instructionParser(desc.InnerInstructions))); err != nil {
			return g, err
		}
		return g, nil
	}
	if m.InnerInstructions, err = decodeField(n, "innerInstructions", ruleOptionalNullable, listOf(parseInner)); err != nil {
		return nil, err
	}
	if m.LoadedAddresses, err = decodeGated(n, "loadedAddresses", desc.LoadedAddresses, parseLoadedAddresses); err != nil {
		return nil, err
	}

	m.Status = d.decodeStatus(n.at("status"), m.Err)
	return m, nil
}

// decodeStatus never fails: the field is a deprecated mirror of err.
func (d *Decoder) decodeStatus(n node, metaErr json.RawMessage) Field[TransactionStatus] {
	if !n.exists() {
		return Absent[TransactionStatus]()
	}
	if n.isNull() {
		return Null[TransactionStatus]()
	}
	st, err := parseStatus(n)
	if err != nil {
		d.logger.Warn().Err(err).Str("path", n.path).Msg("ignoring malformed status")
		return Absent[TransactionStatus]()
	}
	if st.Ok() != (metaErr == nil) || (!st.Ok() && !bytes.Equal(st.Err, metaErr)) {
		d.logger.Warn().
			RawJSON("err", rawOrNull(metaErr)).
			RawJSON("status_err", rawOrNull(st.Err)).
			Msg("status disagrees with err")
		if d.onStatusMismatch != nil {
			d.onStatusMismatch()
		}
	}
	return Some(st)
}

func parseStatus(n node) (TransactionStatus, error) {
	if _, err := n.object(); err != nil {
		return TransactionStatus{}, err
	}
	if n.at("Ok").exists() {
		return TransactionStatus{}, nil
	}
	errNode := n.at("Err")
	if !errNode.exists() {
		return TransactionStatus{}, typeMismatch(n.path, `{"Ok"} or {"Err"}`, "object")
	}
	raw, err := errNode.rawJSON()
	if err != nil {
		return TransactionStatus{}, err
	}
	return TransactionStatus{Err: raw}, nil
}

func rawOrNull(raw json.RawMessage) []byte {
	if raw == nil {
		return []byte("null")
	}
	return raw
}

func parseTokenBalance(n node) (TokenBalance, error) {
	var b TokenBalance
	if _, err := n.object(); err != nil {
		return b, err
	}
	var err error
	if b.AccountIndex, err = required(n, "accountIndex", node.u16); err != nil {
		return b, err
	}
	if b.Mint, err = required(n, "mint", node.address); err != nil {
		return b, err
	}
	if b.Owner, err = decodeField(n, "owner", ruleOptional, node.address); err != nil {
		return b, err
	}
	if b.ProgramID, err = decodeField(n, "programId", ruleOptional, node.address); err != nil {
		return b, err
	}
	if b.UITokenAmount, err = required(n, "uiTokenAmount", parseTokenAmount); err != nil {
		return b, err
	}
	return b, nil
}

func parseTokenAmount(n node) (TokenAmount, error) {
	var a TokenAmount
	if _, err := n.object(); err != nil {
		return a, err
	}
	var err error
	if a.Amount, err = required(n, "amount", node.str); err != nil {
		return a, err
	}
	if a.Decimals, err = required(n, "decimals", node.u8); err != nil {
		return a, err
	}
	if a.UIAmount, err = decodeField(n, "uiAmount", ruleOptionalNullable, node.float); err != nil {
		return a, err
	}
	if a.UIAmountString, err = required(n, "uiAmountString", node.str); err != nil {
		return a, err
	}
	return a, nil
}

func parseReturnData(n node) (ReturnData, error) {
	var rd ReturnData
	if _, err := n.object(); err != nil {
		return rd, err
	}
	var err error
	if rd.ProgramID, err = required(n, "programId", node.address); err != nil {
		return rd, err
	}
	dataNode := n.at("data")
	if !dataNode.exists() {
		return rd, missingField(dataNode.path)
	}
	text, err := decodeBlob(dataNode, EncodingBase64)
	if err != nil {
		return rd, err
	}
	data, derr := base64.StdEncoding.DecodeString(text)
	if derr != nil {
		return rd, typeMismatch(dataNode.path, "base64 data", strconv.Quote(text))
	}
	rd.Data = data
	return rd, nil
}

func parseReward(n node) (Reward, error) {
	var r Reward
	if _, err := n.object(); err != nil {
		return r, err
	}
	var err error
	if r.Pubkey, err = required(n, "pubkey", node.address); err != nil {
		return r, err
	}
	if r.Lamports, err = required(n, "lamports", node.i64); err != nil {
		return r, err
	}
	if r.PostBalance, err = required(n, "postBalance", node.u64); err != nil {
		return r, err
	}
	if r.RewardType, err = decodeField(n, "rewardType", ruleOptionalNullable, node.str); err != nil {
		return r, err
	}
	if r.Commission, err = decodeField(n, "commission", ruleOptionalNullable, node.u8); err != nil {
		return r, err
	}
	return r, nil
}

func parseLoadedAddresses(n node) (LoadedAddresses, error) {
	var la LoadedAddresses
	if _, err := n.object(); err != nil {
		return la, err
	}
	var err error
	if la.Writable, err = required(n, "writable", listOf(node.address)); err != nil {
		return la, err
	}
	if la.Readonly, err = required(n, "readonly", listOf(node.address)); err != nil {
		return la, err
	}
	return la, nil
}
