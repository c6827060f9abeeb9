package txshape

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Encode renders rec as the wire JSON a node would send for desc.
// A nil record encodes as null. Decode(desc, Encode(desc, rec)) reproduces rec.
func Encode(desc ShapeDescriptor, rec *TransactionRecord) (json.RawMessage, error) {
	if rec == nil {
		return json.RawMessage("null"), nil
	}
	desc, ok := desc.canonical()
	if !ok {
		return nil, shapeMismatch("unknown shape %s", desc.Shape)
	}
	if err := checkRecordShape(desc, rec); err != nil {
		return nil, err
	}

	out := map[string]any{
		"slot":        rec.Slot,
		"transaction": encodeBody(rec.Transaction),
	}
	putField(out, "blockTime", rec.BlockTime, func(v int64) any { return v })
	putField(out, "version", rec.Version, encodeVersion)
	if rec.Meta == nil {
		out["meta"] = nil
	} else {
		out["meta"] = encodeMeta(rec.Meta)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encode transaction record: %w", err)
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func shapeMismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrShapeMismatch, fmt.Sprintf(format, args...))
}

func checkPresence(name string, p Presence, present bool) error {
	switch {
	case p == PresenceForbidden && present:
		return shapeMismatch("%s must be absent", name)
	case p == PresenceRequired && !present:
		return shapeMismatch("%s is required", name)
	}
	return nil
}

// checkRecordShape rejects records Decode could never have produced for desc.
func checkRecordShape(desc ShapeDescriptor, rec *TransactionRecord) error {
	if rec.Transaction == nil {
		return shapeMismatch("transaction body is nil")
	}
	if got := rec.Transaction.Family(); got != desc.Family {
		return shapeMismatch("body is %s, descriptor wants %s", got, desc.Family)
	}
	if rec.BlockTime.IsAbsent() {
		return shapeMismatch("blockTime must be a value or null")
	}
	if err := checkPresence("version", desc.Version, !rec.Version.IsAbsent()); err != nil {
		return err
	}
	if v, ok := rec.Version.Get(); ok && !v.IsLegacy() && (v < 0 || int(v) > int(desc.MaxVersion)) {
		return shapeMismatch("version %s exceeds %d", v, desc.MaxVersion)
	}

	desc = desc.forVersion(rec.Version)
	switch body := rec.Transaction.(type) {
	case *JSONBody:
		if err := checkPresence("addressTableLookups", desc.AddressTableLookups, !body.Message.AddressTableLookups.IsAbsent()); err != nil {
			return err
		}
		for i, ix := range body.Message.Instructions {
			if ix == nil {
				return shapeMismatch("instruction %d is nil", i)
			}
		}
	case *JSONParsedBody:
		if err := checkPresence("addressTableLookups", desc.AddressTableLookups, !body.Message.AddressTableLookups.IsAbsent()); err != nil {
			return err
		}
		if err := checkInstructions("message.instructions", body.Message.Instructions, desc.BodyInstructions); err != nil {
			return err
		}
	}

	if rec.Meta == nil {
		return nil
	}
	if rec.Meta.LogMessages.IsAbsent() {
		return shapeMismatch("meta.logMessages must be a list or null")
	}
	if err := checkPresence("meta.loadedAddresses", desc.LoadedAddresses, !rec.Meta.LoadedAddresses.IsAbsent()); err != nil {
		return err
	}
	groups, _ := rec.Meta.InnerInstructions.Get()
	for i, g := range groups {
		if err := checkInstructions(fmt.Sprintf("meta.innerInstructions[%d]", i), g.Instructions, desc.InnerInstructions); err != nil {
			return err
		}
	}
	return nil
}

func checkInstructions(where string, ixs []Instruction, want InstructionRepr) error {
	for i, ix := range ixs {
		if ix == nil {
			return shapeMismatch("%s[%d] is nil", where, i)
		}
		if got := ix.Representation(); got != want {
			return shapeMismatch("%s[%d] is %s, descriptor wants %s", where, i, got, want)
		}
	}
	return nil
}

func putField[T any](m map[string]any, key string, f Field[T], conv func(T) any) {
	if f.IsNull() {
		m[key] = nil
		return
	}
	if v, ok := f.Get(); ok {
		m[key] = conv(v)
	}
}

func encodeVersion(v TransactionVersion) any {
	if v.IsLegacy() {
		return "legacy"
	}
	return int(v)
}

func encodeBody(body TransactionBody) any {
	switch b := body.(type) {
	case *JSONBody:
		instrs := make([]any, len(b.Message.Instructions))
		for i, ix := range b.Message.Instructions {
			instrs[i] = encodeInstruction(ix)
		}
		msg := map[string]any{
			"accountKeys": addressStrings(b.Message.AccountKeys),
			"header": map[string]any{
				"numRequiredSignatures":       b.Message.Header.NumRequiredSignatures,
				"numReadonlySignedAccounts":   b.Message.Header.NumReadonlySignedAccounts,
				"numReadonlyUnsignedAccounts": b.Message.Header.NumReadonlyUnsignedAccounts,
			},
			"recentBlockhash": b.Message.RecentBlockhash.String(),
			"instructions":    instrs,
		}
		putField(msg, "addressTableLookups", b.Message.AddressTableLookups, encodeLookups)
		return map[string]any{
			"signatures": signatureStrings(b.Signatures),
			"message":    msg,
		}
	case *JSONParsedBody:
		keys := make([]any, len(b.Message.AccountKeys))
		for i, k := range b.Message.AccountKeys {
			keys[i] = map[string]any{
				"pubkey":   k.Pubkey.String(),
				"signer":   k.Signer,
				"writable": k.Writable,
				"source":   string(k.Source),
			}
		}
		msg := map[string]any{
			"accountKeys":     keys,
			"recentBlockhash": b.Message.RecentBlockhash.String(),
			"instructions":    encodeInstructions(b.Message.Instructions),
		}
		putField(msg, "addressTableLookups", b.Message.AddressTableLookups, encodeLookups)
		return map[string]any{
			"signatures": signatureStrings(b.Signatures),
			"message":    msg,
		}
	case *Base64Body:
		return []string{b.Data, string(EncodingBase64)}
	case *Base58Body:
		return []string{b.Data, string(EncodingBase58)}
	default:
		return nil
	}
}

func encodeInstructions(ixs []Instruction) []any {
	out := make([]any, len(ixs))
	for i, ix := range ixs {
		out[i] = encodeInstruction(ix)
	}
	return out
}

func encodeInstruction(ix Instruction) any {
	switch v := ix.(type) {
	case *CompiledInstruction:
		return map[string]any{
			"programIdIndex": v.ProgramIDIndex,
			"accounts":       nonNil(v.Accounts),
			"data":           base58.Encode(v.Data),
		}
	case *ParsedInstruction:
		parsed := map[string]any{"type": v.Parsed.Type}
		putField(parsed, "info", v.Parsed.Info, func(raw json.RawMessage) any { return raw })
		return map[string]any{
			"program":   v.Program,
			"programId": v.ProgramID.String(),
			"parsed":    parsed,
		}
	case *PartiallyDecodedInstruction:
		return map[string]any{
			"programId": v.ProgramID.String(),
			"accounts":  addressStrings(v.Accounts),
			"data":      base58.Encode(v.Data),
		}
	default:
		return nil
	}
}

func encodeLookups(lookups []AddressTableLookup) any {
	out := make([]any, len(lookups))
	for i, l := range lookups {
		out[i] = map[string]any{
			"accountKey":      l.AccountKey.String(),
			"writableIndexes": byteInts(l.WritableIndexes),
			"readonlyIndexes": byteInts(l.ReadonlyIndexes),
		}
	}
	return out
}

func encodeMeta(m *TransactionMeta) map[string]any {
	out := map[string]any{
		"err":          rawOrNil(m.Err),
		"fee":          m.Fee,
		"preBalances":  nonNil(m.PreBalances),
		"postBalances": nonNil(m.PostBalances),
	}
	putField(out, "preTokenBalances", m.PreTokenBalances, encodeTokenBalances)
	putField(out, "postTokenBalances", m.PostTokenBalances, encodeTokenBalances)
	putField(out, "computeUnitsConsumed", m.ComputeUnitsConsumed, func(v uint64) any { return v })
	putField(out, "logMessages", m.LogMessages, func(v []string) any { return nonNil(v) })
	putField(out, "returnData", m.ReturnData, func(rd ReturnData) any {
		return map[string]any{
			"programId": rd.ProgramID.String(),
			"data":      []string{base64.StdEncoding.EncodeToString(rd.Data), string(EncodingBase64)},
		}
	})
	putField(out, "rewards", m.Rewards, encodeRewards)
	putField(out, "status", m.Status, func(st TransactionStatus) any {
		if st.Ok() {
			return map[string]any{"Ok": nil}
		}
		return map[string]any{"Err": st.Err}
	})
	putField(out, "innerInstructions", m.InnerInstructions, func(groups []InnerInstructions) any {
		enc := make([]any, len(groups))
		for i, g := range groups {
			enc[i] = map[string]any{
				"index":        g.Index,
				"instructions": encodeInstructions(g.Instructions),
			}
		}
		return enc
	})
	putField(out, "loadedAddresses", m.LoadedAddresses, func(la LoadedAddresses) any {
		return map[string]any{
			"writable": addressStrings(la.Writable),
			"readonly": addressStrings(la.Readonly),
		}
	})
	return out
}

func encodeTokenBalances(balances []TokenBalance) any {
	out := make([]any, len(balances))
	for i, b := range balances {
		amount := map[string]any{
			"amount":         b.UITokenAmount.Amount,
			"decimals":       b.UITokenAmount.Decimals,
			"uiAmountString": b.UITokenAmount.UIAmountString,
		}
		putField(amount, "uiAmount", b.UITokenAmount.UIAmount, func(v float64) any { return v })
		entry := map[string]any{
			"accountIndex":  b.AccountIndex,
			"mint":          b.Mint.String(),
			"uiTokenAmount": amount,
		}
		putField(entry, "owner", b.Owner, func(pk solana.PublicKey) any { return pk.String() })
		putField(entry, "programId", b.ProgramID, func(pk solana.PublicKey) any { return pk.String() })
		out[i] = entry
	}
	return out
}

func encodeRewards(rewards []Reward) any {
	out := make([]any, len(rewards))
	for i, r := range rewards {
		entry := map[string]any{
			"pubkey":      r.Pubkey.String(),
			"lamports":    r.Lamports,
			"postBalance": r.PostBalance,
		}
		putField(entry, "rewardType", r.RewardType, func(v string) any { return v })
		putField(entry, "commission", r.Commission, func(v uint8) any { return v })
		out[i] = entry
	}
	return out
}

func rawOrNil(raw json.RawMessage) any {
	if raw == nil {
		return nil
	}
	return raw
}

func addressStrings(keys []solana.PublicKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

func signatureStrings(sigs []solana.Signature) []string {
	out := make([]string, len(sigs))
	for i, s := range sigs {
		out[i] = s.String()
	}
	return out
}

// byteInts keeps []uint8 from being marshaled as a base64 string.
func byteInts(b []uint8) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
