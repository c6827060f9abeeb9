package txshape

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/tidwall/gjson"
)

// node is a located JSON value. path is the dotted location used in errors.
type node struct {
	r    gjson.Result
	path string
}

func (n node) at(key string) node {
	path := key
	if n.path != "" {
		path = n.path + "." + key
	}
	return node{r: n.r.Get(key), path: path}
}

func (n node) exists() bool { return n.r.Exists() }
func (n node) isNull() bool { return n.r.Exists() && n.r.Type == gjson.Null }

func kindOf(r gjson.Result) string {
	switch {
	case !r.Exists():
		return "absent"
	case r.IsObject():
		return "object"
	case r.IsArray():
		return "array"
	}
	switch r.Type {
	case gjson.Null:
		return "null"
	case gjson.True, gjson.False:
		return "boolean"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	default:
		return r.Type.String()
	}
}

func (n node) object() (node, error) {
	if !n.r.IsObject() {
		return node{}, typeMismatch(n.path, "object", kindOf(n.r))
	}
	return n, nil
}

func (n node) array() ([]node, error) {
	if !n.r.IsArray() {
		return nil, typeMismatch(n.path, "array", kindOf(n.r))
	}
	items := n.r.Array()
	out := make([]node, len(items))
	for i, it := range items {
		out[i] = node{r: it, path: fmt.Sprintf("%s[%d]", n.path, i)}
	}
	return out, nil
}

func (n node) str() (string, error) {
	if n.r.Type != gjson.String {
		return "", typeMismatch(n.path, "string", kindOf(n.r))
	}
	return n.r.Str, nil
}

func (n node) boolean() (bool, error) {
	if n.r.Type != gjson.True && n.r.Type != gjson.False {
		return false, typeMismatch(n.path, "boolean", kindOf(n.r))
	}
	return n.r.Bool(), nil
}

// uint parses the raw literal so large lamport values keep full precision.
func (n node) uint(bits int) (uint64, error) {
	if n.r.Type != gjson.Number {
		return 0, typeMismatch(n.path, fmt.Sprintf("uint%d", bits), kindOf(n.r))
	}
	v, err := strconv.ParseUint(n.r.Raw, 10, bits)
	if err != nil {
		return 0, typeMismatch(n.path, fmt.Sprintf("uint%d", bits), n.r.Raw)
	}
	return v, nil
}

func (n node) u64() (uint64, error) { return n.uint(64) }

func (n node) u16() (uint16, error) {
	v, err := n.uint(16)
	return uint16(v), err
}

func (n node) u8() (uint8, error) {
	v, err := n.uint(8)
	return uint8(v), err
}

func (n node) i64() (int64, error) {
	if n.r.Type != gjson.Number {
		return 0, typeMismatch(n.path, "int64", kindOf(n.r))
	}
	v, err := strconv.ParseInt(n.r.Raw, 10, 64)
	if err != nil {
		return 0, typeMismatch(n.path, "int64", n.r.Raw)
	}
	return v, nil
}

func (n node) float() (float64, error) {
	if n.r.Type != gjson.Number {
		return 0, typeMismatch(n.path, "number", kindOf(n.r))
	}
	v, err := strconv.ParseFloat(n.r.Raw, 64)
	if err != nil {
		return 0, typeMismatch(n.path, "number", n.r.Raw)
	}
	return v, nil
}

func (n node) address() (solana.PublicKey, error) {
	s, err := n.str()
	if err != nil {
		return solana.PublicKey{}, err
	}
	pk, perr := solana.PublicKeyFromBase58(s)
	if perr != nil {
		return solana.PublicKey{}, typeMismatch(n.path, "address", strconv.Quote(s))
	}
	return pk, nil
}

func (n node) signature() (solana.Signature, error) {
	s, err := n.str()
	if err != nil {
		return solana.Signature{}, err
	}
	sig, perr := solana.SignatureFromBase58(s)
	if perr != nil {
		return solana.Signature{}, typeMismatch(n.path, "signature", strconv.Quote(s))
	}
	return sig, nil
}

func (n node) blockhash() (solana.Hash, error) {
	s, err := n.str()
	if err != nil {
		return solana.Hash{}, err
	}
	h, perr := solana.HashFromBase58(s)
	if perr != nil {
		return solana.Hash{}, typeMismatch(n.path, "blockhash", strconv.Quote(s))
	}
	return h, nil
}

// base58Bytes decodes instruction data. Empty data is rendered as "".
func (n node) base58Bytes() ([]byte, error) {
	s, err := n.str()
	if err != nil {
		return nil, err
	}
	if s == "" {
		return []byte{}, nil
	}
	b, derr := base58.Decode(s)
	if derr != nil {
		return nil, typeMismatch(n.path, "base58 data", strconv.Quote(s))
	}
	return b, nil
}

// rawJSON keeps an opaque value in compact form.
func (n node) rawJSON() (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(n.r.Raw)); err != nil {
		return nil, typeMismatch(n.path, "JSON value", "invalid JSON")
	}
	return json.RawMessage(buf.Bytes()), nil
}

type rule uint8

const (
	ruleRequired rule = iota
	ruleRequiredNullable
	ruleOptional
	ruleOptionalNullable
)

func (r rule) mustExist() bool { return r == ruleRequired || r == ruleRequiredNullable }
func (r rule) allowsNull() bool { return r == ruleRequiredNullable || r == ruleOptionalNullable }

func decodeField[T any](n node, key string, r rule, parse func(node) (T, error)) (Field[T], error) {
	c := n.at(key)
	if !c.exists() {
		if r.mustExist() {
			return Field[T]{}, missingField(c.path)
		}
		return Absent[T](), nil
	}
	if c.isNull() {
		if !r.allowsNull() {
			return Field[T]{}, typeMismatch(c.path, "non-null value", "null")
		}
		return Null[T](), nil
	}
	v, err := parse(c)
	if err != nil {
		return Field[T]{}, err
	}
	return Some(v), nil
}

func required[T any](n node, key string, parse func(node) (T, error)) (T, error) {
	f, err := decodeField(n, key, ruleRequired, parse)
	v, _ := f.Get()
	return v, err
}

// decodeGated applies a descriptor presence rule. Gated fields are never null.
func decodeGated[T any](n node, key string, p Presence, parse func(node) (T, error)) (Field[T], error) {
	switch p {
	case PresenceForbidden:
		if c := n.at(key); c.exists() {
			return Field[T]{}, forbiddenField(c.path)
		}
		return Absent[T](), nil
	case PresenceRequired:
		return decodeField(n, key, ruleRequired, parse)
	default:
		return decodeField(n, key, ruleOptional, parse)
	}
}

func listOf[T any](parse func(node) (T, error)) func(node) ([]T, error) {
	return func(n node) ([]T, error) {
		items, err := n.array()
		if err != nil {
			return nil, err
		}
		out := make([]T, 0, len(items))
		for _, it := range items {
			v, err := parse(it)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
}

func forbidKeys(n node, keys ...string) error {
	for _, key := range keys {
		if c := n.at(key); c.exists() {
			return forbiddenField(c.path)
		}
	}
	return nil
}
