package txshape

import (
	"fmt"

	"github.com/gagliardetto/solana-go/rpc"
)

// Encoding is the transaction encoding requested from getTransaction.
type Encoding string

const (
	EncodingJSON       Encoding = "json"
	EncodingJSONParsed Encoding = "jsonParsed"
	EncodingBase64     Encoding = "base64"
	EncodingBase58     Encoding = "base58"
)

// DefaultEncoding is used when the request does not name one.
const DefaultEncoding = EncodingJSON

// Encodings lists every supported encoding in resolution order.
var Encodings = []Encoding{EncodingJSON, EncodingJSONParsed, EncodingBase64, EncodingBase58}

// ParseEncoding converts a wire tag into an Encoding.
// An empty string yields the default encoding.
func ParseEncoding(s string) (Encoding, error) {
	if s == "" {
		return DefaultEncoding, nil
	}
	enc, ok := lookupEncoding(s)
	if !ok {
		return "", invalidEnumValue("encoding", s)
	}
	return enc, nil
}

func lookupEncoding(s string) (Encoding, bool) {
	for _, enc := range Encodings {
		if string(enc) == s {
			return enc, true
		}
	}
	return "", false
}

// isBlob reports whether the encoding serializes the whole transaction to text.
func (e Encoding) isBlob() bool {
	return e == EncodingBase64 || e == EncodingBase58
}

// VersionBound is the maxSupportedTransactionVersion request field.
// The zero value is the absent bound: only legacy transactions are accepted.
type VersionBound struct {
	set bool
	max uint8
}

// NoVersionBound returns the absent bound.
func NoVersionBound() VersionBound {
	return VersionBound{}
}

// MaxVersion returns a bound accepting transaction versions up to n.
func MaxVersion(n uint8) VersionBound {
	return VersionBound{set: true, max: n}
}

// Get returns the bound and whether it is present.
func (b VersionBound) Get() (uint8, bool) {
	return b.max, b.set
}

// IsSet reports whether a maximum version was requested.
func (b VersionBound) IsSet() bool {
	return b.set
}

func (b VersionBound) String() string {
	if !b.set {
		return "none"
	}
	return fmt.Sprintf("%d", b.max)
}

// RequestConfig is the configuration object sent with getTransaction.
// Encoding and MaxSupportedTransactionVersion together decide the response shape.
type RequestConfig struct {
	Commitment                     rpc.CommitmentType
	MaxSupportedTransactionVersion VersionBound
	Encoding                       Encoding
}

// EffectiveEncoding returns the configured encoding, or the default when unset.
func (c RequestConfig) EffectiveEncoding() Encoding {
	if c.Encoding == "" {
		return DefaultEncoding
	}
	return c.Encoding
}

// Validate rejects encodings and commitments outside the closed sets.
func (c RequestConfig) Validate() error {
	if c.Encoding != "" {
		if _, ok := lookupEncoding(string(c.Encoding)); !ok {
			return invalidEnumValue("encoding", string(c.Encoding))
		}
	}
	switch c.Commitment {
	case "", rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		return invalidEnumValue("commitment", string(c.Commitment))
	}
	return nil
}

// Params renders the config as the second positional getTransaction parameter.
// Unset fields are omitted so the node applies its own defaults.
func (c RequestConfig) Params() map[string]interface{} {
	params := map[string]interface{}{
		"encoding": string(c.EffectiveEncoding()),
	}
	if c.Commitment != "" {
		params["commitment"] = string(c.Commitment)
	}
	if v, ok := c.MaxSupportedTransactionVersion.Get(); ok {
		params["maxSupportedTransactionVersion"] = v
	}
	return params
}
