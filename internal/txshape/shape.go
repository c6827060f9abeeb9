package txshape

import "fmt"

// BodyFamily is the representation of the transaction field.
type BodyFamily uint8

const (
	FamilyJSON BodyFamily = iota + 1
	FamilyJSONParsed
	FamilyBase64
	FamilyBase58
)

func (f BodyFamily) String() string {
	switch f {
	case FamilyJSON:
		return "json"
	case FamilyJSONParsed:
		return "jsonParsed"
	case FamilyBase64:
		return "base64"
	case FamilyBase58:
		return "base58"
	default:
		return fmt.Sprintf("BodyFamily(%d)", uint8(f))
	}
}

// Structural reports whether the body is a JSON object with a message.
func (f BodyFamily) Structural() bool {
	return f == FamilyJSON || f == FamilyJSONParsed
}

// VersionMode says whether the response is version aware.
type VersionMode uint8

const (
	// VersionModeLegacy applies when no maxSupportedTransactionVersion was sent.
	VersionModeLegacy VersionMode = iota + 1
	// VersionModeVersioned applies when a maximum version was sent.
	VersionModeVersioned
)

func (m VersionMode) String() string {
	switch m {
	case VersionModeLegacy:
		return "legacy"
	case VersionModeVersioned:
		return "versioned"
	default:
		return fmt.Sprintf("VersionMode(%d)", uint8(m))
	}
}

// InstructionRepr is how instructions are rendered inside a record.
type InstructionRepr uint8

const (
	// InstructionsNone means the location carries no structural instructions.
	InstructionsNone InstructionRepr = iota
	// InstructionsCompiled is {programIdIndex, accounts: indices, data}.
	InstructionsCompiled
	// InstructionsParsed is the parsed / partially-decoded union.
	InstructionsParsed
)

func (r InstructionRepr) String() string {
	switch r {
	case InstructionsNone:
		return "none"
	case InstructionsCompiled:
		return "compiled"
	case InstructionsParsed:
		return "parsed"
	default:
		return fmt.Sprintf("InstructionRepr(%d)", uint8(r))
	}
}

// Presence is the rule a descriptor applies to a gated field.
type Presence uint8

const (
	PresenceForbidden Presence = iota
	PresenceRequired
	PresenceOptional
)

func (p Presence) String() string {
	switch p {
	case PresenceForbidden:
		return "forbidden"
	case PresenceRequired:
		return "required"
	case PresenceOptional:
		return "optional"
	default:
		return fmt.Sprintf("Presence(%d)", uint8(p))
	}
}

// Shape tags one resolvable (encoding, version mode) combination.
type Shape uint8

const (
	ShapeJSONLegacy Shape = iota + 1
	ShapeJSONVersioned
	ShapeJSONParsedLegacy
	ShapeJSONParsedVersioned
	ShapeBase64Legacy
	ShapeBase64Versioned
	ShapeBase58Legacy
	ShapeBase58Versioned
)

// Shapes lists every tag.
var Shapes = []Shape{
	ShapeJSONLegacy,
	ShapeJSONVersioned,
	ShapeJSONParsedLegacy,
	ShapeJSONParsedVersioned,
	ShapeBase64Legacy,
	ShapeBase64Versioned,
	ShapeBase58Legacy,
	ShapeBase58Versioned,
}

func (s Shape) String() string {
	if d, ok := shapeTable[s]; ok {
		return fmt.Sprintf("%s/%s", d.Encoding, d.VersionMode)
	}
	return fmt.Sprintf("Shape(%d)", uint8(s))
}

// ShapeDescriptor is everything a caller needs to know about a response
// before issuing the call.
type ShapeDescriptor struct {
	Shape       Shape
	Encoding    Encoding
	Family      BodyFamily
	VersionMode VersionMode

	// MaxVersion is the highest version tag accepted in versioned mode.
	MaxVersion uint8

	BodyInstructions  InstructionRepr
	InnerInstructions InstructionRepr

	Version             Presence
	// AddressTableLookups is relaxed to optional for records whose version
	// tag is "legacy", even in versioned mode.
	AddressTableLookups Presence
	LoadedAddresses     Presence
}

var shapeTable = map[Shape]ShapeDescriptor{
	ShapeJSONLegacy: {
		Shape:               ShapeJSONLegacy,
		Encoding:            EncodingJSON,
		Family:              FamilyJSON,
		VersionMode:         VersionModeLegacy,
		BodyInstructions:    InstructionsCompiled,
		InnerInstructions:   InstructionsCompiled,
		Version:             PresenceForbidden,
		AddressTableLookups: PresenceForbidden,
		LoadedAddresses:     PresenceForbidden,
	},
	ShapeJSONVersioned: {
		Shape:               ShapeJSONVersioned,
		Encoding:            EncodingJSON,
		Family:              FamilyJSON,
		VersionMode:         VersionModeVersioned,
		BodyInstructions:    InstructionsCompiled,
		InnerInstructions:   InstructionsCompiled,
		Version:             PresenceRequired,
		AddressTableLookups: PresenceRequired,
		// Nodes report the resolved lookups for json too; only blobs depend on it.
		LoadedAddresses: PresenceOptional,
	},
	ShapeJSONParsedLegacy: {
		Shape:               ShapeJSONParsedLegacy,
		Encoding:            EncodingJSONParsed,
		Family:              FamilyJSONParsed,
		VersionMode:         VersionModeLegacy,
		BodyInstructions:    InstructionsParsed,
		InnerInstructions:   InstructionsParsed,
		Version:             PresenceForbidden,
		AddressTableLookups: PresenceForbidden,
		LoadedAddresses:     PresenceForbidden,
	},
	ShapeJSONParsedVersioned: {
		Shape:               ShapeJSONParsedVersioned,
		Encoding:            EncodingJSONParsed,
		Family:              FamilyJSONParsed,
		VersionMode:         VersionModeVersioned,
		BodyInstructions:    InstructionsParsed,
		InnerInstructions:   InstructionsParsed,
		Version:             PresenceRequired,
		AddressTableLookups: PresenceRequired,
		LoadedAddresses:     PresenceForbidden,
	},
	ShapeBase64Legacy: {
		Shape:               ShapeBase64Legacy,
		Encoding:            EncodingBase64,
		Family:              FamilyBase64,
		VersionMode:         VersionModeLegacy,
		BodyInstructions:    InstructionsNone,
		InnerInstructions:   InstructionsCompiled,
		Version:             PresenceForbidden,
		AddressTableLookups: PresenceForbidden,
		LoadedAddresses:     PresenceForbidden,
	},
	ShapeBase64Versioned: {
		Shape:               ShapeBase64Versioned,
		Encoding:            EncodingBase64,
		Family:              FamilyBase64,
		VersionMode:         VersionModeVersioned,
		BodyInstructions:    InstructionsNone,
		InnerInstructions:   InstructionsCompiled,
		Version:             PresenceRequired,
		AddressTableLookups: PresenceForbidden,
		LoadedAddresses:     PresenceRequired,
	},
	ShapeBase58Legacy: {
		Shape:               ShapeBase58Legacy,
		Encoding:            EncodingBase58,
		Family:              FamilyBase58,
		VersionMode:         VersionModeLegacy,
		BodyInstructions:    InstructionsNone,
		InnerInstructions:   InstructionsCompiled,
		Version:             PresenceForbidden,
		AddressTableLookups: PresenceForbidden,
		LoadedAddresses:     PresenceForbidden,
	},
	ShapeBase58Versioned: {
		Shape:               ShapeBase58Versioned,
		Encoding:            EncodingBase58,
		Family:              FamilyBase58,
		VersionMode:         VersionModeVersioned,
		BodyInstructions:    InstructionsNone,
		InnerInstructions:   InstructionsCompiled,
		Version:             PresenceRequired,
		AddressTableLookups: PresenceForbidden,
		LoadedAddresses:     PresenceRequired,
	},
}

// Resolve computes the response shape for a request configuration.
// It is pure and total: an unknown encoding falls back to the default, so
// callers that need strictness run RequestConfig.Validate first.
func Resolve(cfg RequestConfig) ShapeDescriptor {
	enc := cfg.EffectiveEncoding()
	if _, ok := lookupEncoding(string(enc)); !ok {
		enc = DefaultEncoding
	}
	bound, versioned := cfg.MaxSupportedTransactionVersion.Get()

	d := shapeTable[shapeFor(enc, versioned)]
	if versioned {
		d.MaxVersion = bound
	}
	return d
}

// Describe returns the table row for a shape tag.
func Describe(s Shape) (ShapeDescriptor, bool) {
	d, ok := shapeTable[s]
	return d, ok
}

func shapeFor(enc Encoding, versioned bool) Shape {
	var s Shape
	switch enc {
	case EncodingJSONParsed:
		s = ShapeJSONParsedLegacy
	case EncodingBase64:
		s = ShapeBase64Legacy
	case EncodingBase58:
		s = ShapeBase58Legacy
	default:
		s = ShapeJSONLegacy
	}
	// Versioned tags directly follow their legacy counterpart.
	if versioned {
		s++
	}
	return s
}

// canonical rebuilds d from its shape tag. Only MaxVersion is taken from d,
// so edited presence or family fields never change how a record is read.
func (d ShapeDescriptor) canonical() (ShapeDescriptor, bool) {
	c, ok := shapeTable[d.Shape]
	if !ok {
		return d, false
	}
	if c.VersionMode == VersionModeVersioned {
		c.MaxVersion = d.MaxVersion
	}
	return c, true
}

// forVersion narrows a versioned descriptor to the tag a record carries.
// Legacy messages have no lookup tables, so a node omits addressTableLookups
// for them even in versioned mode.
func (d ShapeDescriptor) forVersion(v Field[TransactionVersion]) ShapeDescriptor {
	if tag, ok := v.Get(); ok && tag.IsLegacy() && d.AddressTableLookups == PresenceRequired {
		d.AddressTableLookups = PresenceOptional
	}
	return d
}
