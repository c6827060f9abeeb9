package txshape

import (
	"errors"
	"fmt"
	"strings"
)

// Decode failure categories. Every *DecodeError unwraps to exactly one of these.
var (
	ErrMissingField     = errors.New("missing field")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrForbiddenField   = errors.New("forbidden field present")
	ErrInvalidEnumValue = errors.New("invalid enum value")
)

// ErrShapeMismatch is returned by Encode for records that do not fit the descriptor.
var ErrShapeMismatch = errors.New("record does not match shape")

// ErrorKind classifies a DecodeError.
type ErrorKind uint8

const (
	KindMissingField ErrorKind = iota + 1
	KindTypeMismatch
	KindForbiddenField
	KindInvalidEnumValue
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissingField:
		return "missing_field"
	case KindTypeMismatch:
		return "type_mismatch"
	case KindForbiddenField:
		return "forbidden_field"
	case KindInvalidEnumValue:
		return "invalid_enum_value"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindMissingField:
		return ErrMissingField
	case KindTypeMismatch:
		return ErrTypeMismatch
	case KindForbiddenField:
		return ErrForbiddenField
	case KindInvalidEnumValue:
		return ErrInvalidEnumValue
	default:
		return nil
	}
}

// DecodeError is a structural violation found while decoding a response.
type DecodeError struct {
	Kind ErrorKind
	// Field is the name of the offending field, e.g. "addressTableLookups".
	Field string
	// Path locates the field in the payload, e.g. "transaction.message.addressTableLookups".
	Path string

	// Expected and Actual are set for KindTypeMismatch.
	Expected string
	Actual   string

	// Value is set for KindInvalidEnumValue.
	Value string
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case KindMissingField:
		return fmt.Sprintf("missing field %q", e.Path)
	case KindTypeMismatch:
		return fmt.Sprintf("type mismatch at %q: expected %s, got %s", e.Path, e.Expected, e.Actual)
	case KindForbiddenField:
		return fmt.Sprintf("forbidden field %q present", e.Path)
	case KindInvalidEnumValue:
		return fmt.Sprintf("invalid value %q for %q", e.Value, e.Path)
	default:
		return fmt.Sprintf("decode error at %q", e.Path)
	}
}

// Unwrap exposes the category sentinel to errors.Is.
func (e *DecodeError) Unwrap() error {
	return e.Kind.sentinel()
}

func missingField(path string) *DecodeError {
	return &DecodeError{Kind: KindMissingField, Field: leafName(path), Path: path}
}

func typeMismatch(path, expected, actual string) *DecodeError {
	return &DecodeError{Kind: KindTypeMismatch, Field: leafName(path), Path: path, Expected: expected, Actual: actual}
}

func forbiddenField(path string) *DecodeError {
	return &DecodeError{Kind: KindForbiddenField, Field: leafName(path), Path: path}
}

func invalidEnumValue(path, value string) *DecodeError {
	return &DecodeError{Kind: KindInvalidEnumValue, Field: leafName(path), Path: path, Value: value}
}

// leafName strips the parent path: "meta.innerInstructions[0].index" -> "index".
func leafName(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}
