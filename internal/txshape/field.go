package txshape

type fieldState uint8

const (
	fieldAbsent fieldState = iota
	fieldNull
	fieldPresent
)

// Field is a wire field that can be absent from the payload, present but
// null, or present with a value. The zero value is absent.
type Field[T any] struct {
	state fieldState
	value T
}

// Absent returns a field missing from the payload.
func Absent[T any]() Field[T] {
	return Field[T]{}
}

// Null returns a field present as JSON null.
func Null[T any]() Field[T] {
	return Field[T]{state: fieldNull}
}

// Some returns a field carrying v.
func Some[T any](v T) Field[T] {
	return Field[T]{state: fieldPresent, value: v}
}

func (f Field[T]) IsAbsent() bool  { return f.state == fieldAbsent }
func (f Field[T]) IsNull() bool    { return f.state == fieldNull }
func (f Field[T]) IsPresent() bool { return f.state == fieldPresent }

// Get returns the value and whether one is present.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.state == fieldPresent
}

// OrElse returns the value, or def when the field is absent or null.
func (f Field[T]) OrElse(def T) T {
	if f.state == fieldPresent {
		return f.value
	}
	return def
}
