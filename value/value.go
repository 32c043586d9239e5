package value

import "fmt"

// Kind identifies the logical type of a Value. The ordinal order is part of
// the comparison contract: incomparable kinds sort by this ordinal.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindBytes
)

var kindNames = [...]string{
	KindNull:    "null",
	KindBool:    "bool",
	KindInt8:    "int8",
	KindInt16:   "int16",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindUint8:   "uint8",
	KindUint16:  "uint16",
	KindUint32:  "uint32",
	KindUint64:  "uint64",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindString:  "string",
	KindBytes:   "bytes",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsInteger reports whether the kind is one of the eight integer kinds.
func (k Kind) IsInteger() bool {
	return k >= KindInt8 && k <= KindUint64
}

// IsNumeric reports whether the kind is an integer or float kind.
func (k Kind) IsNumeric() bool {
	return k >= KindInt8 && k <= KindFloat64
}

// Value is a sealed interface over the scalar kinds. Only the types in this
// package implement it.
type Value interface {
	Kind() Kind
	value() // sealed
}

// Null is the absent value. The zero Value of the engine.
type Null struct{}

// Bool is a boolean value.
type Bool bool

// Int8 through Uint64 are the fixed-width integer values.
type (
	Int8   int8
	Int16  int16
	Int32  int32
	Int64  int64
	Uint8  uint8
	Uint16 uint16
	Uint32 uint32
	Uint64 uint64
)

// Float32 and Float64 are the IEEE-754 values.
type (
	Float32 float32
	Float64 float64
)

// String is a UTF-8 string value.
type String string

// Bytes is an opaque byte-sequence value.
type Bytes []byte

func (Null) value()    {}
func (Bool) value()    {}
func (Int8) value()    {}
func (Int16) value()   {}
func (Int32) value()   {}
func (Int64) value()   {}
func (Uint8) value()   {}
func (Uint16) value()  {}
func (Uint32) value()  {}
func (Uint64) value()  {}
func (Float32) value() {}
func (Float64) value() {}
func (String) value()  {}
func (Bytes) value()   {}

func (Null) Kind() Kind    { return KindNull }
func (Bool) Kind() Kind    { return KindBool }
func (Int8) Kind() Kind    { return KindInt8 }
func (Int16) Kind() Kind   { return KindInt16 }
func (Int32) Kind() Kind   { return KindInt32 }
func (Int64) Kind() Kind   { return KindInt64 }
func (Uint8) Kind() Kind   { return KindUint8 }
func (Uint16) Kind() Kind  { return KindUint16 }
func (Uint32) Kind() Kind  { return KindUint32 }
func (Uint64) Kind() Kind  { return KindUint64 }
func (Float32) Kind() Kind { return KindFloat32 }
func (Float64) Kind() Kind { return KindFloat64 }
func (String) Kind() Kind  { return KindString }
func (Bytes) Kind() Kind   { return KindBytes }

// IsNull reports whether v is nil or the Null value.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// AsInt64 extracts an integer value widened to int64. The second return is
// false for non-integer kinds. Uint64 values wrap per two's complement, the
// widening rule shared with the comparator.
func AsInt64(v Value) (int64, bool) {
	switch n := v.(type) {
	case Int32:
		return int64(n), true // most common in practice: (id) columns
	case Int64:
		return int64(n), true
	case Uint32:
		return int64(n), true
	case Uint64:
		return int64(n), true
	case Int16:
		return int64(n), true
	case Uint16:
		return int64(n), true
	case Int8:
		return int64(n), true
	case Uint8:
		return int64(n), true
	}
	return 0, false
}

// AsFloat64 extracts any numeric value as float64.
func AsFloat64(v Value) (float64, bool) {
	switch n := v.(type) {
	case Float64:
		return float64(n), true
	case Float32:
		return float64(n), true
	}
	if i, ok := AsInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

// AsString extracts a string value without union dispatch on the caller side.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

// Native converts a Value to its closest Go-native representation for
// surfaces that speak any (JSON output, database/sql parameters).
// Null becomes nil.
func Native(v Value) any {
	switch x := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(x)
	case Int8:
		return int64(x)
	case Int16:
		return int64(x)
	case Int32:
		return int64(x)
	case Int64:
		return int64(x)
	case Uint8:
		return int64(x)
	case Uint16:
		return int64(x)
	case Uint32:
		return int64(x)
	case Uint64:
		return int64(x)
	case Float32:
		return float64(x)
	case Float64:
		return float64(x)
	case String:
		return string(x)
	case Bytes:
		return []byte(x)
	}
	return nil
}

// FromAny lifts a Go-native value into the union. Signed and unsigned Go
// integers map to their fixed-width kinds; plain int maps to Int64.
// Unsupported types return Null and false.
func FromAny(v any) (Value, bool) {
	switch x := v.(type) {
	case nil:
		return Null{}, true
	case Value:
		return x, true
	case bool:
		return Bool(x), true
	case int:
		return Int64(x), true
	case int8:
		return Int8(x), true
	case int16:
		return Int16(x), true
	case int32:
		return Int32(x), true
	case int64:
		return Int64(x), true
	case uint8:
		return Uint8(x), true
	case uint16:
		return Uint16(x), true
	case uint32:
		return Uint32(x), true
	case uint64:
		return Uint64(x), true
	case float32:
		return Float32(x), true
	case float64:
		return Float64(x), true
	case string:
		return String(x), true
	case []byte:
		return Bytes(x), true
	}
	return Null{}, false
}

// ParseKind maps a schema type name to a Kind. Recognises the IDL aliases
// (int == int32, long == int64, float == float32, double == float64).
func ParseKind(name string) (Kind, bool) {
	switch name {
	case "bool":
		return KindBool, true
	case "byte", "int8":
		return KindInt8, true
	case "short", "int16":
		return KindInt16, true
	case "int", "int32":
		return KindInt32, true
	case "long", "int64":
		return KindInt64, true
	case "ubyte", "uint8":
		return KindUint8, true
	case "ushort", "uint16":
		return KindUint16, true
	case "uint", "uint32":
		return KindUint32, true
	case "ulong", "uint64":
		return KindUint64, true
	case "float", "float32":
		return KindFloat32, true
	case "double", "float64":
		return KindFloat64, true
	case "string":
		return KindString, true
	case "bytes":
		return KindBytes, true
	}
	return KindNull, false
}
