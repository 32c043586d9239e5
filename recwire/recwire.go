// Package recwire is the reference payload codec used by the engine's own
// tooling and tests.
//
// The engine itself never interprets payload bytes; hosts supply
// extractors for whatever format they stream. recwire exists so that the
// CLI and the test suite have a concrete self-describing format to
// exercise the pipeline with:
//
//	bytes 0..4   reserved little-endian word (zero)
//	bytes 4..8   4-byte routing tag
//	then fields  [u16 LE column ordinal][u8 kind][value bytes]
//
// Integers are fixed-width little-endian, floats are IEEE-754 bits,
// strings and byte sequences carry a u32 length prefix. Fields may appear
// in any order; absent fields read as null.
package recwire

import (
	"encoding/binary"
	"math"

	"github.com/roach88/strata/extract"
	"github.com/roach88/strata/value"
)

const headerSize = 8

// Builder assembles one payload. The zero value is unusable; start with
// New.
type Builder struct {
	buf []byte
}

// New starts a payload with the given routing tag. Tags shorter than 4
// bytes are zero-padded, longer ones truncated.
func New(tag string) *Builder {
	b := &Builder{buf: make([]byte, headerSize, 64)}
	for i := 0; i < 4 && i < len(tag); i++ {
		b.buf[4+i] = tag[i]
	}
	return b
}

// Set appends a field for column ordinal col. Null values are encoded
// explicitly; decoding an absent column also yields null.
func (b *Builder) Set(col int, v value.Value) *Builder {
	b.buf = binary.LittleEndian.AppendUint16(b.buf, uint16(col))
	if value.IsNull(v) {
		b.buf = append(b.buf, byte(value.KindNull))
		return b
	}
	b.buf = append(b.buf, byte(v.Kind()))
	switch x := v.(type) {
	case value.Bool:
		if x {
			b.buf = append(b.buf, 1)
		} else {
			b.buf = append(b.buf, 0)
		}
	case value.Int8:
		b.buf = append(b.buf, byte(x))
	case value.Uint8:
		b.buf = append(b.buf, byte(x))
	case value.Int16:
		b.buf = binary.LittleEndian.AppendUint16(b.buf, uint16(x))
	case value.Uint16:
		b.buf = binary.LittleEndian.AppendUint16(b.buf, uint16(x))
	case value.Int32:
		b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(x))
	case value.Uint32:
		b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(x))
	case value.Int64:
		b.buf = binary.LittleEndian.AppendUint64(b.buf, uint64(x))
	case value.Uint64:
		b.buf = binary.LittleEndian.AppendUint64(b.buf, uint64(x))
	case value.Float32:
		b.buf = binary.LittleEndian.AppendUint32(b.buf, math.Float32bits(float32(x)))
	case value.Float64:
		b.buf = binary.LittleEndian.AppendUint64(b.buf, math.Float64bits(float64(x)))
	case value.String:
		b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(len(x)))
		b.buf = append(b.buf, x...)
	case value.Bytes:
		b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(len(x)))
		b.buf = append(b.buf, x...)
	}
	return b
}

// Payload returns the finished payload bytes.
func (b *Builder) Payload() []byte {
	return b.buf
}

// Frame returns the payload with its 4-byte little-endian length prefix,
// ready for the stream.
func (b *Builder) Frame() []byte {
	out := make([]byte, 4, 4+len(b.buf))
	binary.LittleEndian.PutUint32(out, uint32(len(b.buf)))
	return append(out, b.buf...)
}

// Frame prefixes an existing payload for the stream.
func Frame(payload []byte) []byte {
	out := make([]byte, 4, 4+len(payload))
	binary.LittleEndian.PutUint32(out, uint32(len(payload)))
	return append(out, payload...)
}

// Field scans the payload for column ordinal col and decodes its value.
// Missing columns and malformed tails read as null.
func Field(payload []byte, col int) value.Value {
	v, _ := scan(payload, col)
	return v
}

// scan walks the field list. Returns the value for col and whether it was
// present.
func scan(payload []byte, col int) (value.Value, bool) {
	p := payload
	if len(p) < headerSize {
		return value.Null{}, false
	}
	p = p[headerSize:]
	for len(p) >= 3 {
		ord := int(binary.LittleEndian.Uint16(p))
		kind := value.Kind(p[2])
		p = p[3:]
		v, rest, ok := decodeValue(kind, p)
		if !ok {
			return value.Null{}, false
		}
		if ord == col {
			return v, true
		}
		p = rest
	}
	return value.Null{}, false
}

func decodeValue(kind value.Kind, p []byte) (value.Value, []byte, bool) {
	need := func(n int) bool { return len(p) >= n }
	switch kind {
	case value.KindNull:
		return value.Null{}, p, true
	case value.KindBool:
		if !need(1) {
			return nil, nil, false
		}
		return value.Bool(p[0] != 0), p[1:], true
	case value.KindInt8:
		if !need(1) {
			return nil, nil, false
		}
		return value.Int8(p[0]), p[1:], true
	case value.KindUint8:
		if !need(1) {
			return nil, nil, false
		}
		return value.Uint8(p[0]), p[1:], true
	case value.KindInt16:
		if !need(2) {
			return nil, nil, false
		}
		return value.Int16(binary.LittleEndian.Uint16(p)), p[2:], true
	case value.KindUint16:
		if !need(2) {
			return nil, nil, false
		}
		return value.Uint16(binary.LittleEndian.Uint16(p)), p[2:], true
	case value.KindInt32:
		if !need(4) {
			return nil, nil, false
		}
		return value.Int32(binary.LittleEndian.Uint32(p)), p[4:], true
	case value.KindUint32:
		if !need(4) {
			return nil, nil, false
		}
		return value.Uint32(binary.LittleEndian.Uint32(p)), p[4:], true
	case value.KindInt64:
		if !need(8) {
			return nil, nil, false
		}
		return value.Int64(binary.LittleEndian.Uint64(p)), p[8:], true
	case value.KindUint64:
		if !need(8) {
			return nil, nil, false
		}
		return value.Uint64(binary.LittleEndian.Uint64(p)), p[8:], true
	case value.KindFloat32:
		if !need(4) {
			return nil, nil, false
		}
		return value.Float32(math.Float32frombits(binary.LittleEndian.Uint32(p))), p[4:], true
	case value.KindFloat64:
		if !need(8) {
			return nil, nil, false
		}
		return value.Float64(math.Float64frombits(binary.LittleEndian.Uint64(p))), p[8:], true
	case value.KindString, value.KindBytes:
		if !need(4) {
			return nil, nil, false
		}
		n := int(binary.LittleEndian.Uint32(p))
		if !need(4 + n) {
			return nil, nil, false
		}
		body := p[4 : 4+n]
		if kind == value.KindString {
			return value.String(body), p[4+n:], true
		}
		return value.Bytes(body), p[4+n:], true
	}
	return nil, nil, false
}

// ColumnSpec names one column for the generic extractor.
type ColumnSpec struct {
	Name string
	Kind value.Kind
}

// Extractor builds a generic engine extractor for a recwire-encoded table
// whose column ordinals follow declaration order.
func Extractor(cols []ColumnSpec) *extract.Extractor {
	byName := make(map[string]int, len(cols))
	for i, c := range cols {
		byName[c.Name] = i
	}
	return &extract.Extractor{
		Field: func(payload []byte, field string) value.Value {
			ord, ok := byName[field]
			if !ok {
				return value.Null{}
			}
			return Field(payload, ord)
		},
		Batch: func(payload []byte, out []value.Value) {
			for i := range out {
				if i < len(cols) {
					out[i] = Field(payload, i)
				} else {
					out[i] = value.Null{}
				}
			}
		},
		FastWrite: func(payload []byte, col int, sink extract.ColumnSink) bool {
			v, present := scan(payload, col)
			if !present {
				return false
			}
			switch x := v.(type) {
			case value.Null:
				sink.Null()
			case value.Bool:
				sink.Bool(bool(x))
			case value.Float32:
				sink.Float64(float64(x))
			case value.Float64:
				sink.Float64(float64(x))
			case value.String:
				sink.String(string(x))
			case value.Bytes:
				sink.Bytes(x)
			default:
				i, ok := value.AsInt64(v)
				if !ok {
					return false
				}
				sink.Int64(i)
			}
			return true
		},
	}
}
