package value

import "bytes"

// Compare imposes the total order used by every index. Returns -1, 0, or 1.
//
// Null sorts first; integer pairs compare as int64; any other numeric pair
// compares as float64; strings and byte sequences compare bytewise; bools
// order false < true; incomparable kinds fall back to the kind ordinal.
func Compare(a, b Value) int {
	if IsNull(a) {
		if IsNull(b) {
			return 0
		}
		return -1
	}
	if IsNull(b) {
		return 1
	}

	if ai, ok := AsInt64(a); ok {
		if bi, ok := AsInt64(b); ok {
			return cmpOrdered(ai, bi)
		}
	}

	if af, ok := AsFloat64(a); ok {
		if bf, ok := AsFloat64(b); ok {
			return cmpOrdered(af, bf)
		}
	}

	if as, ok := a.(String); ok {
		if bs, ok := b.(String); ok {
			return cmpOrdered(string(as), string(bs))
		}
	}

	if ab, ok := a.(Bytes); ok {
		if bb, ok := b.(Bytes); ok {
			return bytes.Compare(ab, bb)
		}
	}

	if av, ok := a.(Bool); ok {
		if bv, ok := b.(Bool); ok {
			switch {
			case av == bv:
				return 0
			case !bool(av):
				return -1
			default:
				return 1
			}
		}
	}

	return cmpOrdered(a.Kind(), b.Kind())
}

// Equal reports whether a and b compare as the same key.
func Equal(a, b Value) bool {
	return Compare(a, b) == 0
}

func cmpOrdered[T interface {
	~int64 | ~float64 | ~string | ~uint8
}](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
