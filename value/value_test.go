package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare_NullOrdering(t *testing.T) {
	assert.Equal(t, 0, Compare(Null{}, Null{}))
	assert.Equal(t, -1, Compare(Null{}, Int32(0)))
	assert.Equal(t, 1, Compare(Int32(0), Null{}))
	assert.Equal(t, -1, Compare(nil, String("")))
}

func TestCompare_IntegerWidths(t *testing.T) {
	// Any integer pair compares as int64 regardless of declared width.
	cases := []struct {
		a, b Value
		want int
	}{
		{Int8(-1), Int64(0), -1},
		{Int32(500), Int32(500), 0},
		{Uint8(200), Int16(100), 1},
		{Uint32(math.MaxUint32), Int64(math.MaxUint32), 0},
		{Int64(math.MinInt64), Uint16(0), -1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Compare(c.a, c.b), "%v vs %v", c.a, c.b)
	}
}

func TestCompare_MixedNumeric(t *testing.T) {
	assert.Equal(t, 0, Compare(Float64(3), Int32(3)))
	assert.Equal(t, -1, Compare(Int32(3), Float32(3.5)))
	assert.Equal(t, 1, Compare(Float64(10.1), Int64(10)))
}

func TestCompare_StringsAndBytes(t *testing.T) {
	assert.Equal(t, -1, Compare(String("abc"), String("abd")))
	assert.Equal(t, -1, Compare(String("ab"), String("abc")))
	assert.Equal(t, 0, Compare(String(""), String("")))

	assert.Equal(t, -1, Compare(Bytes{1, 2}, Bytes{1, 3}))
	assert.Equal(t, 1, Compare(Bytes{1, 2, 0}, Bytes{1, 2}))
}

func TestCompare_Bools(t *testing.T) {
	assert.Equal(t, -1, Compare(Bool(false), Bool(true)))
	assert.Equal(t, 0, Compare(Bool(true), Bool(true)))
}

func TestCompare_IncomparableKindsUseOrdinal(t *testing.T) {
	// string vs bytes: neither numeric nor same kind, ordinal decides.
	assert.Equal(t, -1, Compare(String("z"), Bytes{0}))
	assert.Equal(t, 1, Compare(Bytes{0}, String("z")))
	// bool vs int: bool is not numeric, ordinal decides.
	assert.Equal(t, -1, Compare(Bool(true), Int8(-128)))
}

func TestAsInt64_Widening(t *testing.T) {
	for _, v := range []Value{Int8(7), Int16(7), Int32(7), Int64(7), Uint8(7), Uint16(7), Uint32(7), Uint64(7)} {
		i, ok := AsInt64(v)
		require.True(t, ok, "%T", v)
		assert.Equal(t, int64(7), i)
	}
	_, ok := AsInt64(Float64(7))
	assert.False(t, ok)
	_, ok = AsInt64(String("7"))
	assert.False(t, ok)
}

func TestCoerce_IntegerRanges(t *testing.T) {
	v, err := Coerce(KindInt32, Int64(500))
	require.NoError(t, err)
	assert.Equal(t, Int32(500), v)

	_, err = Coerce(KindInt8, Int64(200))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = Coerce(KindUint16, Int32(-1))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	v, err = Coerce(KindUint64, Uint64(math.MaxUint64))
	require.NoError(t, err)
	assert.Equal(t, Uint64(math.MaxUint64), v)
}

func TestCoerce_Strict(t *testing.T) {
	_, err := Coerce(KindString, Int64(1))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = Coerce(KindInt64, String("1"))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	v, err := Coerce(KindFloat64, Int32(2))
	require.NoError(t, err)
	assert.Equal(t, Float64(2), v)

	v, err = Coerce(KindBytes, Null{})
	require.NoError(t, err)
	assert.True(t, IsNull(v))
}

func TestFromAnyNativeRoundTrip(t *testing.T) {
	inputs := []any{nil, true, int(5), int64(-9), uint32(7), float64(1.5), "hi", []byte{1, 2}}
	for _, in := range inputs {
		v, ok := FromAny(in)
		require.True(t, ok, "%T", in)
		switch in := in.(type) {
		case nil:
			assert.Nil(t, Native(v))
		case int:
			assert.Equal(t, int64(in), Native(v))
		case uint32:
			assert.Equal(t, int64(in), Native(v))
		default:
			assert.Equal(t, in, Native(v))
		}
	}
	_, ok := FromAny(struct{}{})
	assert.False(t, ok)
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("int")
	require.True(t, ok)
	assert.Equal(t, KindInt32, k)

	k, ok = ParseKind("double")
	require.True(t, ok)
	assert.Equal(t, KindFloat64, k)

	_, ok = ParseKind("monster")
	assert.False(t, ok)
}
