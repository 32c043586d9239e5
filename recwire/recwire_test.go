package recwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/value"
)

func TestBuilderFieldRoundTrip(t *testing.T) {
	p := New("USER").
		Set(0, value.Int32(42)).
		Set(1, value.String("Alice")).
		Set(2, value.Float64(1.5)).
		Set(3, value.Bool(true)).
		Set(4, value.Bytes{0xde, 0xad}).
		Set(5, value.Null{}).
		Payload()

	assert.Equal(t, "USER", string(p[4:8]))
	assert.Equal(t, value.Int32(42), Field(p, 0))
	assert.Equal(t, value.String("Alice"), Field(p, 1))
	assert.Equal(t, value.Float64(1.5), Field(p, 2))
	assert.Equal(t, value.Bool(true), Field(p, 3))
	assert.Equal(t, value.Bytes{0xde, 0xad}, Field(p, 4))
	assert.True(t, value.IsNull(Field(p, 5)))
	assert.True(t, value.IsNull(Field(p, 9)), "absent column reads null")
}

func TestTagPadding(t *testing.T) {
	p := New("AB").Payload()
	assert.Equal(t, []byte{'A', 'B', 0, 0}, p[4:8])

	p = New("TOOLONG").Payload()
	assert.Equal(t, "TOOL", string(p[4:8]))
}

func TestFrame(t *testing.T) {
	b := New("USER").Set(0, value.Int32(1))
	framed := b.Frame()
	require.Equal(t, len(b.Payload())+4, len(framed))
	assert.Equal(t, b.Payload(), framed[4:])
	assert.Equal(t, Frame(b.Payload()), framed)
}

func TestExtractor(t *testing.T) {
	cols := []ColumnSpec{
		{Name: "id", Kind: value.KindInt32},
		{Name: "name", Kind: value.KindString},
		{Name: "age", Kind: value.KindInt32},
	}
	ex := Extractor(cols)
	p := New("USER").
		Set(0, value.Int32(7)).
		Set(1, value.String("Bob")).
		Set(2, value.Int32(25)).
		Payload()

	assert.Equal(t, value.Int32(7), ex.Field(p, "id"))
	assert.Equal(t, value.String("Bob"), ex.Field(p, "name"))
	assert.True(t, value.IsNull(ex.Field(p, "missing")))

	out := make([]value.Value, 3)
	ex.Batch(p, out)
	assert.Equal(t, value.Int32(7), out[0])
	assert.Equal(t, value.String("Bob"), out[1])
	assert.Equal(t, value.Int32(25), out[2])
}

func TestFieldOrderIndependence(t *testing.T) {
	p := New("USER").
		Set(2, value.Int32(25)).
		Set(0, value.Int32(7)).
		Payload()
	assert.Equal(t, value.Int32(7), Field(p, 0))
	assert.Equal(t, value.Int32(25), Field(p, 2))
	assert.True(t, value.IsNull(Field(p, 1)))
}

func TestTruncatedPayloadReadsNull(t *testing.T) {
	p := New("USER").Set(1, value.String("hello")).Payload()
	assert.True(t, value.IsNull(Field(p[:len(p)-2], 1)))
	assert.True(t, value.IsNull(Field(nil, 0)))
}
