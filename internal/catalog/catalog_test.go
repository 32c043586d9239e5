package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/extract"
	"github.com/roach88/strata/value"
	"github.com/roach88/strata/recwire"
)

var userCols = []Column{
	{Name: "id", Kind: value.KindInt32, Indexed: true},
	{Name: "name", Kind: value.KindString},
	{Name: "email", Kind: value.KindString, Indexed: true},
}

func userPayload(id int32, name, email string) []byte {
	return recwire.New("USER").
		Set(0, value.Int32(id)).
		Set(1, value.String(name)).
		Set(2, value.String(email)).
		Payload()
}

func newUserCatalog(t *testing.T) (*Catalog, *extract.Registry) {
	t.Helper()
	reg := extract.NewRegistry()
	reg.Set("User", recwire.Extractor([]recwire.ColumnSpec{
		{Name: "id", Kind: value.KindInt32},
		{Name: "name", Kind: value.KindString},
		{Name: "email", Kind: value.KindString},
	}))
	c := New(BackendBTree, nil, reg, nil)
	_, err := c.AddTable("User", userCols)
	require.NoError(t, err)
	require.NoError(t, c.MapTag("USER", "User"))
	return c, reg
}

func TestAddTable_Duplicate(t *testing.T) {
	c, _ := newUserCatalog(t)
	_, err := c.AddTable("User", userCols)
	assert.Error(t, err)
}

func TestMapTag(t *testing.T) {
	c, _ := newUserCatalog(t)

	tbl, ok := c.LookupTag("USER")
	require.True(t, ok)
	assert.Equal(t, "User", tbl.Name)

	assert.Error(t, c.MapTag("POST", "Post"), "unknown table")

	_, err := c.AddTable("Post", []Column{{Name: "id", Kind: value.KindInt32, Indexed: true}})
	require.NoError(t, err)
	assert.Error(t, c.MapTag("USER", "Post"), "tag already bound")
	assert.NoError(t, c.MapTag("POST", "Post"))
}

func TestRoute_PopulatesIndices(t *testing.T) {
	c, _ := newUserCatalog(t)

	p := userPayload(42, "Alice", "alice@example.com")
	c.Route("USER", p, 1, 0)

	tbl, _ := c.Lookup("User")
	got, err := tbl.Indices["id"].Search(value.Int32(42))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].Sequence)
	assert.Equal(t, uint32(len(p)), got[0].Length)

	got, err = tbl.Indices["email"].Search(value.String("alice@example.com"))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRoute_UnknownTagIsSilent(t *testing.T) {
	c, _ := newUserCatalog(t)
	c.Route("NOPE", userPayload(1, "x", "y"), 1, 0) // must not panic

	tbl, _ := c.Lookup("User")
	all, err := tbl.Indices["id"].All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRoute_NoExtractorIndexesNothing(t *testing.T) {
	reg := extract.NewRegistry()
	c := New(BackendBTree, nil, reg, nil)
	_, err := c.AddTable("User", userCols)
	require.NoError(t, err)
	require.NoError(t, c.MapTag("USER", "User"))

	c.Route("USER", userPayload(1, "a", "b"), 1, 0)
	tbl, _ := c.Lookup("User")
	all, err := tbl.Indices["id"].All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSyntheticTag(t *testing.T) {
	a := SyntheticTag("USER", "satellite-1")
	b := SyntheticTag("USER", "satellite-2")
	c := SyntheticTag("POST", "satellite-1")

	assert.Len(t, a, 4)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, SyntheticTag("USER", "satellite-1"), "deterministic")
}

func TestRegisterSource_CreatesVariants(t *testing.T) {
	c, _ := newUserCatalog(t)
	require.NoError(t, c.RegisterSource("satellite-1"))
	require.NoError(t, c.RegisterSource("ground-station"))
	assert.Error(t, c.RegisterSource("satellite-1"), "duplicate source")

	v, ok := c.Lookup("User@satellite-1")
	require.True(t, ok)
	assert.Equal(t, "User", v.Base)
	assert.Equal(t, "satellite-1", v.Source)
	assert.Equal(t, SyntheticTag("USER", "satellite-1"), v.Tag)
	require.NotNil(t, c.Extractor(v), "variant snapshots the base extractor")

	// Routing by synthetic tag populates the variant's own indices.
	c.Route(v.Tag, userPayload(7, "SatUser", "sat@space.com"), 1, 0)
	got, err := v.Indices["id"].Search(value.Int32(7))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	base, _ := c.Lookup("User")
	all, err := base.Indices["id"].All()
	require.NoError(t, err)
	assert.Empty(t, all, "base table unaffected")

	assert.Equal(t, []string{"satellite-1", "ground-station"}, c.Sources())
}

func TestRegisterSource_SnapshotDoesNotFollowLaterExtractors(t *testing.T) {
	reg := extract.NewRegistry()
	c := New(BackendBTree, nil, reg, nil)
	_, err := c.AddTable("User", userCols)
	require.NoError(t, err)
	require.NoError(t, c.MapTag("USER", "User"))

	// Source registered before the extractor: the variant snapshot is nil.
	require.NoError(t, c.RegisterSource("early"))
	reg.Set("User", recwire.Extractor([]recwire.ColumnSpec{{Name: "id", Kind: value.KindInt32}}))

	v, _ := c.Lookup("User@early")
	assert.Nil(t, c.Extractor(v))

	// A source registered after sees it.
	require.NoError(t, c.RegisterSource("late"))
	v2, _ := c.Lookup("User@late")
	assert.NotNil(t, c.Extractor(v2))
}

func TestUnifiedViews(t *testing.T) {
	c, _ := newUserCatalog(t)
	require.NoError(t, c.RegisterSource("s1"))
	require.NoError(t, c.RegisterSource("s2"))

	assert.False(t, c.Unified("User"))
	c.CreateUnifiedViews()
	assert.True(t, c.Unified("User"))

	variants := c.VariantsOf("User")
	require.Len(t, variants, 2)
	assert.Equal(t, "User@s1", variants[0].Name)
	assert.Equal(t, "User@s2", variants[1].Name)
}

func TestTablesOrder(t *testing.T) {
	c, _ := newUserCatalog(t)
	_, err := c.AddTable("Post", []Column{{Name: "id", Kind: value.KindInt32, Indexed: true}})
	require.NoError(t, err)
	require.NoError(t, c.MapTag("POST", "Post"))
	require.NoError(t, c.RegisterSource("s1"))

	names := c.Tables()
	assert.Equal(t, []string{"User", "Post", "Post@s1", "User@s1"}, names)
}

func TestClearIndices(t *testing.T) {
	c, _ := newUserCatalog(t)
	c.Route("USER", userPayload(1, "a", "a@x"), 1, 0)
	require.NoError(t, c.ClearIndices())

	tbl, _ := c.Lookup("User")
	all, err := tbl.Indices["id"].All()
	require.NoError(t, err)
	assert.Empty(t, all)
}
