package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/catalog"
	"github.com/roach88/strata/extract"
	"github.com/roach88/strata/internal/store"
	"github.com/roach88/strata/value"
	"github.com/roach88/strata/recwire"
)

// fixture wires a store, catalog, and engine around the recwire codec.
type fixture struct {
	st  *store.Store
	cat *catalog.Catalog
	eng *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := extract.NewRegistry()
	cat := catalog.New(catalog.BackendBTree, nil, reg, nil)

	_, err := cat.AddTable("User", []catalog.Column{
		{Name: "id", Kind: value.KindInt32, Indexed: true},
		{Name: "name", Kind: value.KindString},
		{Name: "email", Kind: value.KindString, Indexed: true},
		{Name: "age", Kind: value.KindInt32},
	})
	require.NoError(t, err)
	require.NoError(t, cat.MapTag("USER", "User"))
	reg.Set("User", recwire.Extractor([]recwire.ColumnSpec{
		{Name: "id", Kind: value.KindInt32},
		{Name: "name", Kind: value.KindString},
		{Name: "email", Kind: value.KindString},
		{Name: "age", Kind: value.KindInt32},
	}))

	_, err = cat.AddTable("Post", []catalog.Column{
		{Name: "id", Kind: value.KindInt32, Indexed: true},
		{Name: "user_id", Kind: value.KindInt32, Indexed: true},
		{Name: "title", Kind: value.KindString},
	})
	require.NoError(t, err)
	require.NoError(t, cat.MapTag("POST", "Post"))
	reg.Set("Post", recwire.Extractor([]recwire.ColumnSpec{
		{Name: "id", Kind: value.KindInt32},
		{Name: "user_id", Kind: value.KindInt32},
		{Name: "title", Kind: value.KindString},
	}))

	st := store.New(store.Options{})
	return &fixture{st: st, cat: cat, eng: New(st, cat, nil)}
}

func (f *fixture) addUser(t *testing.T, id int32, name, email string, age int32) {
	t.Helper()
	p := recwire.New("USER").
		Set(0, value.Int32(id)).
		Set(1, value.String(name)).
		Set(2, value.String(email)).
		Set(3, value.Int32(age)).
		Payload()
	_, err := f.st.IngestOne(p, f.cat.Route)
	require.NoError(t, err)
}

func (f *fixture) addPost(t *testing.T, id, userID int32, title string) {
	t.Helper()
	p := recwire.New("POST").
		Set(0, value.Int32(id)).
		Set(1, value.Int32(userID)).
		Set(2, value.String(title)).
		Payload()
	_, err := f.st.IngestOne(p, f.cat.Route)
	require.NoError(t, err)
}

func TestQuery_PointLookupByID(t *testing.T) {
	f := newFixture(t)
	for i := 1; i <= 1000; i++ {
		f.addUser(t, int32(i), fmt.Sprintf("User%d", i), fmt.Sprintf("user%d@test.com", i), int32(i%90))
	}

	plans, err := f.eng.Plans("SELECT name FROM User WHERE id = 500", nil)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, PlanEq, plans[0].Kind)
	assert.Equal(t, "id", plans[0].Column)

	res, err := f.eng.Query("SELECT name FROM User WHERE id = 500", nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []string{"name"}, res.Columns)
	assert.Equal(t, value.String("User500"), res.Rows[0][0])
}

func TestQuery_NonUniqueKeyFanOut(t *testing.T) {
	f := newFixture(t)
	for i := int32(0); i < 10; i++ {
		f.addUser(t, i, fmt.Sprintf("User%d", i), fmt.Sprintf("u%d@x", i), 20)
	}
	for i := int32(0); i < 50; i++ {
		f.addPost(t, i, i/5, fmt.Sprintf("Post%d", i))
	}

	for u := int32(0); u < 10; u++ {
		plans, err := f.eng.Plans("SELECT COUNT(*) FROM Post WHERE user_id = ?", []value.Value{value.Int32(u)})
		require.NoError(t, err)
		assert.Equal(t, PlanEq, plans[0].Kind)
		assert.Equal(t, "user_id", plans[0].Column)

		res, err := f.eng.Query("SELECT COUNT(*) FROM Post WHERE user_id = ?", []value.Value{value.Int32(u)})
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, value.Int64(5), res.Rows[0][0], "user %d", u)
	}
}

func TestQuery_RangeOnNonIndexedColumnScans(t *testing.T) {
	f := newFixture(t)
	for i := int32(0); i < 100; i++ {
		f.addUser(t, i, fmt.Sprintf("User%d", i), fmt.Sprintf("u%d@x", i), i)
	}

	const q = "SELECT COUNT(*) FROM User WHERE age BETWEEN 45 AND 55"
	plans, err := f.eng.Plans(q, nil)
	require.NoError(t, err)
	assert.Equal(t, PlanScan, plans[0].Kind, "age is not indexed")

	res, err := f.eng.Query(q, nil)
	require.NoError(t, err)
	assert.Equal(t, value.Int64(11), res.Rows[0][0])
}

func TestQuery_RangeOnIndexedColumnUsesIndex(t *testing.T) {
	f := newFixture(t)
	for i := int32(0); i < 100; i++ {
		f.addUser(t, i, fmt.Sprintf("User%d", i), fmt.Sprintf("u%d@x", i), i)
	}

	const q = "SELECT COUNT(*) FROM User WHERE id BETWEEN 10 AND 19"
	plans, err := f.eng.Plans(q, nil)
	require.NoError(t, err)
	assert.Equal(t, PlanRange, plans[0].Kind)

	res, err := f.eng.Query(q, nil)
	require.NoError(t, err)
	assert.Equal(t, value.Int64(10), res.Rows[0][0])
}

func TestQuery_EqPreferredOverRange(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, 1, "A", "a@x", 30)

	plans, err := f.eng.Plans("SELECT * FROM User WHERE email = 'a@x' AND id BETWEEN 0 AND 5", nil)
	require.NoError(t, err)
	assert.Equal(t, PlanEq, plans[0].Kind)
	assert.Equal(t, "email", plans[0].Column)
}

func TestQuery_EarlierColumnWinsTie(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, 1, "A", "a@x", 30)

	plans, err := f.eng.Plans("SELECT * FROM User WHERE email = 'a@x' AND id = 1", nil)
	require.NoError(t, err)
	assert.Equal(t, PlanEq, plans[0].Kind)
	assert.Equal(t, "id", plans[0].Column, "id is declared before email")
}

func TestQuery_TypeMismatchDegradesToScan(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, 1, "A", "a@x", 30)

	// A string bound to the integer id index cannot coerce.
	plans, err := f.eng.Plans("SELECT * FROM User WHERE id = 'oops'", nil)
	require.NoError(t, err)
	assert.Equal(t, PlanScan, plans[0].Kind)

	res, err := f.eng.Query("SELECT * FROM User WHERE id = 'oops'", nil)
	require.NoError(t, err)
	assert.Empty(t, res.Rows, "string never compares equal to an int")
}

func TestQuery_StarIncludesSyntheticColumns(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, 7, "G", "g@x", 41)

	res, err := f.eng.Query("SELECT * FROM User", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "email", "age", "_source", "_rowid", "_offset", "_data"}, res.Columns)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, value.Int32(7), row[0])
	assert.Equal(t, value.String(""), row[4], "_source empty for base table")
	assert.Equal(t, value.Int64(1), row[5], "_rowid equals sequence")
	assert.Equal(t, value.Int64(0), row[6], "_offset of first record")
	data, ok := row[7].(value.Bytes)
	require.True(t, ok)
	assert.Equal(t, "USER", string(data[4:8]))
}

func TestQuery_RowidStableLookup(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, 1, "A", "a@x", 10)
	f.addUser(t, 2, "B", "b@x", 20)

	res, err := f.eng.Query("SELECT _rowid FROM User WHERE id = 2", nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, value.Int64(2), res.Rows[0][0])
}

func TestQuery_OrderByLimitOffset(t *testing.T) {
	f := newFixture(t)
	ages := []int32{50, 10, 40, 30, 20}
	for i, age := range ages {
		f.addUser(t, int32(i+1), fmt.Sprintf("U%d", i+1), fmt.Sprintf("u%d@x", i+1), age)
	}

	res, err := f.eng.Query("SELECT age FROM User ORDER BY age", nil)
	require.NoError(t, err)
	var got []value.Value
	for _, r := range res.Rows {
		got = append(got, r[0])
	}
	assert.Equal(t, []value.Value{value.Int32(10), value.Int32(20), value.Int32(30), value.Int32(40), value.Int32(50)}, got)

	res, err = f.eng.Query("SELECT age FROM User ORDER BY age DESC LIMIT 2 OFFSET 1", nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, value.Int32(40), res.Rows[0][0])
	assert.Equal(t, value.Int32(30), res.Rows[1][0])
}

func TestQuery_OrderByTiesBreakBySequence(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, 3, "C", "c@x", 30)
	f.addUser(t, 1, "A", "a@x", 30)
	f.addUser(t, 2, "B", "b@x", 30)

	res, err := f.eng.Query("SELECT name FROM User ORDER BY age", nil)
	require.NoError(t, err)
	assert.Equal(t, value.String("C"), res.Rows[0][0])
	assert.Equal(t, value.String("A"), res.Rows[1][0])
	assert.Equal(t, value.String("B"), res.Rows[2][0])
}

func TestQuery_Aggregates(t *testing.T) {
	f := newFixture(t)
	for i := int32(1); i <= 4; i++ {
		f.addUser(t, i, fmt.Sprintf("U%d", i), fmt.Sprintf("u%d@x", i), i*10)
	}

	res, err := f.eng.Query("SELECT COUNT(*), SUM(age), MIN(age), MAX(age), AVG(age) FROM User", nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []string{"COUNT(*)", "SUM(age)", "MIN(age)", "MAX(age)", "AVG(age)"}, res.Columns)
	row := res.Rows[0]
	assert.Equal(t, value.Int64(4), row[0])
	assert.Equal(t, value.Int64(100), row[1])
	assert.Equal(t, value.Int32(10), row[2])
	assert.Equal(t, value.Int32(40), row[3])
	assert.Equal(t, value.Float64(25), row[4])
}

func TestQuery_AggregatesOverEmptyTable(t *testing.T) {
	f := newFixture(t)
	res, err := f.eng.Query("SELECT COUNT(*), SUM(age), AVG(age) FROM User", nil)
	require.NoError(t, err)
	row := res.Rows[0]
	assert.Equal(t, value.Int64(0), row[0])
	assert.True(t, value.IsNull(row[1]))
	assert.True(t, value.IsNull(row[2]))
}

func TestQuery_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.Query("SELECT * FROM Missing", nil)
	assert.True(t, IsNoSuchTable(err), "got %v", err)

	_, err = f.eng.Query("SELECT nope FROM User", nil)
	assert.True(t, IsNoSuchColumn(err), "got %v", err)

	_, err = f.eng.Query("SELECT * FROM User WHERE id = ?", nil)
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, ErrCodeBadParams, qe.Code)

	_, err = f.eng.Query("DELETE FROM User", nil)
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, ErrCodeBadQuery, qe.Code)
}

func TestQueryCount(t *testing.T) {
	f := newFixture(t)
	for i := int32(0); i < 20; i++ {
		f.addUser(t, i, fmt.Sprintf("U%d", i), fmt.Sprintf("u%d@x", i), i)
	}

	n, err := f.eng.QueryCount("SELECT * FROM User WHERE age >= 10", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	n, err = f.eng.QueryCount("SELECT * FROM User WHERE id = 3", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestQuery_UnifiedMultiSource(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cat.RegisterSource("satellite-1"))
	require.NoError(t, f.cat.RegisterSource("satellite-2"))
	f.cat.CreateUnifiedViews()

	ingest := func(source string, id int32, name string) {
		p := recwire.New("USER").
			Set(0, value.Int32(id)).
			Set(1, value.String(name)).
			Set(2, value.String(fmt.Sprintf("%s@%s", name, source))).
			Set(3, value.Int32(30)).
			Payload()
		tag := catalog.SyntheticTag("USER", source)
		_, err := f.st.IngestOneTagged(tag, p, f.cat.Route)
		require.NoError(t, err)
	}
	ingest("satellite-1", 1, "SatA")
	ingest("satellite-1", 2, "SatB")
	ingest("satellite-2", 100, "SatC")

	res, err := f.eng.Query(`SELECT id, name FROM "User@satellite-1"`, nil)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)

	res, err = f.eng.Query("SELECT _source, id, name FROM User", nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, value.String("satellite-1"), res.Rows[0][0])
	assert.Equal(t, value.String("satellite-2"), res.Rows[2][0])

	// Keyed lookup inside a variant still plans Eq.
	plans, err := f.eng.Plans(`SELECT * FROM "User@satellite-1" WHERE id = 2`, nil)
	require.NoError(t, err)
	assert.Equal(t, PlanEq, plans[0].Kind)
}

func TestQuery_UnregisteredTagInvisible(t *testing.T) {
	f := newFixture(t)
	p := recwire.New("GHST").Set(0, value.Int32(1)).Payload()
	_, err := f.st.IngestOne(p, f.cat.Route)
	require.NoError(t, err)

	n, err := f.eng.QueryCount("SELECT * FROM User", nil)
	require.NoError(t, err)
	assert.Zero(t, n, "record with unknown tag is invisible to queries")
	assert.Equal(t, uint64(1), f.st.Records(), "but retained by the store")
}
