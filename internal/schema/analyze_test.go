package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/value"
)

const userSchema = `
// Test schema
table User {
    id: int (id);
    name: string;
    email: string (key);
    age: int;
}
root_type User;
file_identifier "USER";
`

func analyzeOne(t *testing.T, src string) *Analysis {
	t.Helper()
	a := NewAnalyzer()
	a.AddSchema("test.fbs", src)
	res, err := a.Analyze()
	require.NoError(t, err)
	return res
}

func TestAnalyze_BasicTable(t *testing.T) {
	res := analyzeOne(t, userSchema)
	require.Empty(t, res.Errors)

	user := res.Tables["User"]
	require.NotNil(t, user)
	require.Len(t, user.Columns, 4)
	assert.Equal(t, "id", user.Columns[0].Name)
	assert.Equal(t, value.KindInt32, user.Columns[0].Kind)
	assert.True(t, user.Columns[0].Indexed)
	assert.False(t, user.Columns[1].Indexed)
	assert.True(t, user.Columns[2].Indexed, "(key) marks indexed")
	assert.Equal(t, []string{"id", "email"}, user.Indexed)

	assert.Equal(t, "User", res.RootType)
	assert.Equal(t, "USER", res.FileID)
}

func TestAnalyze_Defs(t *testing.T) {
	res := analyzeOne(t, userSchema+`
table Post {
    id: int (id);
    user_id: int (key);
    title: string;
}
`)
	defs := res.Defs()
	require.Len(t, defs, 2)
	assert.Equal(t, "User", defs[0].Name)
	assert.Equal(t, "Post", defs[1].Name)
	assert.Equal(t, []string{"id", "user_id"}, defs[1].Indexed)
}

func TestAnalyze_ScalarAliases(t *testing.T) {
	res := analyzeOne(t, `
table Mixed {
    a: long;
    b: double;
    c: ubyte;
    d: bool;
    e: bytes;
}
`)
	m := res.Tables["Mixed"]
	require.NotNil(t, m)
	kinds := []value.Kind{value.KindInt64, value.KindFloat64, value.KindUint8, value.KindBool, value.KindBytes}
	for i, k := range kinds {
		assert.Equal(t, k, m.Columns[i].Kind, m.Columns[i].Name)
	}
}

func TestAnalyze_References(t *testing.T) {
	res := analyzeOne(t, `
table Weapon { id: int (id); damage: int; }
table Shield { id: int (id); }
union Equipment { Weapon, Shield }
struct Vec3 { x: float; y: float; z: float; }
table Monster {
    id: int (id);
    pos: Vec3;
    weapon: Weapon;
    weapons: [Weapon];
    equipped: Equipment;
}
`)
	require.Empty(t, res.Errors, "%v", res.Errors)

	m := res.Tables["Monster"]
	require.NotNil(t, m)
	// pos is a struct: inlined, not a reference.
	require.Len(t, m.References, 3)
	assert.Equal(t, RelSingle, m.References[0].Relation)
	assert.Equal(t, RelVector, m.References[1].Relation)
	assert.Equal(t, RelUnion, m.References[2].Relation)
	assert.Equal(t, []string{"Weapon", "Shield"}, m.References[2].UnionTypes)
	assert.True(t, res.IsStruct("Vec3"))
}

func TestAnalyze_Junctions(t *testing.T) {
	res := analyzeOne(t, `
table Weapon { id: int (id); }
table Monster {
    id: int (id);
    weapons: [Weapon];
}
`)
	require.Len(t, res.Junctions, 1)
	j := res.Junctions[0]
	assert.Equal(t, "Monster__weapons", j.Name)
	assert.Equal(t, "Monster", j.Parent)
	assert.Equal(t, "Weapon", j.Child)
	assert.Equal(t, RelVector, j.Relation)

	sql := j.CreateSQL()
	assert.Contains(t, sql, `"Monster__weapons"`)
	assert.Contains(t, sql, "parent_rowid")
	assert.Contains(t, sql, "vector_index")
	assert.NotContains(t, sql, "union_type")
}

func TestAnalyze_IncludeGraphAndCycle(t *testing.T) {
	a := NewAnalyzer()
	a.AddSchema("a.fbs", `include "b.fbs"; table A { id: int (id); }`)
	a.AddSchema("b.fbs", `table B { id: int (id); }`)
	res, err := a.Analyze()
	require.NoError(t, err)
	assert.Nil(t, res.Cycle)
	assert.Equal(t, []string{"b.fbs", "a.fbs"}, res.Order)
	assert.True(t, res.Tables["B"].IsImported)
	assert.False(t, res.Tables["A"].IsImported)

	a = NewAnalyzer()
	a.AddSchema("a.fbs", `include "b.fbs"; table A { id: int; }`)
	a.AddSchema("b.fbs", `include "a.fbs"; table B { id: int; }`)
	res, err = a.Analyze()
	require.NoError(t, err)
	require.NotNil(t, res.Cycle)
	assert.NotEmpty(t, res.Errors)
}

func TestAnalyze_UnknownReferenceWarns(t *testing.T) {
	res := analyzeOne(t, `table A { ghost: Phantom; }`)
	assert.NotEmpty(t, res.Warnings)
	assert.Empty(t, res.Tables["A"].References)
}

func TestAnalyze_DuplicateTable(t *testing.T) {
	res := analyzeOne(t, `table A { id: int; } table A { id: int; }`)
	assert.NotEmpty(t, res.Errors)
}

func TestAnalyze_DefaultsAndComments(t *testing.T) {
	res := analyzeOne(t, `
/* block comment */
table T {
    a: int = 42; // default value
    b: string (key);
}
`)
	require.Empty(t, res.Errors, "%v", res.Errors)
	tbl := res.Tables["T"]
	require.Len(t, tbl.Columns, 2)
	assert.Equal(t, []string{"b"}, tbl.Indexed)
}

func TestAnalyze_NoSchemas(t *testing.T) {
	_, err := NewAnalyzer().Analyze()
	assert.Error(t, err)
}
