// Package schema parses the table-definition IDL and derives the schema
// facts the engine consumes: table names, typed columns, indexed columns,
// and — for hosts that want them — table-reference relationships and
// junction-table definitions.
//
// The format is the FlatBuffers-style IDL the wire format's tooling emits:
//
//	include "common.fbs";
//	table User {
//	    id: int (id);
//	    name: string;
//	    email: string (key);
//	}
//	union Equipment { Weapon, Shield }
//	root_type User;
//	file_identifier "USER";
//
// Columns marked (id) or (key) are indexed. Scalar and string fields become
// columns; fields referencing other tables, vectors of tables, and unions
// are recorded as references and surface as junction-table definitions.
// Junction derivation is schema-level only; the storage engine does not
// act on it.
package schema

import (
	"fmt"
	"strings"

	"github.com/roach88/strata/value"
)

// Relation classifies how a field references another table.
type Relation int

const (
	RelSingle Relation = iota // field: OtherTable (0..1)
	RelVector                 // field: [OtherTable] (0..N)
	RelUnion                  // field: UnionType (0..1, polymorphic)
	RelVectorUnion            // field: [UnionType] (0..N, polymorphic)
)

var relationNames = [...]string{
	RelSingle:      "single",
	RelVector:      "vector",
	RelUnion:       "union",
	RelVectorUnion: "vector_union",
}

func (r Relation) String() string { return relationNames[r] }

// Column is a scalar or string field usable as a table column.
type Column struct {
	Name    string
	Type    string
	Kind    value.Kind
	Indexed bool
}

// Reference is a field that points at another table or union.
type Reference struct {
	Field      string
	Target     string
	Relation   Relation
	UnionTypes []string
}

// Table is one parsed table declaration.
type Table struct {
	Name       string
	SourceFile string
	Columns    []Column
	Indexed    []string
	References []Reference
	IsImported bool
}

// Union is a parsed union declaration.
type Union struct {
	Name       string
	Members    []string
	SourceFile string
}

// Junction is a derived linking-table definition for one table reference.
type Junction struct {
	Name          string
	Parent        string
	Field         string
	Relation      Relation
	Child         string
	UnionChildren []string
}

// CreateSQL renders the junction table's DDL. The engine never executes
// it; it exists for hosts that materialise relationships elsewhere.
func (j Junction) CreateSQL() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE IF NOT EXISTS %q (\n", j.Name)
	sb.WriteString("  parent_rowid INTEGER NOT NULL,\n")
	sb.WriteString("  child_rowid INTEGER NOT NULL")
	if j.Relation == RelVector || j.Relation == RelVectorUnion {
		sb.WriteString(",\n  vector_index INTEGER")
	}
	if j.Relation == RelUnion || j.Relation == RelVectorUnion {
		sb.WriteString(",\n  union_type TEXT NOT NULL")
	}
	sb.WriteString("\n)")
	return sb.String()
}

// CycleInfo reports an include cycle by file path.
type CycleInfo struct {
	Path []string
}

// Analysis is the full result of analysing a schema set.
type Analysis struct {
	Tables     map[string]*Table
	Unions     map[string]Union
	Structs    map[string]bool
	Imports    map[string][]string // file -> included files
	Order      []string            // topological include order
	Junctions  []Junction
	Cycle      *CycleInfo
	Errors     []string
	Warnings   []string
	RootType   string
	FileID     string // file_identifier of the root schema, if declared

	tableOrder []string
}

// IsStruct reports whether a type is a struct (inlined, never a junction).
func (a *Analysis) IsStruct(name string) bool { return a.Structs[name] }

// TableDef is the distilled per-table shape the catalog consumes.
type TableDef struct {
	Name    string
	Columns []Column
	Indexed []string
}

// Defs returns the catalog-facing table definitions in declaration order
// of the root file first, then includes.
func (a *Analysis) Defs() []TableDef {
	var out []TableDef
	emit := func(imported bool) {
		for _, name := range a.tableOrder {
			t := a.Tables[name]
			if t != nil && t.IsImported == imported {
				out = append(out, TableDef{Name: t.Name, Columns: t.Columns, Indexed: t.Indexed})
			}
		}
	}
	emit(false)
	emit(true)
	return out
}

// tableOrder preserves declaration order; maps alone would scramble it.
func (a *Analysis) addTable(t *Table) {
	a.Tables[t.Name] = t
	a.tableOrder = append(a.tableOrder, t.Name)
}
