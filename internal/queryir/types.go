// Package queryir defines the parsed form of the SQL subset the engine
// evaluates.
//
// This package contains type definitions and structural validation only;
// parsing lives in querysql, planning and execution in engine. Values are
// always placeholders or literals — never interpolated text.
package queryir

import "github.com/roach88/strata/value"

// Agg identifies an aggregate function in the select list.
type Agg int

const (
	AggNone Agg = iota
	AggCount
	AggSum
	AggMin
	AggMax
	AggAvg
)

var aggNames = map[Agg]string{
	AggCount: "COUNT",
	AggSum:   "SUM",
	AggMin:   "MIN",
	AggMax:   "MAX",
	AggAvg:   "AVG",
}

func (a Agg) String() string { return aggNames[a] }

// SelectColumn is one entry of the select list: a bare star, a named
// column, or an aggregate over a column or star.
type SelectColumn struct {
	Star bool   // `*` or COUNT(*)
	Name string // column name when not Star
	Agg  Agg
}

// Op is a comparison operator in a WHERE term.
type Op int

const (
	OpEq Op = iota
	OpLt
	OpLe
	OpGt
	OpGe
	OpBetween
)

var opNames = map[Op]string{
	OpEq:      "=",
	OpLt:      "<",
	OpLe:      "<=",
	OpGt:      ">",
	OpGe:      ">=",
	OpBetween: "BETWEEN",
}

func (o Op) String() string { return opNames[o] }

// Expr is a comparison operand: a positional placeholder or a literal.
type Expr struct {
	Placeholder bool
	Index       int // 0-based placeholder slot
	Literal     value.Value
}

// Resolve returns the operand value under the given parameter list.
func (e Expr) Resolve(params []value.Value) (value.Value, bool) {
	if !e.Placeholder {
		return e.Literal, true
	}
	if e.Index < 0 || e.Index >= len(params) {
		return nil, false
	}
	return params[e.Index], true
}

// Predicate is one conjunct of the WHERE clause. Hi is set only for
// BETWEEN.
type Predicate struct {
	Column string
	Op     Op
	Value  Expr
	Hi     Expr
}

// OrderBy names the sort column and direction.
type OrderBy struct {
	Column string
	Desc   bool
}

// Select is the parsed query. Where terms are ANDed.
type Select struct {
	Columns []SelectColumn
	From    string
	Where   []Predicate
	OrderBy *OrderBy
	Limit   int64 // -1 when absent
	Offset  int64
}

// Aggregate reports whether the select list is an aggregate query.
func (s *Select) Aggregate() bool {
	for _, c := range s.Columns {
		if c.Agg != AggNone {
			return true
		}
	}
	return false
}

// Placeholders returns the number of parameter slots the query binds.
func (s *Select) Placeholders() int {
	n := 0
	bump := func(e Expr) {
		if e.Placeholder && e.Index >= n {
			n = e.Index + 1
		}
	}
	for _, p := range s.Where {
		bump(p.Value)
		if p.Op == OpBetween {
			bump(p.Hi)
		}
	}
	return n
}
