package engine

import (
	"github.com/roach88/strata/internal/catalog"
	"github.com/roach88/strata/internal/queryir"
	"github.com/roach88/strata/value"
)

// PlanKind is the chosen access path for one table.
type PlanKind int

const (
	// PlanScan walks the table's tag list sequentially.
	PlanScan PlanKind = iota
	// PlanEq reads the matching entries of one index key.
	PlanEq
	// PlanRange reads an inclusive index interval.
	PlanRange
)

var planNames = [...]string{PlanScan: "Scan", PlanEq: "Eq", PlanRange: "Range"}

func (k PlanKind) String() string { return planNames[k] }

// Plan is the outcome of bestIndex for one table. Keys are already
// resolved against the bound parameters and coerced to the index kind.
type Plan struct {
	Kind   PlanKind
	Table  *catalog.Table
	Column string

	// Eq key.
	Key value.Value

	// Range interval. Bounds are inclusive for fetching; exclusive
	// operators are enforced by per-row predicate evaluation. A null Lo
	// means unbounded below.
	Lo, Hi value.Value
}

// bound accumulates range endpoints per indexed column.
type bound struct {
	lo, hi   value.Value
	hasLo    bool
	hasHi    bool
	colOrder int
}

// bestIndex selects the access path for one table given the query's WHERE
// terms and bound parameters.
//
// Preference: Eq over Range over Scan; among candidates of the same kind
// the column declared earliest wins. A parameter that cannot coerce to the
// key kind disqualifies its candidate, degrading toward a scan.
func bestIndex(t *catalog.Table, where []queryir.Predicate, params []value.Value) Plan {
	bestEq := -1
	var eqPlan Plan
	ranges := map[string]*bound{}

	for _, p := range where {
		col := p.Column
		idx, indexed := t.Indices[col]
		if !indexed {
			continue
		}
		order := t.ColumnIndex(col)
		if order < 0 {
			continue
		}

		resolve := func(e queryir.Expr) (value.Value, bool) {
			raw, ok := e.Resolve(params)
			if !ok {
				return nil, false
			}
			v, err := value.Coerce(idx.KeyKind(), raw)
			if err != nil || value.IsNull(v) {
				return nil, false
			}
			return v, true
		}

		switch p.Op {
		case queryir.OpEq:
			if k, ok := resolve(p.Value); ok {
				if bestEq == -1 || order < bestEq {
					bestEq = order
					eqPlan = Plan{Kind: PlanEq, Table: t, Column: col, Key: k}
				}
			}

		case queryir.OpBetween:
			lo, okLo := resolve(p.Value)
			hi, okHi := resolve(p.Hi)
			if okLo && okHi {
				b := rangeBound(ranges, col, order)
				b.lo, b.hasLo = lo, true
				b.hi, b.hasHi = hi, true
			}

		case queryir.OpGt, queryir.OpGe:
			if lo, ok := resolve(p.Value); ok {
				b := rangeBound(ranges, col, order)
				b.lo, b.hasLo = lo, true
			}

		case queryir.OpLt, queryir.OpLe:
			if hi, ok := resolve(p.Value); ok {
				b := rangeBound(ranges, col, order)
				b.hi, b.hasHi = hi, true
			}
		}
	}

	if bestEq >= 0 {
		return eqPlan
	}

	// A usable range needs an upper bound: the index interval fetch treats
	// a null low bound as unbounded below, but has no unbounded-above form.
	bestRange := -1
	var rangePlan Plan
	for col, b := range ranges {
		if !b.hasHi {
			continue
		}
		if bestRange == -1 || b.colOrder < bestRange {
			lo := value.Value(value.Null{})
			if b.hasLo {
				lo = b.lo
			}
			bestRange = b.colOrder
			rangePlan = Plan{Kind: PlanRange, Table: t, Column: col, Lo: lo, Hi: b.hi}
		}
	}
	if bestRange >= 0 {
		return rangePlan
	}

	return Plan{Kind: PlanScan, Table: t}
}

func rangeBound(m map[string]*bound, col string, order int) *bound {
	b, ok := m[col]
	if !ok {
		b = &bound{colOrder: order}
		m[col] = b
	}
	return b
}
