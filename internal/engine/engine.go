package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/strata/internal/catalog"
	"github.com/roach88/strata/internal/queryir"
	"github.com/roach88/strata/internal/querysql"
	"github.com/roach88/strata/internal/store"
	"github.com/roach88/strata/value"
)

// Synthetic column names, available on every table after its declared
// columns.
const (
	ColSource = "_source"
	ColRowid  = "_rowid"
	ColOffset = "_offset"
	ColData   = "_data"
)

var syntheticColumns = []string{ColSource, ColRowid, ColOffset, ColData}

func isSynthetic(name string) bool {
	for _, s := range syntheticColumns {
		if s == name {
			return true
		}
	}
	return false
}

// Result is a fully materialised query result.
type Result struct {
	Columns []string
	Rows    [][]value.Value
}

// Engine evaluates the SQL subset over one store and catalog.
type Engine struct {
	st  *store.Store
	cat *catalog.Catalog
	log *slog.Logger
}

// New creates an engine. The engine holds no state of its own; it is a
// view over the store and catalog.
func New(st *store.Store, cat *catalog.Catalog, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{st: st, cat: cat, log: log}
}

// Query parses, plans, and executes sql, materialising rows into the value
// model.
func (e *Engine) Query(sql string, params []value.Value) (*Result, error) {
	x, err := e.prepare(sql, params)
	if err != nil {
		return nil, err
	}
	return x.run()
}

// QueryCount executes the plan without materialising rows and returns the
// match count.
func (e *Engine) QueryCount(sql string, params []value.Value) (int64, error) {
	x, err := e.prepare(sql, params)
	if err != nil {
		return 0, err
	}
	return x.count()
}

// Plans returns the access paths Query would use, one per participating
// table (a unified view plans each variant separately).
func (e *Engine) Plans(sql string, params []value.Value) ([]Plan, error) {
	x, err := e.prepare(sql, params)
	if err != nil {
		return nil, err
	}
	plans := make([]Plan, 0, len(x.tables))
	for _, t := range x.tables {
		plans = append(plans, bestIndex(t, x.sel.Where, x.params))
	}
	return plans, nil
}

// exec carries one prepared query.
type exec struct {
	e      *Engine
	sel    *queryir.Select
	params []value.Value
	tables []*catalog.Table
	out    []queryir.SelectColumn // select list with stars expanded
}

func (e *Engine) prepare(sql string, params []value.Value) (*exec, error) {
	sel, err := querysql.Parse(sql)
	if err != nil {
		return nil, &QueryError{Code: ErrCodeBadQuery, Message: err.Error()}
	}

	t, ok := e.cat.Lookup(sel.From)
	if !ok {
		return nil, noSuchTable(sel.From)
	}

	x := &exec{e: e, sel: sel, params: params}
	x.tables = []*catalog.Table{t}
	if t.Source == "" && e.cat.Unified(t.Name) {
		x.tables = append(x.tables, e.cat.VariantsOf(t.Name)...)
	}

	if n := sel.Placeholders(); n > len(params) {
		return nil, &QueryError{
			Code:    ErrCodeBadParams,
			Message: fmt.Sprintf("query binds %d parameters, %d supplied", n, len(params)),
		}
	}

	// Column references resolve against the declared schema plus the
	// synthetic columns; every variant shares the base schema.
	check := func(name string) error {
		if isSynthetic(name) || t.ColumnIndex(name) >= 0 {
			return nil
		}
		return noSuchColumn(t.Name, name)
	}
	for _, c := range sel.Columns {
		if c.Star {
			continue
		}
		if err := check(c.Name); err != nil {
			return nil, err
		}
	}
	for _, p := range sel.Where {
		if err := check(p.Column); err != nil {
			return nil, err
		}
	}
	if sel.OrderBy != nil {
		if err := check(sel.OrderBy.Column); err != nil {
			return nil, err
		}
	}

	// Expand the select list: a bare star becomes the declared columns
	// followed by the synthetic four.
	for _, c := range sel.Columns {
		if c.Star && c.Agg == queryir.AggNone {
			for _, col := range t.Columns {
				x.out = append(x.out, queryir.SelectColumn{Name: col.Name})
			}
			for _, s := range syntheticColumns {
				x.out = append(x.out, queryir.SelectColumn{Name: s})
			}
			continue
		}
		x.out = append(x.out, c)
	}

	return x, nil
}

// openAll plans each participating table and concatenates the cursors.
func (x *exec) openAll() (cursor, []Plan) {
	plans := make([]Plan, 0, len(x.tables))
	cursors := make([]cursor, 0, len(x.tables))
	for _, t := range x.tables {
		p := bestIndex(t, x.sel.Where, x.params)
		plans = append(plans, p)
		c, _ := openCursor(x.e.st, p)
		cursors = append(cursors, c)
	}
	if len(cursors) == 1 {
		return cursors[0], plans
	}
	return &multiCursor{cursors: cursors}, plans
}

// rowReader decodes columns of the current record lazily, caching a batch
// extraction per row.
type rowReader struct {
	x       *exec
	t       *catalog.Table
	ref     store.RecordRef
	batch   []value.Value
	batched bool
}

func (r *rowReader) col(name string) value.Value {
	switch name {
	case ColSource:
		return value.String(r.t.Source)
	case ColRowid:
		return value.Int64(r.ref.Sequence)
	case ColOffset:
		return value.Int64(r.ref.Offset)
	case ColData:
		cp := make([]byte, len(r.ref.Payload))
		copy(cp, r.ref.Payload)
		return value.Bytes(cp)
	}

	ord := r.t.ColumnIndex(name)
	if ord < 0 {
		return value.Null{}
	}
	ex := r.x.e.cat.Extractor(r.t)
	if ex == nil {
		return value.Null{}
	}
	if ex.FastWrite != nil {
		var sink valueSink
		if ex.FastWrite(r.ref.Payload, ord, &sink) {
			// The sink widens integers to Int64 and floats to Float64;
			// narrow back to the declared column kind when the value fits.
			if v, err := value.Coerce(r.t.Columns[ord].Kind, sink.v); err == nil {
				return v
			}
			return sink.v
		}
	}
	if ex.Batch != nil {
		if !r.batched {
			r.batch = make([]value.Value, len(r.t.Columns))
			ex.Batch(r.ref.Payload, r.batch)
			r.batched = true
		}
		return r.batch[ord]
	}
	if ex.Field != nil {
		return ex.Field(r.ref.Payload, name)
	}
	return value.Null{}
}

// match re-verifies every WHERE term against the row. Comparison follows
// the engine's total order, so nulls compare below every value and equal
// to each other.
func (x *exec) match(r *rowReader) bool {
	for _, p := range x.sel.Where {
		v := r.col(p.Column)
		operand, ok := p.Value.Resolve(x.params)
		if !ok {
			return false
		}
		switch p.Op {
		case queryir.OpEq:
			if value.Compare(v, operand) != 0 {
				return false
			}
		case queryir.OpLt:
			if value.Compare(v, operand) >= 0 {
				return false
			}
		case queryir.OpLe:
			if value.Compare(v, operand) > 0 {
				return false
			}
		case queryir.OpGt:
			if value.Compare(v, operand) <= 0 {
				return false
			}
		case queryir.OpGe:
			if value.Compare(v, operand) < 0 {
				return false
			}
		case queryir.OpBetween:
			hi, ok := p.Hi.Resolve(x.params)
			if !ok {
				return false
			}
			if value.Compare(v, operand) < 0 || value.Compare(v, hi) > 0 {
				return false
			}
		}
	}
	return true
}

type execRow struct {
	vals    []value.Value
	seq     uint64
	sortKey value.Value
}

func (x *exec) run() (*Result, error) {
	if x.sel.Aggregate() {
		return x.runAggregate()
	}

	cur, plans := x.openAll()
	x.logPlans(plans)

	// Without ORDER BY rows arrive in cursor order and LIMIT can stop the
	// walk early.
	earlyStop := x.sel.OrderBy == nil && x.sel.Limit >= 0
	want := x.sel.Offset + x.sel.Limit

	var rows []execRow
	for {
		ref, t, ok := cur.next()
		if !ok {
			break
		}
		r := &rowReader{x: x, t: t, ref: ref}
		if !x.match(r) {
			continue
		}
		row := execRow{vals: make([]value.Value, len(x.out)), seq: ref.Sequence}
		for i, c := range x.out {
			row.vals[i] = r.col(c.Name)
		}
		if x.sel.OrderBy != nil {
			row.sortKey = r.col(x.sel.OrderBy.Column)
		}
		rows = append(rows, row)
		if earlyStop && int64(len(rows)) >= want {
			break
		}
	}

	if ob := x.sel.OrderBy; ob != nil {
		desc := ob.Desc
		sort.SliceStable(rows, func(i, j int) bool {
			c := value.Compare(rows[i].sortKey, rows[j].sortKey)
			if c != 0 {
				if desc {
					return c > 0
				}
				return c < 0
			}
			return rows[i].seq < rows[j].seq
		})
	}

	rows = sliceWindow(rows, x.sel.Offset, x.sel.Limit)

	res := &Result{Columns: x.columnNames()}
	res.Rows = make([][]value.Value, len(rows))
	for i, r := range rows {
		res.Rows[i] = r.vals
	}
	return res, nil
}

func (x *exec) count() (int64, error) {
	cur, plans := x.openAll()
	x.logPlans(plans)

	var n int64
	for {
		ref, t, ok := cur.next()
		if !ok {
			break
		}
		r := &rowReader{x: x, t: t, ref: ref}
		if x.match(r) {
			n++
		}
	}
	return n, nil
}

// aggState accumulates one aggregate column.
type aggState struct {
	col      queryir.SelectColumn
	count    int64
	intSum   int64
	floatSum float64
	sawFloat bool
	min, max value.Value
}

func (a *aggState) add(v value.Value) {
	if a.col.Agg == queryir.AggCount {
		if a.col.Star || !value.IsNull(v) {
			a.count++
		}
		return
	}
	if value.IsNull(v) {
		return
	}
	a.count++
	if i, ok := value.AsInt64(v); ok && !a.sawFloat {
		a.intSum += i
	} else if f, ok := value.AsFloat64(v); ok {
		if !a.sawFloat {
			a.sawFloat = true
			a.floatSum = float64(a.intSum)
		}
		a.floatSum += f
	}
	if a.min == nil || value.Compare(v, a.min) < 0 {
		a.min = v
	}
	if a.max == nil || value.Compare(v, a.max) > 0 {
		a.max = v
	}
}

func (a *aggState) result() value.Value {
	switch a.col.Agg {
	case queryir.AggCount:
		return value.Int64(a.count)
	case queryir.AggSum:
		if a.count == 0 {
			return value.Null{}
		}
		if a.sawFloat {
			return value.Float64(a.floatSum)
		}
		return value.Int64(a.intSum)
	case queryir.AggMin:
		if a.min == nil {
			return value.Null{}
		}
		return a.min
	case queryir.AggMax:
		if a.max == nil {
			return value.Null{}
		}
		return a.max
	case queryir.AggAvg:
		if a.count == 0 {
			return value.Null{}
		}
		sum := a.floatSum
		if !a.sawFloat {
			sum = float64(a.intSum)
		}
		return value.Float64(sum / float64(a.count))
	}
	return value.Null{}
}

func (x *exec) runAggregate() (*Result, error) {
	cur, plans := x.openAll()
	x.logPlans(plans)

	states := make([]*aggState, len(x.out))
	for i, c := range x.out {
		states[i] = &aggState{col: c}
	}

	for {
		ref, t, ok := cur.next()
		if !ok {
			break
		}
		r := &rowReader{x: x, t: t, ref: ref}
		if !x.match(r) {
			continue
		}
		for _, s := range states {
			if s.col.Star {
				s.add(value.Null{})
			} else {
				s.add(r.col(s.col.Name))
			}
		}
	}

	row := make([]value.Value, len(states))
	for i, s := range states {
		row[i] = s.result()
	}
	return &Result{Columns: x.columnNames(), Rows: [][]value.Value{row}}, nil
}

func (x *exec) columnNames() []string {
	names := make([]string, len(x.out))
	for i, c := range x.out {
		switch {
		case c.Agg != queryir.AggNone && c.Star:
			names[i] = c.Agg.String() + "(*)"
		case c.Agg != queryir.AggNone:
			names[i] = fmt.Sprintf("%s(%s)", c.Agg, c.Name)
		default:
			names[i] = c.Name
		}
	}
	return names
}

func (x *exec) logPlans(plans []Plan) {
	if !x.e.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for _, p := range plans {
		x.e.log.Debug("query plan", "table", p.Table.Name, "kind", p.Kind.String(), "column", p.Column)
	}
}

func sliceWindow(rows []execRow, offset, limit int64) []execRow {
	if offset > 0 {
		if offset >= int64(len(rows)) {
			return nil
		}
		rows = rows[offset:]
	}
	if limit >= 0 && limit < int64(len(rows)) {
		rows = rows[:limit]
	}
	return rows
}
