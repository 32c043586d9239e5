package engine

import (
	"github.com/roach88/strata/internal/catalog"
	"github.com/roach88/strata/internal/index"
	"github.com/roach88/strata/internal/store"
	"github.com/roach88/strata/value"
)

// cursor yields one borrowed record per step. The table is carried along
// because a unified view interleaves cursors over several variants.
type cursor interface {
	// next advances and returns the current record, or ok=false at EOF.
	next() (ref store.RecordRef, table *catalog.Table, ok bool)
}

// tagCursor walks a table's tag list in insertion order: the Scan path.
type tagCursor struct {
	st    *store.Store
	table *catalog.Table
	pos   int
	count int
}

func newTagCursor(st *store.Store, t *catalog.Table) *tagCursor {
	return &tagCursor{st: st, table: t, count: st.CountByTag(t.Tag)}
}

func (c *tagCursor) next() (store.RecordRef, *catalog.Table, bool) {
	for c.pos < c.count {
		ref, ok := c.st.ByTagIndex(c.table.Tag, c.pos)
		c.pos++
		if ok {
			return ref, c.table, true
		}
	}
	return store.RecordRef{}, nil, false
}

// entryCursor walks index entries: the Eq and Range paths.
type entryCursor struct {
	st      *store.Store
	table   *catalog.Table
	entries []index.Entry
	pos     int
}

func (c *entryCursor) next() (store.RecordRef, *catalog.Table, bool) {
	for c.pos < len(c.entries) {
		e := c.entries[c.pos]
		c.pos++
		payload, ok := c.st.At(e.Offset)
		if ok {
			return store.RecordRef{Offset: e.Offset, Sequence: e.Sequence, Payload: payload}, c.table, true
		}
	}
	return store.RecordRef{}, nil, false
}

// multiCursor concatenates cursors, one per source variant.
type multiCursor struct {
	cursors []cursor
	pos     int
}

func (c *multiCursor) next() (store.RecordRef, *catalog.Table, bool) {
	for c.pos < len(c.cursors) {
		if ref, t, ok := c.cursors[c.pos].next(); ok {
			return ref, t, ok
		}
		c.pos++
	}
	return store.RecordRef{}, nil, false
}

// openCursor materialises the access path a plan describes.
func openCursor(st *store.Store, p Plan) (cursor, error) {
	switch p.Kind {
	case PlanEq:
		entries, err := p.Table.Indices[p.Column].Search(p.Key)
		if err != nil {
			// Coercion is checked at plan time; treat a late mismatch as
			// an empty result rather than failing the query.
			entries = nil
		}
		return &entryCursor{st: st, table: p.Table, entries: entries}, nil
	case PlanRange:
		entries, err := p.Table.Indices[p.Column].Range(p.Lo, p.Hi)
		if err != nil {
			entries = nil
		}
		return &entryCursor{st: st, table: p.Table, entries: entries}, nil
	default:
		return newTagCursor(st, p.Table), nil
	}
}

// valueSink adapts the extractor fast path into a Value slot. String and
// byte slices may borrow the payload, so Bytes copies before retaining.
type valueSink struct {
	v value.Value
}

func (s *valueSink) Null()             { s.v = value.Null{} }
func (s *valueSink) Bool(b bool)       { s.v = value.Bool(b) }
func (s *valueSink) Int64(i int64)     { s.v = value.Int64(i) }
func (s *valueSink) Float64(f float64) { s.v = value.Float64(f) }
func (s *valueSink) String(str string) { s.v = value.String(str) }
func (s *valueSink) Bytes(b []byte) {
	cp := make([]byte, len(b))
	copy(cp, b)
	s.v = value.Bytes(cp)
}
