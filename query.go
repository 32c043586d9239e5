package strata

import (
	"fmt"

	"github.com/roach88/strata/internal/index"
	"github.com/roach88/strata/internal/store"
	"github.com/roach88/strata/value"
)

// Result is a materialised query result in the value model.
type Result struct {
	Columns []string
	Rows    [][]value.Value
}

// RowCount returns the number of result rows.
func (r *Result) RowCount() int { return len(r.Rows) }

// Record is a copied record returned by the find fast paths.
type Record struct {
	Sequence uint64
	Offset   uint64
	Payload  []byte
}

// Query plans and executes sql, materialising rows. Parameters bind
// positionally to ? placeholders and accept Go natives or value.Value.
func (db *Database) Query(sql string, params ...any) (*Result, error) {
	vals, err := bindParams(params)
	if err != nil {
		return nil, err
	}
	res, err := db.eng.Query(sql, vals)
	if err != nil {
		return nil, err
	}
	return &Result{Columns: res.Columns, Rows: res.Rows}, nil
}

// QueryCount executes the plan without materialising rows and returns the
// match count.
func (db *Database) QueryCount(sql string, params ...any) (int64, error) {
	vals, err := bindParams(params)
	if err != nil {
		return 0, err
	}
	return db.eng.QueryCount(sql, vals)
}

// QueryPlans reports the access paths Query would choose, one per
// participating table. Useful for asserting a lookup is keyed.
func (db *Database) QueryPlans(sql string, params ...any) ([]string, error) {
	vals, err := bindParams(params)
	if err != nil {
		return nil, err
	}
	plans, err := db.eng.Plans(sql, vals)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(plans))
	for i, p := range plans {
		out[i] = p.Kind.String()
	}
	return out, nil
}

func bindParams(params []any) ([]value.Value, error) {
	if len(params) == 0 {
		return nil, nil
	}
	vals := make([]value.Value, len(params))
	for i, p := range params {
		v, ok := value.FromAny(p)
		if !ok {
			return nil, fmt.Errorf("parameter %d: unsupported type %T", i+1, p)
		}
		vals[i] = v
	}
	return vals, nil
}

// FindByIndex returns a copy of every record whose indexed column matches
// key. Unknown tables and columns, and keys that cannot be converted to the
// index's key kind, return nil; a key with no match returns an empty slice.
func (db *Database) FindByIndex(table, column string, key any) []Record {
	idx, ok := db.lookupIndex(table, column)
	if !ok {
		return nil
	}
	k, ok := value.FromAny(key)
	if !ok {
		return nil
	}
	entries, err := idx.Search(k)
	if err != nil {
		return nil
	}
	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		payload, ok := db.st.At(e.Offset)
		if !ok {
			continue
		}
		cp := make([]byte, len(payload))
		copy(cp, payload)
		out = append(out, Record{Sequence: e.Sequence, Offset: e.Offset, Payload: cp})
	}
	return out
}

// FindOneByIndex returns a copy of the lowest-sequence match.
func (db *Database) FindOneByIndex(table, column string, key any) (Record, bool) {
	payload, seq, off, ok := db.findRaw(table, column, key)
	if !ok {
		return Record{}, false
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return Record{Sequence: seq, Offset: off, Payload: cp}, true
}

// FindRawByIndex is the zero-copy point read: the returned payload borrows
// the store buffer and is valid only until the next ingest.
func (db *Database) FindRawByIndex(table, column string, key any) (payload []byte, sequence uint64, ok bool) {
	payload, sequence, _, ok = db.findRaw(table, column, key)
	return payload, sequence, ok
}

func (db *Database) findRaw(table, column string, key any) (payload []byte, seq, off uint64, ok bool) {
	idx, found := db.lookupIndex(table, column)
	if !found {
		return nil, 0, 0, false
	}

	// Typed fast paths skip union dispatch for the common key shapes.
	switch k := key.(type) {
	case int:
		loc, hit, err := idx.SearchFirstInt64(int64(k))
		return db.resolveLoc(loc.Offset, loc.Sequence, hit, err)
	case int32:
		loc, hit, err := idx.SearchFirstInt64(int64(k))
		return db.resolveLoc(loc.Offset, loc.Sequence, hit, err)
	case int64:
		loc, hit, err := idx.SearchFirstInt64(k)
		return db.resolveLoc(loc.Offset, loc.Sequence, hit, err)
	case string:
		loc, hit, err := idx.SearchFirstString(k)
		return db.resolveLoc(loc.Offset, loc.Sequence, hit, err)
	}

	k, okV := value.FromAny(key)
	if !okV {
		return nil, 0, 0, false
	}
	e, hit, err := idx.SearchFirst(k)
	return db.resolveLoc(e.Offset, e.Sequence, hit, err)
}

func (db *Database) resolveLoc(offset, seq uint64, hit bool, err error) ([]byte, uint64, uint64, bool) {
	if err != nil || !hit {
		return nil, 0, 0, false
	}
	payload, ok := db.st.At(offset)
	if !ok {
		return nil, 0, 0, false
	}
	return payload, seq, offset, true
}

// IterateAll visits every record of a table in insertion order with
// borrowed payloads, returning the visit count. The visitor returns false
// to stop.
func (db *Database) IterateAll(table string, visit func(payload []byte, sequence uint64) bool) int {
	t, ok := db.cat.Lookup(table)
	if !ok {
		return 0
	}
	return db.IterateByTag(t.Tag, visit)
}

// IterateByTag visits every record carrying the 4-byte routing tag in
// insertion order with borrowed payloads, returning the visit count. The
// tag need not be bound to a table; records invisible to queries are still
// reachable here. The visitor returns false to stop.
func (db *Database) IterateByTag(tag string, visit func(payload []byte, sequence uint64) bool) int {
	n := 0
	db.st.IterateByTag(tag, func(r store.RecordRef) bool {
		n++
		return visit(r.Payload, r.Sequence)
	})
	return n
}

func (db *Database) lookupIndex(table, column string) (index.Index, bool) {
	t, ok := db.cat.Lookup(table)
	if !ok {
		return nil, false
	}
	idx, ok := t.Indices[column]
	return idx, ok
}
