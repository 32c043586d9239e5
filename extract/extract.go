// Package extract defines the extractor contract by which the engine
// decodes column values out of opaque payloads.
//
// Extractors are supplied by the host: the engine never interprets payload
// bytes itself. All extractor functions must be pure, must not retain the
// payload slice past the call, and signal missing or corrupt fields by
// returning null rather than an error.
package extract

import "github.com/roach88/strata/value"

// FieldFunc extracts one named field from a payload. Used to populate
// secondary indices during ingest.
type FieldFunc func(payload []byte, field string) value.Value

// BatchFunc produces all declared columns in declaration order. out has one
// slot per column; unset slots are left null. Used for full-row
// materialisation.
type BatchFunc func(payload []byte, out []value.Value)

// ColumnSink receives a single column value on the query hot path. It is
// implemented by the query engine's cursor so that a fast writer can bind
// borrowed bytes directly instead of building a Value.
type ColumnSink interface {
	Null()
	Bool(bool)
	Int64(int64)
	Float64(float64)
	// String and Bytes may receive slices borrowed from the payload; the
	// sink must copy if it retains them past the call.
	String(string)
	Bytes([]byte)
}

// FastWriteFunc writes column col of the payload straight into sink,
// returning false when it does not handle that column. Callers fall back to
// FieldFunc on false.
type FastWriteFunc func(payload []byte, col int, sink ColumnSink) bool

// Extractor bundles the per-table extraction hooks. Field is required for
// indexed tables; Batch and FastWrite are optional refinements.
type Extractor struct {
	Field     FieldFunc
	Batch     BatchFunc
	FastWrite FastWriteFunc
}

// Registry maps table names to their extractors.
type Registry struct {
	byTable map[string]*Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byTable: make(map[string]*Extractor)}
}

// Set installs or replaces the extractor for a table.
func (r *Registry) Set(table string, ex *Extractor) {
	r.byTable[table] = ex
}

// SetField installs just the field extractor, keeping other hooks.
func (r *Registry) SetField(table string, fn FieldFunc) {
	r.ensure(table).Field = fn
}

// SetBatch installs just the batch extractor, keeping other hooks.
func (r *Registry) SetBatch(table string, fn BatchFunc) {
	r.ensure(table).Batch = fn
}

// SetFastWrite installs just the fast-path writer, keeping other hooks.
func (r *Registry) SetFastWrite(table string, fn FastWriteFunc) {
	r.ensure(table).FastWrite = fn
}

// Get returns the extractor for a table, or nil if none is registered. A
// table without an extractor is still routable; it just yields null on
// every column.
func (r *Registry) Get(table string) *Extractor {
	return r.byTable[table]
}

func (r *Registry) ensure(table string) *Extractor {
	ex := r.byTable[table]
	if ex == nil {
		ex = &Extractor{}
		r.byTable[table] = ex
	}
	return ex
}
