// Package catalog maps logical tables onto the record store and owns their
// secondary indices.
//
// The catalog holds the table-name and tag registries, routes every
// appended record to its table's indexed columns, and implements the
// multi-source facility: per-source table variants under synthetic tags and
// unified views over them.
package catalog

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/roach88/strata/extract"
	"github.com/roach88/strata/internal/index"
	"github.com/roach88/strata/value"
)

// Backend selects the index implementation for every table in a catalog.
type Backend string

const (
	BackendBTree  Backend = "btree"
	BackendSQLite Backend = "sqlite"
)

// Column is one declared table column.
type Column struct {
	Name    string
	Kind    value.Kind
	Indexed bool
}

// Table binds a logical table to a routing tag, its column schema, and its
// indices. Source variants snapshot the base table's extractor at
// registration time; changes to the base afterwards do not propagate.
type Table struct {
	Name    string
	Tag     string
	Source  string // empty for base tables
	Base    string // base table name for source variants
	Columns []Column

	Indices map[string]index.Index // indexed column name -> index

	// snapshot extractor for source variants; base tables resolve live.
	snapshot *extract.Extractor
}

// ColumnIndex returns the ordinal of a declared column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Catalog is the table registry. It composes the extractor registry and the
// index backend; the primary record copy lives in the store, never here.
type Catalog struct {
	backend    Backend
	companion  *sql.DB // shared sqlite handle; nil for the btree backend
	extractors *extract.Registry

	tables map[string]*Table
	byTag  map[string]*Table
	order  []string // base-table registration order

	sources []string
	unified map[string]bool // base tables with a unified view

	log *slog.Logger
}

// New creates an empty catalog over the given backend. companion is
// required for BackendSQLite and ignored otherwise.
func New(backend Backend, companion *sql.DB, reg *extract.Registry, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{
		backend:    backend,
		companion:  companion,
		extractors: reg,
		tables:     make(map[string]*Table),
		byTag:      make(map[string]*Table),
		unified:    make(map[string]bool),
		log:        log,
	}
}

// AddTable registers a base table and builds an index per indexed column.
func (c *Catalog) AddTable(name string, columns []Column) (*Table, error) {
	if _, ok := c.tables[name]; ok {
		return nil, fmt.Errorf("table %q already registered", name)
	}
	t := &Table{Name: name, Columns: columns, Indices: make(map[string]index.Index)}
	for _, col := range columns {
		if !col.Indexed {
			continue
		}
		idx, err := c.newIndex(name, col)
		if err != nil {
			return nil, err
		}
		t.Indices[col.Name] = idx
	}
	c.tables[name] = t
	c.order = append(c.order, name)
	return t, nil
}

func (c *Catalog) newIndex(table string, col Column) (index.Index, error) {
	if c.backend == BackendSQLite {
		idx, err := index.NewSQLite(c.companion, table, col.Name, col.Kind)
		if err != nil {
			return nil, fmt.Errorf("index %s.%s: %w", table, col.Name, err)
		}
		return idx, nil
	}
	return index.NewBTree(col.Kind), nil
}

// MapTag binds a routing tag to a registered table. A tag identifies at
// most one table.
func (c *Catalog) MapTag(tag, table string) error {
	t, ok := c.tables[table]
	if !ok {
		return fmt.Errorf("map tag %q: no table %q", tag, table)
	}
	if prev, ok := c.byTag[tag]; ok && prev != t {
		return fmt.Errorf("tag %q already bound to table %q", tag, prev.Name)
	}
	if t.Tag != "" && t.Tag != tag {
		delete(c.byTag, t.Tag)
	}
	t.Tag = tag
	c.byTag[tag] = t
	return nil
}

// Lookup returns a table by logical name.
func (c *Catalog) Lookup(name string) (*Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// LookupTag returns the table bound to a routing tag.
func (c *Catalog) LookupTag(tag string) (*Table, bool) {
	t, ok := c.byTag[tag]
	return t, ok
}

// Tables returns all table names: base tables in registration order, then
// source variants sorted by name.
func (c *Catalog) Tables() []string {
	names := append([]string(nil), c.order...)
	var variants []string
	for name, t := range c.tables {
		if t.Source != "" {
			variants = append(variants, name)
		}
	}
	sort.Strings(variants)
	return append(names, variants...)
}

// Extractor resolves the extractor serving a table: a source variant uses
// its registration-time snapshot, a base table resolves live.
func (c *Catalog) Extractor(t *Table) *extract.Extractor {
	if t.Source != "" {
		return t.snapshot
	}
	return c.extractors.Get(t.Name)
}

// Route is the store's ingest callback target: it populates the owning
// table's indices for one appended record. Unregistered tags are silently
// retained by the store and skipped here.
func (c *Catalog) Route(tag string, payload []byte, sequence, offset uint64) {
	t, ok := c.byTag[tag]
	if !ok {
		return
	}
	ex := c.Extractor(t)
	if ex == nil || ex.Field == nil || len(t.Indices) == 0 {
		return
	}
	for col, idx := range t.Indices {
		v := ex.Field(payload, col)
		if err := idx.Insert(v, offset, uint32(len(payload)), sequence); err != nil {
			// Extractors signal bad fields with null, so an insert error is
			// a declared-kind mismatch; the record stays scannable.
			c.log.Debug("index insert skipped",
				"table", t.Name, "column", col, "sequence", sequence, "err", err)
		}
	}
}

// SyntheticTag derives the routing tag for a source variant from the base
// tag and source name. The result is 4 bytes, like every routing tag.
func SyntheticTag(baseTag, source string) string {
	h := xxhash.Sum64String(baseTag + "\x00" + source)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(h))
	return string(b[:])
}

// RegisterSource snapshots every tagged base table into a "Table@source"
// variant with fresh indices under a synthetic tag. Extractors and tag
// mappings must be in place on the base tables first; later additions do
// not propagate to existing variants.
func (c *Catalog) RegisterSource(source string) error {
	for _, s := range c.sources {
		if s == source {
			return fmt.Errorf("source %q already registered", source)
		}
	}
	for _, baseName := range c.order {
		base := c.tables[baseName]
		if base.Tag == "" {
			continue
		}
		name := baseName + "@" + source
		v := &Table{
			Name:     name,
			Tag:      SyntheticTag(base.Tag, source),
			Source:   source,
			Base:     baseName,
			Columns:  base.Columns,
			Indices:  make(map[string]index.Index),
			snapshot: c.extractors.Get(baseName),
		}
		for _, col := range base.Columns {
			if !col.Indexed {
				continue
			}
			idx, err := c.newIndex(name, col)
			if err != nil {
				return err
			}
			v.Indices[col.Name] = idx
		}
		c.tables[name] = v
		c.byTag[v.Tag] = v
	}
	c.sources = append(c.sources, source)
	c.log.Debug("source registered", "source", source)
	return nil
}

// Sources lists registered sources in registration order.
func (c *Catalog) Sources() []string {
	return append([]string(nil), c.sources...)
}

// CreateUnifiedViews makes each base table with variants queryable as the
// union of its variants, in source-registration order.
func (c *Catalog) CreateUnifiedViews() {
	for _, baseName := range c.order {
		if len(c.VariantsOf(baseName)) > 0 {
			c.unified[baseName] = true
		}
	}
}

// Unified reports whether a base table has a unified view.
func (c *Catalog) Unified(base string) bool {
	return c.unified[base]
}

// VariantsOf returns a base table's source variants in source-registration
// order.
func (c *Catalog) VariantsOf(base string) []*Table {
	var out []*Table
	for _, source := range c.sources {
		if v, ok := c.tables[base+"@"+source]; ok {
			out = append(out, v)
		}
	}
	return out
}

// ClearIndices drops every index entry in every table, for load replay.
func (c *Catalog) ClearIndices() error {
	for _, t := range c.tables {
		for col, idx := range t.Indices {
			if err := idx.Clear(); err != nil {
				return fmt.Errorf("clear %s.%s: %w", t.Name, col, err)
			}
		}
	}
	return nil
}
