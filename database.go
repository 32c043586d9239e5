package strata

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/strata/extract"
	"github.com/roach88/strata/internal/catalog"
	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/index"
	"github.com/roach88/strata/internal/schema"
	"github.com/roach88/strata/internal/store"
	"github.com/roach88/strata/value"
)

// IndexBackend selects the secondary-index implementation.
type IndexBackend string

const (
	// IndexBTree keeps indices in an in-memory B-tree. The default.
	IndexBTree IndexBackend = "btree"
	// IndexSQLite keeps indices in companion tables of an embedded SQLite
	// database.
	IndexSQLite IndexBackend = "sqlite"
)

// Config is the host-supplied tuning knobs. The zero value is usable.
type Config struct {
	// InitialBufferCapacity presizes the record buffer. Default 1 MiB.
	InitialBufferCapacity int

	// MaxFrameLength rejects length prefixes above this as FrameTooLarge.
	// Default 256 MiB.
	MaxFrameLength uint32

	// StdinChunkSize is the CLI's stdin read size. Default 64 KiB. The
	// library itself does no I/O.
	StdinChunkSize int

	// IndexBackend defaults to IndexBTree.
	IndexBackend IndexBackend

	// Logger receives debug-level ingest and planning traces.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

func (c *Config) fill() {
	if c.InitialBufferCapacity <= 0 {
		c.InitialBufferCapacity = store.DefaultInitialCapacity
	}
	if c.MaxFrameLength == 0 {
		c.MaxFrameLength = store.DefaultMaxFrameLength
	}
	if c.StdinChunkSize <= 0 {
		c.StdinChunkSize = 64 << 10
	}
	if c.IndexBackend == "" {
		c.IndexBackend = IndexBTree
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ColumnDef declares one table column. Type uses the IDL spellings
// (int, long, string, double, ...).
type ColumnDef struct {
	Name    string
	Type    string
	Indexed bool
}

// Database is the engine instance. It owns the record store, the table
// catalog, and the query engine.
//
// A Database must not be copied after creation: the catalog's routing
// callback and any companion SQLite handles are bound to its address for
// its whole lifetime. Always hold the *Database returned by Open.
type Database struct {
	id   string
	name string
	cfg  Config
	log  *slog.Logger

	st        *store.Store
	reg       *extract.Registry
	cat       *catalog.Catalog
	eng       *engine.Engine
	companion *sql.DB
}

// Open creates an empty database. name is a label for logs and stats.
func Open(name string, cfg Config) (*Database, error) {
	cfg.fill()
	id := uuid.NewString()
	log := cfg.Logger.With("db", name)

	var companion *sql.DB
	backend := catalog.BackendBTree
	if cfg.IndexBackend == IndexSQLite {
		var err error
		companion, err = index.OpenCompanion(id)
		if err != nil {
			return nil, fmt.Errorf("open database %q: %w", name, err)
		}
		backend = catalog.BackendSQLite
	}

	reg := extract.NewRegistry()
	db := &Database{
		id:        id,
		name:      name,
		cfg:       cfg,
		log:       log,
		st:        store.New(store.Options{InitialCapacity: cfg.InitialBufferCapacity, MaxFrameLength: cfg.MaxFrameLength, Logger: log}),
		reg:       reg,
		cat:       catalog.New(backend, companion, reg, log),
		companion: companion,
	}
	db.eng = engine.New(db.st, db.cat, log)
	return db, nil
}

// FromSchema creates a database and registers every table the schema IDL
// declares. When the schema names a root_type and file_identifier, the tag
// mapping is installed automatically; other tables still need
// RegisterFileID calls.
func FromSchema(schemaSource, name string, cfg Config) (*Database, error) {
	db, err := Open(name, cfg)
	if err != nil {
		return nil, err
	}

	an := schema.NewAnalyzer()
	an.AddSchema(name+".fbs", schemaSource)
	analysis, err := an.Analyze()
	if err != nil {
		return nil, fmt.Errorf("analyze schema: %w", err)
	}
	if len(analysis.Errors) > 0 {
		return nil, fmt.Errorf("schema errors: %v", analysis.Errors)
	}

	for _, def := range analysis.Defs() {
		cols := make([]ColumnDef, 0, len(def.Columns))
		for _, c := range def.Columns {
			cols = append(cols, ColumnDef{Name: c.Name, Type: c.Type, Indexed: c.Indexed})
		}
		if err := db.RegisterTable(def.Name, cols); err != nil {
			return nil, err
		}
	}
	if analysis.RootType != "" && analysis.FileID != "" {
		if err := db.RegisterFileID(analysis.FileID, analysis.RootType); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Close releases the companion database of the sqlite index backend.
// The in-memory structures need no teardown.
func (db *Database) Close() error {
	if db.companion != nil {
		return db.companion.Close()
	}
	return nil
}

// ID returns the unique instance identifier.
func (db *Database) ID() string { return db.id }

// Name returns the label the database was opened with.
func (db *Database) Name() string { return db.name }

// RegisterTable declares a table and its columns. Indexed columns get one
// index instance each.
func (db *Database) RegisterTable(name string, cols []ColumnDef) error {
	ccols := make([]catalog.Column, 0, len(cols))
	for _, c := range cols {
		kind, ok := value.ParseKind(c.Type)
		if !ok {
			return fmt.Errorf("table %s: column %s: unknown type %q", name, c.Name, c.Type)
		}
		ccols = append(ccols, catalog.Column{Name: c.Name, Kind: kind, Indexed: c.Indexed})
	}
	_, err := db.cat.AddTable(name, ccols)
	return err
}

// RegisterFileID binds a 4-byte routing tag to a table. Records whose
// payload carries the tag at bytes 4..8 route to the table on ingest.
func (db *Database) RegisterFileID(tag, table string) error {
	return db.cat.MapTag(tag, table)
}

// SetFieldExtractor installs the per-field decoder used to populate
// indices and resolve columns.
func (db *Database) SetFieldExtractor(table string, fn extract.FieldFunc) {
	db.reg.SetField(table, fn)
}

// SetBatchExtractor installs the all-columns decoder used for full-row
// materialisation.
func (db *Database) SetBatchExtractor(table string, fn extract.BatchFunc) {
	db.reg.SetBatch(table, fn)
}

// SetFastWriter installs the optional zero-allocation column writer.
func (db *Database) SetFastWriter(table string, fn extract.FastWriteFunc) {
	db.reg.SetFastWrite(table, fn)
}

// RegisterSource snapshots every tagged table into a "Table@source"
// variant. Register extractors and tags first; later changes to a base
// table do not propagate to existing variants.
func (db *Database) RegisterSource(source string) error {
	return db.cat.RegisterSource(source)
}

// Sources lists registered sources in registration order.
func (db *Database) Sources() []string { return db.cat.Sources() }

// CreateUnifiedViews makes each base table with source variants queryable
// as the union of those variants; the _source column names the variant.
func (db *Database) CreateUnifiedViews() { db.cat.CreateUnifiedViews() }

// Ingest consumes complete frames from data, returning the bytes consumed
// and records appended. The caller keeps unconsumed residue for the next
// call.
func (db *Database) Ingest(data []byte) (consumed, records int, err error) {
	return db.st.Ingest(data, db.cat.Route)
}

// IngestOne appends a single payload (no length prefix) and returns its
// sequence.
func (db *Database) IngestOne(payload []byte) (uint64, error) {
	return db.st.IngestOne(payload, db.cat.Route)
}

// IngestOneWithSource appends a payload routed to the named source's
// variant of its table instead of the base table.
func (db *Database) IngestOneWithSource(payload []byte, source string) (uint64, error) {
	found := false
	for _, s := range db.cat.Sources() {
		if s == source {
			found = true
			break
		}
	}
	if !found {
		return 0, fmt.Errorf("source %q is not registered", source)
	}
	tag := catalog.SyntheticTag(store.Tag(payload), source)
	return db.st.IngestOneTagged(tag, payload, db.cat.Route)
}

// Export copies the live prefix of the record buffer: a valid stream that
// Load reproduces exactly.
func (db *Database) Export() []byte {
	return db.st.ExportLive()
}

// Load clears the store and all indices, then replays the exported stream
// through the ingest path. Sequences, offsets, and index contents come
// back identical to the exporting database.
func (db *Database) Load(data []byte) error {
	if err := db.cat.ClearIndices(); err != nil {
		return err
	}
	return db.st.Load(data, db.cat.Route)
}

// RecordCount returns the number of stored records, registered or not.
func (db *Database) RecordCount() uint64 { return db.st.Records() }

// DataSize returns the live byte size of the record buffer.
func (db *Database) DataSize() uint64 { return db.st.Size() }

// ListTables returns every registered logical table name.
func (db *Database) ListTables() []string { return db.cat.Tables() }

// TableColumns returns a table's declared columns, or nil for unknown
// tables.
func (db *Database) TableColumns(table string) []ColumnDef {
	t, ok := db.cat.Lookup(table)
	if !ok {
		return nil
	}
	out := make([]ColumnDef, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, ColumnDef{Name: c.Name, Type: c.Kind.String(), Indexed: c.Indexed})
	}
	return out
}
