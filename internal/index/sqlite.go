package index

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/strata/value"
)

// OpenCompanion opens the shared in-memory SQLite database that backs the
// SQLite index instances of one engine. The id keeps separate engines in
// the same process from sharing a cache.
//
// SQLite allows one writer; a single pooled connection avoids SQLITE_BUSY
// under the engine's single-writer model.
func OpenCompanion(id string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:strata-%s?mode=memory&cache=shared", id)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open companion database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect companion database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply companion pragmas: %w", err)
	}
	return db, nil
}

// SQLite is the persistent-typed-table index backend. Each instance owns
// one companion table _idx_{table}_{column} keyed (key, sequence) WITHOUT
// ROWID, so SQLite's own B-tree provides the composite order.
type SQLite struct {
	db        *sql.DB
	tableName string
	keyKind   value.Kind
	count     uint64

	insertStmt *sql.Stmt
	searchStmt *sql.Stmt
	firstStmt  *sql.Stmt
	rangeStmt  *sql.Stmt
	belowStmt  *sql.Stmt
	allStmt    *sql.Stmt
	clearStmt  *sql.Stmt
}

// NewSQLite creates the companion table for (table, column) and prepares
// its statements. db must outlive the index.
func NewSQLite(db *sql.DB, table, column string, keyKind value.Kind) (*SQLite, error) {
	name := "_idx_" + table + "_" + column
	quoted := quoteIdent(name)

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key %s NOT NULL,
		data_offset INTEGER NOT NULL,
		data_length INTEGER NOT NULL,
		sequence INTEGER NOT NULL,
		PRIMARY KEY (key, sequence)
	) WITHOUT ROWID`, quoted, sqliteType(keyKind))
	if _, err := db.Exec(ddl); err != nil {
		return nil, fmt.Errorf("create index table %s: %w", name, err)
	}

	s := &SQLite{db: db, tableName: name, keyKind: keyKind}
	const cols = "key, data_offset, data_length, sequence"
	stmts := []struct {
		dst **sql.Stmt
		sql string
	}{
		{&s.insertStmt, "INSERT INTO " + quoted + " (" + cols + ") VALUES (?, ?, ?, ?)"},
		{&s.searchStmt, "SELECT " + cols + " FROM " + quoted + " WHERE key = ? ORDER BY sequence"},
		{&s.firstStmt, "SELECT " + cols + " FROM " + quoted + " WHERE key = ? ORDER BY sequence LIMIT 1"},
		{&s.rangeStmt, "SELECT " + cols + " FROM " + quoted + " WHERE key >= ? AND key <= ? ORDER BY key, sequence"},
		{&s.belowStmt, "SELECT " + cols + " FROM " + quoted + " WHERE key <= ? ORDER BY key, sequence"},
		{&s.allStmt, "SELECT " + cols + " FROM " + quoted + " ORDER BY key, sequence"},
		{&s.clearStmt, "DELETE FROM " + quoted},
	}
	for _, st := range stmts {
		stmt, err := db.Prepare(st.sql)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("prepare index statement for %s: %w", name, err)
		}
		*st.dst = stmt
	}
	return s, nil
}

func (s *SQLite) KeyKind() value.Kind { return s.keyKind }

func (s *SQLite) Len() uint64 { return s.count }

// TableName returns the companion table's name, for stats and tests.
func (s *SQLite) TableName() string { return s.tableName }

func (s *SQLite) Insert(key value.Value, offset uint64, length uint32, sequence uint64) error {
	k, err := value.Coerce(s.keyKind, key)
	if err != nil {
		return err
	}
	if value.IsNull(k) {
		// Null keys are not indexed; the record stays visible to scans.
		return nil
	}
	if _, err := s.insertStmt.Exec(bindKey(k), int64(offset), int64(length), int64(sequence)); err != nil {
		return fmt.Errorf("insert into %s: %w", s.tableName, err)
	}
	s.count++
	return nil
}

func (s *SQLite) Search(key value.Value) ([]Entry, error) {
	k, err := value.Coerce(s.keyKind, key)
	if err != nil {
		return nil, err
	}
	if value.IsNull(k) {
		return nil, nil
	}
	rows, err := s.searchStmt.Query(bindKey(k))
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.tableName, err)
	}
	return s.collect(rows)
}

func (s *SQLite) SearchFirst(key value.Value) (Entry, bool, error) {
	k, err := value.Coerce(s.keyKind, key)
	if err != nil {
		return Entry{}, false, err
	}
	if value.IsNull(k) {
		return Entry{}, false, nil
	}
	return s.first(bindKey(k))
}

// SearchFirstInt64 binds the integer directly, skipping union dispatch and
// key materialisation on the scan side.
func (s *SQLite) SearchFirstInt64(key int64) (Loc, bool, error) {
	row := s.firstStmt.QueryRow(key)
	return scanLoc(row)
}

// SearchFirstString binds the string directly.
func (s *SQLite) SearchFirstString(key string) (Loc, bool, error) {
	row := s.firstStmt.QueryRow(key)
	return scanLoc(row)
}

func (s *SQLite) Range(lo, hi value.Value) ([]Entry, error) {
	loK, err := value.Coerce(s.keyKind, lo)
	if err != nil {
		return nil, err
	}
	hiK, err := value.Coerce(s.keyKind, hi)
	if err != nil {
		return nil, err
	}
	// Null sorts below every stored key: a null high bound admits nothing,
	// a null low bound admits everything up to hi.
	if value.IsNull(hiK) {
		return nil, nil
	}
	var rows *sql.Rows
	if value.IsNull(loK) {
		rows, err = s.belowStmt.Query(bindKey(hiK))
	} else {
		rows, err = s.rangeStmt.Query(bindKey(loK), bindKey(hiK))
	}
	if err != nil {
		return nil, fmt.Errorf("range %s: %w", s.tableName, err)
	}
	return s.collect(rows)
}

func (s *SQLite) All() ([]Entry, error) {
	rows, err := s.allStmt.Query()
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.tableName, err)
	}
	return s.collect(rows)
}

func (s *SQLite) Clear() error {
	if _, err := s.clearStmt.Exec(); err != nil {
		return fmt.Errorf("clear %s: %w", s.tableName, err)
	}
	s.count = 0
	return nil
}

// Close finalises the prepared statements. The shared companion database is
// closed by its owner.
func (s *SQLite) Close() error {
	for _, stmt := range []*sql.Stmt{s.insertStmt, s.searchStmt, s.firstStmt, s.rangeStmt, s.belowStmt, s.allStmt, s.clearStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}

func (s *SQLite) first(boundKey any) (Entry, bool, error) {
	row := s.firstStmt.QueryRow(boundKey)
	e, ok, err := s.scanEntry(row)
	if err != nil {
		return Entry{}, false, err
	}
	return e, ok, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLite) scanEntry(row rowScanner) (Entry, bool, error) {
	var off, length, seq int64
	var e Entry
	var err error
	switch {
	case s.keyKind.IsInteger() || s.keyKind == value.KindBool:
		var k int64
		err = row.Scan(&k, &off, &length, &seq)
		e.Key = intKey(s.keyKind, k)
	case s.keyKind == value.KindFloat32 || s.keyKind == value.KindFloat64:
		var k float64
		err = row.Scan(&k, &off, &length, &seq)
		if s.keyKind == value.KindFloat32 {
			e.Key = value.Float32(k)
		} else {
			e.Key = value.Float64(k)
		}
	case s.keyKind == value.KindString:
		var k string
		err = row.Scan(&k, &off, &length, &seq)
		e.Key = value.String(k)
	default:
		var k []byte
		err = row.Scan(&k, &off, &length, &seq)
		e.Key = value.Bytes(k)
	}
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("scan %s: %w", s.tableName, err)
	}
	e.Offset = uint64(off)
	e.Length = uint32(length)
	e.Sequence = uint64(seq)
	return e, true, nil
}

func (s *SQLite) collect(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, _, err := s.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.tableName, err)
	}
	return out, nil
}

func scanLoc(row *sql.Row) (Loc, bool, error) {
	var key any
	var off, length, seq int64
	err := row.Scan(&key, &off, &length, &seq)
	if err == sql.ErrNoRows {
		return Loc{}, false, nil
	}
	if err != nil {
		return Loc{}, false, err
	}
	return Loc{Offset: uint64(off), Length: uint32(length), Sequence: uint64(seq)}, true, nil
}

// bindKey maps a coerced key to its database/sql parameter. Bool stores as
// 0/1, uint64 wraps into int64 the same way the comparator widens it.
func bindKey(k value.Value) any {
	if b, ok := k.(value.Bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return value.Native(k)
}

// intKey rebuilds the declared integer (or bool) kind from the stored
// integer representation.
func intKey(kind value.Kind, k int64) value.Value {
	switch kind {
	case value.KindBool:
		return value.Bool(k != 0)
	case value.KindInt8:
		return value.Int8(k)
	case value.KindInt16:
		return value.Int16(k)
	case value.KindInt32:
		return value.Int32(k)
	case value.KindInt64:
		return value.Int64(k)
	case value.KindUint8:
		return value.Uint8(k)
	case value.KindUint16:
		return value.Uint16(k)
	case value.KindUint32:
		return value.Uint32(k)
	default:
		return value.Uint64(k)
	}
}

func sqliteType(kind value.Kind) string {
	switch {
	case kind.IsInteger(), kind == value.KindBool:
		return "INTEGER"
	case kind == value.KindFloat32, kind == value.KindFloat64:
		return "REAL"
	case kind == value.KindString:
		return "TEXT"
	default:
		return "BLOB"
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var _ Index = (*SQLite)(nil)
