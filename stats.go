package strata

import "sort"

// TableStats summarises one table for diagnostics.
type TableStats struct {
	TableName    string
	FileID       string
	Source       string
	RecordCount  uint64
	Indexes      []string
	IndexEntries uint64
}

// Stats reports per-table record and index counts, base tables first.
func (db *Database) Stats() []TableStats {
	var out []TableStats
	for _, name := range db.cat.Tables() {
		t, ok := db.cat.Lookup(name)
		if !ok {
			continue
		}
		s := TableStats{
			TableName:   name,
			FileID:      t.Tag,
			Source:      t.Source,
			RecordCount: uint64(db.st.CountByTag(t.Tag)),
		}
		for col, idx := range t.Indices {
			s.Indexes = append(s.Indexes, col)
			s.IndexEntries += idx.Len()
		}
		sort.Strings(s.Indexes)
		out = append(out, s)
	}
	return out
}
