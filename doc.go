// Package strata is an embedded analytical engine for streams of
// length-prefixed, self-describing binary records.
//
// Records are retained in their original wire form in an append-only
// buffer; secondary structures — sequence maps, per-tag record lists, and
// typed key indices — are derived during ingest so that keyed lookups and
// full scans return pointers into the original bytes instead of
// materialised rows. A SQL front-end plans over the same indices.
//
// A Database is single-writer: ingest calls must not run concurrently
// with anything else. Read-only operations may run concurrently with each
// other between ingests; borrowed payloads (FindRawByIndex, IterateAll)
// are invalidated by the next ingest, which may grow the buffer.
//
//	db, _ := strata.Open("example", strata.Config{})
//	db.RegisterTable("User", []strata.ColumnDef{
//	    {Name: "id", Type: "int", Indexed: true},
//	    {Name: "name", Type: "string"},
//	})
//	db.RegisterFileID("USER", "User")
//	db.SetFieldExtractor("User", userField)
//	db.IngestOne(payload)
//	res, _ := db.Query("SELECT name FROM User WHERE id = ?", 42)
//
// The engine never decodes payloads itself; hosts register extractors per
// table. The recwire package provides a reference codec and a generic
// extractor for it.
package strata
