// Package index provides the typed secondary indices that map column keys
// to record locations in the store buffer.
//
// One index instance serves one (table, column) pair with a declared key
// kind. Entries are (key, offset, length, sequence) tuples; keys are
// non-unique, so the composite identity is (key, sequence). Every backend
// yields entries in ascending key order with ties broken by sequence
// ascending, and the first-match APIs return the lowest-sequence entry for
// a key.
//
// Two backends produce identical observable behaviour:
//
//   - BTree: an in-memory B-tree over the value comparator. The default.
//   - SQLite: companion tables _idx_{table}_{column} keyed
//     (key, sequence) WITHOUT ROWID in a shared SQLite database, with
//     prepared statements and partial-bind fast paths for int64 and string
//     keys.
//
// The declared key kind routes inserts and coerces search arguments; the
// stored entry keeps enough representation to return the original key on
// scan.
package index
