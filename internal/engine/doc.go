// Package engine plans and executes queries over the catalog and record
// store.
//
// The engine implements the virtual-table contract the SQL surface is
// built on: bestIndex selects an access path per table (an exact index
// lookup, an index range, or a sequential tag scan), and a cursor walks
// the chosen path yielding borrowed records. Column values decode lazily
// from payloads on read; every predicate is re-verified per row, so access
// path selection affects cost only, never results.
//
// Plan preference is Eq over Range over Scan; among equal kinds the column
// declared earlier wins. A bound parameter that cannot coerce to the index
// key kind silently degrades the plan to a scan.
package engine
