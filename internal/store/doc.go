// Package store implements the append-only record store at the bottom of
// the engine.
//
// Records arrive as a stream of length-prefixed frames:
//
//	[4-byte size LE][payload][4-byte size LE][payload]...
//
// Each payload carries a 4-byte routing tag at bytes 4..8. The store keeps
// every framed record in a single growing buffer and derives three maps
// during ingest: sequence→offset, offset→sequence, and tag→record list.
// Payload reads are borrows into the buffer; nothing is copied on the read
// path.
//
// Sequences are assigned contiguously from 1 and never reused. For any two
// records, sequence order equals offset order. The buffer only grows; there
// is no compaction, mutation, or deletion.
//
// Export returns the live prefix of the buffer verbatim; loading that byte
// vector into an empty store replays each frame through the ingest path and
// reproduces identical sequences and offsets.
package store
