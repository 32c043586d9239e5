// Package value provides the scalar value model shared by the storage,
// index, and query layers.
//
// A Value is a sealed tagged union over null, bool, the eight fixed-width
// integer kinds, two float kinds, UTF-8 strings, and byte sequences. Only
// the types declared in this package implement it.
//
// Ordering is total across all kinds:
//   - null sorts before every non-null value; two nulls are equal
//   - two integers compare as int64 (unsigned widened into 64 bits)
//   - mixed integer/float pairs compare as float64
//   - strings compare bytewise (UTF-8 scalar order)
//   - byte sequences compare bytewise
//   - false sorts before true
//   - anything else falls back to the kind ordinal
//
// Hot paths (index comparisons, parameter binding) dispatch with direct
// type switches rather than interface method calls; AsInt64 and AsString
// exist precisely because union dispatch dominated profiles.
package value
