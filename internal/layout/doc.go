// Package layout reads and writes dataset storage: compact data held
// in the object header, one contiguous block, or indexed chunks.
//
// Chunked storage is the interesting case. A [Grid] describes the
// chunk lattice over the dataset extent, a [Chunked] handler assembles
// reads from whatever chunk index the file carries, and a [Table] is
// the in-memory authority over chunk placement while a dataset is
// being written, serialized to an on-disk index when the file is
// flushed. Decoded chunks can be cached in a [Cache] shared across the
// file's datasets.
package layout
