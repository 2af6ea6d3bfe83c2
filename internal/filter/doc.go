// Package filter implements the HDF5 chunk filter pipeline.
//
// Filters transform chunk bytes between their in-memory and stored
// forms. A pipeline applies its filters in message order when encoding
// and in reverse order when decoding, so a dataset filtered with
// [shuffle, deflate] is written shuffle-then-compress and read
// decompress-then-unshuffle.
//
// Implemented filters:
//
//   - deflate (1): zlib compression
//   - shuffle (2): byte transposition to group significant bytes
//   - fletcher32 (3): trailing Fletcher-32 checksum
//   - lz4 (32004): LZ4 blocks under the registered filter's framing,
//     a big-endian total size and block size followed by length-prefixed
//     blocks, stored raw when incompressible
//   - zstd (32015): a single zstandard frame per chunk
//
// SZIP (4), n-bit (5) and scale-offset (6) are recognized for error
// reporting but not implemented; chunks that require them cannot be
// decoded, while optional occurrences are skipped.
//
// Each stored chunk carries a filter mask. Bit i set means filter i of
// the pipeline was skipped when the chunk was written, so Decode skips
// it too. Encode sets mask bits itself when an optional filter fails
// and reports the mask to store alongside the chunk.
package filter
