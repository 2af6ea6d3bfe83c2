// Package alloc tracks the end-of-file watermark the write path
// allocates from. Allocation is append-only; space given back by
// rewrites is counted but not reused.
package alloc
