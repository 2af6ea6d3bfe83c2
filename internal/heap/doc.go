// Package heap reads and writes the two HDF5 heap structures.
//
// Local heaps ("HEAP") hold the link names of old-style groups. A
// symbol table entry stores an offset into the heap's data segment and
// the name is the NUL-terminated string at that offset.
//
// Global heaps ("GCOL") hold variable-length data. Each collection is
// a contiguous block of 1-indexed objects; a heap ID (collection
// address plus object index) stored inline in the dataset points at
// one object. The writer builds a fresh collection per flush rather
// than appending to existing ones.
package heap
