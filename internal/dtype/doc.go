// Package dtype maps between HDF5 datatypes and Go types.
//
// The read side turns raw element bytes into Go values. Decode handles
// fixed-point integers, IEEE floats, fixed and variable-length strings,
// compounds, arrays, enums, bitfields and opaque data; DecodeWith
// additionally resolves variable-length data through the global heap.
// Little-endian data whose element size matches the destination type is
// copied directly; everything else goes through per-element conversion,
// including big-endian sources.
//
// The write side is narrower on purpose. Encode serializes integer,
// float and fixed string slices, and FromValue infers the datatype
// message a Go slice should be stored under. Datasets created by this
// library are always little-endian.
//
// Mapping of HDF5 classes to Go types:
//
//	fixed-point    int8..int64 / uint8..uint64 by size and sign
//	float          float32 / float64
//	string         string (fixed size and variable-length)
//	compound       map[string]any
//	array          []T of the base type
//	enum           the base integer type
//	bitfield       unsigned integer
//	opaque         []byte
package dtype
