package hdf5

import (
	"github.com/h5kit/hdf5/internal/dtype"
	"github.com/h5kit/hdf5/internal/message"
)

// Datatype describes a dataset's on-disk element type.
type Datatype = message.Datatype

// TypeOf returns the datatype matching a Go value: signed and unsigned
// integers, floats, or string (variable-length).
func TypeOf(v any) (*Datatype, error) {
	return dtype.FromValue(v)
}

// FixedStringType returns a fixed-length null-terminated ASCII string
// type. size includes the terminator.
func FixedStringType(size int) *Datatype {
	return message.NewStringDatatype(uint32(size), message.PadNullTerm, message.CharsetASCII)
}

// VarStringType returns a variable-length UTF-8 string type whose
// values live in the global heap.
func VarStringType() *Datatype {
	return message.NewVarLenStringDatatype(message.CharsetUTF8)
}
