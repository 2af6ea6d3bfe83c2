package message

import (
	"github.com/h5kit/hdf5/internal/binary"
)

// Serialize writes the dataspace in version 2 format: version, rank,
// flags, type, then the dimension list and an optional maximum list.
func (m *Dataspace) Serialize(w *binary.Writer) error {
	if err := w.WriteUint8(2); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(m.Rank)); err != nil {
		return err
	}

	var flags uint8
	if len(m.MaxDims) > 0 {
		flags |= 0x01
	}
	if err := w.WriteUint8(flags); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(m.SpaceType)); err != nil {
		return err
	}

	for _, dim := range m.Dimensions {
		if err := w.WriteLength(dim); err != nil {
			return err
		}
	}
	for _, dim := range m.MaxDims {
		if err := w.WriteLength(dim); err != nil {
			return err
		}
	}
	return nil
}

// SerializedSize returns the encoded size of the dataspace message.
func (m *Dataspace) SerializedSize(w *binary.Writer) int {
	size := 4 + len(m.Dimensions)*w.LengthSize()
	if len(m.MaxDims) > 0 {
		size += len(m.MaxDims) * w.LengthSize()
	}
	return size
}

// NewDataspace builds a simple dataspace. maxDims may be nil when the
// dataset cannot grow; use [Unlimited] entries for unbounded axes.
func NewDataspace(dims, maxDims []uint64) *Dataspace {
	return &Dataspace{
		Version:    2,
		Rank:       len(dims),
		SpaceType:  DataspaceSimple,
		Dimensions: dims,
		MaxDims:    maxDims,
	}
}

// NewScalarDataspace builds a dataspace holding a single element.
func NewScalarDataspace() *Dataspace {
	return &Dataspace{Version: 2, SpaceType: DataspaceScalar}
}

// NewNullDataspace builds a dataspace holding no elements.
func NewNullDataspace() *Dataspace {
	return &Dataspace{Version: 2, SpaceType: DataspaceNull}
}
