package message

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
)

// DataspaceType distinguishes the three dataspace shapes.
type DataspaceType uint8

const (
	DataspaceScalar DataspaceType = 0 // single element
	DataspaceSimple DataspaceType = 1 // regular N-dimensional array
	DataspaceNull   DataspaceType = 2 // no data
)

// Unlimited marks a maximum dimension with no upper bound.
const Unlimited = ^uint64(0)

// Dataspace describes the extent of a dataset or attribute (type 0x0001).
type Dataspace struct {
	Version    uint8
	Rank       int
	SpaceType  DataspaceType
	Dimensions []uint64
	MaxDims    []uint64 // nil when the maximum equals Dimensions
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// NumElements returns the number of elements the dataspace spans.
func (m *Dataspace) NumElements() uint64 {
	switch m.SpaceType {
	case DataspaceNull:
		return 0
	case DataspaceScalar:
		return 1
	case DataspaceSimple:
		if len(m.Dimensions) == 0 {
			return 0
		}
		n := uint64(1)
		for _, d := range m.Dimensions {
			n *= d
		}
		return n
	default:
		return 0
	}
}

// IsScalar reports whether the dataspace holds a single element.
func (m *Dataspace) IsScalar() bool { return m.SpaceType == DataspaceScalar }

// IsNull reports whether the dataspace holds no elements.
func (m *Dataspace) IsNull() bool { return m.SpaceType == DataspaceNull }

// IsUnlimited reports whether any dimension may grow without bound.
func (m *Dataspace) IsUnlimited() bool {
	for _, d := range m.MaxDims {
		if d == Unlimited {
			return true
		}
	}
	return false
}

func parseDataspace(data []byte, r *binary.Reader) (*Dataspace, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("dataspace message too short")
	}

	ds := &Dataspace{
		Version: data[0],
		Rank:    int(data[1]),
	}

	flags := data[2]
	hasMaxDims := flags&0x01 != 0

	// Version 1 has no type field; the rank implies it.
	if ds.Version >= 2 {
		ds.SpaceType = DataspaceType(data[3])
	} else if ds.Rank == 0 {
		ds.SpaceType = DataspaceScalar
	} else {
		ds.SpaceType = DataspaceSimple
	}

	if ds.SpaceType != DataspaceSimple || ds.Rank == 0 {
		return ds, nil
	}

	// Version 1 pads the fixed header to 8 bytes.
	offset := 4
	if ds.Version == 1 {
		offset = 8
	}

	lengthSize := r.LengthSize()

	ds.Dimensions = make([]uint64, ds.Rank)
	for i := range ds.Dimensions {
		if offset+lengthSize > len(data) {
			return nil, fmt.Errorf("dataspace dimensions truncated")
		}
		ds.Dimensions[i] = binary.DecodeUint(data[offset : offset+lengthSize])
		offset += lengthSize
	}

	if hasMaxDims {
		ds.MaxDims = make([]uint64, ds.Rank)
		for i := range ds.MaxDims {
			if offset+lengthSize > len(data) {
				return nil, fmt.Errorf("dataspace max dimensions truncated")
			}
			ds.MaxDims[i] = binary.DecodeUint(data[offset : offset+lengthSize])
			offset += lengthSize
		}
	}

	return ds, nil
}
