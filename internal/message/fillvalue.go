package message

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
)

// Space allocation times, as stored in the fill value message.
const (
	AllocEarly       uint8 = 1
	AllocLate        uint8 = 2
	AllocIncremental uint8 = 3
)

// Fill write times.
const (
	FillWriteAtAlloc uint8 = 0
	FillWriteNever   uint8 = 1
	FillWriteIfSet   uint8 = 2
)

// FillValue carries the fill value message (type 0x0005): when dataset
// space is allocated, when fill values are written, and the value itself
// if one was set.
type FillValue struct {
	Version        uint8
	SpaceAllocTime uint8
	FillWriteTime  uint8
	IsDefined      bool
	Value          []byte // nil for the default (all zero) fill
}

func (m *FillValue) Type() Type { return TypeFillValue }

func parseFillValue(data []byte, r *binary.Reader) (*FillValue, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("fill value message too short")
	}

	fv := &FillValue{Version: data[0]}

	switch fv.Version {
	case 1, 2:
		return parseFillValueV1V2(data, fv)
	case 3:
		return parseFillValueV3(data, fv)
	default:
		return nil, fmt.Errorf("unsupported fill value version: %d", fv.Version)
	}
}

func parseFillValueV1V2(data []byte, fv *FillValue) (*FillValue, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("fill value message truncated")
	}

	fv.SpaceAllocTime = data[1]
	fv.FillWriteTime = data[2]
	fv.IsDefined = data[3] != 0

	if fv.IsDefined && len(data) >= 8 {
		size := binary.DecodeUint(data[4:8])
		if len(data) >= 8+int(size) {
			fv.Value = make([]byte, size)
			copy(fv.Value, data[8:8+size])
		}
	}

	return fv, nil
}

func parseFillValueV3(data []byte, fv *FillValue) (*FillValue, error) {
	flags := data[1]
	fv.SpaceAllocTime = flags & 0x03
	fv.FillWriteTime = flags >> 2 & 0x03
	fv.IsDefined = flags>>4&0x01 == 0

	// Bit 5 means a size and value follow; the default zero fill sets
	// neither bit 4 nor bit 5.
	if flags>>5&0x01 != 0 {
		if len(data) < 6 {
			return nil, fmt.Errorf("fill value size truncated")
		}
		size := binary.DecodeUint(data[2:6])
		if 6+int(size) > len(data) {
			return nil, fmt.Errorf("fill value data truncated")
		}
		fv.Value = make([]byte, size)
		copy(fv.Value, data[6:6+size])
	}

	return fv, nil
}
