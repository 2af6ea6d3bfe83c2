package message

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
)

// UndefinedAddress marks an absent file address.
const UndefinedAddress = ^uint64(0)

// LinkInfo is the link info message (type 0x0002). It tells a reader
// where a group keeps its links: compact groups store link messages in
// the header and leave the heap and B-tree addresses undefined.
type LinkInfo struct {
	Version                uint8
	Flags                  uint8
	MaxCreationIndex       uint64 // flags bit 0
	FractalHeapAddr        uint64
	NameIndexBTreeAddr     uint64
	CreationOrderBTreeAddr uint64 // flags bits 0 and 1
}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

// IsDense reports whether links live in a fractal heap rather than the
// object header.
func (m *LinkInfo) IsDense() bool {
	return m.FractalHeapAddr != UndefinedAddress
}

func parseLinkInfo(data []byte, r *binary.Reader) (*LinkInfo, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("link info message too short")
	}

	li := &LinkInfo{
		Version:                data[0],
		Flags:                  data[1],
		CreationOrderBTreeAddr: UndefinedAddress,
	}
	offset := 2

	if li.Flags&0x01 != 0 {
		if offset+8 > len(data) {
			return nil, fmt.Errorf("link info creation index truncated")
		}
		li.MaxCreationIndex = binary.DecodeUint(data[offset : offset+8])
		offset += 8
	}

	offsetSize := r.OffsetSize()
	if offset+2*offsetSize > len(data) {
		return nil, fmt.Errorf("link info addresses truncated")
	}
	li.FractalHeapAddr = binary.DecodeUint(data[offset : offset+offsetSize])
	offset += offsetSize
	li.NameIndexBTreeAddr = binary.DecodeUint(data[offset : offset+offsetSize])
	offset += offsetSize

	if li.Flags&0x03 == 0x03 {
		if offset+offsetSize > len(data) {
			return nil, fmt.Errorf("link info order b-tree truncated")
		}
		li.CreationOrderBTreeAddr = binary.DecodeUint(data[offset : offset+offsetSize])
	}

	return li, nil
}
