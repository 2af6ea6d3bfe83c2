package filter

import (
	"encoding/binary"
	"fmt"

	h5bin "github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/message"
)

// Fletcher32 appends a Fletcher-32 checksum to the stored chunk and
// verifies it on the way back.
type Fletcher32 struct{}

func NewFletcher32([]uint32) *Fletcher32 {
	return &Fletcher32{}
}

func (f *Fletcher32) ID() uint16 {
	return message.FilterFletcher32
}

func (f *Fletcher32) Encode(input []byte) ([]byte, error) {
	out := make([]byte, len(input)+4)
	copy(out, input)
	binary.LittleEndian.PutUint32(out[len(input):], h5bin.Fletcher32(input))
	return out, nil
}

func (f *Fletcher32) Decode(input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("fletcher32: input shorter than its checksum")
	}
	data := input[:len(input)-4]
	stored := binary.LittleEndian.Uint32(input[len(input)-4:])
	if sum := h5bin.Fletcher32(data); sum != stored {
		return nil, fmt.Errorf("fletcher32: checksum mismatch: stored %#08x, computed %#08x", stored, sum)
	}
	return data, nil
}
