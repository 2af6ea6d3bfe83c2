package filter

import (
	"github.com/h5kit/hdf5/internal/message"
)

// Shuffle is the byte transposition filter. Grouping the first bytes of
// every element together (then the second bytes, and so on) exposes the
// redundancy a compressor behind it can use.
type Shuffle struct {
	elemSize int
}

// NewShuffle builds the shuffle filter. Client data carries the element
// size in bytes.
func NewShuffle(clientData []uint32) *Shuffle {
	elemSize := 1
	if len(clientData) > 0 && clientData[0] > 0 {
		elemSize = int(clientData[0])
	}
	return &Shuffle{elemSize: elemSize}
}

func (f *Shuffle) ID() uint16 {
	return message.FilterShuffle
}

// Encode transposes [elem0][elem1]... into [all first bytes][all second
// bytes]... Bytes past the last whole element pass through unchanged.
func (f *Shuffle) Encode(input []byte) ([]byte, error) {
	size := f.elemSize
	if size <= 1 || len(input) < 2*size {
		return input, nil
	}
	n := len(input) / size
	out := make([]byte, len(input))
	for i := 0; i < n; i++ {
		for j := 0; j < size; j++ {
			out[j*n+i] = input[i*size+j]
		}
	}
	copy(out[n*size:], input[n*size:])
	return out, nil
}

// Decode reverses Encode.
func (f *Shuffle) Decode(input []byte) ([]byte, error) {
	size := f.elemSize
	if size <= 1 || len(input) < 2*size {
		return input, nil
	}
	n := len(input) / size
	out := make([]byte, len(input))
	for i := 0; i < n; i++ {
		for j := 0; j < size; j++ {
			out[i*size+j] = input[j*n+i]
		}
	}
	copy(out[n*size:], input[n*size:])
	return out, nil
}

// SetElementSize overrides the element size when it is only known after
// the pipeline message was parsed.
func (f *Shuffle) SetElementSize(size int) {
	if size > 0 {
		f.elemSize = size
	}
}
