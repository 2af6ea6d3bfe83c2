package layout

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/message"
)

// Layout reads dataset data regardless of how it is stored.
type Layout interface {
	// Read returns the whole extent in row-major order.
	Read() ([]byte, error)

	// ReadSlice returns the hyperslab [start, start+count).
	ReadSlice(start, count []uint64) ([]byte, error)

	// Class returns the storage class.
	Class() message.LayoutClass
}

// New builds the handler for a data layout message.
func New(
	msg *message.DataLayout,
	space *message.Dataspace,
	dtype *message.Datatype,
	pipeline *message.FilterPipeline,
	reader *binary.Reader,
) (Layout, error) {
	if msg == nil {
		return nil, fmt.Errorf("layout: nil layout message")
	}

	switch msg.Class {
	case message.LayoutCompact:
		return NewCompact(msg, space, dtype), nil
	case message.LayoutContiguous:
		return NewContiguous(msg, space, dtype, reader), nil
	case message.LayoutChunked:
		return NewChunked(msg, space, dtype, pipeline, reader)
	default:
		return nil, fmt.Errorf("layout: unsupported class %d", msg.Class)
	}
}

func extentBytes(space *message.Dataspace, dtype *message.Datatype) uint64 {
	if space == nil || dtype == nil {
		return 0
	}
	return space.NumElements() * uint64(dtype.Size)
}
