package layout

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/message"
)

// Compact serves data held inside the object header.
type Compact struct {
	data  []byte
	space *message.Dataspace
	dtype *message.Datatype
}

// NewCompact wraps the compact data of a layout message.
func NewCompact(msg *message.DataLayout, space *message.Dataspace, dtype *message.Datatype) *Compact {
	return &Compact{data: msg.CompactData, space: space, dtype: dtype}
}

func (c *Compact) Class() message.LayoutClass { return message.LayoutCompact }

// Size returns the stored byte count.
func (c *Compact) Size() int { return len(c.data) }

func (c *Compact) Read() ([]byte, error) {
	return append([]byte(nil), c.data...), nil
}

func (c *Compact) ReadSlice(start, count []uint64) ([]byte, error) {
	dims := c.space.Dimensions
	if len(dims) == 0 {
		if len(start) == 0 && len(count) == 0 {
			return c.Read()
		}
		return nil, fmt.Errorf("layout: cannot slice a scalar dataset")
	}
	if err := checkSlice(dims, start, count); err != nil {
		return nil, err
	}
	return extractHyperslab(c.data, dims, start, count, uint64(c.dtype.Size)), nil
}
