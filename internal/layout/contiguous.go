package layout

import (
	"errors"
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/message"
)

// ErrUnallocated marks storage the file has not assigned space to.
var ErrUnallocated = errors.New("layout: storage not allocated")

// Contiguous serves data stored as one block.
type Contiguous struct {
	address uint64
	size    uint64
	space   *message.Dataspace
	dtype   *message.Datatype
	reader  *binary.Reader
}

// NewContiguous wraps the block a layout message points at. A zero
// recorded size falls back to the extent size.
func NewContiguous(msg *message.DataLayout, space *message.Dataspace, dtype *message.Datatype, reader *binary.Reader) *Contiguous {
	size := msg.Size
	if size == 0 {
		size = extentBytes(space, dtype)
	}
	return &Contiguous{
		address: msg.Address,
		size:    size,
		space:   space,
		dtype:   dtype,
		reader:  reader,
	}
}

func (c *Contiguous) Class() message.LayoutClass { return message.LayoutContiguous }

// Address returns the block address.
func (c *Contiguous) Address() uint64 { return c.address }

// Size returns the block size in bytes.
func (c *Contiguous) Size() uint64 { return c.size }

func (c *Contiguous) Read() ([]byte, error) {
	if c.reader.IsUndefinedOffset(c.address) {
		return nil, ErrUnallocated
	}
	if c.size == 0 {
		return []byte{}, nil
	}
	data, err := c.reader.At(int64(c.address)).ReadBytes(int(c.size))
	if err != nil {
		return nil, fmt.Errorf("layout: contiguous block at 0x%x: %w", c.address, err)
	}
	return data, nil
}

func (c *Contiguous) ReadSlice(start, count []uint64) ([]byte, error) {
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
	data, err := c.Read()
	if err != nil {
		return nil, err
	}
	return extractHyperslab(data, dims, start, count, uint64(c.dtype.Size)), nil
}
