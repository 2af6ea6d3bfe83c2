package hdf5

import (
	"fmt"
	"path"
	"reflect"
	"sync"

	"github.com/h5kit/hdf5/internal/dtype"
	"github.com/h5kit/hdf5/internal/layout"
	"github.com/h5kit/hdf5/internal/message"
	"github.com/h5kit/hdf5/internal/object"
)

// Dataset is an HDF5 dataset.
type Dataset struct {
	file      *File
	path      string
	addr      uint64
	space     *message.Dataspace
	datatype  *message.Datatype
	layoutMsg *message.DataLayout
	lay       layout.Layout
	chunked   *layout.Chunked // non-nil for chunked layouts
	attrs     []*message.Attribute

	// Write-session state: the full header message list and its
	// on-disk span (for in-place rewrites at flush), the chunk table,
	// and whether the table has entries the on-disk index lacks.
	msgs  []message.Message
	span  int
	mu    sync.Mutex
	table *layout.Table
	dirty bool
}

// newDataset builds a Dataset from a decoded object header.
func newDataset(f *File, path string, header *object.Header) (*Dataset, error) {
	space := header.Dataspace()
	if space == nil {
		return nil, fmt.Errorf("%w: no dataspace at %#x", ErrNotDataset, header.Address)
	}
	datatype := header.Datatype()
	if datatype == nil {
		return nil, fmt.Errorf("%w: no datatype at %#x", ErrNotDataset, header.Address)
	}
	layoutMsg := header.DataLayout()
	if layoutMsg == nil {
		return nil, fmt.Errorf("%w: no data layout at %#x", ErrNotDataset, header.Address)
	}

	lay, err := layout.New(layoutMsg, space, datatype, header.FilterPipeline(), f.reader)
	if err != nil {
		return nil, fmt.Errorf("creating layout: %w", err)
	}

	d := &Dataset{
		file:      f,
		path:      path,
		addr:      header.Address,
		space:     space,
		datatype:  datatype,
		layoutMsg: layoutMsg,
		lay:       lay,
		attrs:     header.Attributes(),
		msgs:      header.Messages,
		span:      header.Size,
	}
	if ch, ok := lay.(*layout.Chunked); ok {
		ch.UseCache(f.cache, d.addr)
		d.chunked = ch
	}
	return d, nil
}

// Name returns the dataset name, the last path component.
func (d *Dataset) Name() string { return path.Base(d.path) }

// Path returns the full path to this dataset.
func (d *Dataset) Path() string { return d.path }

// Shape returns the dataset extent, nil for scalars.
func (d *Dataset) Shape() []uint64 {
	if d.space.IsScalar() {
		return nil
	}
	return d.space.Dimensions
}

// Dims is an alias for Shape.
func (d *Dataset) Dims() []uint64 { return d.Shape() }

// MaxDims returns the maximum extent, nil when the dataset cannot
// grow. Unlimited axes carry [message.Unlimited].
func (d *Dataset) MaxDims() []uint64 { return d.space.MaxDims }

// Rank returns the number of dimensions.
func (d *Dataset) Rank() int { return d.space.Rank }

// NumElements returns the total element count.
func (d *Dataset) NumElements() uint64 { return d.space.NumElements() }

// IsScalar reports whether the dataset holds a single value.
func (d *Dataset) IsScalar() bool { return d.space.IsScalar() }

// IsChunked reports whether data is stored as indexed chunks.
func (d *Dataset) IsChunked() bool { return d.chunked != nil }

// ChunkShape returns the chunk dimensions, nil for non-chunked
// layouts.
func (d *Dataset) ChunkShape() []uint64 {
	if d.chunked == nil {
		return nil
	}
	dims32 := d.chunked.Grid().ChunkDims()
	dims := make([]uint64, len(dims32))
	for i, c := range dims32 {
		dims[i] = uint64(c)
	}
	return dims
}

// DtypeSize returns the element size in bytes.
func (d *Dataset) DtypeSize() int { return int(d.datatype.Size) }

// DtypeClass returns the datatype class.
func (d *Dataset) DtypeClass() message.DatatypeClass { return d.datatype.Class }

// GoType returns the Go type matching this dataset's datatype.
func (d *Dataset) GoType() (reflect.Type, error) {
	return dtype.GoType(d.datatype)
}

// Read reads the whole dataset into dest, a pointer to a slice of a
// compatible type.
func (d *Dataset) Read(dest any) error {
	raw, err := d.ReadRaw()
	if err != nil {
		return err
	}
	return dtype.DecodeWith(d.datatype, raw, d.space.NumElements(), dest, d.file.reader)
}

// ReadRaw returns the whole dataset as raw element bytes.
func (d *Dataset) ReadRaw() ([]byte, error) {
	return d.lay.Read()
}

// ReadSlice returns the hyperslab [start, start+count) as raw element
// bytes.
func (d *Dataset) ReadSlice(start, count []uint64) ([]byte, error) {
	return d.lay.ReadSlice(start, count)
}

// ReadSliceInto reads the hyperslab [start, start+count) into dest.
func (d *Dataset) ReadSliceInto(start, count []uint64, dest any) error {
	raw, err := d.lay.ReadSlice(start, count)
	if err != nil {
		return err
	}
	n := uint64(1)
	for _, c := range count {
		n *= c
	}
	return dtype.DecodeWith(d.datatype, raw, n, dest, d.file.reader)
}

// ReadFloat64 reads the dataset as float64 values.
func (d *Dataset) ReadFloat64() ([]float64, error) {
	var result []float64
	err := d.Read(&result)
	return result, err
}

// ReadFloat32 reads the dataset as float32 values.
func (d *Dataset) ReadFloat32() ([]float32, error) {
	var result []float32
	err := d.Read(&result)
	return result, err
}

// ReadInt64 reads the dataset as int64 values.
func (d *Dataset) ReadInt64() ([]int64, error) {
	var result []int64
	err := d.Read(&result)
	return result, err
}

// ReadInt32 reads the dataset as int32 values.
func (d *Dataset) ReadInt32() ([]int32, error) {
	var result []int32
	err := d.Read(&result)
	return result, err
}

// ReadInt16 reads the dataset as int16 values.
func (d *Dataset) ReadInt16() ([]int16, error) {
	var result []int16
	err := d.Read(&result)
	return result, err
}

// ReadInt8 reads the dataset as int8 values.
func (d *Dataset) ReadInt8() ([]int8, error) {
	var result []int8
	err := d.Read(&result)
	return result, err
}

// ReadUint64 reads the dataset as uint64 values.
func (d *Dataset) ReadUint64() ([]uint64, error) {
	var result []uint64
	err := d.Read(&result)
	return result, err
}

// ReadUint32 reads the dataset as uint32 values.
func (d *Dataset) ReadUint32() ([]uint32, error) {
	var result []uint32
	err := d.Read(&result)
	return result, err
}

// ReadUint16 reads the dataset as uint16 values.
func (d *Dataset) ReadUint16() ([]uint16, error) {
	var result []uint16
	err := d.Read(&result)
	return result, err
}

// ReadUint8 reads the dataset as uint8 values.
func (d *Dataset) ReadUint8() ([]uint8, error) {
	var result []uint8
	err := d.Read(&result)
	return result, err
}

// ReadString reads the dataset as string values.
func (d *Dataset) ReadString() ([]string, error) {
	var result []string
	err := d.Read(&result)
	return result, err
}

// Attrs returns the dataset's attribute names.
func (d *Dataset) Attrs() []string {
	var names []string
	for _, attr := range d.attrs {
		names = append(names, attr.Name)
	}
	return names
}

// Attr returns an attribute by name, or nil.
func (d *Dataset) Attr(name string) *Attribute {
	for _, attr := range d.attrs {
		if attr.Name == name {
			return &Attribute{msg: attr, reader: d.file.reader}
		}
	}
	return nil
}

// HasAttr reports whether the dataset has the named attribute.
func (d *Dataset) HasAttr(name string) bool {
	return d.Attr(name) != nil
}
