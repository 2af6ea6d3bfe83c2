// Package hdf5 reads and writes HDF5 files in pure Go, including
// direct access to the stored bytes of individual chunks.
package hdf5

import "errors"

var (
	ErrNotHDF5     = errors.New("not an HDF5 file")
	ErrNotFound    = errors.New("object not found")
	ErrNotDataset  = errors.New("object is not a dataset")
	ErrNotGroup    = errors.New("object is not a group")
	ErrUnsupported = errors.New("unsupported feature")
	ErrInvalidPath = errors.New("invalid path")
	ErrClosed      = errors.New("file is closed")
	ErrLinkDepth   = errors.New("maximum link depth exceeded")

	// ErrReadOnly marks a write on a file opened for reading.
	ErrReadOnly = errors.New("file is read-only")

	// ErrNotChunked marks a chunk operation on a dataset whose layout
	// is not chunked.
	ErrNotChunked = errors.New("dataset is not chunked")

	// ErrChunkOffset marks a chunk offset of the wrong rank, not
	// aligned to the chunk grid, or outside the dataset extent.
	ErrChunkOffset = errors.New("invalid chunk offset")

	// ErrChunkNotAllocated marks a chunk no storage has been written
	// for.
	ErrChunkNotAllocated = errors.New("chunk not allocated")

	// ErrBufferTooSmall marks a destination buffer shorter than the
	// chunk's stored size.
	ErrBufferTooSmall = errors.New("buffer too small for stored chunk")
)

// DisableAllFilters is the filter mask that skips every pipeline stage,
// storing and returning chunk bytes exactly as given.
const DisableAllFilters uint32 = 0xFFFFFFFF

// MaxLinkDepth bounds how many soft or external links one path
// resolution may follow.
const MaxLinkDepth = 100
