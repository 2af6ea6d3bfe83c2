package hdf5

import (
	"fmt"
	"os"
	"sort"

	"github.com/h5kit/hdf5/internal/alloc"
	"github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/layout"
	"github.com/h5kit/hdf5/internal/object"
	"github.com/h5kit/hdf5/internal/superblock"
)

// Create creates a new HDF5 file with a version 3 superblock and an
// empty root group. An existing file at path is truncated.
func Create(path string, opts ...FileOption) (*File, error) {
	options := defaultFileOptions()
	for _, opt := range opts {
		opt(options)
	}

	osFile, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	geo := binary.Geometry{OffsetSize: options.offsetSize, LengthSize: options.lengthSize}
	writer := binary.NewWriter(osFile, geo)
	reader := binary.NewReader(osFile, geo)

	sbSize := superblock.Size(options.offsetSize)
	rootMessages := object.NewEmptyGroupHeader()
	rootSize := object.HeaderSizeSized(writer, rootMessages, object.MinGroupChunkSize)

	sb := &superblock.Superblock{
		Version:          3,
		OffsetSize:       uint8(options.offsetSize),
		LengthSize:       uint8(options.lengthSize),
		RootGroupAddress: uint64(sbSize),
		EOFAddress:       uint64(sbSize) + uint64(rootSize),
	}

	fail := func(err error) (*File, error) {
		osFile.Close()
		os.Remove(path)
		return nil, err
	}
	if _, err := sb.Write(writer.At(0)); err != nil {
		return fail(err)
	}
	if err := object.WriteHeaderSized(writer.At(sbSize), rootMessages, object.MinGroupChunkSize); err != nil {
		return fail(err)
	}

	f := &File{
		path:       path,
		file:       osFile,
		reader:     reader,
		superblock: sb,
		writable:   true,
		writer:     writer,
		allocator:  alloc.New(sb.EOFAddress),
	}
	if options.cacheChunks > 0 {
		if f.cache, err = layout.NewCache(options.cacheChunks); err != nil {
			return fail(err)
		}
	}
	f.root = &Group{
		file:    f,
		path:    "/",
		addr:    sb.RootGroupAddress,
		span:    rootSize,
		created: true,
	}
	return f, nil
}

// OpenReadWrite opens an existing file for reading and writing. New
// objects are appended; space freed by rewrites is not recycled.
func OpenReadWrite(path string) (*File, error) {
	osFile, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	sb, err := superblock.Read(osFile)
	if err != nil {
		osFile.Close()
		return nil, err
	}
	geo := sb.Geometry()

	f := &File{
		path:       path,
		file:       osFile,
		reader:     binary.NewReader(osFile, geo),
		superblock: sb,
		writable:   true,
		writer:     binary.NewWriter(osFile, geo),
		allocator:  alloc.New(sb.EOFAddress),
	}
	if f.cache, err = layout.NewCache(layout.DefaultCacheChunks); err != nil {
		osFile.Close()
		return nil, err
	}

	root, err := f.openGroupAt(sb.RootGroupAddress, "/")
	if err != nil {
		osFile.Close()
		return nil, err
	}
	f.root = root
	return f, nil
}

// Flush serializes pending chunk indexes, rewrites the affected
// dataset headers, updates the superblock, and syncs to disk.
func (f *File) Flush() error {
	if !f.writable {
		return nil
	}

	f.mu.Lock()
	dirty := make([]*Dataset, 0, len(f.dirty))
	for _, d := range f.dirty {
		dirty = append(dirty, d)
	}
	f.dirty = nil
	f.mu.Unlock()
	sort.Slice(dirty, func(i, j int) bool { return dirty[i].addr < dirty[j].addr })

	for _, d := range dirty {
		if err := d.flushIndex(); err != nil {
			return fmt.Errorf("flushing %s: %w", d.path, err)
		}
	}

	f.superblock.EOFAddress = f.allocator.EOFAddr()
	if _, err := f.superblock.Write(f.writer.At(f.superblock.FileOffset)); err != nil {
		return err
	}
	return f.file.Sync()
}

// allocate reserves file space and returns its address.
func (f *File) allocate(size int64) uint64 {
	return f.allocator.Alloc(uint64(size))
}

// AllocStats returns the allocator's counters, including bytes retired
// by in-file rewrites.
func (f *File) AllocStats() alloc.Stats {
	if f.allocator == nil {
		return alloc.Stats{}
	}
	return f.allocator.Stats()
}
