package hdf5

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/h5kit/hdf5/internal/alloc"
	"github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/layout"
	"github.com/h5kit/hdf5/internal/object"
	"github.com/h5kit/hdf5/internal/superblock"
)

// File is an open HDF5 file. A File is safe for concurrent reads; a
// writable File expects writes to one dataset to be serialized by the
// caller.
type File struct {
	path       string
	file       *os.File
	reader     *binary.Reader
	superblock *superblock.Superblock
	root       *Group
	cache      *layout.Cache
	closed     bool
	external   map[string]*File

	writable  bool
	writer    *binary.Writer
	allocator *alloc.Allocator

	mu    sync.Mutex
	dirty map[uint64]*Dataset // header address -> dataset with an unflushed chunk index
}

// Open opens an HDF5 file for reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	sb, err := superblock.Read(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading superblock: %w", err)
	}

	hdf := &File{
		path:       path,
		file:       f,
		reader:     binary.NewReader(f, sb.Geometry()),
		superblock: sb,
	}
	if hdf.cache, err = layout.NewCache(layout.DefaultCacheChunks); err != nil {
		f.Close()
		return nil, err
	}

	root, err := hdf.openGroupAt(sb.RootGroupAddress, "/")
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening root group: %w", err)
	}
	hdf.root = root
	return hdf, nil
}

// Close flushes pending writes and releases the file handle, along
// with any external files opened through links.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	var err error
	if f.writable {
		err = f.Flush()
	}
	for _, ext := range f.external {
		err = multierr.Append(err, ext.Close())
	}
	f.external = nil
	f.cache.Purge()

	return multierr.Append(err, f.file.Close())
}

// Root returns the root group.
func (f *File) Root() *Group { return f.root }

// Path returns the file path.
func (f *File) Path() string { return f.path }

// Version returns the superblock version.
func (f *File) Version() int { return int(f.superblock.Version) }

// IsWritable reports whether the file accepts writes.
func (f *File) IsWritable() bool { return f.writable }

// OpenGroup opens a group by path.
func (f *File) OpenGroup(path string) (*Group, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenGroup(path)
}

// OpenDataset opens a dataset by path.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenDataset(path)
}

func (f *File) openGroupAt(address uint64, path string) (*Group, error) {
	header, err := object.ReadHeader(f.reader, address)
	if err != nil {
		return nil, fmt.Errorf("reading object header: %w", err)
	}
	return &Group{file: f, path: path, addr: address, header: header}, nil
}

func (f *File) openDatasetAt(address uint64, path string) (*Dataset, error) {
	header, err := object.ReadHeader(f.reader, address)
	if err != nil {
		return nil, fmt.Errorf("reading object header: %w", err)
	}
	return newDataset(f, path, header)
}

// markDirty records a dataset whose chunk index must be serialized at
// the next flush.
func (f *File) markDirty(d *Dataset) {
	f.mu.Lock()
	if f.dirty == nil {
		f.dirty = make(map[uint64]*Dataset)
	}
	f.dirty[d.addr] = d
	f.mu.Unlock()
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// GetAttr returns an attribute addressed as /group/object@name.
func (f *File) GetAttr(path string) (*Attribute, error) {
	if f.closed {
		return nil, ErrClosed
	}

	objectPath, attrName, err := ParseAttrPath(path)
	if err != nil {
		return nil, err
	}
	obj, err := f.attributeHolder(objectPath)
	if err != nil {
		return nil, fmt.Errorf("opening object %s: %w", objectPath, err)
	}
	attr := obj.Attr(attrName)
	if attr == nil {
		return nil, fmt.Errorf("%w: attribute %s", ErrNotFound, attrName)
	}
	return attr, nil
}

// ReadAttr reads an attribute value by path, auto-typed.
func (f *File) ReadAttr(path string) (any, error) {
	attr, err := f.GetAttr(path)
	if err != nil {
		return nil, err
	}
	return attr.Value()
}

type attributeHolder interface {
	Attr(name string) *Attribute
}

func (f *File) attributeHolder(path string) (attributeHolder, error) {
	if path == "/" {
		return f.root, nil
	}
	if group, err := f.OpenGroup(path); err == nil {
		return group, nil
	}
	if dataset, err := f.OpenDataset(path); err == nil {
		return dataset, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
}

// findByAbsolutePath resolves an absolute path for soft links.
func (f *File) findByAbsolutePath(absPath string, visited map[string]bool) (uint64, bool, error) {
	res, err := f.findByAbsolutePathFull(absPath, visited)
	if err != nil {
		return 0, false, err
	}
	return res.address, res.isDataset, nil
}

func (f *File) findByAbsolutePathFull(absPath string, visited map[string]bool) (*linkResolution, error) {
	parts := splitPath(absPath)
	if len(parts) == 0 {
		return &linkResolution{address: f.superblock.RootGroupAddress}, nil
	}

	current := f.root
	currentFile := f
	for i, name := range parts {
		res, err := current.findChildFull(name, visited)
		if err != nil {
			return nil, fmt.Errorf("resolving %q in path %s: %w", name, absPath, err)
		}
		if res.file != nil {
			currentFile = res.file
		}
		if i == len(parts)-1 {
			return res, nil
		}
		if res.isDataset {
			return nil, fmt.Errorf("%w: %q is not a group in path %s", ErrNotGroup, name, absPath)
		}
		if current, err = currentFile.openGroupAt(res.address, ""); err != nil {
			return nil, fmt.Errorf("opening group %q: %w", name, err)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidPath, absPath)
}

// openExternalFile opens and caches a file named by an external link,
// resolved relative to this file's directory.
func (f *File) openExternalFile(filename string) (*File, error) {
	if ext, ok := f.external[filename]; ok {
		return ext, nil
	}

	ext, err := Open(filepath.Join(filepath.Dir(f.path), filename))
	if err != nil {
		return nil, fmt.Errorf("opening external file %q: %w", filename, err)
	}
	if f.external == nil {
		f.external = make(map[string]*File)
	}
	f.external[filename] = ext
	return ext, nil
}

func (f *File) resolveExternalLink(extFile, extPath string, visited map[string]bool) (uint64, bool, *File, error) {
	if len(visited) >= MaxLinkDepth {
		return 0, false, nil, ErrLinkDepth
	}
	linkKey := extFile + ":" + extPath
	if visited[linkKey] {
		return 0, false, nil, fmt.Errorf("circular external link: %s", linkKey)
	}
	visited[linkKey] = true

	target, err := f.openExternalFile(extFile)
	if err != nil {
		return 0, false, nil, err
	}
	addr, isDataset, err := target.findByAbsolutePath(extPath, visited)
	if err != nil {
		return 0, false, nil, fmt.Errorf("resolving %q in external file %q: %w", extPath, extFile, err)
	}
	return addr, isDataset, target, nil
}
