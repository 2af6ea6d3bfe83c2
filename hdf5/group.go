package hdf5

import (
	"fmt"
	"path"

	"github.com/h5kit/hdf5/internal/btree"
	"github.com/h5kit/hdf5/internal/heap"
	"github.com/h5kit/hdf5/internal/message"
	"github.com/h5kit/hdf5/internal/object"
)

// Group is an HDF5 group.
type Group struct {
	file   *File
	path   string
	addr   uint64
	header *object.Header

	// Write-session state: the link set pending in the header, the
	// header's on-disk span, and whether this session created it.
	links   []*message.Link
	span    int
	created bool
}

// linkResolution is the outcome of resolving one link: where the
// target lives, and in which file.
type linkResolution struct {
	address   uint64
	isDataset bool
	file      *File // nil means same file
}

// Name returns the group name, the last path component.
func (g *Group) Name() string {
	if g.path == "/" {
		return "/"
	}
	return path.Base(g.path)
}

// Path returns the full path to this group.
func (g *Group) Path() string { return g.path }

// OpenGroup opens a subgroup by relative path.
func (g *Group) OpenGroup(relativePath string) (*Group, error) {
	obj, err := g.open(relativePath)
	if err != nil {
		return nil, err
	}
	group, ok := obj.(*Group)
	if !ok {
		return nil, ErrNotGroup
	}
	return group, nil
}

// OpenDataset opens a dataset by relative path.
func (g *Group) OpenDataset(relativePath string) (*Dataset, error) {
	obj, err := g.open(relativePath)
	if err != nil {
		return nil, err
	}
	dataset, ok := obj.(*Dataset)
	if !ok {
		return nil, ErrNotDataset
	}
	return dataset, nil
}

func (g *Group) open(relativePath string) (any, error) {
	parts := splitPath(relativePath)
	if len(parts) == 0 {
		return g, nil
	}

	current := g
	visited := make(map[string]bool)
	for i, name := range parts {
		res, err := current.findChildFull(name, visited)
		if err != nil {
			return nil, fmt.Errorf("finding %q: %w", name, err)
		}

		targetFile := current.file
		if res.file != nil {
			targetFile = res.file
		}
		fullPath := path.Join(current.path, name)

		if i == len(parts)-1 {
			if res.isDataset {
				return targetFile.openDatasetAt(res.address, fullPath)
			}
			return targetFile.openGroupAt(res.address, fullPath)
		}
		if res.isDataset {
			return nil, fmt.Errorf("%w: %q", ErrNotGroup, fullPath)
		}
		if current, err = targetFile.openGroupAt(res.address, fullPath); err != nil {
			return nil, err
		}
	}
	return current, nil
}

func (g *Group) findChildFull(name string, visited map[string]bool) (*linkResolution, error) {
	if err := g.loadHeader(); err != nil {
		return nil, err
	}

	for _, link := range g.header.Links() {
		if link.Name == name {
			return g.resolveLink(link, visited)
		}
	}

	// Old-style groups index their children through a symbol table.
	if st := g.header.SymbolTable(); st != nil {
		return g.findChildV1(name, st, visited)
	}
	return nil, ErrNotFound
}

// loadHeader reads the group's object header on first use. Groups
// created in this session have no header until the first lookup.
func (g *Group) loadHeader() error {
	if g.header != nil {
		return nil
	}
	header, err := object.ReadHeader(g.file.reader, g.addr)
	if err != nil {
		return fmt.Errorf("reading group header: %w", err)
	}
	g.header = header
	return nil
}

func (g *Group) resolveLink(link *message.Link, visited map[string]bool) (*linkResolution, error) {
	switch {
	case link.IsHard():
		isDataset, err := g.isDataset(link.ObjectAddress)
		if err != nil {
			return nil, err
		}
		return &linkResolution{address: link.ObjectAddress, isDataset: isDataset}, nil

	case link.IsSoft():
		target := link.SoftLinkValue
		if len(visited) >= MaxLinkDepth {
			return nil, ErrLinkDepth
		}
		if visited[target] {
			return nil, fmt.Errorf("circular soft link: %s", target)
		}
		visited[target] = true
		return g.file.findByAbsolutePathFull(target, visited)

	case link.IsExternal():
		addr, isDataset, extFile, err := g.file.resolveExternalLink(link.ExternalFile, link.ExternalPath, visited)
		if err != nil {
			return nil, err
		}
		return &linkResolution{address: addr, isDataset: isDataset, file: extFile}, nil

	default:
		return nil, fmt.Errorf("%w: link type %d", ErrUnsupported, link.LinkType)
	}
}

func (g *Group) findChildV1(name string, st *message.SymbolTable, visited map[string]bool) (*linkResolution, error) {
	entries, err := g.symbolEntries(st)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.Name != name {
			continue
		}
		if entry.TargetPath != "" {
			target := entry.TargetPath
			if len(visited) >= MaxLinkDepth {
				return nil, ErrLinkDepth
			}
			if visited[target] {
				return nil, fmt.Errorf("circular soft link: %s", target)
			}
			visited[target] = true
			addr, isDataset, err := g.file.findByAbsolutePath(target, visited)
			if err != nil {
				return nil, err
			}
			return &linkResolution{address: addr, isDataset: isDataset}, nil
		}

		isDataset, err := g.isDataset(entry.ObjectAddress)
		if err != nil {
			return nil, err
		}
		return &linkResolution{address: entry.ObjectAddress, isDataset: isDataset}, nil
	}
	return nil, ErrNotFound
}

func (g *Group) symbolEntries(st *message.SymbolTable) ([]btree.GroupEntry, error) {
	localHeap, err := heap.ReadLocalHeap(g.file.reader, st.LocalHeapAddress)
	if err != nil {
		return nil, fmt.Errorf("reading local heap: %w", err)
	}
	entries, err := btree.ReadGroupEntries(g.file.reader, st.BTreeAddress, localHeap)
	if err != nil {
		return nil, fmt.Errorf("reading group B-tree: %w", err)
	}
	return entries, nil
}

// isDataset reports whether the object at address carries a dataspace,
// which groups never do.
func (g *Group) isDataset(address uint64) (bool, error) {
	header, err := object.ReadHeader(g.file.reader, address)
	if err != nil {
		return false, err
	}
	return header.Dataspace() != nil, nil
}

// Members returns the names of the group's children.
func (g *Group) Members() ([]string, error) {
	if err := g.loadHeader(); err != nil {
		return nil, err
	}

	var names []string
	for _, link := range g.header.Links() {
		names = append(names, link.Name)
	}
	if len(names) == 0 {
		if st := g.header.SymbolTable(); st != nil {
			entries, err := g.symbolEntries(st)
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				names = append(names, entry.Name)
			}
		}
	}
	return names, nil
}

// NumObjects returns the number of children.
func (g *Group) NumObjects() (int, error) {
	members, err := g.Members()
	if err != nil {
		return 0, err
	}
	return len(members), nil
}

// Attrs returns the group's attribute names.
func (g *Group) Attrs() []string {
	if g.loadHeader() != nil {
		return nil
	}
	var names []string
	for _, attr := range g.header.Attributes() {
		names = append(names, attr.Name)
	}
	return names
}

// Attr returns an attribute by name, or nil.
func (g *Group) Attr(name string) *Attribute {
	if g.loadHeader() != nil {
		return nil
	}
	for _, attr := range g.header.Attributes() {
		if attr.Name == name {
			return &Attribute{msg: attr, reader: g.file.reader}
		}
	}
	return nil
}

// HasAttr reports whether the group has the named attribute.
func (g *Group) HasAttr(name string) bool {
	return g.Attr(name) != nil
}
