package hdf5

import (
	"fmt"
	"path"

	"github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/message"
	"github.com/h5kit/hdf5/internal/object"
)

// CreateGroup creates an empty subgroup.
func (g *Group) CreateGroup(name string) (*Group, error) {
	if !g.file.writable {
		return nil, ErrReadOnly
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty group name", ErrInvalidPath)
	}

	messages := object.NewEmptyGroupHeader()
	span := object.HeaderSizeSized(g.file.writer, messages, object.MinGroupChunkSize)
	addr := g.file.allocate(int64(span))
	if err := object.WriteHeaderSized(g.file.writer.At(int64(addr)), messages, object.MinGroupChunkSize); err != nil {
		return nil, fmt.Errorf("writing group header: %w", err)
	}

	if err := g.addLink(message.NewHardLink(name, addr)); err != nil {
		return nil, fmt.Errorf("linking group: %w", err)
	}

	return &Group{
		file:    g.file,
		path:    childPath(g.path, name),
		addr:    addr,
		span:    span,
		created: true,
	}, nil
}

// CreateSoftLink records a soft link to an absolute path inside this
// file. The target need not exist yet.
func (g *Group) CreateSoftLink(name, target string) error {
	if name == "" {
		return fmt.Errorf("%w: empty link name", ErrInvalidPath)
	}
	return g.addLink(message.NewSoftLink(name, target))
}

// CreateExternalLink records a link to an object in another file,
// resolved relative to this file's directory when opened.
func (g *Group) CreateExternalLink(name, file, target string) error {
	if name == "" {
		return fmt.Errorf("%w: empty link name", ErrInvalidPath)
	}
	return g.addLink(message.NewExternalLink(name, file, target))
}

func childPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return path.Join(parent, name)
}

// addLink records a link in this group's header and rewrites it.
func (g *Group) addLink(link *message.Link) error {
	if !g.file.writable {
		return ErrReadOnly
	}
	if err := g.loadLinks(); err != nil {
		return err
	}
	g.links = append(g.links, link)
	return g.rewriteHeader()
}

// loadLinks seeds the pending link set from the on-disk header.
func (g *Group) loadLinks() error {
	if g.links != nil || g.created {
		return nil
	}
	if err := g.loadHeader(); err != nil {
		return err
	}
	if g.span == 0 {
		g.span = g.header.Size
	}
	g.links = append([]*message.Link(nil), g.header.Links()...)
	return nil
}

// rewriteHeader writes the group header with the current link set,
// in place when it still fits the allocated span, otherwise at a new
// address with the parent's link updated to follow.
func (g *Group) rewriteHeader() error {
	messages := object.NewGroupHeader(g.links)
	size := object.HeaderSizeSized(g.file.writer, messages, object.MinGroupChunkSize)

	minChunk := object.MinGroupChunkSize
	if g.span > 0 && size <= g.span {
		// Pad out to the existing span so the header occupies exactly
		// the bytes it did before.
		mc, ok := headerPadFor(g.file.writer, messages, g.span, minChunk)
		if !ok {
			return fmt.Errorf("%w: group header at %#x cannot be rewritten in place", ErrUnsupported, g.addr)
		}
		if err := object.WriteHeaderSized(g.file.writer.At(int64(g.addr)), messages, mc); err != nil {
			return err
		}
		g.header = nil
		return nil
	}

	newAddr := g.file.allocate(int64(size))
	if err := object.WriteHeaderSized(g.file.writer.At(int64(newAddr)), messages, minChunk); err != nil {
		return err
	}
	if g.span > 0 {
		g.file.allocator.Retire(uint64(g.span))
	}

	oldAddr := g.addr
	g.addr = newAddr
	g.span = size
	g.header = nil

	if g.path == "/" {
		g.file.superblock.RootGroupAddress = newAddr
		return nil
	}
	return g.updateParentLink(oldAddr, newAddr)
}

// headerPadFor finds the minimum-chunk padding that makes a header
// with these messages occupy exactly span bytes, so a rewrite lands on
// the same footprint.
func headerPadFor(w *binary.Writer, messages []message.Message, span, minChunk int) (int, bool) {
	for mc := minChunk; mc <= span; mc++ {
		if object.HeaderSizeSized(w, messages, mc) == span {
			return mc, true
		}
	}
	return 0, false
}

// updateParentLink repoints the parent group's link at this group's
// new header address.
func (g *Group) updateParentLink(oldAddr, newAddr uint64) error {
	parentPath := path.Dir(g.path)
	if parentPath == "" || parentPath == "." {
		parentPath = "/"
	}

	parent := g.file.root
	if parentPath != "/" {
		p, err := g.file.OpenGroup(parentPath)
		if err != nil {
			return fmt.Errorf("opening parent %s: %w", parentPath, err)
		}
		parent = p
	}
	if err := parent.loadLinks(); err != nil {
		return err
	}
	name := path.Base(g.path)
	for _, link := range parent.links {
		if link.Name == name && link.ObjectAddress == oldAddr {
			link.ObjectAddress = newAddr
		}
	}
	return parent.rewriteHeader()
}
