package btree

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/heap"
)

// GroupEntry is one member of an old-style group. A non-empty
// TargetPath marks a soft link, in which case ObjectAddress is zero.
type GroupEntry struct {
	Name          string
	ObjectAddress uint64
	TargetPath    string
}

// Symbol table entry cache types.
const (
	cacheNone     uint32 = 0
	cacheHardLink uint32 = 1
	cacheSoftLink uint32 = 2
)

// ReadGroupEntries traverses the group B-tree rooted at address and
// returns every symbol table entry, resolving names through the
// group's local heap.
func ReadGroupEntries(r *binary.Reader, address uint64, localHeap *heap.LocalHeap) ([]GroupEntry, error) {
	return readGroupNode(r, address, localHeap)
}

func readGroupNode(r *binary.Reader, address uint64, localHeap *heap.LocalHeap) ([]GroupEntry, error) {
	c, level, used, err := readV1Node(r, address, nodeTypeGroup)
	if err != nil {
		return nil, err
	}

	// Group keys are heap offsets used only for ordering; the entries
	// themselves live in the symbol table nodes the children point at.
	var entries []GroupEntry
	for i := uint16(0); i < used; i++ {
		if _, err := c.ReadLength(); err != nil {
			return nil, err
		}
		child, err := c.ReadOffset()
		if err != nil {
			return nil, err
		}

		var sub []GroupEntry
		if level > 0 {
			sub, err = readGroupNode(r, child, localHeap)
		} else {
			sub, err = readSymbolNode(r, child, localHeap)
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, sub...)
	}
	return entries, nil
}

func readSymbolNode(r *binary.Reader, address uint64, localHeap *heap.LocalHeap) ([]GroupEntry, error) {
	c := r.At(int64(address))

	sig, err := c.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("symbol table node at 0x%x: %w", address, err)
	}
	if string(sig) != signatureSNOD {
		return nil, fmt.Errorf("invalid symbol table node signature %q at 0x%x", sig, address)
	}
	version, err := c.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, fmt.Errorf("unsupported symbol table node version %d", version)
	}
	c.Skip(1)
	count, err := c.ReadUint16()
	if err != nil {
		return nil, err
	}

	entries := make([]GroupEntry, 0, count)
	for i := uint16(0); i < count; i++ {
		entry, err := readSymbolEntry(c, localHeap)
		if err != nil {
			return nil, fmt.Errorf("symbol table entry %d at 0x%x: %w", i, address, err)
		}
		if entry.Name == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func readSymbolEntry(c *binary.Reader, localHeap *heap.LocalHeap) (GroupEntry, error) {
	nameOffset, err := c.ReadOffset()
	if err != nil {
		return GroupEntry{}, err
	}
	objectAddr, err := c.ReadOffset()
	if err != nil {
		return GroupEntry{}, err
	}
	cacheType, err := c.ReadUint32()
	if err != nil {
		return GroupEntry{}, err
	}
	c.Skip(4)
	scratch, err := c.ReadBytes(16)
	if err != nil {
		return GroupEntry{}, err
	}

	entry := GroupEntry{
		Name:          localHeap.GetString(nameOffset),
		ObjectAddress: objectAddr,
	}
	if cacheType == cacheSoftLink {
		// The scratch pad holds the heap offset of the link target.
		entry.TargetPath = localHeap.GetString(binary.DecodeUint(scratch[:4]))
		entry.ObjectAddress = 0
	}
	return entry, nil
}
