package btree

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
)

const (
	signatureV1   = "TREE"
	signatureSNOD = "SNOD"

	nodeTypeGroup uint8 = 0
	nodeTypeChunk uint8 = 1
)

// readV1Node reads the common version 1 node prefix and leaves the
// returned cursor at the first key. The sibling addresses are not
// needed for a full traversal and are skipped.
func readV1Node(r *binary.Reader, address uint64, wantType uint8) (c *binary.Reader, level uint8, entries uint16, err error) {
	c = r.At(int64(address))

	sig, err := c.ReadBytes(4)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("B-tree node at 0x%x: %w", address, err)
	}
	if string(sig) != signatureV1 {
		return nil, 0, 0, fmt.Errorf("invalid B-tree signature %q at 0x%x", sig, address)
	}
	nodeType, err := c.ReadUint8()
	if err != nil {
		return nil, 0, 0, err
	}
	if nodeType != wantType {
		return nil, 0, 0, fmt.Errorf("unexpected B-tree node type %d at 0x%x, want %d", nodeType, address, wantType)
	}
	if level, err = c.ReadUint8(); err != nil {
		return nil, 0, 0, err
	}
	if entries, err = c.ReadUint16(); err != nil {
		return nil, 0, 0, err
	}
	if _, err = c.ReadOffset(); err != nil { // left sibling
		return nil, 0, 0, err
	}
	if _, err = c.ReadOffset(); err != nil { // right sibling
		return nil, 0, 0, err
	}
	return c, level, entries, nil
}
