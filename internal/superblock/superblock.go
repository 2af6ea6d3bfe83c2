package superblock

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/h5kit/hdf5/internal/binary"
)

// Signature is the 8-byte magic every HDF5 file starts with.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// The signature may sit past a user block; the format doubles the search
// offset starting at 512.
var searchOffsets = []int64{0, 512, 1024, 2048}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock")
)

// Superblock is the file-level metadata record: format version, field
// widths, and the address of the root group.
type Superblock struct {
	Version    uint8
	OffsetSize uint8 // width of file addresses
	LengthSize uint8 // width of length fields

	ConsistencyFlags uint8 // v2/v3 only

	BaseAddress      uint64 // address of byte 0 (non-zero with a user block)
	ExtensionAddress uint64 // superblock extension, v2/v3 only
	EOFAddress       uint64 // logical end of file
	RootGroupAddress uint64 // root group object header

	// v0/v1 fields.
	GroupLeafK      uint16 // half-rank of group B-tree leaf nodes
	GroupInternalK  uint16 // half-rank of group B-tree internal nodes
	IndexedStorageK uint16 // half-rank of chunk B-tree nodes, v1 only

	// FileOffset is where the signature was found.
	FileOffset int64
}

// Read locates the superblock by probing the standard signature offsets
// and parses whichever version it finds.
func Read(src io.ReaderAt) (*Superblock, error) {
	sig := make([]byte, len(Signature)+1)
	for _, offset := range searchOffsets {
		if _, err := src.ReadAt(sig, offset); err != nil {
			if errors.Is(err, io.EOF) {
				continue
			}
			return nil, err
		}
		if !bytes.Equal(sig[:8], Signature) {
			continue
		}

		var (
			sb  *Superblock
			err error
		)
		switch version := sig[8]; version {
		case 0, 1:
			sb, err = readV0V1(src, offset, version)
		case 2, 3:
			sb, err = readV2V3(src, offset)
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
		}
		if err != nil {
			return nil, err
		}
		sb.FileOffset = offset
		return sb, nil
	}
	return nil, ErrNotHDF5
}

// Geometry returns the field widths declared by this superblock.
func (sb *Superblock) Geometry() binary.Geometry {
	return binary.Geometry{
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}
