package superblock

import (
	"io"

	"github.com/h5kit/hdf5/internal/binary"
)

/*
Version 0/1 superblock layout:

	Offset  Size  Field
	0       8     Signature
	8       1     Version (0 or 1)
	9       1     Free-space storage version
	10      1     Root group symbol table entry version
	11      1     Reserved
	12      1     Shared header message format version
	13      1     Size of offsets
	14      1     Size of lengths
	15      1     Reserved
	16      2     Group leaf node K
	18      2     Group internal node K
	20      4     File consistency flags
	[v1]    2+2   Indexed storage internal node K + reserved
	...     O     Base address
	...     O     Free-space info address
	...     O     End-of-file address
	...     O     Driver info block address
	...           Root group symbol table entry:
	              link name offset (O), object header address (O),
	              cache type (4), reserved (4), scratch pad (16)
*/
func readV0V1(src io.ReaderAt, offset int64, version uint8) (*Superblock, error) {
	r := binary.NewReader(src, binary.DefaultGeometry()).At(offset + 8)

	var sb Superblock
	var err error
	readByte := func(dst *uint8) {
		if err == nil {
			*dst, err = r.ReadUint8()
		}
	}

	var skip uint8
	readByte(&sb.Version)
	readByte(&skip) // free-space storage version
	readByte(&skip) // root symbol table entry version
	readByte(&skip) // reserved
	readByte(&skip) // shared header message version
	readByte(&sb.OffsetSize)
	readByte(&sb.LengthSize)
	readByte(&skip) // reserved
	if err != nil {
		return nil, err
	}

	if sb.GroupLeafK, err = r.ReadUint16(); err != nil {
		return nil, err
	}
	if sb.GroupInternalK, err = r.ReadUint16(); err != nil {
		return nil, err
	}
	r.Skip(4) // file consistency flags

	if version == 1 {
		if sb.IndexedStorageK, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		r.Skip(2)
	}

	geo := binary.Geometry{OffsetSize: int(sb.OffsetSize), LengthSize: int(sb.LengthSize)}
	if !geo.Valid() {
		return nil, ErrInvalidSuperblock
	}
	r = r.WithGeometry(geo)

	if sb.BaseAddress, err = r.ReadOffset(); err != nil {
		return nil, err
	}
	r.Skip(int64(geo.OffsetSize)) // free-space info address
	if sb.EOFAddress, err = r.ReadOffset(); err != nil {
		return nil, err
	}
	r.Skip(int64(geo.OffsetSize)) // driver info block address

	// Root group symbol table entry: the object header address follows the
	// link name offset.
	r.Skip(int64(geo.OffsetSize))
	if sb.RootGroupAddress, err = r.ReadOffset(); err != nil {
		return nil, err
	}

	return &sb, nil
}
