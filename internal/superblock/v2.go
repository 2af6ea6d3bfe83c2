package superblock

import (
	"io"

	"github.com/h5kit/hdf5/internal/binary"
)

/*
Version 2/3 superblock layout (identical structure; version 3 only changes
the meaning of the consistency flags):

	Offset  Size  Field
	0       8     Signature
	8       1     Version (2 or 3)
	9       1     Size of offsets
	10      1     Size of lengths
	11      1     File consistency flags
	12      O     Base address
	12+O    O     Superblock extension address
	12+2O   O     End-of-file address
	12+3O   O     Root group object header address
	12+4O   4     Checksum (lookup3 over everything above)
*/
func readV2V3(src io.ReaderAt, offset int64) (*Superblock, error) {
	r := binary.NewReader(src, binary.DefaultGeometry()).At(offset + 8)

	head, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	sb := Superblock{
		Version:          head[0],
		OffsetSize:       head[1],
		LengthSize:       head[2],
		ConsistencyFlags: head[3],
	}

	geo := binary.Geometry{OffsetSize: int(sb.OffsetSize), LengthSize: int(sb.LengthSize)}
	if !geo.Valid() {
		return nil, ErrInvalidSuperblock
	}
	r = r.WithGeometry(geo)

	if sb.BaseAddress, err = r.ReadOffset(); err != nil {
		return nil, err
	}
	if sb.ExtensionAddress, err = r.ReadOffset(); err != nil {
		return nil, err
	}
	if sb.EOFAddress, err = r.ReadOffset(); err != nil {
		return nil, err
	}
	if sb.RootGroupAddress, err = r.ReadOffset(); err != nil {
		return nil, err
	}

	// Everything from the signature up to here is covered by the checksum.
	body := int(r.Pos() - offset)
	covered, err := r.At(offset).ReadBytes(body)
	if err != nil {
		return nil, err
	}
	stored, err := r.At(offset + int64(body)).ReadUint32()
	if err != nil {
		return nil, err
	}
	if binary.Lookup3Checksum(covered) != stored {
		return nil, ErrInvalidSuperblock
	}

	return &sb, nil
}
