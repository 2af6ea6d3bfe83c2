package superblock

import (
	"github.com/h5kit/hdf5/internal/binary"
)

// Write serializes the superblock in v3 form at the writer's current
// position. The structure is staged in memory so the trailing lookup3
// checksum covers the final bytes. Returns the byte count written,
// which is fixed for a given offset size.
func (sb *Superblock) Write(w *binary.Writer) (int64, error) {
	version := sb.Version
	if version < 2 {
		version = 3
	}

	buf, bw := binary.NewBuffer(w.Geometry())

	steps := []error{
		bw.WriteBytes(Signature),
		bw.WriteUint8(version),
		bw.WriteUint8(sb.OffsetSize),
		bw.WriteUint8(sb.LengthSize),
		bw.WriteUint8(sb.ConsistencyFlags),
		bw.WriteOffset(sb.BaseAddress),
	}
	for _, err := range steps {
		if err != nil {
			return 0, err
		}
	}

	if sb.ExtensionAddress == 0 {
		if err := bw.WriteUndefinedOffset(); err != nil {
			return 0, err
		}
	} else {
		if err := bw.WriteOffset(sb.ExtensionAddress); err != nil {
			return 0, err
		}
	}
	if err := bw.WriteOffset(sb.EOFAddress); err != nil {
		return 0, err
	}
	if err := bw.WriteOffset(sb.RootGroupAddress); err != nil {
		return 0, err
	}

	if err := bw.WriteUint32(binary.Lookup3Checksum(buf.Bytes())); err != nil {
		return 0, err
	}

	if err := w.WriteBytes(buf.Bytes()); err != nil {
		return 0, err
	}
	return int64(buf.Len()), nil
}

// Size returns the on-disk size of a v2/v3 superblock for the given
// address width.
func Size(offsetSize int) int64 {
	return int64(12 + 4*offsetSize + 4)
}
