package heap

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
)

const localSignature = "HEAP"

// LocalHeap is a version 0 local heap with its data segment loaded.
type LocalHeap struct {
	DataSize    uint64
	FreeOffset  uint64
	DataAddress uint64
	data        []byte
}

// ReadLocalHeap reads the local heap header at address and then its
// data segment.
func ReadLocalHeap(r *binary.Reader, address uint64) (*LocalHeap, error) {
	c := r.At(int64(address))

	sig, err := c.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("local heap at 0x%x: %w", address, err)
	}
	if string(sig) != localSignature {
		return nil, fmt.Errorf("invalid local heap signature %q at 0x%x", sig, address)
	}
	version, err := c.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 0 {
		return nil, fmt.Errorf("unsupported local heap version %d", version)
	}
	c.Skip(3)

	h := &LocalHeap{}
	if h.DataSize, err = c.ReadLength(); err != nil {
		return nil, err
	}
	if h.FreeOffset, err = c.ReadLength(); err != nil {
		return nil, err
	}
	if h.DataAddress, err = c.ReadOffset(); err != nil {
		return nil, err
	}

	if h.DataSize > 0 && !r.IsUndefinedOffset(h.DataAddress) {
		h.data, err = r.At(int64(h.DataAddress)).ReadBytes(int(h.DataSize))
		if err != nil {
			return nil, fmt.Errorf("local heap data segment at 0x%x: %w", h.DataAddress, err)
		}
	}
	return h, nil
}

// GetString returns the NUL-terminated string starting at offset in the
// data segment. Offsets outside the segment return "".
func (h *LocalHeap) GetString(offset uint64) string {
	if h == nil || offset >= uint64(len(h.data)) {
		return ""
	}
	return binary.CutString(h.data[offset:])
}
