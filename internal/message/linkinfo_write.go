package message

import (
	"github.com/h5kit/hdf5/internal/binary"
)

// Serialize writes the link info message. The heap and B-tree address
// fields are always emitted, carrying the undefined sentinel for groups
// whose links stay in the header.
func (m *LinkInfo) Serialize(w *binary.Writer) error {
	if err := w.WriteUint8(m.Version); err != nil {
		return err
	}
	if err := w.WriteUint8(m.Flags); err != nil {
		return err
	}

	if m.Flags&0x01 != 0 {
		if err := w.WriteUint64(m.MaxCreationIndex); err != nil {
			return err
		}
	}

	if err := w.WriteOffset(m.FractalHeapAddr); err != nil {
		return err
	}
	if err := w.WriteOffset(m.NameIndexBTreeAddr); err != nil {
		return err
	}

	if m.Flags&0x03 == 0x03 {
		if err := w.WriteOffset(m.CreationOrderBTreeAddr); err != nil {
			return err
		}
	}
	return nil
}

// SerializedSize returns the encoded size of the link info message.
func (m *LinkInfo) SerializedSize(w *binary.Writer) int {
	size := 2 + 2*w.OffsetSize()
	if m.Flags&0x01 != 0 {
		size += 8
	}
	if m.Flags&0x03 == 0x03 {
		size += w.OffsetSize()
	}
	return size
}

// NewLinkInfo returns the link info written for new groups: compact
// links, no creation order tracking.
func NewLinkInfo() *LinkInfo {
	return &LinkInfo{
		FractalHeapAddr:        UndefinedAddress,
		NameIndexBTreeAddr:     UndefinedAddress,
		CreationOrderBTreeAddr: UndefinedAddress,
	}
}
