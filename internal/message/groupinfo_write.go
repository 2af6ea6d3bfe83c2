package message

import (
	"github.com/h5kit/hdf5/internal/binary"
)

// GroupInfo is the group info message (type 0x000A), holding link
// storage tuning parameters. New groups write the minimal form with all
// defaults implied.
type GroupInfo struct {
	Version         uint8
	Flags           uint8
	MaxCompactLinks uint16 // flags bit 0
	MinDenseLinks   uint16 // flags bit 0
	EstNumEntries   uint16 // flags bit 1
	EstLinkNameLen  uint16 // flags bit 1
}

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

// Serialize writes the group info message.
func (m *GroupInfo) Serialize(w *binary.Writer) error {
	if err := w.WriteUint8(m.Version); err != nil {
		return err
	}
	if err := w.WriteUint8(m.Flags); err != nil {
		return err
	}

	if m.Flags&0x01 != 0 {
		if err := w.WriteUint16(m.MaxCompactLinks); err != nil {
			return err
		}
		if err := w.WriteUint16(m.MinDenseLinks); err != nil {
			return err
		}
	}
	if m.Flags&0x02 != 0 {
		if err := w.WriteUint16(m.EstNumEntries); err != nil {
			return err
		}
		if err := w.WriteUint16(m.EstLinkNameLen); err != nil {
			return err
		}
	}
	return nil
}

// SerializedSize returns the encoded size of the group info message.
func (m *GroupInfo) SerializedSize(w *binary.Writer) int {
	size := 2
	if m.Flags&0x01 != 0 {
		size += 4
	}
	if m.Flags&0x02 != 0 {
		size += 4
	}
	return size
}

// NewGroupInfo returns the minimal group info message.
func NewGroupInfo() *GroupInfo {
	return &GroupInfo{}
}
