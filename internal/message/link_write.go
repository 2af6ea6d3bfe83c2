package message

import (
	"github.com/h5kit/hdf5/internal/binary"
)

// Serialize writes the link in version 1 format. The flags encode the
// name length width and whether an explicit type byte follows; hard
// links omit the type byte.
func (m *Link) Serialize(w *binary.Writer) error {
	if err := w.WriteUint8(1); err != nil {
		return err
	}

	nameLenSize, nameLenBits := linkNameLenSize(len(m.Name))

	flags := nameLenBits
	if m.LinkType != LinkTypeHard {
		flags |= 0x08
	}
	if err := w.WriteUint8(flags); err != nil {
		return err
	}

	if m.LinkType != LinkTypeHard {
		if err := w.WriteUint8(uint8(m.LinkType)); err != nil {
			return err
		}
	}

	if err := w.WriteUintN(uint64(len(m.Name)), nameLenSize); err != nil {
		return err
	}
	if err := w.WriteBytes([]byte(m.Name)); err != nil {
		return err
	}

	switch m.LinkType {
	case LinkTypeHard:
		return w.WriteOffset(m.ObjectAddress)

	case LinkTypeSoft:
		if err := w.WriteUint16(uint16(len(m.SoftLinkValue))); err != nil {
			return err
		}
		return w.WriteBytes([]byte(m.SoftLinkValue))

	case LinkTypeExternal:
		extLen := 1 + len(m.ExternalFile) + 1 + len(m.ExternalPath) + 1
		if err := w.WriteUint16(uint16(extLen)); err != nil {
			return err
		}
		if err := w.WriteUint8(0); err != nil { // version and flags
			return err
		}
		if err := w.WriteBytes([]byte(m.ExternalFile)); err != nil {
			return err
		}
		if err := w.WriteUint8(0); err != nil {
			return err
		}
		if err := w.WriteBytes([]byte(m.ExternalPath)); err != nil {
			return err
		}
		return w.WriteUint8(0)
	}

	return nil
}

// SerializedSize returns the encoded size of the link message.
func (m *Link) SerializedSize(w *binary.Writer) int {
	size := 2
	if m.LinkType != LinkTypeHard {
		size++
	}

	nameLenSize, _ := linkNameLenSize(len(m.Name))
	size += nameLenSize + len(m.Name)

	switch m.LinkType {
	case LinkTypeHard:
		size += w.OffsetSize()
	case LinkTypeSoft:
		size += 2 + len(m.SoftLinkValue)
	case LinkTypeExternal:
		size += 2 + 1 + len(m.ExternalFile) + 1 + len(m.ExternalPath) + 1
	}
	return size
}

func linkNameLenSize(nameLen int) (int, uint8) {
	switch {
	case nameLen <= 0xFF:
		return 1, 0
	case nameLen <= 0xFFFF:
		return 2, 1
	case nameLen <= 0xFFFFFFFF:
		return 4, 2
	default:
		return 8, 3
	}
}

// NewHardLink builds a link holding the child's object header address.
func NewHardLink(name string, objectAddress uint64) *Link {
	return &Link{
		Version:       1,
		LinkType:      LinkTypeHard,
		Name:          name,
		ObjectAddress: objectAddress,
	}
}

// NewSoftLink builds a link holding a path within the same file.
func NewSoftLink(name, targetPath string) *Link {
	return &Link{
		Version:       1,
		LinkType:      LinkTypeSoft,
		Name:          name,
		SoftLinkValue: targetPath,
	}
}

// NewExternalLink builds a link into another HDF5 file.
func NewExternalLink(name, externalFile, externalPath string) *Link {
	return &Link{
		Version:      1,
		LinkType:     LinkTypeExternal,
		Name:         name,
		ExternalFile: externalFile,
		ExternalPath: externalPath,
	}
}
