package message

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
)

// LinkType distinguishes hard, soft and external links.
type LinkType uint8

const (
	LinkTypeHard     LinkType = 0
	LinkTypeSoft     LinkType = 1
	LinkTypeExternal LinkType = 64
)

// Link is the link message (type 0x0006) connecting a group to a child
// object.
type Link struct {
	Version       uint8
	LinkType      LinkType
	CreationOrder uint64
	Name          string
	Charset       uint8

	// Hard links.
	ObjectAddress uint64

	// Soft links.
	SoftLinkValue string

	// External links.
	ExternalFile string
	ExternalPath string
}

func (m *Link) Type() Type { return TypeLink }

// IsHard reports whether the link holds an object header address.
func (m *Link) IsHard() bool { return m.LinkType == LinkTypeHard }

// IsSoft reports whether the link holds a path inside the same file.
func (m *Link) IsSoft() bool { return m.LinkType == LinkTypeSoft }

// IsExternal reports whether the link points into another file.
func (m *Link) IsExternal() bool { return m.LinkType == LinkTypeExternal }

func parseLink(data []byte, r *binary.Reader) (*Link, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("link message too short")
	}

	link := &Link{Version: data[0]}
	flags := data[1]
	offset := 2

	nameLenSize := 1 << (flags & 0x03)

	// Link type byte, present for anything but a hard link.
	if flags&0x08 != 0 {
		if offset >= len(data) {
			return nil, fmt.Errorf("link type truncated")
		}
		link.LinkType = LinkType(data[offset])
		offset++
	}

	if flags&0x04 != 0 {
		if offset+8 > len(data) {
			return nil, fmt.Errorf("link creation order truncated")
		}
		link.CreationOrder = binary.DecodeUint(data[offset : offset+8])
		offset += 8
	}

	if flags&0x10 != 0 {
		if offset >= len(data) {
			return nil, fmt.Errorf("link charset truncated")
		}
		link.Charset = data[offset]
		offset++
	}

	if offset+nameLenSize > len(data) {
		return nil, fmt.Errorf("link name length truncated")
	}
	nameLen := int(binary.DecodeUint(data[offset : offset+nameLenSize]))
	offset += nameLenSize

	if offset+nameLen > len(data) {
		return nil, fmt.Errorf("link name truncated")
	}
	link.Name = string(data[offset : offset+nameLen])
	offset += nameLen

	switch link.LinkType {
	case LinkTypeHard:
		offsetSize := r.OffsetSize()
		if offset+offsetSize > len(data) {
			return nil, fmt.Errorf("hard link address truncated")
		}
		link.ObjectAddress = binary.DecodeUint(data[offset : offset+offsetSize])

	case LinkTypeSoft:
		if offset+2 > len(data) {
			return nil, fmt.Errorf("soft link length truncated")
		}
		softLen := int(binary.DecodeUint(data[offset : offset+2]))
		offset += 2
		if offset+softLen > len(data) {
			return nil, fmt.Errorf("soft link target truncated")
		}
		link.SoftLinkValue = string(data[offset : offset+softLen])

	case LinkTypeExternal:
		if offset+2 > len(data) {
			return nil, fmt.Errorf("external link length truncated")
		}
		extLen := int(binary.DecodeUint(data[offset : offset+2]))
		offset += 2
		if offset+extLen > len(data) {
			return nil, fmt.Errorf("external link data truncated")
		}
		if err := parseExternalTarget(data[offset:offset+extLen], link); err != nil {
			return nil, err
		}

	default:
		// User-defined link types carry opaque payloads; keep the
		// name and type so traversal can at least report them.
	}

	return link, nil
}

// parseExternalTarget splits the external link block: a version and
// flags byte, then the file name and object path as NUL-terminated
// strings.
func parseExternalTarget(data []byte, link *Link) error {
	if len(data) < 2 {
		return fmt.Errorf("external link data too short")
	}
	data = data[1:]

	fileEnd := 0
	for fileEnd < len(data) && data[fileEnd] != 0 {
		fileEnd++
	}
	link.ExternalFile = string(data[:fileEnd])

	if fileEnd+1 < len(data) {
		link.ExternalPath = binary.CutString(data[fileEnd+1:])
	}
	return nil
}
