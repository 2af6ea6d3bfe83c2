package message

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
)

// Attribute is the attribute message (type 0x000C): a named value
// attached to an object, with its own datatype and dataspace.
type Attribute struct {
	Version   uint8
	Name      string
	Datatype  *Datatype
	Dataspace *Dataspace
	Data      []byte
}

func (m *Attribute) Type() Type { return TypeAttribute }

func parseAttribute(data []byte, r *binary.Reader) (*Attribute, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("attribute message too short")
	}

	attr := &Attribute{Version: data[0]}
	switch attr.Version {
	case 1, 2, 3:
	default:
		return nil, fmt.Errorf("unsupported attribute version: %d", attr.Version)
	}

	nameSize := int(binary.DecodeUint(data[2:4]))
	datatypeSize := int(binary.DecodeUint(data[4:6]))
	dataspaceSize := int(binary.DecodeUint(data[6:8]))

	// Version 3 adds a name encoding byte; versions 1 and 2 go straight
	// to the name.
	offset := 8
	if attr.Version == 3 {
		if len(data) < 9 {
			return nil, fmt.Errorf("attribute message too short")
		}
		offset = 9
	}

	// Version 1 pads each of the name, datatype and dataspace blocks to
	// 8 bytes; later versions pack them.
	padded := attr.Version == 1

	if offset+nameSize > len(data) {
		return nil, fmt.Errorf("attribute name truncated")
	}
	attr.Name = binary.CutString(data[offset : offset+nameSize])
	offset = attrFieldEnd(offset, nameSize, padded)

	if offset+datatypeSize > len(data) {
		return nil, fmt.Errorf("attribute datatype truncated")
	}
	if dt, err := parseDatatype(data[offset:offset+datatypeSize], r); err == nil {
		attr.Datatype = dt
	}
	offset = attrFieldEnd(offset, datatypeSize, padded)

	if offset+dataspaceSize > len(data) {
		return nil, fmt.Errorf("attribute dataspace truncated")
	}
	if ds, err := parseDataspace(data[offset:offset+dataspaceSize], r); err == nil {
		attr.Dataspace = ds
	}
	offset = attrFieldEnd(offset, dataspaceSize, padded)

	if offset < len(data) {
		attr.Data = append([]byte(nil), data[offset:]...)
	}

	return attr, nil
}

// attrFieldEnd advances past a field, padding to 8 bytes for version 1
// attributes.
func attrFieldEnd(offset, size int, padded bool) int {
	offset += size
	if padded && offset%8 != 0 {
		offset += 8 - offset%8
	}
	return offset
}
