package message

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
)

// DatatypeClass is the class of an HDF5 datatype.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0  // integers
	ClassFloatPoint DatatypeClass = 1  // IEEE floating point
	ClassTime       DatatypeClass = 2  // time (rarely used)
	ClassString     DatatypeClass = 3  // fixed-length strings
	ClassBitfield   DatatypeClass = 4  // bitfields
	ClassOpaque     DatatypeClass = 5  // opaque byte sequences
	ClassCompound   DatatypeClass = 6  // structs with named members
	ClassReference  DatatypeClass = 7  // object and region references
	ClassEnum       DatatypeClass = 8  // enumerated values
	ClassVarLen     DatatypeClass = 9  // variable-length sequences
	ClassArray      DatatypeClass = 10 // fixed-size arrays
)

// ByteOrder is the byte order of a stored numeric type. This is a
// property of the data elements, independent of the little-endian file
// metadata.
type ByteOrder uint8

const (
	OrderLE   ByteOrder = 0
	OrderBE   ByteOrder = 1
	OrderVAX  ByteOrder = 2
	OrderNone ByteOrder = 3
)

// StringPadding is the padding scheme of fixed-length strings.
type StringPadding uint8

const (
	PadNullTerm StringPadding = 0
	PadNullPad  StringPadding = 1
	PadSpacePad StringPadding = 2
)

// CharacterSet is the character encoding of string data.
type CharacterSet uint8

const (
	CharsetASCII CharacterSet = 0
	CharsetUTF8  CharacterSet = 1
)

// Datatype describes the element encoding of a dataset or attribute
// (type 0x0003).
type Datatype struct {
	Class     DatatypeClass
	ClassBits uint32 // 24-bit class-specific bit field
	Size      uint32 // element size in bytes

	ByteOrder ByteOrder

	// Fixed point
	BitOffset    uint16
	BitPrecision uint16
	Signed       bool

	// Strings
	StringPadding StringPadding
	CharSet       CharacterSet

	// Compound
	Members []CompoundMember

	// Arrays
	ArrayDims []uint32
	BaseType  *Datatype

	// Variable length
	VarLenType     *Datatype
	IsVarLenString bool

	// Raw class properties, kept for classes whose properties are
	// passed through rather than decoded.
	Properties []byte
}

// CompoundMember is one named field of a compound datatype.
type CompoundMember struct {
	Name       string
	ByteOffset uint32
	Type       *Datatype
}

func (m *Datatype) Type() Type { return TypeDatatype }

// IsInteger reports whether the type is fixed point.
func (m *Datatype) IsInteger() bool { return m.Class == ClassFixedPoint }

// IsFloat reports whether the type is floating point.
func (m *Datatype) IsFloat() bool { return m.Class == ClassFloatPoint }

// IsString reports whether the type is a fixed or variable-length string.
func (m *Datatype) IsString() bool {
	return m.Class == ClassString || (m.Class == ClassVarLen && m.IsVarLenString)
}

// IsCompound reports whether the type is compound.
func (m *Datatype) IsCompound() bool { return m.Class == ClassCompound }

// IsArray reports whether the type is a fixed-size array.
func (m *Datatype) IsArray() bool { return m.Class == ClassArray }

// IsVarLen reports whether the type is variable length.
func (m *Datatype) IsVarLen() bool { return m.Class == ClassVarLen }

func parseDatatype(data []byte, r *binary.Reader) (*Datatype, error) {
	dt, _, err := parseDatatypeSized(data, r)
	return dt, err
}

// parseDatatypeSized parses a datatype and reports the bytes consumed,
// which compound member and base type parsing rely on.
func parseDatatypeSized(data []byte, r *binary.Reader) (*Datatype, int, error) {
	if len(data) < 8 {
		return nil, 0, fmt.Errorf("datatype message too short")
	}

	classAndVersion := data[0]
	class := DatatypeClass(classAndVersion & 0x0F)
	version := int(classAndVersion >> 4)

	classBits := uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16
	size := uint32(binary.DecodeUint(data[4:8]))

	propsSize := propertiesSize(class, data[8:], classBits)
	if propsSize > len(data)-8 {
		propsSize = len(data) - 8
	}

	dt := &Datatype{
		Class:      class,
		ClassBits:  classBits,
		Size:       size,
		Properties: data[8 : 8+propsSize],
	}

	props := data[8:]

	switch class {
	case ClassFixedPoint:
		dt.ByteOrder = ByteOrder(classBits & 0x01)
		dt.Signed = classBits&0x08 != 0
		if len(props) >= 4 {
			dt.BitOffset = uint16(binary.DecodeUint(props[0:2]))
			dt.BitPrecision = uint16(binary.DecodeUint(props[2:4]))
		}

	case ClassFloatPoint:
		// Exponent and mantissa positions stay in Properties; the
		// element decoders assume IEEE layouts.
		dt.ByteOrder = ByteOrder(classBits & 0x01)

	case ClassString:
		dt.StringPadding = StringPadding(classBits & 0x0F)
		dt.CharSet = CharacterSet((classBits >> 4) & 0x0F)

	case ClassCompound:
		numMembers := int(classBits & 0xFFFF)
		dt.Members = make([]CompoundMember, 0, numMembers)
		offset := 0
		for i := 0; i < numMembers && offset < len(props); i++ {
			member, consumed, err := parseCompoundMember(props[offset:], r, version, size)
			if err != nil {
				break
			}
			dt.Members = append(dt.Members, member)
			offset += consumed
		}

	case ClassArray:
		if len(props) >= 4 {
			ndims := int(props[0])
			dt.ArrayDims = make([]uint32, ndims)
			offset := 4 // version byte plus reserved
			for i := 0; i < ndims && offset+4 <= len(props); i++ {
				dt.ArrayDims[i] = uint32(binary.DecodeUint(props[offset : offset+4]))
				offset += 4
			}
			if offset < len(props) {
				if base, err := parseDatatype(props[offset:], r); err == nil {
					dt.BaseType = base
				}
			}
		}

	case ClassVarLen:
		dt.IsVarLenString = classBits&0x0F == 1
		if len(props) > 0 {
			if base, err := parseDatatype(props, r); err == nil {
				dt.VarLenType = base
			}
		}

	case ClassBitfield:
		dt.ByteOrder = ByteOrder(classBits & 0x01)

	case ClassEnum:
		// Properties start with the base type; the name/value table
		// that follows stays in Properties.
		if len(props) >= 8 {
			if base, err := parseDatatype(props, r); err == nil {
				dt.BaseType = base
			}
		}
	}

	return dt, 8 + propsSize, nil
}

// propertiesSize computes the length of the class property block so that
// nested types (compound members, array bases) know where one type ends.
func propertiesSize(class DatatypeClass, props []byte, classBits uint32) int {
	switch class {
	case ClassFixedPoint, ClassBitfield:
		return 4 // bit offset + bit precision
	case ClassFloatPoint:
		return 12 // bit layout + exponent bias
	case ClassString, ClassReference:
		return 0
	case ClassOpaque:
		end := 0
		for end < len(props) && props[end] != 0 {
			end++
		}
		return end + 1
	case ClassVarLen:
		if len(props) >= 8 {
			baseClass := DatatypeClass(props[0] & 0x0F)
			return 8 + propertiesSize(baseClass, props[8:], 0)
		}
		return len(props)
	case ClassArray:
		if len(props) >= 4 {
			ndims := int(props[0])
			offset := 4 + ndims*4
			if offset < len(props) {
				baseClass := DatatypeClass(props[offset] & 0x0F)
				return offset + 8 + propertiesSize(baseClass, props[offset+8:], 0)
			}
		}
		return len(props)
	default:
		// Compound and enum properties run to the end of the message.
		return len(props)
	}
}

func parseCompoundMember(data []byte, r *binary.Reader, version int, compoundSize uint32) (CompoundMember, int, error) {
	var member CompoundMember

	nameEnd := 0
	for nameEnd < len(data) && data[nameEnd] != 0 {
		nameEnd++
	}
	if nameEnd >= len(data) {
		return member, 0, fmt.Errorf("compound member name not terminated")
	}
	member.Name = string(data[:nameEnd])
	offset := nameEnd + 1

	// Versions 1 and 2 pad names to 8 bytes; version 3 does not.
	if version < 3 && offset%8 != 0 {
		offset += 8 - offset%8
	}

	offsetSize := 4
	if version >= 3 {
		offsetSize = memberOffsetSize(compoundSize)
	}

	if offset+offsetSize > len(data) {
		return member, 0, fmt.Errorf("compound member offset truncated")
	}
	member.ByteOffset = uint32(binary.DecodeUint(data[offset : offset+offsetSize]))
	offset += offsetSize

	if offset < len(data) {
		memberType, typeSize, err := parseDatatypeSized(data[offset:], r)
		if err != nil {
			return member, 0, err
		}
		member.Type = memberType
		offset += typeSize
	}

	return member, offset, nil
}
