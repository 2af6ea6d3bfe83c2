package message

import (
	"github.com/h5kit/hdf5/internal/binary"
)

// Serialize writes the datatype message: class and version byte, the
// 24-bit class bit field, the element size, then class properties.
func (m *Datatype) Serialize(w *binary.Writer) error {
	version := uint8(1)
	if m.Class == ClassCompound {
		version = 3
	}

	if err := w.WriteUint8(uint8(m.Class) | version<<4); err != nil {
		return err
	}

	if err := w.WriteUintN(uint64(m.ClassBits), 3); err != nil {
		return err
	}
	if err := w.WriteUint32(m.Size); err != nil {
		return err
	}

	switch m.Class {
	case ClassFixedPoint:
		if err := w.WriteUint16(m.BitOffset); err != nil {
			return err
		}
		return w.WriteUint16(m.BitPrecision)

	case ClassFloatPoint:
		if len(m.Properties) >= 12 {
			return w.WriteBytes(m.Properties[:12])
		}
		return writeIEEEFloatProperties(w, m.Size)

	case ClassString:
		return nil

	case ClassCompound:
		for i := range m.Members {
			if err := writeCompoundMember(w, &m.Members[i], m.Size); err != nil {
				return err
			}
		}
		return nil

	case ClassArray:
		if err := w.WriteUint8(2); err != nil { // array property version
			return err
		}
		if err := w.WriteUint8(uint8(len(m.ArrayDims))); err != nil {
			return err
		}
		if err := w.WriteUint16(0); err != nil {
			return err
		}
		for _, dim := range m.ArrayDims {
			if err := w.WriteUint32(dim); err != nil {
				return err
			}
		}
		if m.BaseType != nil {
			return m.BaseType.Serialize(w)
		}
		return nil

	case ClassVarLen:
		if m.VarLenType != nil {
			return m.VarLenType.Serialize(w)
		}
		return nil
	}

	return nil
}

// SerializedSize returns the encoded size of the datatype message.
func (m *Datatype) SerializedSize(w *binary.Writer) int {
	size := 8

	switch m.Class {
	case ClassFixedPoint:
		size += 4
	case ClassFloatPoint:
		size += 12
	case ClassCompound:
		for i := range m.Members {
			size += compoundMemberSize(&m.Members[i], m.Size)
		}
	case ClassArray:
		size += 4 + len(m.ArrayDims)*4
		if m.BaseType != nil {
			size += m.BaseType.SerializedSize(w)
		}
	case ClassVarLen:
		if m.VarLenType != nil {
			size += m.VarLenType.SerializedSize(w)
		}
	}

	return size
}

// writeIEEEFloatProperties emits the 12-byte float property block for
// IEEE 754 single or double precision. The mantissa size field is a
// single byte.
func writeIEEEFloatProperties(w *binary.Writer, size uint32) error {
	var props []byte
	switch size {
	case 4:
		props = []byte{
			0, 0, // bit offset
			32, 0, // bit precision
			23,           // exponent location
			8,            // exponent size
			0,            // mantissa location
			23,           // mantissa size
			127, 0, 0, 0, // exponent bias
		}
	case 8:
		props = []byte{
			0, 0,
			64, 0,
			52,
			11,
			0,
			52,
			255, 3, 0, 0, // bias 1023
		}
	default:
		return w.WriteZeros(12)
	}
	return w.WriteBytes(props)
}

// writeCompoundMember emits one version 3 member: unpadded NUL-terminated
// name, a byte offset sized to the compound, then the member type.
func writeCompoundMember(w *binary.Writer, member *CompoundMember, compoundSize uint32) error {
	if err := w.WriteBytes([]byte(member.Name)); err != nil {
		return err
	}
	if err := w.WriteUint8(0); err != nil {
		return err
	}

	if err := w.WriteUintN(uint64(member.ByteOffset), memberOffsetSize(compoundSize)); err != nil {
		return err
	}

	if member.Type != nil {
		return member.Type.Serialize(w)
	}
	return nil
}

func compoundMemberSize(member *CompoundMember, compoundSize uint32) int {
	size := len(member.Name) + 1
	size += memberOffsetSize(compoundSize)
	if member.Type != nil {
		size += member.Type.SerializedSize(nil)
	}
	return size
}

// memberOffsetSize returns the byte offset width version 3 compounds use
// for a type of the given total size.
func memberOffsetSize(compoundSize uint32) int {
	switch {
	case compoundSize <= 0xFF:
		return 1
	case compoundSize <= 0xFFFF:
		return 2
	default:
		return 4
	}
}

// NewFixedPointDatatype builds an integer datatype of the given byte size.
func NewFixedPointDatatype(size uint32, signed bool, order ByteOrder) *Datatype {
	classBits := uint32(order)
	if signed {
		classBits |= 0x08
	}
	return &Datatype{
		Class:        ClassFixedPoint,
		ClassBits:    classBits,
		Size:         size,
		ByteOrder:    order,
		BitPrecision: uint16(size * 8),
		Signed:       signed,
	}
}

// NewFloatDatatype builds an IEEE 754 float datatype of 4 or 8 bytes.
func NewFloatDatatype(size uint32, order ByteOrder) *Datatype {
	// Class bits: byte order in bit 0, normalized mantissa flag in
	// bit 5, sign bit location in bits 8-15.
	var signLocation uint32
	var props []byte

	switch size {
	case 4:
		signLocation = 31
		props = []byte{0, 0, 32, 0, 23, 8, 0, 23, 127, 0, 0, 0}
	case 8:
		signLocation = 63
		props = []byte{0, 0, 64, 0, 52, 11, 0, 52, 255, 3, 0, 0}
	}

	return &Datatype{
		Class:      ClassFloatPoint,
		ClassBits:  uint32(order) | 1<<5 | signLocation<<8,
		Size:       size,
		ByteOrder:  order,
		Properties: props,
	}
}

// NewStringDatatype builds a fixed-length string datatype.
func NewStringDatatype(size uint32, padding StringPadding, charset CharacterSet) *Datatype {
	return &Datatype{
		Class:         ClassString,
		ClassBits:     uint32(padding) | uint32(charset)<<4,
		Size:          size,
		StringPadding: padding,
		CharSet:       charset,
	}
}

// NewVarLenStringDatatype builds a variable-length string datatype whose
// elements are stored in the global heap. The in-memory element is the
// 16-byte hvl_t descriptor.
func NewVarLenStringDatatype(charset CharacterSet) *Datatype {
	base := &Datatype{
		Class:         ClassString,
		ClassBits:     uint32(PadNullTerm) | uint32(charset)<<4,
		Size:          1,
		StringPadding: PadNullTerm,
		CharSet:       charset,
	}
	return &Datatype{
		Class:          ClassVarLen,
		ClassBits:      1 | uint32(charset)<<4,
		Size:           16,
		VarLenType:     base,
		IsVarLenString: true,
	}
}

// NewCompoundDatatype builds a compound datatype from its members. The
// caller supplies the total size including any alignment padding.
func NewCompoundDatatype(size uint32, members []CompoundMember) *Datatype {
	return &Datatype{
		Class:     ClassCompound,
		ClassBits: uint32(len(members)),
		Size:      size,
		Members:   members,
	}
}

// NewArrayDatatype builds a fixed-size array datatype.
func NewArrayDatatype(dims []uint32, base *Datatype) *Datatype {
	elems := uint32(1)
	for _, d := range dims {
		elems *= d
	}
	return &Datatype{
		Class:     ClassArray,
		Size:      elems * base.Size,
		ArrayDims: dims,
		BaseType:  base,
	}
}
