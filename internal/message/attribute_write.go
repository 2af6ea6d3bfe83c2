package message

import (
	"github.com/h5kit/hdf5/internal/binary"
)

// NewAttribute builds a version 3 attribute message.
func NewAttribute(name string, datatype *Datatype, dataspace *Dataspace, data []byte) *Attribute {
	return &Attribute{
		Version:   3,
		Name:      name,
		Datatype:  datatype,
		Dataspace: dataspace,
		Data:      data,
	}
}

// NewScalarAttribute builds a version 3 attribute holding one element.
func NewScalarAttribute(name string, datatype *Datatype, data []byte) *Attribute {
	return NewAttribute(name, datatype, NewScalarDataspace(), data)
}

// Serialize writes the attribute in version 3 format: unpadded name,
// datatype and dataspace blocks followed by the raw value.
func (m *Attribute) Serialize(w *binary.Writer) error {
	if err := w.WriteUint8(3); err != nil {
		return err
	}
	if err := w.WriteUint8(0); err != nil { // flags
		return err
	}

	if err := w.WriteUint16(uint16(len(m.Name) + 1)); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(m.Datatype.SerializedSize(w))); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(m.Dataspace.SerializedSize(w))); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(CharsetASCII)); err != nil {
		return err
	}

	if err := w.WriteBytes([]byte(m.Name)); err != nil {
		return err
	}
	if err := w.WriteUint8(0); err != nil {
		return err
	}

	if err := m.Datatype.Serialize(w); err != nil {
		return err
	}
	if err := m.Dataspace.Serialize(w); err != nil {
		return err
	}
	return w.WriteBytes(m.Data)
}

// SerializedSize returns the encoded size of the attribute message.
func (m *Attribute) SerializedSize(w *binary.Writer) int {
	return 9 + len(m.Name) + 1 +
		m.Datatype.SerializedSize(w) +
		m.Dataspace.SerializedSize(w) +
		len(m.Data)
}
