package message

import (
	"github.com/h5kit/hdf5/internal/binary"
)

// Serializable is implemented by messages the write path can emit.
type Serializable interface {
	Message

	// Serialize writes the message body at the writer's position.
	Serialize(w *binary.Writer) error

	// SerializedSize reports the body size Serialize will produce.
	// The writer supplies the file's offset and length widths.
	SerializedSize(w *binary.Writer) int
}

// Serialize writes msg if it knows how to serialize itself.
func Serialize(msg Message, w *binary.Writer) error {
	if s, ok := msg.(Serializable); ok {
		return s.Serialize(w)
	}
	return nil
}

// SerializedSize reports the encoded size of msg, or 0 for read-only
// message types.
func SerializedSize(msg Message, w *binary.Writer) int {
	if s, ok := msg.(Serializable); ok {
		return s.SerializedSize(w)
	}
	return 0
}
