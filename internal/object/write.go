package object

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/message"
)

// MinGroupChunkSize pads group headers so links can be added later
// without relocating the header.
const MinGroupChunkSize = 120

// WriteHeader writes a version 2 object header holding the given
// messages at the writer's current position. Messages that have no
// serialized form are skipped.
func WriteHeader(w *binary.Writer, messages []message.Message) error {
	return WriteHeaderSized(w, messages, 0)
}

// WriteHeaderSized writes a version 2 object header whose message chunk
// is padded to at least minChunk bytes with a trailing NIL message.
func WriteHeaderSized(w *binary.Writer, messages []message.Message, minChunk int) error {
	chunkSize, padding := chunkSpan(w, messages, minChunk)
	fieldWidth := sizeFieldWidth(chunkSize)

	// Stage the whole header so the checksum can be computed over the
	// final bytes before anything reaches the file.
	buf, sw := binary.NewBuffer(w.Geometry())
	if err := sw.WriteBytes([]byte(SignatureV2)); err != nil {
		return err
	}
	if err := sw.WriteUint8(2); err != nil {
		return err
	}
	if err := sw.WriteUint8(widthFlags(fieldWidth)); err != nil {
		return err
	}
	if err := sw.WriteUintN(uint64(chunkSize), fieldWidth); err != nil {
		return err
	}
	for _, m := range messages {
		if err := writeMessage(sw, m); err != nil {
			return err
		}
	}
	if padding > 0 {
		if err := sw.WriteUint8(uint8(message.TypeNIL)); err != nil {
			return err
		}
		if err := sw.WriteUint16(uint16(padding - 4)); err != nil {
			return err
		}
		if err := sw.WriteUint8(0); err != nil {
			return err
		}
		if err := sw.WriteZeros(padding - 4); err != nil {
			return err
		}
	}

	sum := binary.Lookup3Checksum(buf.Bytes())
	if err := sw.WriteUint32(sum); err != nil {
		return err
	}
	return w.WriteBytes(buf.Bytes())
}

// HeaderSize returns the on-disk size of the header WriteHeader would
// produce for the given messages.
func HeaderSize(w *binary.Writer, messages []message.Message) int {
	return HeaderSizeSized(w, messages, 0)
}

// HeaderSizeSized is HeaderSize for WriteHeaderSized.
func HeaderSizeSized(w *binary.Writer, messages []message.Message, minChunk int) int {
	chunkSize, _ := chunkSpan(w, messages, minChunk)
	// Signature, version, flags, size field, messages, checksum.
	return 4 + 1 + 1 + sizeFieldWidth(chunkSize) + chunkSize + 4
}

// chunkSpan returns the message chunk size and the NIL padding inside
// it. A nonzero pad smaller than a NIL message header grows the chunk.
func chunkSpan(w *binary.Writer, messages []message.Message, minChunk int) (size, padding int) {
	for _, m := range messages {
		s, ok := m.(message.Serializable)
		if !ok {
			continue
		}
		body := s.SerializedSize(w)
		size += messageHeaderSize(body) + body
	}
	if size < minChunk {
		padding = minChunk - size
		if padding < 4 {
			padding = 4
		}
		size += padding
	}
	return size, padding
}

func writeMessage(w *binary.Writer, m message.Message) error {
	s, ok := m.(message.Serializable)
	if !ok {
		return nil
	}
	body := s.SerializedSize(w)
	if body > 0xFFFF {
		// Extended form: marker byte, type, 4-byte size.
		if err := w.WriteUint8(0xFF); err != nil {
			return err
		}
		if err := w.WriteUint8(uint8(m.Type())); err != nil {
			return err
		}
		if err := w.WriteUint32(uint32(body)); err != nil {
			return err
		}
	} else {
		if err := w.WriteUint8(uint8(m.Type())); err != nil {
			return err
		}
		if err := w.WriteUint16(uint16(body)); err != nil {
			return err
		}
	}
	if err := w.WriteUint8(0); err != nil { // message flags
		return err
	}
	start := w.Pos()
	if err := s.Serialize(w); err != nil {
		return fmt.Errorf("serializing message type %#x: %w", uint16(m.Type()), err)
	}
	if got := int(w.Pos() - start); got != body {
		return fmt.Errorf("message type %#x serialized %d bytes, declared %d",
			uint16(m.Type()), got, body)
	}
	return nil
}

func messageHeaderSize(body int) int {
	if body > 0xFFFF {
		return 7
	}
	return 4
}

// sizeFieldWidth returns the narrowest field that can hold the chunk
// size.
func sizeFieldWidth(chunkSize int) int {
	switch {
	case chunkSize <= 0xFF:
		return 1
	case chunkSize <= 0xFFFF:
		return 2
	case chunkSize <= 0xFFFFFFFF:
		return 4
	default:
		return 8
	}
}

func widthFlags(width int) uint8 {
	switch width {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	default:
		return 3
	}
}

// NewEmptyGroupHeader returns the messages of a group with no links.
func NewEmptyGroupHeader() []message.Message {
	return []message.Message{
		message.NewLinkInfo(),
		message.NewGroupInfo(),
	}
}

// NewGroupHeader returns the messages of a group holding the given
// links compactly in its header.
func NewGroupHeader(links []*message.Link) []message.Message {
	msgs := NewEmptyGroupHeader()
	for _, l := range links {
		msgs = append(msgs, l)
	}
	return msgs
}

// NewDatasetHeader returns the core messages of a dataset header. A nil
// pipeline is omitted. Attribute messages may be appended by the caller.
func NewDatasetHeader(space *message.Dataspace, dtype *message.Datatype, pipeline *message.FilterPipeline, layout *message.DataLayout) []message.Message {
	msgs := []message.Message{
		space,
		dtype,
		message.NewFillValue(),
	}
	if pipeline != nil {
		msgs = append(msgs, pipeline)
	}
	msgs = append(msgs, layout)
	return msgs
}
