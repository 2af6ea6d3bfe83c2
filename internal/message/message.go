package message

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
)

// Type identifies an object header message.
type Type uint16

const (
	TypeNIL                      Type = 0x0000
	TypeDataspace                Type = 0x0001
	TypeLinkInfo                 Type = 0x0002
	TypeDatatype                 Type = 0x0003
	TypeFillValueOld             Type = 0x0004
	TypeFillValue                Type = 0x0005
	TypeLink                     Type = 0x0006
	TypeExternalDataFiles        Type = 0x0007
	TypeDataLayout               Type = 0x0008
	TypeBogus                    Type = 0x0009
	TypeGroupInfo                Type = 0x000A
	TypeFilterPipeline           Type = 0x000B
	TypeAttribute                Type = 0x000C
	TypeObjectComment            Type = 0x000D
	TypeObjectModTime            Type = 0x000E
	TypeSharedMessageTable       Type = 0x000F
	TypeObjectHeaderContinuation Type = 0x0010
	TypeSymbolTable              Type = 0x0011
	TypeObjectModTimeOld         Type = 0x0012
	TypeBTreeKValues             Type = 0x0013
	TypeDriverInfo               Type = 0x0014
	TypeAttributeInfo            Type = 0x0015
	TypeObjectRefCount           Type = 0x0016
)

// Message is implemented by all parsed header messages.
type Message interface {
	Type() Type
}

// Parse decodes a single header message from its raw body. Unrecognized
// types are wrapped in [Unknown] rather than rejected, so files using
// newer message types still open.
func Parse(typ Type, data []byte, flags uint8, r *binary.Reader) (Message, error) {
	switch typ {
	case TypeDataspace:
		return parseDataspace(data, r)
	case TypeLinkInfo:
		return parseLinkInfo(data, r)
	case TypeDatatype:
		return parseDatatype(data, r)
	case TypeFillValue:
		return parseFillValue(data, r)
	case TypeLink:
		return parseLink(data, r)
	case TypeDataLayout:
		return parseDataLayout(data, r)
	case TypeFilterPipeline:
		return parseFilterPipeline(data, r)
	case TypeAttribute:
		return parseAttribute(data, r)
	case TypeObjectHeaderContinuation:
		return ParseContinuation(data, r)
	case TypeSymbolTable:
		return parseSymbolTable(data, r)
	default:
		return &Unknown{typ: typ, data: data}, nil
	}
}

// Unknown carries the raw body of a message type this package does not
// decode.
type Unknown struct {
	typ  Type
	data []byte
}

func (m *Unknown) Type() Type   { return m.typ }
func (m *Unknown) Data() []byte { return m.data }

// Serialize re-emits the raw body unchanged, so headers holding
// undecoded messages can be rewritten byte for byte.
func (m *Unknown) Serialize(w *binary.Writer) error { return w.WriteBytes(m.data) }

func (m *Unknown) SerializedSize(*binary.Writer) int { return len(m.data) }

// Continuation points at the next block of header messages.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeObjectHeaderContinuation }

// ParseContinuation decodes a header continuation message.
func ParseContinuation(data []byte, r *binary.Reader) (*Continuation, error) {
	offsetSize := r.OffsetSize()
	lengthSize := r.LengthSize()
	if len(data) < offsetSize+lengthSize {
		return nil, fmt.Errorf("continuation message too short")
	}

	return &Continuation{
		Offset: binary.DecodeUint(data[:offsetSize]),
		Length: binary.DecodeUint(data[offsetSize : offsetSize+lengthSize]),
	}, nil
}
