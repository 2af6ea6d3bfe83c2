package object

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/message"
)

// SignatureV2 marks a version 2 object header.
const SignatureV2 = "OHDR"

// signatureOCHK marks a version 2 continuation block.
const signatureOCHK = "OCHK"

var (
	// ErrInvalidHeader is returned when the bytes at an address do not
	// form an object header.
	ErrInvalidHeader = errors.New("object: invalid header")

	// ErrUnsupportedVersion is returned for header versions other than 1
	// and 2.
	ErrUnsupportedVersion = errors.New("object: unsupported header version")

	// ErrChecksumMismatch is returned when a version 2 header or
	// continuation block fails checksum verification.
	ErrChecksumMismatch = errors.New("object: checksum mismatch")
)

// Header is a decoded object header.
type Header struct {
	// Version is 1 or 2.
	Version uint8

	// Address is the file offset the header was read from.
	Address uint64

	// Size is the on-disk span of the header in bytes. Zero for
	// version 1 headers, whose span is not tracked.
	Size int

	// Flags holds the version 2 flag byte. Zero for version 1 headers.
	Flags uint8

	// RefCount is the hard link count from version 1 headers.
	RefCount uint32

	// Messages holds the decoded header messages in file order,
	// continuation blocks flattened in place.
	Messages []message.Message

	// Timestamps from version 2 headers, seconds since the epoch.
	// Zero when absent.
	AccessTime uint32
	ModTime    uint32
	ChangeTime uint32
	BirthTime  uint32
}

// ReadHeader decodes the object header at address. Both version 1 and
// version 2 headers are accepted.
func ReadHeader(r *binary.Reader, address uint64) (*Header, error) {
	sig, err := r.At(int64(address)).Peek(4)
	if err != nil {
		return nil, fmt.Errorf("reading object header at %#x: %w", address, err)
	}

	h := &Header{Address: address}
	switch {
	case bytes.Equal(sig, []byte(SignatureV2)):
		err = h.readV2(r)
	case sig[0] == 1:
		err = h.readV1(r)
	default:
		return nil, fmt.Errorf("%w at %#x", ErrInvalidHeader, address)
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Find returns the first message of the given type, or nil.
func (h *Header) Find(t message.Type) message.Message {
	for _, m := range h.Messages {
		if m.Type() == t {
			return m
		}
	}
	return nil
}

// FindAll returns every message of the given type in file order.
func (h *Header) FindAll(t message.Type) []message.Message {
	var out []message.Message
	for _, m := range h.Messages {
		if m.Type() == t {
			out = append(out, m)
		}
	}
	return out
}

// Dataspace returns the dataspace message, or nil when absent.
func (h *Header) Dataspace() *message.Dataspace {
	if m, ok := h.Find(message.TypeDataspace).(*message.Dataspace); ok {
		return m
	}
	return nil
}

// Datatype returns the datatype message, or nil when absent.
func (h *Header) Datatype() *message.Datatype {
	if m, ok := h.Find(message.TypeDatatype).(*message.Datatype); ok {
		return m
	}
	return nil
}

// DataLayout returns the data layout message, or nil when absent.
func (h *Header) DataLayout() *message.DataLayout {
	if m, ok := h.Find(message.TypeDataLayout).(*message.DataLayout); ok {
		return m
	}
	return nil
}

// FillValue returns the fill value message, or nil when absent.
func (h *Header) FillValue() *message.FillValue {
	if m, ok := h.Find(message.TypeFillValue).(*message.FillValue); ok {
		return m
	}
	return nil
}

// FilterPipeline returns the filter pipeline message, or nil when the
// object is unfiltered.
func (h *Header) FilterPipeline() *message.FilterPipeline {
	if m, ok := h.Find(message.TypeFilterPipeline).(*message.FilterPipeline); ok {
		return m
	}
	return nil
}

// LinkInfo returns the link info message, or nil when absent.
func (h *Header) LinkInfo() *message.LinkInfo {
	if m, ok := h.Find(message.TypeLinkInfo).(*message.LinkInfo); ok {
		return m
	}
	return nil
}

// SymbolTable returns the symbol table message, or nil when absent.
func (h *Header) SymbolTable() *message.SymbolTable {
	if m, ok := h.Find(message.TypeSymbolTable).(*message.SymbolTable); ok {
		return m
	}
	return nil
}

// Links returns the link messages carried directly in the header.
func (h *Header) Links() []*message.Link {
	var out []*message.Link
	for _, m := range h.FindAll(message.TypeLink) {
		if l, ok := m.(*message.Link); ok {
			out = append(out, l)
		}
	}
	return out
}

// Attributes returns the attribute messages in file order.
func (h *Header) Attributes() []*message.Attribute {
	var out []*message.Attribute
	for _, m := range h.FindAll(message.TypeAttribute) {
		if a, ok := m.(*message.Attribute); ok {
			out = append(out, a)
		}
	}
	return out
}
