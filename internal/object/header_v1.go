package object

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/message"
)

func (h *Header) readV1(r *binary.Reader) error {
	c := r.At(int64(h.Address))

	version, err := c.ReadUint8()
	if err != nil {
		return err
	}
	if version != 1 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	h.Version = 1
	c.Skip(1) // reserved

	numMessages, err := c.ReadUint16()
	if err != nil {
		return err
	}
	if h.RefCount, err = c.ReadUint32(); err != nil {
		return err
	}
	c.Skip(4) // header size, implied by the message count
	c.Align(8)

	return h.readV1Messages(c, int(numMessages))
}

// readV1Messages walks count messages starting at the cursor. Version 1
// continuation blocks carry no signature or checksum; a continuation
// message simply moves the cursor, and the total count keeps spanning
// blocks.
func (h *Header) readV1Messages(c *binary.Reader, count int) error {
	for read := 0; read < count; read++ {
		rawType, err := c.ReadUint16()
		if err != nil {
			return fmt.Errorf("object header at %#x: %w", h.Address, err)
		}
		size, err := c.ReadUint16()
		if err != nil {
			return err
		}
		flags, err := c.ReadUint8()
		if err != nil {
			return err
		}
		c.Skip(3) // reserved

		data, err := c.ReadBytes(int(size))
		if err != nil {
			return fmt.Errorf("object header at %#x: message truncated: %w", h.Address, err)
		}
		c.Align(8)

		typ := message.Type(rawType)
		if typ == message.TypeNIL {
			continue
		}
		msg, err := message.Parse(typ, data, flags, c)
		if err != nil {
			return fmt.Errorf("object header at %#x: %w", h.Address, err)
		}
		if cont, ok := msg.(*message.Continuation); ok {
			c = c.At(int64(cont.Offset))
			continue
		}
		h.Messages = append(h.Messages, msg)
	}
	return nil
}
