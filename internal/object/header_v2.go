package object

import (
	"bytes"
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/message"
)

// Version 2 header flag bits.
const (
	// Bits 0-1 encode the width of the chunk 0 size field as 1 << bits.
	flagChunkSizeWidth uint8 = 0x03
	// Bit 2: message headers carry a 2-byte creation order field.
	flagTrackOrder uint8 = 0x04
	// Bit 4: the prefix carries attribute phase change limits.
	flagPhaseChange uint8 = 0x10
	// Bit 5: the prefix carries four timestamps.
	flagTimestamps uint8 = 0x20
)

func (h *Header) readV2(r *binary.Reader) error {
	c := r.At(int64(h.Address))
	c.Skip(4) // signature, verified by ReadHeader

	version, err := c.ReadUint8()
	if err != nil {
		return err
	}
	if version != 2 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	h.Version = 2

	flags, err := c.ReadUint8()
	if err != nil {
		return err
	}
	h.Flags = flags

	if flags&flagTimestamps != 0 {
		for _, dst := range []*uint32{&h.AccessTime, &h.ModTime, &h.ChangeTime, &h.BirthTime} {
			if *dst, err = c.ReadUint32(); err != nil {
				return err
			}
		}
	}
	if flags&flagPhaseChange != 0 {
		c.Skip(4) // max compact / min dense attribute counts
	}

	chunkSize, err := c.ReadUintN(1 << (flags & flagChunkSizeWidth))
	if err != nil {
		return err
	}

	// The checksum covers everything from the signature through the last
	// message byte. Re-read that span whole so it can be verified before
	// any message is trusted.
	prefixLen := c.Pos() - int64(h.Address)
	span, err := c.At(int64(h.Address)).ReadBytes(int(prefixLen) + int(chunkSize))
	if err != nil {
		return fmt.Errorf("object header at %#x truncated: %w", h.Address, err)
	}
	c.Skip(int64(chunkSize))
	stored, err := c.ReadUint32()
	if err != nil {
		return err
	}
	if sum := binary.Lookup3Checksum(span); sum != stored {
		return fmt.Errorf("%w: object header at %#x: got %#x, want %#x",
			ErrChecksumMismatch, h.Address, sum, stored)
	}
	h.Size = len(span) + 4

	return h.walkV2(span[prefixLen:], r)
}

// walkV2 decodes the packed messages of one verified chunk. Continuation
// messages pull in further chunks; their messages land in h.Messages in
// file order.
func (h *Header) walkV2(block []byte, r *binary.Reader) error {
	trackOrder := h.Flags&flagTrackOrder != 0

	i := 0
	for i+4 <= len(block) {
		var (
			typ   message.Type
			size  int
			flags uint8
		)
		if block[i] == 0xFF {
			// Extended form for messages whose size exceeds the
			// 2-byte field: marker, type, 4-byte size, flags.
			if i+7 > len(block) {
				return fmt.Errorf("%w: truncated extended message at %#x", ErrInvalidHeader, h.Address)
			}
			typ = message.Type(block[i+1])
			size = int(binary.DecodeUint(block[i+2 : i+6]))
			flags = block[i+6]
			i += 7
		} else {
			typ = message.Type(block[i])
			size = int(binary.DecodeUint(block[i+1 : i+3]))
			flags = block[i+3]
			i += 4
		}
		if trackOrder {
			i += 2
		}
		if i+size > len(block) {
			return fmt.Errorf("%w: message overruns chunk at %#x", ErrInvalidHeader, h.Address)
		}
		data := block[i : i+size]
		i += size

		if typ == message.TypeNIL {
			continue
		}
		msg, err := message.Parse(typ, data, flags, r)
		if err != nil {
			return fmt.Errorf("object header at %#x: %w", h.Address, err)
		}
		if cont, ok := msg.(*message.Continuation); ok {
			if err := h.readV2Continuation(r, cont); err != nil {
				return err
			}
			continue
		}
		h.Messages = append(h.Messages, msg)
	}
	return nil
}

func (h *Header) readV2Continuation(r *binary.Reader, cont *message.Continuation) error {
	if cont.Length < 8 {
		return fmt.Errorf("%w: continuation block too small", ErrInvalidHeader)
	}
	block, err := r.At(int64(cont.Offset)).ReadBytes(int(cont.Length))
	if err != nil {
		return fmt.Errorf("continuation block at %#x truncated: %w", cont.Offset, err)
	}
	if !bytes.Equal(block[:4], []byte(signatureOCHK)) {
		return fmt.Errorf("%w: continuation block at %#x", ErrInvalidHeader, cont.Offset)
	}
	body := block[:len(block)-4]
	stored := uint32(binary.DecodeUint(block[len(block)-4:]))
	if sum := binary.Lookup3Checksum(body); sum != stored {
		return fmt.Errorf("%w: continuation block at %#x", ErrChecksumMismatch, cont.Offset)
	}
	return h.walkV2(body[4:], r)
}
