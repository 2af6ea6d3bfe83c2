package filter

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/h5kit/hdf5/internal/message"
)

// lz4DefaultBlockSize matches the registered HDF5 LZ4 filter.
const lz4DefaultBlockSize = 1 << 30

// LZ4 is the registered LZ4 filter (ID 32004). Its stored form is a
// big-endian header, an 8-byte total size and a 4-byte block size,
// followed by blocks each prefixed with a 4-byte compressed length.
// A block whose compressed length equals its decompressed length is
// stored raw.
type LZ4 struct {
	blockSize int
}

// NewLZ4 builds the lz4 filter. Client data carries the block size.
func NewLZ4(clientData []uint32) *LZ4 {
	blockSize := lz4DefaultBlockSize
	if len(clientData) > 0 && clientData[0] > 0 {
		blockSize = int(clientData[0])
	}
	if blockSize > lz4DefaultBlockSize {
		blockSize = lz4DefaultBlockSize
	}
	return &LZ4{blockSize: blockSize}
}

func (f *LZ4) ID() uint16 {
	return message.FilterLZ4
}

func (f *LZ4) Encode(input []byte) ([]byte, error) {
	blockSize := f.blockSize
	if blockSize > len(input) {
		blockSize = len(input)
	}

	out := make([]byte, 12, 12+len(input)+len(input)/255+16)
	binary.BigEndian.PutUint64(out[0:8], uint64(len(input)))
	binary.BigEndian.PutUint32(out[8:12], uint32(blockSize))
	if len(input) == 0 {
		return out, nil
	}

	comp := make([]byte, lz4.CompressBlockBound(blockSize))
	for off := 0; off < len(input); off += blockSize {
		end := off + blockSize
		if end > len(input) {
			end = len(input)
		}
		src := input[off:end]

		n, err := lz4.CompressBlock(src, comp, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 block at %d: %w", off, err)
		}
		var lenField [4]byte
		if n == 0 || n >= len(src) {
			// Incompressible block, stored raw.
			binary.BigEndian.PutUint32(lenField[:], uint32(len(src)))
			out = append(out, lenField[:]...)
			out = append(out, src...)
		} else {
			binary.BigEndian.PutUint32(lenField[:], uint32(n))
			out = append(out, lenField[:]...)
			out = append(out, comp[:n]...)
		}
	}
	return out, nil
}

func (f *LZ4) Decode(input []byte) ([]byte, error) {
	if len(input) < 12 {
		return nil, fmt.Errorf("lz4: input shorter than its header")
	}
	origSize := binary.BigEndian.Uint64(input[0:8])
	blockSize := int(binary.BigEndian.Uint32(input[8:12]))
	if origSize > 0 && blockSize <= 0 {
		return nil, fmt.Errorf("lz4: invalid block size %d", blockSize)
	}
	if uint64(blockSize) > origSize {
		blockSize = int(origSize)
	}

	out := make([]byte, origSize)
	pos := 12
	for outPos := 0; outPos < len(out); {
		this := blockSize
		if rest := len(out) - outPos; this > rest {
			this = rest
		}
		if pos+4 > len(input) {
			return nil, fmt.Errorf("lz4: truncated block header at %d", pos)
		}
		compSize := int(binary.BigEndian.Uint32(input[pos : pos+4]))
		pos += 4
		if pos+compSize > len(input) {
			return nil, fmt.Errorf("lz4: truncated block at %d", pos)
		}

		if compSize == this {
			// Raw block.
			copy(out[outPos:outPos+this], input[pos:pos+compSize])
		} else {
			n, err := lz4.UncompressBlock(input[pos:pos+compSize], out[outPos:outPos+this])
			if err != nil {
				return nil, fmt.Errorf("lz4 block at %d: %w", pos, err)
			}
			if n != this {
				return nil, fmt.Errorf("lz4 block at %d: decompressed %d bytes, expected %d", pos, n, this)
			}
		}
		pos += compSize
		outPos += this
	}
	return out, nil
}
