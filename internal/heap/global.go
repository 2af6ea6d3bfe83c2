package heap

import (
	"errors"
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
)

const globalSignature = "GCOL"

// GlobalHeapID locates one object in a global heap collection. On disk
// it is the collection address in the file's offset size followed by a
// 4-byte object index.
type GlobalHeapID struct {
	CollectionAddress uint64
	ObjectIndex       uint32
}

// GlobalHeap is one parsed collection. Objects keep their 1-based
// on-disk indices; index 0 marks the free space at the end and is
// never stored.
type GlobalHeap struct {
	Address        uint64
	CollectionSize uint64
	objects        map[uint16][]byte
}

// ReadGlobalHeap reads the collection at address.
func ReadGlobalHeap(r *binary.Reader, address uint64) (*GlobalHeap, error) {
	if address == 0 || r.IsUndefinedOffset(address) {
		return nil, fmt.Errorf("global heap: collection address 0x%x is undefined", address)
	}
	c := r.At(int64(address))

	sig, err := c.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("global heap at 0x%x: %w", address, err)
	}
	if string(sig) != globalSignature {
		return nil, fmt.Errorf("invalid global heap signature %q at 0x%x", sig, address)
	}
	version, err := c.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, fmt.Errorf("unsupported global heap version %d", version)
	}
	c.Skip(3)

	// The collection size counts the header just read.
	size, err := c.ReadLength()
	if err != nil {
		return nil, err
	}
	headerLen := uint64(c.Pos() - int64(address))
	if size < headerLen {
		return nil, fmt.Errorf("global heap at 0x%x: collection size %d shorter than header", address, size)
	}
	block, err := c.ReadBytes(int(size - headerLen))
	if err != nil {
		return nil, fmt.Errorf("global heap at 0x%x: %w", address, err)
	}

	gh := &GlobalHeap{
		Address:        address,
		CollectionSize: size,
		objects:        make(map[uint16][]byte),
	}
	if err := gh.walk(block, r.LengthSize()); err != nil {
		return nil, err
	}
	return gh, nil
}

// walk parses object entries out of the collection body. Each entry is
// index, reference count, 4 reserved bytes, a length-sized data size,
// then data padded to an 8-byte multiple.
func (gh *GlobalHeap) walk(block []byte, lengthSize int) error {
	i := 0
	for i+2 <= len(block) {
		index := uint16(block[i]) | uint16(block[i+1])<<8
		if index == 0 {
			return nil
		}
		headerEnd := i + 8 + lengthSize
		if headerEnd > len(block) {
			return fmt.Errorf("global heap at 0x%x: truncated header for object %d", gh.Address, index)
		}
		size := binary.DecodeUint(block[i+8 : headerEnd])
		if size > uint64(len(block)-headerEnd) {
			return fmt.Errorf("global heap at 0x%x: object %d overruns the collection", gh.Address, index)
		}
		dataEnd := headerEnd + int(size)
		gh.objects[index] = block[headerEnd:dataEnd]
		i = dataEnd + pad8(int(size))
	}
	return nil
}

// GetObject returns a copy of the data stored for index.
func (gh *GlobalHeap) GetObject(index uint16) ([]byte, error) {
	if gh == nil {
		return nil, errors.New("global heap: no collection loaded")
	}
	data, ok := gh.objects[index]
	if !ok {
		return nil, fmt.Errorf("global heap at 0x%x: no object %d", gh.Address, index)
	}
	return append([]byte(nil), data...), nil
}

// GetString returns the object data for index as a string, cut at the
// first NUL byte.
func (gh *GlobalHeap) GetString(index uint16) (string, error) {
	if gh == nil {
		return "", errors.New("global heap: no collection loaded")
	}
	data, ok := gh.objects[index]
	if !ok {
		return "", fmt.Errorf("global heap at 0x%x: no object %d", gh.Address, index)
	}
	return binary.CutString(data), nil
}

// ParseGlobalHeapID decodes a stored heap reference.
func ParseGlobalHeapID(data []byte, offsetSize int) (GlobalHeapID, error) {
	switch offsetSize {
	case 2, 4, 8:
	default:
		return GlobalHeapID{}, fmt.Errorf("global heap ID: unsupported offset size %d", offsetSize)
	}
	if len(data) < offsetSize+4 {
		return GlobalHeapID{}, fmt.Errorf("global heap ID: need %d bytes, have %d", offsetSize+4, len(data))
	}
	return GlobalHeapID{
		CollectionAddress: binary.DecodeUint(data[:offsetSize]),
		ObjectIndex:       uint32(binary.DecodeUint(data[offsetSize : offsetSize+4])),
	}, nil
}

func pad8(n int) int { return (8 - n%8) % 8 }
