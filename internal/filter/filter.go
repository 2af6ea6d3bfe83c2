package filter

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/message"
)

// Filter transforms chunk bytes in both directions. Encode produces the
// stored form, Decode recovers the in-memory form.
type Filter interface {
	ID() uint16
	Encode(input []byte) ([]byte, error)
	Decode(input []byte) ([]byte, error)
}

// Registry maps filter IDs to constructors taking the pipeline entry's
// client data.
var Registry = map[uint16]func([]uint32) Filter{
	message.FilterDeflate:    func(cd []uint32) Filter { return NewDeflate(cd) },
	message.FilterShuffle:    func(cd []uint32) Filter { return NewShuffle(cd) },
	message.FilterFletcher32: func(cd []uint32) Filter { return NewFletcher32(cd) },
	message.FilterLZ4:        func(cd []uint32) Filter { return NewLZ4(cd) },
	message.FilterZstd:       func(cd []uint32) Filter { return NewZstd(cd) },
}

var filterNames = map[uint16]string{
	message.FilterDeflate:     "deflate",
	message.FilterShuffle:     "shuffle",
	message.FilterFletcher32:  "fletcher32",
	message.FilterSZIP:        "szip",
	message.FilterNBit:        "n-bit",
	message.FilterScaleOffset: "scale-offset",
	message.FilterLZ4:         "lz4",
	message.FilterZstd:        "zstd",
}

// Name returns a printable name for a filter ID.
func Name(id uint16) string {
	if n, ok := filterNames[id]; ok {
		return n
	}
	return fmt.Sprintf("filter %d", id)
}

// New builds the filter for a pipeline entry. A nil filter with nil
// error means the entry is optional and unavailable; such an entry is
// skipped on encode and decodable only for chunks whose mask bit marks
// it skipped.
func New(entry message.FilterEntry) (Filter, error) {
	ctor, ok := Registry[entry.ID]
	if !ok {
		if entry.IsOptional() {
			return nil, nil
		}
		return nil, fmt.Errorf("%s (ID %d) is required but not supported", Name(entry.ID), entry.ID)
	}
	return ctor(entry.ClientData), nil
}
