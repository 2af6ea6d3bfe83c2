package message

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
)

// Registered filter identifiers. Values below 256 are reserved for the
// filters in the HDF5 library; LZ4 and Zstandard carry their publicly
// registered third-party IDs.
const (
	FilterDeflate     uint16 = 1
	FilterShuffle     uint16 = 2
	FilterFletcher32  uint16 = 3
	FilterSZIP        uint16 = 4
	FilterNBit        uint16 = 5
	FilterScaleOffset uint16 = 6
	FilterLZ4         uint16 = 32004
	FilterZstd        uint16 = 32015
)

// FilterEntry describes one filter in the pipeline.
type FilterEntry struct {
	ID         uint16
	Flags      uint16 // bit 0: filter is optional
	Name       string
	ClientData []uint32 // filter parameters
}

// IsOptional reports whether a failing encode may skip this filter.
func (f *FilterEntry) IsOptional() bool { return f.Flags&0x01 != 0 }

// FilterPipeline is the filter pipeline message (type 0x000B). Filters
// are listed in the order applied when writing chunks; reads apply them
// in reverse.
type FilterPipeline struct {
	Version uint8
	Filters []FilterEntry
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

// HasFilter reports whether the pipeline contains the given filter ID.
func (m *FilterPipeline) HasFilter(id uint16) bool {
	for i := range m.Filters {
		if m.Filters[i].ID == id {
			return true
		}
	}
	return false
}

// HasCompression reports whether any filter in the pipeline compresses.
func (m *FilterPipeline) HasCompression() bool {
	for i := range m.Filters {
		switch m.Filters[i].ID {
		case FilterDeflate, FilterSZIP, FilterLZ4, FilterZstd:
			return true
		}
	}
	return false
}

func parseFilterPipeline(data []byte, r *binary.Reader) (*FilterPipeline, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("filter pipeline message too short")
	}

	fp := &FilterPipeline{
		Version: data[0],
		Filters: make([]FilterEntry, data[1]),
	}

	// Version 1 follows the count with six reserved bytes.
	offset := 2
	if fp.Version == 1 {
		offset = 8
	}

	for i := range fp.Filters {
		entry, consumed, err := parseFilterEntry(data[offset:], fp.Version)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		fp.Filters[i] = entry
		offset += consumed
	}

	return fp, nil
}

func parseFilterEntry(data []byte, version uint8) (FilterEntry, int, error) {
	var f FilterEntry

	if len(data) < 6 {
		return f, 0, fmt.Errorf("filter entry too short")
	}

	f.ID = uint16(binary.DecodeUint(data[0:2]))
	offset := 2

	// The name length field exists in version 1, and in version 2 only
	// for filters outside the reserved ID range.
	var nameLen int
	if version == 1 || f.ID >= 256 {
		nameLen = int(binary.DecodeUint(data[offset : offset+2]))
		offset += 2
	}

	if offset+4 > len(data) {
		return f, 0, fmt.Errorf("filter entry truncated")
	}
	f.Flags = uint16(binary.DecodeUint(data[offset : offset+2]))
	numValues := int(binary.DecodeUint(data[offset+2 : offset+4]))
	offset += 4

	if nameLen > 0 {
		if offset+nameLen > len(data) {
			return f, 0, fmt.Errorf("filter name truncated")
		}
		f.Name = binary.CutString(data[offset : offset+nameLen])
		offset += nameLen

		// Version 1 pads names to 8 bytes.
		if version == 1 && nameLen%8 != 0 {
			offset += 8 - nameLen%8
		}
	}

	f.ClientData = make([]uint32, numValues)
	for i := 0; i < numValues; i++ {
		if offset+4 > len(data) {
			return f, 0, fmt.Errorf("filter client data truncated")
		}
		f.ClientData[i] = uint32(binary.DecodeUint(data[offset : offset+4]))
		offset += 4
	}

	// Version 1 pads an odd client data count to an even one.
	if version == 1 && numValues%2 != 0 {
		offset += 4
	}

	return f, offset, nil
}
