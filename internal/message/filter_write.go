package message

import (
	"github.com/h5kit/hdf5/internal/binary"
)

// Serialize writes the pipeline in version 2 format. Version 2 drops the
// reserved bytes and padding of version 1 and only stores names for
// filters outside the reserved ID range.
func (m *FilterPipeline) Serialize(w *binary.Writer) error {
	if err := w.WriteUint8(2); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(len(m.Filters))); err != nil {
		return err
	}

	for i := range m.Filters {
		f := &m.Filters[i]

		if err := w.WriteUint16(f.ID); err != nil {
			return err
		}
		if f.ID >= 256 {
			if err := w.WriteUint16(uint16(len(f.Name))); err != nil {
				return err
			}
		}
		if err := w.WriteUint16(f.Flags); err != nil {
			return err
		}
		if err := w.WriteUint16(uint16(len(f.ClientData))); err != nil {
			return err
		}
		if f.ID >= 256 && len(f.Name) > 0 {
			if err := w.WriteBytes([]byte(f.Name)); err != nil {
				return err
			}
		}
		for _, v := range f.ClientData {
			if err := w.WriteUint32(v); err != nil {
				return err
			}
		}
	}

	return nil
}

// SerializedSize returns the encoded size of the pipeline message.
func (m *FilterPipeline) SerializedSize(w *binary.Writer) int {
	size := 2
	for i := range m.Filters {
		f := &m.Filters[i]
		size += 6 + 4*len(f.ClientData)
		if f.ID >= 256 {
			size += 2 + len(f.Name)
		}
	}
	return size
}

// NewFilterPipeline builds a version 2 pipeline from filters in
// application order.
func NewFilterPipeline(filters ...FilterEntry) *FilterPipeline {
	return &FilterPipeline{Version: 2, Filters: filters}
}

// NewDeflateFilter returns a deflate filter entry with the given
// compression level.
func NewDeflateFilter(level uint32) FilterEntry {
	return FilterEntry{ID: FilterDeflate, Name: "deflate", ClientData: []uint32{level}}
}

// NewShuffleFilter returns a byte shuffle entry for elements of the
// given size.
func NewShuffleFilter(elementSize uint32) FilterEntry {
	return FilterEntry{ID: FilterShuffle, Name: "shuffle", ClientData: []uint32{elementSize}}
}

// NewFletcher32Filter returns a Fletcher-32 checksum entry.
func NewFletcher32Filter() FilterEntry {
	return FilterEntry{ID: FilterFletcher32, Name: "fletcher32"}
}

// NewZstdFilter returns a Zstandard entry with the given level.
func NewZstdFilter(level uint32) FilterEntry {
	return FilterEntry{ID: FilterZstd, Name: "zstd", ClientData: []uint32{level}}
}

// NewLZ4Filter returns an LZ4 entry with the given block size in bytes.
func NewLZ4Filter(blockSize uint32) FilterEntry {
	return FilterEntry{ID: FilterLZ4, Name: "lz4", ClientData: []uint32{blockSize}}
}
