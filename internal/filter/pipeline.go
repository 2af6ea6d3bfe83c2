package filter

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/message"
)

// Pipeline is the compiled form of a filter pipeline message. Filter
// slots stay aligned with the message's entries so per-chunk mask bits
// keep their meaning; an unavailable optional filter leaves a nil slot.
type Pipeline struct {
	entries []message.FilterEntry
	filters []Filter
}

// NewPipeline compiles a filter pipeline message. A nil or empty
// message yields an empty pass-through pipeline. Mandatory entries
// without an implementation fail here.
func NewPipeline(fp *message.FilterPipeline) (*Pipeline, error) {
	if fp == nil || len(fp.Filters) == 0 {
		return &Pipeline{}, nil
	}

	p := &Pipeline{
		entries: fp.Filters,
		filters: make([]Filter, len(fp.Filters)),
	}
	for i, entry := range fp.Filters {
		f, err := New(entry)
		if err != nil {
			return nil, err
		}
		p.filters[i] = f
	}
	return p, nil
}

// Decode recovers chunk bytes from their stored form. Mask bit i marks
// entry i as skipped when the chunk was written, so it is skipped here
// too; filters run in reverse pipeline order.
func (p *Pipeline) Decode(input []byte, mask uint32) ([]byte, error) {
	data := input
	for i := len(p.filters) - 1; i >= 0; i-- {
		if mask&(1<<uint(i)) != 0 {
			continue
		}
		f := p.filters[i]
		if f == nil {
			return nil, fmt.Errorf("chunk requires unavailable %s", Name(p.entries[i].ID))
		}
		var err error
		if data, err = f.Decode(data); err != nil {
			return nil, fmt.Errorf("%s decode: %w", Name(f.ID()), err)
		}
	}
	return data, nil
}

// Encode produces a chunk's stored form and the mask to record with it.
// Filters run in pipeline order. An optional filter that is unavailable
// or fails is skipped and its mask bit set; a mandatory failure aborts.
func (p *Pipeline) Encode(input []byte) ([]byte, uint32, error) {
	data := input
	var mask uint32
	for i, f := range p.filters {
		if f == nil {
			mask |= 1 << uint(i)
			continue
		}
		out, err := f.Encode(data)
		if err != nil {
			if p.entries[i].IsOptional() {
				mask |= 1 << uint(i)
				continue
			}
			return nil, 0, fmt.Errorf("%s encode: %w", Name(f.ID()), err)
		}
		data = out
	}
	return data, mask, nil
}

// Empty reports whether the pipeline has no filters.
func (p *Pipeline) Empty() bool {
	return len(p.filters) == 0
}

// Len returns the number of pipeline entries.
func (p *Pipeline) Len() int {
	return len(p.filters)
}
