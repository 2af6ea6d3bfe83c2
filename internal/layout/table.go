package layout

import (
	"sort"
	"sync"

	"github.com/h5kit/hdf5/internal/btree"
)

// Table is the authoritative chunk index of a dataset being written:
// linear cell number to address, stored size, and filter mask. Direct
// reads in the writing session are served from here, and a flush
// serializes the table into the dataset's on-disk index.
type Table struct {
	mu      sync.Mutex
	grid    *Grid
	entries map[uint64]btree.ChunkEntry
}

// NewTable returns an empty table over the grid.
func NewTable(grid *Grid) *Table {
	return &Table{grid: grid, entries: make(map[uint64]btree.ChunkEntry)}
}

// Grid returns the lattice the table indexes.
func (t *Table) Grid() *Grid { return t.grid }

// Put records where a chunk's stored bytes live. An existing entry for
// the same cell is replaced.
func (t *Table) Put(e btree.ChunkEntry) error {
	idx, err := t.grid.LinearIndex(e.Offset)
	if err != nil {
		return err
	}
	e.Offset = append([]uint64(nil), e.Offset...)
	t.mu.Lock()
	t.entries[idx] = e
	t.mu.Unlock()
	return nil
}

// Get returns the entry for the chunk at offset, if one is recorded.
func (t *Table) Get(offset []uint64) (btree.ChunkEntry, bool, error) {
	idx, err := t.grid.LinearIndex(offset)
	if err != nil {
		return btree.ChunkEntry{}, false, err
	}
	t.mu.Lock()
	e, ok := t.entries[idx]
	t.mu.Unlock()
	return e, ok, nil
}

// Load seeds the table from entries read out of an on-disk index.
func (t *Table) Load(entries []btree.ChunkEntry) error {
	for _, e := range entries {
		if err := t.Put(e); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of recorded chunks.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Entries returns the recorded chunks in row-major cell order.
func (t *Table) Entries() []btree.ChunkEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	idxs := make([]uint64, 0, len(t.entries))
	for idx := range t.entries {
		idxs = append(idxs, idx)
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })

	out := make([]btree.ChunkEntry, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, t.entries[idx])
	}
	return out
}
