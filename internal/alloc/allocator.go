package alloc

import "sync"

// Allocator hands out file space past the end-of-file watermark. Space
// is never recycled: rewriting a structure allocates fresh space and
// the old block is retired, recoverable only by repacking the file.
type Allocator struct {
	mu    sync.Mutex
	base  uint64
	eof   uint64
	stats Stats
}

// Stats summarizes what an allocator has handed out.
type Stats struct {
	Allocs  uint64 // allocations made
	Bytes   uint64 // bytes allocated
	Largest uint64 // largest single allocation
	Retired uint64 // bytes abandoned by in-file rewrites
}

// New returns an allocator whose first allocation lands at base,
// typically the end of file recorded in the superblock.
func New(base uint64) *Allocator {
	return &Allocator{base: base, eof: base}
}

// Alloc reserves size bytes and returns their address.
func (a *Allocator) Alloc(size uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	addr := a.eof
	a.eof += size
	a.stats.Allocs++
	a.stats.Bytes += size
	if size > a.stats.Largest {
		a.stats.Largest = size
	}
	return addr
}

// AllocFunc adapts Alloc to the signature the index and heap writers
// take.
func (a *Allocator) AllocFunc() func(size int64) uint64 {
	return func(size int64) uint64 {
		return a.Alloc(uint64(size))
	}
}

// Retire records size bytes as abandoned. The space stays in the file.
func (a *Allocator) Retire(size uint64) {
	a.mu.Lock()
	a.stats.Retired += size
	a.mu.Unlock()
}

// EOFAddr returns the current end-of-file watermark.
func (a *Allocator) EOFAddr() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eof
}

// SetEOFAddr raises the watermark. Lower addresses are ignored so a
// reopened file cannot shrink under structures already on disk.
func (a *Allocator) SetEOFAddr(addr uint64) {
	a.mu.Lock()
	if addr > a.eof {
		a.eof = addr
	}
	a.mu.Unlock()
}

// BaseAddr returns the address the allocator started from.
func (a *Allocator) BaseAddr() uint64 {
	return a.base
}

// Stats returns a snapshot of the allocation counters.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}
