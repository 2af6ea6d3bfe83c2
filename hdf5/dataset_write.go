package hdf5

import (
	"fmt"
	"reflect"

	"github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/btree"
	"github.com/h5kit/hdf5/internal/dtype"
	"github.com/h5kit/hdf5/internal/heap"
	"github.com/h5kit/hdf5/internal/layout"
	"github.com/h5kit/hdf5/internal/message"
	"github.com/h5kit/hdf5/internal/object"
)

// CreateDataset creates a dataset under this group and writes data to
// it. Dimensions and datatype are inferred from the Go value, which may
// be a scalar, a flat slice, or nested slices.
func (g *Group) CreateDataset(name string, data any, opts ...DatasetOption) (*Dataset, error) {
	if !g.file.writable {
		return nil, ErrReadOnly
	}

	val := reflect.ValueOf(data)
	for val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	dims, elemType, err := inferDimensionsAndType(val)
	if err != nil {
		return nil, fmt.Errorf("inferring dimensions: %w", err)
	}
	dt, err := datatypeForValue(elemType, val)
	if err != nil {
		return nil, fmt.Errorf("creating datatype: %w", err)
	}

	ds, err := g.CreateDatasetWithType(name, dims, dt, opts...)
	if err != nil {
		return nil, err
	}
	if err := ds.Write(data); err != nil {
		return nil, fmt.Errorf("writing %s: %w", ds.path, err)
	}
	return ds, nil
}

// CreateDatasetWithType creates a dataset with explicit dimensions and
// datatype. No data is written; fill the dataset with Write or
// WriteDirectChunk.
func (g *Group) CreateDatasetWithType(name string, dims []uint64, dt *Datatype, opts ...DatasetOption) (*Dataset, error) {
	if !g.file.writable {
		return nil, ErrReadOnly
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty dataset name", ErrInvalidPath)
	}

	options := defaultDatasetOptions()
	for _, opt := range opts {
		opt(options)
	}
	return g.createDataset(name, dims, dt, options)
}

func (g *Group) createDataset(name string, dims []uint64, dt *message.Datatype, options *datasetOptions) (*Dataset, error) {
	maxDims, err := normalizeMaxDims(dims, options.maxDims)
	if err != nil {
		return nil, err
	}
	space := message.NewDataspace(dims, maxDims)
	pipeMsg := buildPipeline(options, dt.Size)

	numElements := space.NumElements()
	dataSize := dtype.DataSize(dt, numElements)
	undef := binary.Undefined(g.file.writer.Geometry().OffsetSize)

	var layoutMsg *message.DataLayout
	switch {
	case options.chunks != nil:
		if len(options.chunks) != len(dims) {
			return nil, fmt.Errorf("chunk rank %d does not match dataset rank %d", len(options.chunks), len(dims))
		}
		for d, c := range options.chunks {
			if c == 0 {
				return nil, fmt.Errorf("chunk dimension %d is zero", d)
			}
		}
		if isResizable(dims, maxDims) {
			layoutMsg = message.NewBTreeChunkedLayout(options.chunks, dt.Size, undef)
		} else {
			layoutMsg = message.NewChunkedLayout(options.chunks, dt.Size, message.ChunkIndexFixedArray, undef)
		}

	case pipeMsg != nil:
		return nil, fmt.Errorf("%w: filters require chunked storage", ErrNotChunked)

	case maxDims != nil && isResizable(dims, maxDims):
		return nil, fmt.Errorf("%w: resizable datasets require chunked storage", ErrNotChunked)

	default:
		// Contiguous. The block is zeroed now so the dataset reads as
		// fill before the first Write.
		addr := g.file.allocate(int64(dataSize))
		if err := g.file.writer.At(int64(addr)).WriteZeros(int(dataSize)); err != nil {
			return nil, fmt.Errorf("zeroing data block: %w", err)
		}
		layoutMsg = message.NewContiguousLayout(addr, dataSize)
	}

	msgs := object.NewDatasetHeader(space, dt, pipeMsg, layoutMsg)
	var attrs []*message.Attribute
	for _, def := range options.attributes {
		attrMsg, err := createAttributeMessage(def.name, def.value)
		if err != nil {
			return nil, fmt.Errorf("creating attribute %q: %w", def.name, err)
		}
		msgs = append(msgs, attrMsg)
		attrs = append(attrs, attrMsg)
	}

	span := object.HeaderSize(g.file.writer, msgs)
	addr := g.file.allocate(int64(span))
	if err := object.WriteHeader(g.file.writer.At(int64(addr)), msgs); err != nil {
		return nil, fmt.Errorf("writing dataset header: %w", err)
	}
	if err := g.addLink(message.NewHardLink(name, addr)); err != nil {
		return nil, fmt.Errorf("linking dataset: %w", err)
	}

	lay, err := layout.New(layoutMsg, space, dt, pipeMsg, g.file.reader)
	if err != nil {
		return nil, fmt.Errorf("creating layout: %w", err)
	}
	d := &Dataset{
		file:      g.file,
		path:      childPath(g.path, name),
		addr:      addr,
		space:     space,
		datatype:  dt,
		layoutMsg: layoutMsg,
		lay:       lay,
		attrs:     attrs,
		msgs:      msgs,
		span:      span,
	}
	if ch, ok := lay.(*layout.Chunked); ok {
		ch.UseCache(g.file.cache, d.addr)
		d.chunked = ch
		d.table = layout.NewTable(ch.Grid())
		ch.UseTable(d.table)
	}
	return d, nil
}

// Write writes the whole dataset. Chunked data is split into chunks,
// run through the filter pipeline, and recorded in the chunk table;
// contiguous data is written in place.
func (d *Dataset) Write(data any) error {
	if !d.file.writable {
		return ErrReadOnly
	}

	if d.datatype.Class == message.ClassVarLen && d.datatype.IsVarLenString {
		return d.writeVarLenStrings(data)
	}

	raw, err := encodeData(d.datatype, data)
	if err != nil {
		return fmt.Errorf("encoding data: %w", err)
	}
	want := dtype.DataSize(d.datatype, d.space.NumElements())
	if uint64(len(raw)) != want {
		return fmt.Errorf("data size mismatch: have %d bytes, want %d", len(raw), want)
	}

	if d.chunked == nil {
		if d.layoutMsg.Class != message.LayoutContiguous {
			return fmt.Errorf("%w: writing layout class %d", ErrUnsupported, d.layoutMsg.Class)
		}
		return d.file.writer.At(int64(d.layoutMsg.Address)).WriteBytes(raw)
	}

	if err := d.ensureTable(); err != nil {
		return err
	}
	for _, ch := range layout.SplitChunks(raw, d.chunked.Grid()) {
		stored, mask, err := d.chunked.Pipeline().Encode(ch.Data)
		if err != nil {
			return fmt.Errorf("encoding chunk at %v: %w", ch.Offset, err)
		}
		if err := d.storeChunk(ch.Offset, stored, mask); err != nil {
			return err
		}
	}
	return nil
}

// writeVarLenStrings stores string values in a global heap collection
// and writes the per-element descriptors into the contiguous block.
func (d *Dataset) writeVarLenStrings(data any) error {
	if d.chunked != nil {
		return fmt.Errorf("%w: variable-length strings in chunked storage", ErrUnsupported)
	}
	if d.layoutMsg.Class != message.LayoutContiguous {
		return fmt.Errorf("%w: writing layout class %d", ErrUnsupported, d.layoutMsg.Class)
	}

	vals, err := stringValues(data)
	if err != nil {
		return err
	}
	if want := d.space.NumElements(); uint64(len(vals)) != want {
		return fmt.Errorf("data size mismatch: have %d strings, want %d", len(vals), want)
	}

	ghw := heap.NewGlobalHeapWriter(d.file.writer, d.file.allocator.AllocFunc())
	refs := make([]uint16, len(vals))
	for i, s := range vals {
		refs[i] = ghw.AddString(s)
	}
	_, ids, err := ghw.Write()
	if err != nil {
		return fmt.Errorf("writing global heap: %w", err)
	}

	w := d.file.writer.At(int64(d.layoutMsg.Address))
	for i, s := range vals {
		if err := w.WriteUint32(uint32(len(s))); err != nil {
			return err
		}
		if err := heap.WriteGlobalHeapID(w, ids[refs[i]]); err != nil {
			return err
		}
	}
	return nil
}

func stringValues(data any) ([]string, error) {
	switch v := data.(type) {
	case []string:
		return v, nil
	case string:
		return []string{v}, nil
	case *[]string:
		return *v, nil
	default:
		return nil, fmt.Errorf("variable-length strings need string data, got %T", data)
	}
}

// ensureTable makes the in-memory chunk table the authoritative index,
// seeding it from the on-disk index on first use.
func (d *Dataset) ensureTable() error {
	if d.chunked == nil {
		return ErrNotChunked
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.table != nil {
		return nil
	}

	entries, err := d.chunked.Entries()
	if err != nil {
		return fmt.Errorf("reading chunk index: %w", err)
	}
	t := layout.NewTable(d.chunked.Grid())
	if err := t.Load(entries); err != nil {
		return err
	}
	d.table = t
	d.chunked.UseTable(t)
	return nil
}

// storeChunk writes a chunk's stored bytes and records them in the
// table. A rewrite that fits the old allocation reuses it; otherwise
// fresh space is allocated and the old bytes leak until repack.
func (d *Dataset) storeChunk(offset []uint64, stored []byte, mask uint32) error {
	grid := d.chunked.Grid()
	idx, err := grid.LinearIndex(offset)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	n := uint32(len(stored))
	prev, had, err := d.table.Get(offset)
	if err != nil {
		return err
	}
	addr := prev.Address
	if had && n <= prev.Size && !d.file.reader.IsUndefinedOffset(prev.Address) {
		d.file.allocator.Retire(uint64(prev.Size - n))
	} else {
		if had {
			d.file.allocator.Retire(uint64(prev.Size))
		}
		addr = d.file.allocate(int64(len(stored)))
	}

	if err := d.file.writer.At(int64(addr)).WriteBytes(stored); err != nil {
		return fmt.Errorf("writing chunk at %v: %w", offset, err)
	}
	if err := d.table.Put(btree.ChunkEntry{
		Offset:     offset,
		FilterMask: mask,
		Size:       n,
		Address:    addr,
	}); err != nil {
		return err
	}
	d.file.cache.Remove(d.addr, idx)
	d.dirty = true
	d.file.markDirty(d)
	return nil
}

// flushIndex serializes the chunk table into the on-disk index and
// rewrites the dataset header with the index address.
func (d *Dataset) flushIndex() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.dirty || d.table == nil {
		return nil
	}

	grid := d.chunked.Grid()
	entries := d.table.Entries()

	var (
		idxAddr uint64
		err     error
	)
	if d.layoutMsg.ChunkIndexType == message.ChunkIndexBTreeV1 {
		idxAddr, err = btree.WriteChunkIndex(d.file.writer, d.file.allocator.AllocFunc(), entries, grid.ChunkDims(), uint32(grid.ElementSize()))
	} else {
		idxAddr, err = layout.WriteFixedArray(d.file.writer, d.file.allocator.AllocFunc(), grid, entries, !d.chunked.Pipeline().Empty())
	}
	if err != nil {
		return fmt.Errorf("writing chunk index: %w", err)
	}

	d.layoutMsg.ChunkIndexAddr = idxAddr
	if err := d.rewriteHeader(); err != nil {
		return err
	}
	d.dirty = false
	return nil
}

// rewriteHeader rewrites the dataset's object header in place. The
// header span is fixed at create, so only same-size rewrites are
// possible; the layout message reserves a full-width index address slot
// for exactly this reason.
func (d *Dataset) rewriteHeader() error {
	if d.span == 0 {
		return fmt.Errorf("%w: version 1 dataset header at %#x cannot be rewritten", ErrUnsupported, d.addr)
	}
	size := object.HeaderSize(d.file.writer, d.msgs)
	if size == d.span {
		return object.WriteHeader(d.file.writer.At(int64(d.addr)), d.msgs)
	}
	mc, ok := headerPadFor(d.file.writer, d.msgs, d.span, 0)
	if !ok {
		return fmt.Errorf("%w: dataset header at %#x does not fit its on-disk span", ErrUnsupported, d.addr)
	}
	return object.WriteHeaderSized(d.file.writer.At(int64(d.addr)), d.msgs, mc)
}

// buildPipeline assembles the filter pipeline message from dataset
// options: shuffle first, then one compressor, then fletcher32.
func buildPipeline(o *datasetOptions, elementSize uint32) *message.FilterPipeline {
	var filters []message.FilterEntry
	if o.shuffle {
		filters = append(filters, message.NewShuffleFilter(elementSize))
	}
	switch {
	case o.compressionLvl > 0:
		filters = append(filters, message.NewDeflateFilter(uint32(o.compressionLvl)))
	case o.zstdLevel > 0:
		filters = append(filters, message.NewZstdFilter(uint32(o.zstdLevel)))
	case o.lz4Block > 0:
		filters = append(filters, message.NewLZ4Filter(o.lz4Block))
	}
	if o.fletcher32 {
		filters = append(filters, message.NewFletcher32Filter())
	}
	if len(filters) == 0 {
		return nil
	}
	return message.NewFilterPipeline(filters...)
}

// normalizeMaxDims validates maximum dimensions against the extent.
// Zero means unlimited.
func normalizeMaxDims(dims, maxDims []uint64) ([]uint64, error) {
	if maxDims == nil {
		return nil, nil
	}
	if len(maxDims) != len(dims) {
		return nil, fmt.Errorf("maxdims rank %d does not match dataset rank %d", len(maxDims), len(dims))
	}
	out := make([]uint64, len(maxDims))
	for i, m := range maxDims {
		switch {
		case m == 0 || m == message.Unlimited:
			out[i] = message.Unlimited
		case m < dims[i]:
			return nil, fmt.Errorf("maxdims[%d] = %d is below the extent %d", i, m, dims[i])
		default:
			out[i] = m
		}
	}
	return out, nil
}

func isResizable(dims, maxDims []uint64) bool {
	for i, m := range maxDims {
		if m == message.Unlimited || m > dims[i] {
			return true
		}
	}
	return false
}

// datatypeForValue picks the on-disk datatype for a Go element type.
// Strings become fixed-length, sized to the longest value.
func datatypeForValue(elemType reflect.Type, val reflect.Value) (*message.Datatype, error) {
	if elemType.Kind() == reflect.String {
		size := maxStringLen(val) + 1
		return message.NewStringDatatype(uint32(size), message.PadNullTerm, message.CharsetASCII), nil
	}
	return dtype.FromGoType(elemType)
}

func maxStringLen(val reflect.Value) int {
	switch val.Kind() {
	case reflect.String:
		return val.Len()
	case reflect.Slice, reflect.Array:
		max := 0
		for i := 0; i < val.Len(); i++ {
			if n := maxStringLen(val.Index(i)); n > max {
				max = n
			}
		}
		return max
	default:
		return 0
	}
}

// encodeData serializes a Go value to raw element bytes, flattening
// nested slices to row-major order first.
func encodeData(dt *message.Datatype, data any) ([]byte, error) {
	val := reflect.ValueOf(data)
	for val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if isNested(val) {
		val = flatten(val)
	}
	return dtype.Encode(dt, val.Interface())
}

func isNested(val reflect.Value) bool {
	if val.Kind() != reflect.Slice && val.Kind() != reflect.Array {
		return false
	}
	k := val.Type().Elem().Kind()
	return k == reflect.Slice || k == reflect.Array
}

func flatten(val reflect.Value) reflect.Value {
	elemType := val.Type()
	for elemType.Kind() == reflect.Slice || elemType.Kind() == reflect.Array {
		elemType = elemType.Elem()
	}
	out := reflect.MakeSlice(reflect.SliceOf(elemType), 0, 0)
	var walk func(v reflect.Value)
	walk = func(v reflect.Value) {
		for i := 0; i < v.Len(); i++ {
			e := v.Index(i)
			if e.Kind() == reflect.Slice || e.Kind() == reflect.Array {
				walk(e)
			} else {
				out = reflect.Append(out, e)
			}
		}
	}
	walk(val)
	return out
}

// inferDimensionsAndType walks nested slices to find the extent and the
// element type. Scalars become one-element datasets.
func inferDimensionsAndType(val reflect.Value) ([]uint64, reflect.Type, error) {
	var dims []uint64
	current := val
	for {
		switch current.Kind() {
		case reflect.Slice, reflect.Array:
			dims = append(dims, uint64(current.Len()))
			if current.Len() == 0 {
				return dims, current.Type().Elem(), nil
			}
			current = current.Index(0)
		default:
			if len(dims) == 0 {
				dims = []uint64{1}
			}
			return dims, current.Type(), nil
		}
	}
}

// createAttributeMessage builds an attribute message from a Go value.
func createAttributeMessage(name string, value any) (*message.Attribute, error) {
	val := reflect.ValueOf(value)
	for val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	var (
		space *message.Dataspace
		n     uint64
	)
	elemType := val.Type()
	switch val.Kind() {
	case reflect.Slice, reflect.Array:
		space = message.NewDataspace([]uint64{uint64(val.Len())}, nil)
		n = uint64(val.Len())
		elemType = val.Type().Elem()
	default:
		space = message.NewScalarDataspace()
		n = 1
	}

	dt, err := datatypeForValue(elemType, val)
	if err != nil {
		return nil, fmt.Errorf("unsupported attribute type %v: %w", elemType, err)
	}
	data, err := dtype.Encode(dt, value)
	if err != nil {
		return nil, fmt.Errorf("encoding attribute value: %w", err)
	}
	if want := dtype.DataSize(dt, n); uint64(len(data)) != want {
		return nil, fmt.Errorf("attribute value size mismatch: have %d bytes, want %d", len(data), want)
	}
	return message.NewAttribute(name, dt, space, data), nil
}
