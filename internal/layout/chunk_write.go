package layout

// ChunkData is one chunk's worth of element bytes, cut from a full
// extent buffer and padded to the full chunk shape.
type ChunkData struct {
	Offset []uint64
	Data   []byte
}

// SplitChunks cuts a buffer covering the whole extent into per-chunk
// buffers in row-major cell order. Edge chunks are zero-padded to the
// full chunk size, which keeps filtered chunks a uniform length.
func SplitChunks(raw []byte, g *Grid) []ChunkData {
	total := g.TotalChunks()
	size := g.ChunkBytes()
	out := make([]ChunkData, 0, total)
	for idx := uint64(0); idx < total; idx++ {
		offset := g.OffsetAt(idx)
		chunk := make([]byte, size)
		g.ExtractChunk(chunk, raw, offset)
		out = append(out, ChunkData{Offset: offset, Data: chunk})
	}
	return out
}
