package filter

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/h5kit/hdf5/internal/message"
)

// Zstd is the zstandard compression filter (registered ID 32015). Each
// chunk is stored as one zstd frame.
type Zstd struct {
	level int

	once   sync.Once
	enc    *zstd.Encoder
	encErr error
}

// NewZstd builds the zstd filter. Client data carries the compression
// level; absent, level 3 is used.
func NewZstd(clientData []uint32) *Zstd {
	level := 3
	if len(clientData) > 0 && clientData[0] > 0 {
		level = int(clientData[0])
	}
	return &Zstd{level: level}
}

func (f *Zstd) ID() uint16 {
	return message.FilterZstd
}

// encoder builds the reusable encoder on first use. EncodeAll on a
// shared encoder is safe for concurrent chunks.
func (f *Zstd) encoder() (*zstd.Encoder, error) {
	f.once.Do(func() {
		f.enc, f.encErr = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(f.level)))
	})
	return f.enc, f.encErr
}

func (f *Zstd) Encode(input []byte) ([]byte, error) {
	enc, err := f.encoder()
	if err != nil {
		return nil, fmt.Errorf("zstd level %d: %w", f.level, err)
	}
	return enc.EncodeAll(input, nil), nil
}

func (f *Zstd) Decode(input []byte) ([]byte, error) {
	dec, err := sharedZstdDecoder()
	if err != nil {
		return nil, err
	}
	out, err := dec.DecodeAll(input, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return out, nil
}

var (
	zstdDecOnce sync.Once
	zstdDec     *zstd.Decoder
	zstdDecErr  error
)

// sharedZstdDecoder returns the process-wide decoder. DecodeAll is safe
// for concurrent use, so one instance serves every dataset.
func sharedZstdDecoder() (*zstd.Decoder, error) {
	zstdDecOnce.Do(func() {
		zstdDec, zstdDecErr = zstd.NewReader(nil)
	})
	return zstdDec, zstdDecErr
}
