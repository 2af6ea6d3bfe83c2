package binary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Reference values from Bob Jenkins' lookup3.c self-test (hashlittle with
// an initial value of 0, the variant HDF5 uses).
func TestLookup3KnownAnswers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(0xdeadbeef), Lookup3Checksum(nil))
	assert.Equal(t, uint32(0xdeadbeef), Lookup3Checksum([]byte{}))
	assert.Equal(t, uint32(0x17770551), Lookup3Checksum([]byte("Four score and seven years ago")))
}

func TestLookup3TailBoundaries(t *testing.T) {
	t.Parallel()

	// Every tail length 0..12 takes a distinct path through the final
	// switch; all must be stable and distinct for distinct input.
	seen := make(map[uint32]int)
	for n := 0; n <= 25; n++ {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i * 7)
		}
		sum := Lookup3Checksum(data)
		require.Equal(t, sum, Lookup3Checksum(data), "length %d not deterministic", n)
		prev, dup := seen[sum]
		require.False(t, dup, "lengths %d and %d collide", prev, n)
		seen[sum] = n
	}
}

// Standard Fletcher-32 vectors (little-endian 16-bit blocks, zero padding).
func TestFletcher32KnownAnswers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want uint32
	}{
		{"abcde", 0xF04FC729},
		{"abcdef", 0x56502D2A},
		{"abcdefgh", 0xEBE19591},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fletcher32([]byte(tt.in)), "Fletcher32(%q)", tt.in)
	}
}

func TestFletcher32OddLength(t *testing.T) {
	t.Parallel()

	// An explicit trailing zero byte must checksum the same as the
	// implicit padding.
	odd := []byte{0x11, 0x22, 0x33}
	padded := []byte{0x11, 0x22, 0x33, 0x00}
	assert.Equal(t, Fletcher32(padded), Fletcher32(odd))
}
