package gatt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValueRoundTrip verifies that any replaced byte sequence reads back
// identically.
func TestValueRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "single byte", payload: []byte{0x00}},
		{name: "short sequence", payload: []byte{0x01, 0x02}},
		{name: "empty", payload: []byte{}},
		{name: "nil reads back empty", payload: nil},
		{name: "binary", payload: []byte{0xff, 0x00, 0x7f, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValue(nil)
			v.Replace(tt.payload)

			got := v.Load()
			require.NotNil(t, got, "Load must never return nil")
			assert.Equal(t, len(tt.payload), v.Len())
			assert.Equal(t, append([]byte{}, tt.payload...), got)
		})
	}
}

// TestValueReadIdempotent verifies repeated reads without an intervening
// write return the same bytes.
func TestValueReadIdempotent(t *testing.T) {
	v := NewValue([]byte{0xaa, 0xbb})

	first := v.Load()
	second := v.Load()
	third := v.Load()

	assert.Equal(t, first, second)
	assert.Equal(t, second, third)
}

// TestValueBufferIsolation verifies neither callers nor the store can alias
// each other's buffers.
func TestValueBufferIsolation(t *testing.T) {
	input := []byte{0x01, 0x02, 0x03}
	v := NewValue(input)

	// Mutating the input after construction must not affect the store.
	input[0] = 0xee
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, v.Load())

	// Mutating a loaded copy must not affect subsequent reads.
	loaded := v.Load()
	loaded[1] = 0xee
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, v.Load())
}

// TestValueEmptyByDefault verifies a fresh store reads back as zero-length,
// never nil.
func TestValueEmptyByDefault(t *testing.T) {
	v := NewValue(nil)

	got := v.Load()
	require.NotNil(t, got)
	assert.Len(t, got, 0)
	assert.Equal(t, 0, v.Len())
}
