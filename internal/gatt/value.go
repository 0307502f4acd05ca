package gatt

// Value owns the byte buffer holding one attribute's current value.
//
// Replace swaps the whole buffer in a single slice assignment, so a reader
// never observes a length/content mismatch. Both directions copy: callers
// cannot alias the internal buffer. All access happens on the transport
// binding's dispatch path, which serializes calls into the core.
type Value struct {
	data []byte
}

// NewValue creates a value store holding a copy of initial. A nil initial
// yields an empty (zero-length) value.
func NewValue(initial []byte) *Value {
	v := &Value{}
	v.Replace(initial)
	return v
}

// Load returns a copy of the current value. The result is zero-length,
// never nil, when the value is empty.
func (v *Value) Load() []byte {
	out := make([]byte, len(v.data))
	copy(out, v.data)
	return out
}

// Replace swaps the stored buffer for a copy of p. The previous buffer is
// released to the collector; it is never reused.
func (v *Value) Replace(p []byte) {
	next := make([]byte, len(p))
	copy(next, p)
	v.data = next
}

// Len returns the current value length.
func (v *Value) Len() int {
	return len(v.data)
}
