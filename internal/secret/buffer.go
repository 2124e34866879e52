// Package secret provides a zero-on-drop byte container for key material:
// GGM seeds, data encryption keys, and password-derived keys all flow
// through a Buffer rather than a plain []byte so that a forgotten Destroy
// still gets cleaned up at garbage collection.
package secret

import "runtime"

// Buffer holds sensitive bytes that must be wiped once no longer needed.
// The zero value is not usable; construct with NewBuffer or FromBytes.
type Buffer struct {
	b *[]byte
}

// NewBuffer allocates a zeroed Buffer of n bytes.
func NewBuffer(n int) Buffer {
	buf := make([]byte, n)
	return newBuffer(buf)
}

// FromBytes copies src into a fresh Buffer. The caller retains ownership
// of src; it is not wiped.
func FromBytes(src []byte) Buffer {
	buf := make([]byte, len(src))
	copy(buf, src)
	return newBuffer(buf)
}

func newBuffer(buf []byte) Buffer {
	s := Buffer{b: &buf}
	runtime.SetFinalizer(s.b, func(p *[]byte) {
		wipe(*p)
	})
	return s
}

// Bytes returns the live backing slice. It is not a copy: callers must not
// retain it past the Buffer's lifetime, and must not mutate it unless they
// mean to change the secret.
func (s Buffer) Bytes() []byte {
	if s.b == nil {
		return nil
	}
	return *s.b
}

// Len reports the buffer's length in bytes.
func (s Buffer) Len() int {
	if s.b == nil {
		return 0
	}
	return len(*s.b)
}

// Clone returns an independent Buffer holding a copy of the same bytes.
func (s Buffer) Clone() Buffer {
	return FromBytes(s.Bytes())
}

// Destroy zeroes the backing bytes immediately. The Buffer is empty
// afterwards; calling Destroy twice is safe.
func (s Buffer) Destroy() {
	if s.b == nil {
		return
	}
	wipe(*s.b)
	*s.b = nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
