package camera

import "unsafe"

// Buffer is the pixel buffer a camera owns and hands to its driver for readout.
//
// The backing store is a []uint64 so the first byte is 8-byte aligned, which
// the vendor SDKs expect.  The allocation is replaced, never resized in place,
// whenever the required size changes.  A Buffer is not safe for concurrent use.
type Buffer struct {
	words    []uint64
	size     int
	released bool
}

// NewBuffer allocates a buffer of n bytes
func NewBuffer(n int) *Buffer {
	b := &Buffer{}
	b.alloc(n)
	return b
}

func (b *Buffer) alloc(n int) {
	if n < 0 {
		n = 0
	}
	b.words = make([]uint64, (n+7)/8)
	b.size = n
}

// Resize makes the buffer exactly n bytes long.  When the size changes the
// previous allocation is dropped and a fresh zeroed one takes its place.
func (b *Buffer) Resize(n int) error {
	if b.released {
		return Errorf(DeviceClosed, "resize of released buffer")
	}
	if n == b.size {
		return nil
	}
	b.alloc(n)
	return nil
}

// Len is the size of the buffer in bytes
func (b *Buffer) Len() int {
	if b.released {
		return 0
	}
	return b.size
}

// Bytes returns the buffer contents.  The slice aliases the buffer and is
// invalidated by the next Resize or Release.
func (b *Buffer) Bytes() ([]byte, error) {
	if b.released {
		return nil, Errorf(DeviceClosed, "access to released buffer")
	}
	if b.size == 0 {
		return []byte{}, nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&b.words[0])), b.size), nil
}

// Release frees the buffer.  Later calls report DeviceClosed.
func (b *Buffer) Release() {
	b.words = nil
	b.size = 0
	b.released = true
}

// Released reports if Release has been called
func (b *Buffer) Released() bool {
	return b.released
}
