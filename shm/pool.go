package shm

import (
	"image"
	"image/draw"
	"os"

	"deedles.dev/ximage/format"
	"golang.org/x/sys/unix"
)

// BytesPerPixel is the size of a pixel in every supported format.
const BytesPerPixel = 4

// Alignment is the alignment of every buffer's offset within its
// pool.
const Alignment = 64

// Format is a wl_shm pixel format code.
type Format uint32

const (
	FormatARGB8888 Format = 0
	FormatXRGB8888 Format = 1
)

// Pool is a mapped shared memory file that buffers are allocated from
// with a bump allocator.
type Pool struct {
	file *os.File
	mmap Mmap

	next    int
	buffers []*Buffer
	closed  bool
}

// NewPool creates and maps a new pool of the given capacity. Failures
// are reported as *AllocationError.
func NewPool(capacity int) (pool *Pool, err error) {
	if capacity <= 0 {
		return nil, &AllocationError{Size: capacity, Err: os.ErrInvalid}
	}

	file, err := Create()
	if err != nil {
		return nil, &AllocationError{Size: capacity, Err: err}
	}
	defer func() {
		if err != nil {
			file.Close()
		}
	}()

	err = file.Truncate(int64(capacity))
	if err != nil {
		return nil, &AllocationError{Size: capacity, Err: err}
	}

	mmap, err := MapShared(file, capacity, unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		return nil, &AllocationError{Size: capacity, Err: err}
	}

	return &Pool{file: file, mmap: mmap}, nil
}

// File returns the file backing the pool, for sharing with the
// compositor.
func (pool *Pool) File() *os.File {
	return pool.file
}

// Cap returns the size of the pool in bytes.
func (pool *Pool) Cap() int {
	return len(pool.mmap)
}

// Outstanding returns the number of buffers carved from pool that the
// compositor currently holds.
func (pool *Pool) Outstanding() (n int) {
	for _, buf := range pool.buffers {
		if buf.state == HandedToCompositor {
			n++
		}
	}
	return n
}

func align(v int) int {
	return (v + Alignment - 1) &^ (Alignment - 1)
}

// Carve allocates a buffer of the given geometry from the unused part
// of the pool.
func (pool *Pool) Carve(width, height, stride int, format Format) (*Buffer, error) {
	if pool.closed {
		return nil, ErrFreed
	}
	if (width <= 0) || (height <= 0) || (stride < width*BytesPerPixel) {
		return nil, &InvalidBufferError{Width: width, Height: height, Stride: stride}
	}

	offset := align(pool.next)
	size := stride * height
	if offset+size > len(pool.mmap) {
		return nil, &OutOfPoolSpaceError{Need: size, Available: max(len(pool.mmap)-offset, 0)}
	}

	buf := Buffer{
		pool:   pool,
		width:  width,
		height: height,
		stride: stride,
		format: format,
		offset: offset,
	}
	pool.next = offset + size
	pool.buffers = append(pool.buffers, &buf)
	return &buf, nil
}

// Grow resizes the pool to capacity bytes and remaps it. Pools can
// only grow, and not while the compositor holds any of their buffers.
func (pool *Pool) Grow(capacity int) error {
	if pool.closed {
		return ErrFreed
	}
	if capacity <= len(pool.mmap) {
		return nil
	}
	if pool.Outstanding() > 0 {
		return ErrPoolBusy
	}

	err := pool.file.Truncate(int64(capacity))
	if err != nil {
		return &AllocationError{Size: capacity, Err: err}
	}

	mmap, err := MapShared(pool.file, capacity, unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		return &AllocationError{Size: capacity, Err: err}
	}
	pool.mmap.Unmap()
	pool.mmap = mmap
	return nil
}

// Reset frees every buffer carved from the pool so that its space can
// be reused. It fails with ErrPoolBusy if the compositor holds any of
// them.
func (pool *Pool) Reset() error {
	if pool.closed {
		return ErrFreed
	}
	if pool.Outstanding() > 0 {
		return ErrPoolBusy
	}

	for _, buf := range pool.buffers {
		buf.state = Freed
	}
	pool.buffers = nil
	pool.next = 0
	return nil
}

// Close unmaps the pool and closes its file. Every buffer carved from
// it is freed. Calling Close more than once does nothing.
func (pool *Pool) Close() error {
	if pool.closed {
		return nil
	}
	pool.closed = true

	for _, buf := range pool.buffers {
		buf.state = Freed
	}
	pool.buffers = nil

	uerr := pool.mmap.Unmap()
	pool.mmap = nil
	cerr := pool.file.Close()
	if uerr != nil {
		return uerr
	}
	return cerr
}

// OwnershipState tracks which side of the connection may touch a
// buffer's pixels.
type OwnershipState int

const (
	OwnedByClient OwnershipState = iota
	HandedToCompositor
	Released
	Freed
)

func (s OwnershipState) String() string {
	switch s {
	case OwnedByClient:
		return "owned by client"
	case HandedToCompositor:
		return "handed to compositor"
	case Released:
		return "released"
	case Freed:
		return "freed"
	}
	return "unknown"
}

// Buffer is a region of a Pool holding one image.
type Buffer struct {
	pool   *Pool
	width  int
	height int
	stride int
	format Format
	offset int
	state  OwnershipState
}

func (buf *Buffer) Width() int     { return buf.width }
func (buf *Buffer) Height() int    { return buf.height }
func (buf *Buffer) Stride() int    { return buf.stride }
func (buf *Buffer) Format() Format { return buf.format }
func (buf *Buffer) Offset() int    { return buf.offset }
func (buf *Buffer) Pool() *Pool    { return buf.pool }

// Len returns the number of bytes the buffer occupies, which is
// always Stride() * Height().
func (buf *Buffer) Len() int {
	return buf.stride * buf.height
}

func (buf *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, buf.width, buf.height)
}

func (buf *Buffer) State() OwnershipState {
	return buf.state
}

// Pix returns the buffer's bytes. It fails while the compositor holds
// the buffer or after it has been freed.
func (buf *Buffer) Pix() ([]byte, error) {
	switch buf.state {
	case HandedToCompositor:
		return nil, ErrBufferBusy
	case Freed:
		return nil, ErrFreed
	}
	return buf.pool.mmap[buf.offset : buf.offset+buf.Len() : buf.offset+buf.Len()], nil
}

// Image returns a draw.Image view of the buffer's pixels. It has the
// same restrictions as Pix and additionally requires the rows to be
// tightly packed.
func (buf *Buffer) Image() (draw.Image, error) {
	if buf.stride != buf.width*BytesPerPixel {
		return nil, ErrPadded
	}

	pix, err := buf.Pix()
	if err != nil {
		return nil, err
	}

	return &format.Image{
		Format: format.ARGB8888,
		Rect:   buf.Bounds(),
		Pix:    pix,
	}, nil
}

// Attach marks the buffer as handed to the compositor. The client
// must not write to it until Release is called.
func (buf *Buffer) Attach() error {
	switch buf.state {
	case HandedToCompositor:
		return ErrBufferBusy
	case Freed:
		return ErrFreed
	}
	buf.state = HandedToCompositor
	return nil
}

// Release returns ownership of the buffer to the client. It reports
// whether the buffer was actually held by the compositor.
func (buf *Buffer) Release() bool {
	if buf.state != HandedToCompositor {
		return false
	}
	buf.state = Released
	return true
}

// Free marks the buffer as unusable. Its space is reclaimed when the
// pool is reset or closed.
func (buf *Buffer) Free() {
	buf.state = Freed
}
