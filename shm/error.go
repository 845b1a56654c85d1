package shm

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolBusy is returned when an operation would move memory
	// that the compositor may still be reading.
	ErrPoolBusy = errors.New("pool has buffers held by the compositor")

	// ErrBufferBusy is returned when the pixels of a buffer are
	// requested while the compositor holds it.
	ErrBufferBusy = errors.New("buffer is held by the compositor")

	// ErrFreed is returned for operations on a freed buffer or a
	// closed pool.
	ErrFreed = errors.New("use of freed shared memory")

	// ErrPadded is returned by Buffer.Image for buffers whose rows are
	// not tightly packed.
	ErrPadded = errors.New("buffer stride is larger than its row")
)

// AllocationError is returned when shared memory could not be created,
// sized or mapped.
type AllocationError struct {
	Size int
	Err  error
}

func (err *AllocationError) Error() string {
	return fmt.Sprintf("allocate %v bytes of shared memory: %v", err.Size, err.Err)
}

func (err *AllocationError) Unwrap() error {
	return err.Err
}

// OutOfPoolSpaceError is returned when a buffer does not fit in the
// remaining space of a pool.
type OutOfPoolSpaceError struct {
	Need      int
	Available int
}

func (err *OutOfPoolSpaceError) Error() string {
	return fmt.Sprintf("pool has %v bytes available but %v are needed", err.Available, err.Need)
}

// InvalidBufferError is returned when asked to carve a buffer with
// impossible dimensions.
type InvalidBufferError struct {
	Width, Height, Stride int
}

func (err *InvalidBufferError) Error() string {
	return fmt.Sprintf("invalid buffer geometry %vx%v with stride %v", err.Width, err.Height, err.Stride)
}
