// Package shm manages anonymous shared memory for Wayland buffers.
//
// A Pool is a single mapped file that buffers are carved out of. The
// package knows nothing about the protocol objects that share the file
// with the compositor. It only tracks who is allowed to touch which
// bytes.
package shm

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

var createCount atomic.Uint64

// Create returns an anonymous, unlinked file suitable for sharing
// with a compositor. It uses memfd_create where possible and falls
// back to a file in /dev/shm.
func Create() (*os.File, error) {
	fd, err := unix.MemfdCreate("wlbg-shm", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err == nil {
		return os.NewFile(uintptr(fd), "wlbg-shm"), nil
	}

	return createUnlinked("/dev/shm")
}

var remove = os.Remove

// createUnlinked creates a file in dir and removes its name, leaving
// only the open file.
func createUnlinked(dir string) (*os.File, error) {
	name := "wlbg-" + strconv.Itoa(os.Getpid()) + "-" + strconv.FormatUint(createCount.Add(1), 10)
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("create shared memory file: %w", err)
	}

	err = remove(path)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("unlink shared memory file: %w", err)
	}
	return file, nil
}

type Mmap []byte

// MapShared maps the first size bytes of file with MAP_SHARED.
func MapShared(file *os.File, size int, prot int) (mmap Mmap, err error) {
	sc, err := file.SyscallConn()
	if err != nil {
		return nil, err
	}

	cerr := sc.Control(func(fd uintptr) {
		m, merr := unix.Mmap(int(fd), 0, size, prot, unix.MAP_SHARED)
		mmap, err = Mmap(m), merr
	})
	if cerr != nil {
		return nil, cerr
	}

	return mmap, err
}

func (mmap Mmap) Unmap() error {
	if mmap == nil {
		return nil
	}
	return unix.Munmap(mmap)
}
