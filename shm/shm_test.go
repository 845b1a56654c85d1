package shm

import (
	"errors"
	"os"
	"testing"
)

func openFDs(t *testing.T) int {
	t.Helper()

	fds, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skipf("count open files: %v", err)
	}
	return len(fds)
}

func TestCreateUnlinked(t *testing.T) {
	dir := t.TempDir()

	file, err := createUnlinked(dir)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer file.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("%v names left behind", len(entries))
	}

	_, err = file.WriteString("pixels")
	if err != nil {
		t.Errorf("write: %v", err)
	}
}

func TestCreateUnlinkedClosesOnRemoveFailure(t *testing.T) {
	failure := errors.New("read-only")
	remove = func(string) error { return failure }
	t.Cleanup(func() { remove = os.Remove })

	before := openFDs(t)
	file, err := createUnlinked(t.TempDir())
	if !errors.Is(err, failure) {
		t.Fatalf("expected unlink failure, got %v", err)
	}
	if file != nil {
		t.Fatal("file returned alongside an error")
	}
	if after := openFDs(t); after != before {
		t.Errorf("%v files open before, %v after", before, after)
	}
}
