package shm

import (
	"errors"
	"image"
	"image/draw"
	"testing"

	"golang.org/x/image/colornames"
)

func newPool(t *testing.T, capacity int) *Pool {
	t.Helper()

	pool, err := NewPool(capacity)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestCarveGeometry(t *testing.T) {
	tests := []struct {
		w, h, stride int
	}{
		{1, 1, 4},
		{1920, 1080, 1920 * 4},
		{3, 5, 16},
		{100, 1, 512},
	}

	for _, test := range tests {
		pool := newPool(t, test.stride*test.h)
		buf, err := pool.Carve(test.w, test.h, test.stride, FormatARGB8888)
		if err != nil {
			t.Fatalf("%vx%v/%v: %v", test.w, test.h, test.stride, err)
		}
		if buf.Len() != buf.Stride()*buf.Height() {
			t.Errorf("%vx%v/%v: length %v", test.w, test.h, test.stride, buf.Len())
		}
		if buf.Stride() < buf.Width()*BytesPerPixel {
			t.Errorf("%vx%v/%v: stride %v too small", test.w, test.h, test.stride, buf.Stride())
		}

		pix, err := buf.Pix()
		if err != nil {
			t.Fatalf("pix: %v", err)
		}
		if len(pix) != buf.Len() {
			t.Errorf("%vx%v/%v: %v bytes of pixels", test.w, test.h, test.stride, len(pix))
		}
	}
}

func TestCarveRejectsBadGeometry(t *testing.T) {
	pool := newPool(t, 4096)

	for _, geom := range [][3]int{{0, 1, 4}, {1, 0, 4}, {4, 4, 15}, {-1, 1, 4}} {
		_, err := pool.Carve(geom[0], geom[1], geom[2], FormatARGB8888)
		var ierr *InvalidBufferError
		if !errors.As(err, &ierr) {
			t.Errorf("%v: expected InvalidBufferError, got %v", geom, err)
		}
	}
}

func TestCarveAlignment(t *testing.T) {
	pool := newPool(t, 4096)

	a, err := pool.Carve(3, 1, 12, FormatARGB8888)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := pool.Carve(3, 1, 12, FormatARGB8888)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if a.Offset() != 0 {
		t.Errorf("first offset %v", a.Offset())
	}
	if b.Offset() != Alignment {
		t.Errorf("second offset %v", b.Offset())
	}
}

func TestOutOfPoolSpace(t *testing.T) {
	pool := newPool(t, 64*64*4)

	_, err := pool.Carve(64, 64, 256, FormatARGB8888)
	if err != nil {
		t.Fatalf("carve: %v", err)
	}

	_, err = pool.Carve(1, 1, 4, FormatARGB8888)
	var oerr *OutOfPoolSpaceError
	if !errors.As(err, &oerr) {
		t.Fatalf("expected OutOfPoolSpaceError, got %v", err)
	}
	if oerr.Need != 4 {
		t.Errorf("need %v", oerr.Need)
	}
}

func TestOwnership(t *testing.T) {
	pool := newPool(t, 4096)
	buf, err := pool.Carve(4, 4, 16, FormatARGB8888)
	if err != nil {
		t.Fatalf("carve: %v", err)
	}

	err = buf.Attach()
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := buf.Pix(); !errors.Is(err, ErrBufferBusy) {
		t.Errorf("pix while attached: %v", err)
	}
	if err := buf.Attach(); !errors.Is(err, ErrBufferBusy) {
		t.Errorf("second attach: %v", err)
	}
	if pool.Outstanding() != 1 {
		t.Errorf("outstanding %v", pool.Outstanding())
	}

	if !buf.Release() {
		t.Fatal("release reported no change")
	}
	if buf.Release() {
		t.Error("second release reported a change")
	}
	if buf.State() != Released {
		t.Errorf("state %v", buf.State())
	}
	if _, err := buf.Pix(); err != nil {
		t.Errorf("pix after release: %v", err)
	}

	buf.Free()
	if _, err := buf.Pix(); !errors.Is(err, ErrFreed) {
		t.Errorf("pix after free: %v", err)
	}
}

func TestGrow(t *testing.T) {
	pool := newPool(t, 4096)
	buf, err := pool.Carve(16, 16, 64, FormatARGB8888)
	if err != nil {
		t.Fatalf("carve: %v", err)
	}
	pix, _ := buf.Pix()
	pix[0] = 0xAB

	buf.Attach()
	if err := pool.Grow(8192); !errors.Is(err, ErrPoolBusy) {
		t.Fatalf("grow while busy: %v", err)
	}
	if err := pool.Reset(); !errors.Is(err, ErrPoolBusy) {
		t.Fatalf("reset while busy: %v", err)
	}

	buf.Release()
	if err := pool.Grow(8192); err != nil {
		t.Fatalf("grow: %v", err)
	}
	if pool.Cap() != 8192 {
		t.Errorf("capacity %v", pool.Cap())
	}

	pix, err = buf.Pix()
	if err != nil {
		t.Fatalf("pix after grow: %v", err)
	}
	if pix[0] != 0xAB {
		t.Errorf("contents lost across grow: %x", pix[0])
	}

	if err := pool.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if buf.State() != Freed {
		t.Errorf("state after reset: %v", buf.State())
	}
}

func TestCloseIdempotent(t *testing.T) {
	pool, err := NewPool(4096)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	buf, _ := pool.Carve(1, 1, 4, FormatARGB8888)

	if err := pool.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if buf.State() != Freed {
		t.Errorf("buffer state %v", buf.State())
	}
	if _, err := pool.Carve(1, 1, 4, FormatARGB8888); !errors.Is(err, ErrFreed) {
		t.Errorf("carve after close: %v", err)
	}
}

func TestImage(t *testing.T) {
	pool := newPool(t, 4096)
	buf, err := pool.Carve(8, 8, 32, FormatARGB8888)
	if err != nil {
		t.Fatalf("carve: %v", err)
	}

	img, err := buf.Image()
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 8, 8) {
		t.Fatalf("bounds %v", img.Bounds())
	}

	draw.Draw(img, img.Bounds(), image.NewUniform(colornames.Teal), image.Point{}, draw.Src)
	r, g, b, a := img.At(3, 5).RGBA()
	er, eg, eb, ea := colornames.Teal.RGBA()
	if (r != er) || (g != eg) || (b != eb) || (a != ea) {
		t.Errorf("pixel (%v, %v, %v, %v), expected (%v, %v, %v, %v)", r, g, b, a, er, eg, eb, ea)
	}

	padded, _ := pool.Carve(8, 1, 64, FormatARGB8888)
	if _, err := padded.Image(); !errors.Is(err, ErrPadded) {
		t.Errorf("padded image: %v", err)
	}
}
