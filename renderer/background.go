package renderer

import (
	"errors"
	"fmt"
	"log"
	"math"

	wl "deedles.dev/wlbg/client"
	"deedles.dev/wlbg/internal/debug"
	"deedles.dev/wlbg/layershell"
	"deedles.dev/wlbg/pattern"
	"deedles.dev/wlbg/shm"
)

// Namespace is the layer surface namespace of every background.
const Namespace = "hackerland-bg"

// SurfaceState is the lifecycle state of the background of a single
// output.
type SurfaceState int

const (
	Created SurfaceState = iota
	SurfaceBound
	LayerRequested
	Configured
	Committed
	Released
	Destroyed
)

func (s SurfaceState) String() string {
	switch s {
	case Created:
		return "created"
	case SurfaceBound:
		return "surface bound"
	case LayerRequested:
		return "layer requested"
	case Configured:
		return "configured"
	case Committed:
		return "committed"
	case Released:
		return "released"
	case Destroyed:
		return "destroyed"
	}
	return fmt.Sprintf("SurfaceState(%d)", int(s))
}

// LayerRoleRejectedError is reported when the compositor refuses to
// show a background on an output.
type LayerRoleRejectedError struct {
	Output string
	Reason string
}

func (err *LayerRoleRejectedError) Error() string {
	return fmt.Sprintf("background layer rejected on %v: %v", err.Output, err.Reason)
}

// frame is a buffer together with the pool that it was carved from.
// Every frame owns its pool.
type frame struct {
	bg     *background
	pool   *shm.Pool
	wlPool *wl.ShmPool
	buf    *shm.Buffer
	wlBuf  *wl.Buffer
	scale  int32
	gone   bool
}

func (f *frame) held() bool {
	return f.buf.State() == shm.HandedToCompositor
}

func (f *frame) matches(width, height int, scale int32) bool {
	return (f.buf.Width() == width) && (f.buf.Height() == height) && (f.scale == scale)
}

// destroy releases every resource of the frame. It is safe to call
// more than once.
func (f *frame) destroy() {
	if f.gone {
		return
	}
	f.gone = true

	if f.wlBuf != nil {
		f.wlBuf.Destroy()
	}
	f.wlPool.Destroy()
	err := f.pool.Close()
	if err != nil {
		log.Printf("%v: close pool: %v", f.bg.output, err)
	}
}

// recarve replaces the frame's buffer with one of a different size,
// reusing its pool. The compositor must not be holding the old buffer.
func (f *frame) recarve(width, height, stride int, scale int32) error {
	size := stride * height
	err := f.pool.Reset()
	if err != nil {
		return err
	}
	if size > f.pool.Cap() {
		err := f.pool.Grow(size)
		if err != nil {
			return err
		}
		f.wlPool.Resize(int32(f.pool.Cap()))
	}

	buf, err := f.pool.Carve(width, height, stride, shm.FormatARGB8888)
	if err != nil {
		return err
	}

	f.wlBuf.Destroy()
	f.buf = buf
	f.wlBuf = f.wlPool.CreateBuffer(int32(buf.Offset()), int32(width), int32(height), int32(stride), wl.ShmFormatArgb8888)
	f.wlBuf.Listener = (*bufferListener)(f)
	f.scale = scale
	return nil
}

type bufferListener frame

func (lis *bufferListener) Release() {
	f := (*frame)(lis)
	if !f.buf.Release() {
		return
	}
	f.bg.released(f)
}

// background drives the layer surface of a single output.
type background struct {
	r      *Renderer
	output *OutputDescriptor
	state  SurfaceState
	err    error

	surface *wl.Surface
	layer   *layershell.LayerSurface

	// width and height are the last usable configured size.
	width, height int32

	// current is the frame most recently attached. retired frames have
	// been replaced but are still held by the compositor.
	current *frame
	retired []*frame
}

func newBackground(r *Renderer, output *OutputDescriptor) *background {
	return &background{
		r:      r,
		output: output,
		state:  Created,
	}
}

// start creates the surface and asks for the background layer role.
func (bg *background) start() {
	res := bg.r.res

	bg.surface = res.compositor.CreateSurface()
	bg.setState(SurfaceBound)

	bg.layer = res.layerShell.GetLayerSurface(bg.surface, bg.output.Output, layershell.LayerBackground, Namespace)
	bg.layer.Listener = (*layerListener)(bg)
	bg.layer.SetSize(0, 0)
	bg.layer.SetAnchor(layershell.AnchorAll)
	bg.layer.SetExclusiveZone(-1)
	bg.layer.SetKeyboardInteractivity(layershell.KeyboardInteractivityNone)

	input := res.compositor.CreateRegion()
	bg.surface.SetInputRegion(input)
	input.Destroy()

	bg.surface.Commit()
	bg.setState(LayerRequested)
}

func (bg *background) setState(state SurfaceState) {
	debug.Printf("%v: %v -> %v", bg.output, bg.state, state)
	bg.state = state
}

func (bg *background) configure(serial, width, height uint32) {
	if bg.state == Destroyed {
		return
	}

	bg.layer.AckConfigure(serial)
	if bg.state < Configured {
		bg.setState(Configured)
	}

	w, h := int32(width), int32(height)
	lw, lh := bg.output.LogicalSize()
	if w == 0 {
		w = lw
	}
	if h == 0 {
		h = lh
	}
	if (w <= 0) || (h <= 0) {
		log.Printf("%v: configured with no usable size", bg.output)
		return
	}

	bg.width, bg.height = w, h
	err := bg.render(w, h)
	if err != nil {
		bg.abandon(err)
	}
}

// rescale redraws the background after the output's scale changed.
func (bg *background) rescale() {
	if (bg.state != Committed) && (bg.state != Released) {
		return
	}

	err := bg.render(bg.width, bg.height)
	if err != nil {
		bg.abandon(err)
	}
}

// render shows a w by h surface, in surface coordinates, drawing a new
// buffer only if the size or scale has changed.
func (bg *background) render(w, h int32) error {
	scale := max(bg.output.Scale, 1)
	bw, bh := int(w)*int(scale), int(h)*int(scale)

	if (bg.current != nil) && bg.current.matches(bw, bh, scale) {
		bg.surface.Commit()
		bg.setState(Committed)
		return nil
	}

	f, err := bg.acquire(bw, bh, scale)
	if err != nil {
		return err
	}

	img, err := f.buf.Image()
	if err != nil {
		return err
	}
	pattern.Fill(img, bg.r.Pattern)

	err = f.buf.Attach()
	if err != nil {
		return err
	}

	bg.surface.Attach(f.wlBuf, 0, 0)
	if bg.surface.Version() >= 3 {
		bg.surface.SetBufferScale(scale)
	}
	if bg.surface.Version() >= 4 {
		bg.surface.DamageBuffer(0, 0, int32(bw), int32(bh))
	} else {
		bg.surface.Damage(0, 0, w, h)
	}
	bg.surface.Commit()
	bg.setState(Committed)
	return nil
}

// acquire returns a frame with a buffer of the given size that the
// client is free to draw into, making it current. The current frame
// is reused if the compositor isn't holding it.
func (bg *background) acquire(width, height int, scale int32) (*frame, error) {
	stride := width * shm.BytesPerPixel
	if (width > math.MaxInt32/shm.BytesPerPixel) || (height > math.MaxInt32/stride) {
		return nil, &shm.InvalidBufferError{Width: width, Height: height, Stride: stride}
	}

	if (bg.current != nil) && !bg.current.held() {
		err := bg.current.recarve(width, height, stride, scale)
		if err == nil {
			return bg.current, nil
		}
		debug.Printf("%v: reuse pool: %v", bg.output, err)
		bg.current.destroy()
		bg.current = nil
	}

	f, err := bg.newFrame(width, height, stride, scale)
	if err != nil {
		return nil, err
	}

	if bg.current != nil {
		bg.retired = append(bg.retired, bg.current)
	}
	bg.current = f
	return f, nil
}

func (bg *background) newFrame(width, height, stride int, scale int32) (*frame, error) {
	size := stride * height

	pool, err := bg.r.Alloc(size)
	var aerr *shm.AllocationError
	if errors.As(err, &aerr) {
		log.Printf("%v: %v, retrying", bg.output, err)
		pool, err = bg.r.Alloc(size)
	}
	if err != nil {
		return nil, err
	}

	buf, err := pool.Carve(width, height, stride, shm.FormatARGB8888)
	if err != nil {
		cerr := pool.Close()
		if cerr != nil {
			log.Printf("%v: close pool: %v", bg.output, cerr)
		}
		return nil, err
	}

	f := frame{
		bg:    bg,
		pool:  pool,
		buf:   buf,
		scale: scale,
	}
	f.wlPool = bg.r.res.shm.CreatePool(pool.File(), int32(pool.Cap()))
	f.wlBuf = f.wlPool.CreateBuffer(int32(buf.Offset()), int32(width), int32(height), int32(stride), wl.ShmFormatArgb8888)
	f.wlBuf.Listener = (*bufferListener)(&f)
	return &f, nil
}

// released is called when the compositor gives f back.
func (bg *background) released(f *frame) {
	if f == bg.current {
		if bg.state == Committed {
			bg.setState(Released)
		}
		return
	}

	i := -1
	for j, r := range bg.retired {
		if r == f {
			i = j
			break
		}
	}
	if i < 0 {
		return
	}
	bg.retired = append(bg.retired[:i], bg.retired[i+1:]...)
	f.destroy()
}

// abandon logs err and tears the background down. The renderer keeps
// serving other outputs.
func (bg *background) abandon(err error) {
	if bg.state == Destroyed {
		return
	}

	bg.err = err
	log.Printf("%v: abandoning background: %v", bg.output, err)
	bg.teardown()
}

// teardown destroys every protocol object and buffer of the
// background. Calling it more than once does nothing.
func (bg *background) teardown() {
	if bg.state == Destroyed {
		return
	}

	for _, f := range bg.retired {
		f.destroy()
	}
	bg.retired = nil
	if bg.current != nil {
		bg.current.destroy()
	}

	if bg.layer != nil {
		bg.layer.Destroy()
	}
	if bg.surface != nil {
		bg.surface.Destroy()
	}
	bg.setState(Destroyed)
}

type layerListener background

func (lis *layerListener) Configure(serial, width, height uint32) {
	(*background)(lis).configure(serial, width, height)
}

func (lis *layerListener) Closed() {
	bg := (*background)(lis)
	if bg.state < Configured {
		bg.abandon(&LayerRoleRejectedError{Output: bg.output.String(), Reason: "closed before the first configure"})
		return
	}

	debug.Printf("%v: layer surface closed", bg.output)
	bg.teardown()
}
