package wltest

import (
	"fmt"

	"golang.org/x/exp/slices"

	"deedles.dev/wlbg/internal/xslices"
)

// TamperError reports that the client modified a buffer while the
// compositor held it.
type TamperError struct {
	Buffer uint32
}

func (err *TamperError) Error() string {
	return fmt.Sprintf("wl_buffer@%v was modified while held by the compositor", err.Buffer)
}

// Errors returns every protocol violation and I/O error seen so far.
func (c *Compositor) Errors() []error {
	c.m.Lock()
	defer c.m.Unlock()

	errs := slices.Clone(c.errs)
	for _, b := range c.buffers {
		if b.Held && (b.snapshot != nil) && !slices.Equal(c.pixels(b), b.snapshot) {
			errs = append(errs, &TamperError{Buffer: b.ID})
		}
	}
	return errs
}

// Requests returns every request received so far for which f returns
// true. A nil f matches everything.
func (c *Compositor) Requests(f func(Request) bool) []Request {
	c.m.Lock()
	defer c.m.Unlock()

	if f == nil {
		return slices.Clone(c.requests)
	}
	return xslices.Filter(c.requests, f)
}

// Count returns the number of requests received for the given
// interface and method.
func (c *Compositor) Count(inter, method string) int {
	c.m.Lock()
	defer c.m.Unlock()

	return xslices.Count(c.requests, func(r Request) bool {
		return (r.Interface == inter) && (r.Method == method)
	})
}

// Live returns the number of objects of the given interface that the
// client has created and not destroyed.
func (c *Compositor) Live(inter string) int {
	c.m.Lock()
	defer c.m.Unlock()

	var n int
	for _, obj := range c.objects {
		if (obj.inter == inter) && !obj.destroyed {
			n++
		}
	}
	return n
}

func sorted[T any](m map[uint32]*T) []T {
	ids := make([]uint32, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	r := make([]T, 0, len(ids))
	for _, id := range ids {
		r = append(r, *m[id])
	}
	return r
}

// LayerSurfaces returns snapshots of every layer surface ever created,
// in creation order.
func (c *Compositor) LayerSurfaces() []LayerSurface {
	c.m.Lock()
	defer c.m.Unlock()

	return sorted(c.layerSurfaces)
}

// Surface returns a snapshot of the surface with the given ID.
func (c *Compositor) Surface(id uint32) (Surface, bool) {
	c.m.Lock()
	defer c.m.Unlock()

	s, ok := c.surfaces[id]
	if !ok {
		return Surface{}, false
	}
	return *s, true
}

// Pools returns snapshots of every pool ever created, in creation
// order.
func (c *Compositor) Pools() []Pool {
	c.m.Lock()
	defer c.m.Unlock()

	return sorted(c.pools)
}

// Buffer returns a snapshot of the buffer with the given ID.
func (c *Compositor) Buffer(id uint32) (Buffer, bool) {
	c.m.Lock()
	defer c.m.Unlock()

	b, ok := c.buffers[id]
	if !ok {
		return Buffer{}, false
	}
	return *b, true
}

// Pixels returns a copy of the current contents of a buffer.
func (c *Compositor) Pixels(buffer uint32) []byte {
	c.m.Lock()
	defer c.m.Unlock()

	b, ok := c.buffers[buffer]
	if !ok {
		return nil
	}
	return c.pixels(b)
}

// AddOutput advertises a new output and returns its global name.
func (c *Compositor) AddOutput(out Output) uint32 {
	c.m.Lock()
	defer c.m.Unlock()

	g := c.addGlobal("wl_output", &out)
	if g == nil {
		return 0
	}
	for _, id := range c.registries.Sorted() {
		c.sendGlobal(id, g)
	}
	return g.name
}

// RemoveOutput withdraws the output global with the given name. The
// client's wl_output objects stay valid until it releases them.
func (c *Compositor) RemoveOutput(name uint32) {
	c.m.Lock()
	defer c.m.Unlock()

	if _, ok := c.globals[name]; !ok {
		return
	}
	delete(c.globals, name)
	for _, id := range c.registries.Sorted() {
		c.send(c.objects[id], registryGlobalRemove, "global_remove", name)
	}
}

// Configure sends a configure event to a layer surface and returns its
// serial.
func (c *Compositor) Configure(ls uint32, width, height uint32) uint32 {
	c.m.Lock()
	defer c.m.Unlock()

	l, ok := c.layerSurfaces[ls]
	if !ok {
		return 0
	}
	return c.configure(l, width, height)
}

// CloseLayerSurface tells the client that a layer surface will never
// be shown again.
func (c *Compositor) CloseLayerSurface(ls uint32) {
	c.m.Lock()
	defer c.m.Unlock()

	l, ok := c.layerSurfaces[ls]
	if !ok {
		return
	}
	l.Closed = true
	c.send(c.objects[ls], layerSurfaceClosed, "closed")
}

// Release gives a held buffer back to the client.
func (c *Compositor) Release(buffer uint32) {
	c.m.Lock()
	defer c.m.Unlock()

	b, ok := c.buffers[buffer]
	if !ok || b.Destroyed || !b.Held {
		return
	}
	c.release(b)
}

// SendError sends a fatal protocol error about the given object and
// then disconnects.
func (c *Compositor) SendError(id, code uint32, message string) {
	c.m.Lock()
	c.send(c.objects[1], displayError, "error", id, code, message)
	c.m.Unlock()

	c.Disconnect()
}
