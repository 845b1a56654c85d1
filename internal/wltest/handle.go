package wltest

import (
	"os"

	"golang.org/x/exp/slices"
	"golang.org/x/sys/unix"

	"deedles.dev/wlbg/shm"
	"deedles.dev/wlbg/wire"
)

const (
	anchorTop    = 1
	anchorBottom = 2
	anchorLeft   = 4
	anchorRight  = 8
)

func (c *Compositor) handleRequest(obj *object, method string, args []any) error {
	switch obj.inter + "." + method {
	case "wl_display.sync":
		cb := c.objects[args[0].(uint32)]
		c.send(cb, callbackDone, "done", c.nextSerial())
		c.deleteID(cb)

	case "wl_display.get_registry":
		id := args[0].(uint32)
		c.registries.Add(id)

		names := make([]uint32, 0, len(c.globals))
		for name := range c.globals {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			c.sendGlobal(id, c.globals[name])
		}

	case "wl_registry.bind":
		name := args[0].(uint32)
		nid := args[1].(wire.NewID)
		g, ok := c.globals[name]
		if !ok {
			// Binding a global that was just removed is allowed, and
			// produces an inert object.
			return nil
		}
		if (g.inter != nid.Interface) || (nid.Version == 0) || (nid.Version > g.version) {
			return c.protocolError(obj.id, 0, "invalid bind of %v version %v to global %v (%v version %v)", nid.Interface, nid.Version, name, g.inter, g.version)
		}

		bound := c.objects[nid.ID]
		bound.global = name
		if g.output != nil {
			c.sendOutput(bound, g.output)
		}

	case "wl_compositor.create_surface":
		id := args[0].(uint32)
		c.surfaces[id] = &Surface{ID: id, Scale: 1}

	case "wl_surface.destroy":
		c.surfaces[obj.id].Destroyed = true

	case "wl_surface.attach":
		s := c.surfaces[obj.id]
		id := args[0].(uint32)
		if id != 0 {
			if b, ok := c.buffers[id]; !ok || b.Destroyed {
				return c.protocolError(obj.id, 0, "attach of invalid buffer %v", id)
			}
		}
		s.pending = id
		s.hasPending = true

	case "wl_surface.set_input_region":
		s := c.surfaces[obj.id]
		s.Input = args[0].(uint32)
		s.InputSet = true

	case "wl_surface.set_buffer_scale":
		scale := args[0].(int32)
		if scale <= 0 {
			return c.protocolError(obj.id, 0, "invalid buffer scale %v", scale)
		}
		c.surfaces[obj.id].Scale = scale

	case "wl_surface.commit":
		return c.commit(c.surfaces[obj.id])

	case "wl_shm.create_pool":
		id := args[0].(uint32)
		file := args[1].(*os.File)
		size := args[2].(int32)
		if file == nil {
			return c.protocolError(obj.id, 2, "create_pool without a file descriptor")
		}
		if size <= 0 {
			file.Close()
			return c.protocolError(obj.id, 1, "invalid pool size %v", size)
		}

		mmap, err := shm.MapShared(file, int(size), unix.PROT_READ)
		if err != nil {
			file.Close()
			return c.protocolError(obj.id, 2, "mmap failed: %v", err)
		}
		c.pools[id] = &Pool{ID: id, Size: size, file: file, mmap: mmap}

	case "wl_shm_pool.create_buffer":
		pool := c.pools[obj.id]
		id := args[0].(uint32)
		offset, width, height, stride := args[1].(int32), args[2].(int32), args[3].(int32), args[4].(int32)
		format := args[5].(uint32)
		if format > 1 {
			return c.protocolError(obj.id, 0, "invalid format %v", format)
		}
		if (width <= 0) || (height <= 0) || (stride < width*4) || (offset < 0) || (int64(offset)+int64(stride)*int64(height) > int64(pool.Size)) {
			return c.protocolError(obj.id, 1, "invalid buffer %vx%v, stride %v, offset %v in pool of %v bytes", width, height, stride, offset, pool.Size)
		}
		c.buffers[id] = &Buffer{
			ID:     id,
			Pool:   obj.id,
			Offset: offset,
			Stride: stride,
			Width:  width,
			Height: height,
			Format: format,
		}

	case "wl_shm_pool.resize":
		pool := c.pools[obj.id]
		size := args[0].(int32)
		if size < pool.Size {
			return c.protocolError(obj.id, 1, "pool shrunk from %v to %v", pool.Size, size)
		}
		mmap, err := shm.MapShared(pool.file, int(size), unix.PROT_READ)
		if err != nil {
			return c.protocolError(obj.id, 2, "remap failed: %v", err)
		}
		pool.mmap.Unmap()
		pool.mmap = mmap
		pool.Size = size

	case "wl_shm_pool.destroy":
		c.pools[obj.id].Destroyed = true

	case "wl_buffer.destroy":
		b := c.buffers[obj.id]
		b.Destroyed = true
		b.Held = false

	case "zwlr_layer_shell_v1.get_layer_surface":
		id := args[0].(uint32)
		sid, oid := args[1].(uint32), args[2].(uint32)
		layer := args[3].(uint32)

		s, ok := c.surfaces[sid]
		if !ok || s.Destroyed {
			return c.protocolError(obj.id, 0, "get_layer_surface for invalid surface %v", sid)
		}
		if s.Role != 0 {
			return c.protocolError(obj.id, 0, "surface %v already has a role", sid)
		}
		if s.Buffer != 0 {
			return c.protocolError(obj.id, 2, "surface %v already has a buffer", sid)
		}
		if layer > 3 {
			return c.protocolError(obj.id, 1, "invalid layer %v", layer)
		}

		var output uint32
		if oid != 0 {
			out, ok := c.objects[oid]
			if !ok || out.inter != "wl_output" {
				return c.protocolError(obj.id, 0, "invalid output %v", oid)
			}
			output = out.global
		}

		s.Role = id
		c.layerSurfaces[id] = &LayerSurface{
			ID:        id,
			Surface:   sid,
			Output:    output,
			Layer:     layer,
			Namespace: args[4].(string),
		}

	case "zwlr_layer_surface_v1.set_size":
		ls := c.layerSurfaces[obj.id]
		ls.Width, ls.Height = args[0].(uint32), args[1].(uint32)

	case "zwlr_layer_surface_v1.set_anchor":
		anchor := args[0].(uint32)
		if anchor > anchorTop|anchorBottom|anchorLeft|anchorRight {
			return c.protocolError(obj.id, 2, "invalid anchor %v", anchor)
		}
		c.layerSurfaces[obj.id].Anchor = anchor

	case "zwlr_layer_surface_v1.set_exclusive_zone":
		c.layerSurfaces[obj.id].ExclusiveZone = args[0].(int32)

	case "zwlr_layer_surface_v1.set_keyboard_interactivity":
		c.layerSurfaces[obj.id].KeyboardInteractivity = args[0].(uint32)

	case "zwlr_layer_surface_v1.set_layer":
		c.layerSurfaces[obj.id].Layer = args[0].(uint32)

	case "zwlr_layer_surface_v1.ack_configure":
		ls := c.layerSurfaces[obj.id]
		serial := args[0].(uint32)
		if !slices.Contains(ls.Serials, serial) || (serial < ls.Acked) {
			return c.protocolError(obj.id, 0, "ack of unknown serial %v", serial)
		}
		ls.Acked = serial

	case "zwlr_layer_surface_v1.destroy":
		c.layerSurfaces[obj.id].Destroyed = true
	}

	if (method == "destroy") || (method == "release") {
		c.deleteID(obj)
	}
	return nil
}

func (c *Compositor) commit(s *Surface) error {
	s.Commits++
	pending, hasPending := s.pending, s.hasPending
	s.pending, s.hasPending = 0, false

	ls := c.layerSurfaces[s.Role]
	if (ls != nil) && !ls.Destroyed {
		if !ls.initialCommit {
			if hasPending && (pending != 0) {
				return c.protocolError(ls.ID, 0, "buffer attached before the initial commit")
			}
			if (ls.Width == 0) && (ls.Anchor&(anchorLeft|anchorRight) != anchorLeft|anchorRight) {
				return c.protocolError(ls.ID, 1, "zero width without horizontal anchors")
			}
			if (ls.Height == 0) && (ls.Anchor&(anchorTop|anchorBottom) != anchorTop|anchorBottom) {
				return c.protocolError(ls.ID, 1, "zero height without vertical anchors")
			}

			ls.initialCommit = true
			if !c.cfg.ManualConfigure {
				c.configure(ls, c.cfg.ConfigureWidth, c.cfg.ConfigureHeight)
			}
			return nil
		}

		if hasPending && (pending != 0) && (ls.Acked == 0) {
			return c.protocolError(ls.ID, 0, "buffer committed before the first configure was acknowledged")
		}
	}

	if !hasPending {
		return nil
	}

	prev := s.Buffer
	s.Buffer = pending
	if pending != 0 {
		b := c.buffers[pending]
		b.Commits++
		b.Held = true
		b.snapshot = c.pixels(b)
	}

	if c.cfg.ReleaseOnReplace && (prev != 0) && (prev != pending) {
		b := c.buffers[prev]
		if !b.Destroyed && b.Held {
			c.release(b)
		}
	}
	return nil
}

func (c *Compositor) configure(ls *LayerSurface, width, height uint32) uint32 {
	serial := c.nextSerial()
	ls.Serials = append(ls.Serials, serial)
	c.send(c.objects[ls.ID], layerSurfaceConfigure, "configure", serial, width, height)
	return serial
}

func (c *Compositor) release(b *Buffer) {
	if b.snapshot != nil {
		cur := c.pixels(b)
		if (cur != nil) && !slices.Equal(cur, b.snapshot) {
			c.errs = append(c.errs, &TamperError{Buffer: b.ID})
		}
	}

	b.Held = false
	b.snapshot = nil
	c.send(c.objects[b.ID], bufferRelease, "release")
}

func (c *Compositor) pixels(b *Buffer) []byte {
	pool := c.pools[b.Pool]
	if (pool == nil) || (pool.mmap == nil) {
		return nil
	}

	start := int(b.Offset)
	end := start + int(b.Stride)*int(b.Height)
	return slices.Clone(pool.mmap[start:end])
}

func (c *Compositor) sendGlobal(registry uint32, g *global) {
	c.send(c.objects[registry], registryGlobal, "global", g.name, g.inter, g.version)
}

func (c *Compositor) sendOutput(obj *object, out *Output) {
	c.send(obj, outputGeometry, "geometry", int32(0), int32(0), int32(0), int32(0), int32(0), "wltest", out.Name, int32(0))
	c.send(obj, outputMode, "mode", uint32(1), out.Width, out.Height, out.Refresh)
	if obj.version >= 2 {
		scale := out.Scale
		if scale == 0 {
			scale = 1
		}
		c.send(obj, outputScale, "scale", scale)
	}
	if obj.version >= 4 {
		c.send(obj, outputName, "name", out.Name)
		c.send(obj, outputDescription, "description", out.Description)
	}
	if obj.version >= 2 {
		c.send(obj, outputDone, "done")
	}
}
