package wl

import "deedles.dev/wlbg/wire"

const SurfaceInterface = "wl_surface"

type SurfaceListener interface {
	Enter(output uint32)
	Leave(output uint32)
	PreferredBufferScale(factor int32)
	PreferredBufferTransform(transform OutputTransform)
}

type Surface struct {
	Proxy
	Listener SurfaceListener
}

func (surface *Surface) Delete() {
	surface.Listener = nil
}

func (surface *Surface) MethodName(op uint16) string {
	switch op {
	case 0:
		return "enter"
	case 1:
		return "leave"
	case 2:
		return "preferred_buffer_scale"
	case 3:
		return "preferred_buffer_transform"
	}
	return "unknown"
}

func (surface *Surface) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0, 1:
		output := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		if surface.Listener == nil {
			return nil
		}
		if msg.Op() == 0 {
			surface.Listener.Enter(output)
			return nil
		}
		surface.Listener.Leave(output)
		return nil

	case 2:
		factor := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if surface.Listener != nil {
			surface.Listener.PreferredBufferScale(factor)
		}
		return nil

	case 3:
		transform := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if surface.Listener != nil {
			surface.Listener.PreferredBufferTransform(OutputTransform(transform))
		}
		return nil
	}

	return wire.UnknownOpError{Interface: surface.inter, Type: "event", Op: msg.Op()}
}

func (surface *Surface) Destroy() {
	surface.client.Enqueue(wire.NewRequest(surface, 0, "destroy"))
	surface.client.Remove(surface)
}

// Attach sets buf as the pending content of the surface. A nil buf
// removes the content.
func (surface *Surface) Attach(buf *Buffer, x, y int32) {
	var obj wire.Object
	if buf != nil {
		obj = buf
	}
	surface.client.Enqueue(wire.NewRequest(surface, 1, "attach", obj, x, y))
}

// Damage marks a rectangle of the surface, in surface-local
// coordinates, as changed.
func (surface *Surface) Damage(x, y, width, height int32) {
	surface.client.Enqueue(wire.NewRequest(surface, 2, "damage", x, y, width, height))
}

func (surface *Surface) Frame() *Callback {
	cb := Callback{Proxy: NewProxy(surface.client, CallbackInterface, CallbackVersion)}
	surface.client.Add(&cb)
	surface.client.Enqueue(wire.NewRequest(surface, 3, "frame", &cb))
	return &cb
}

func (surface *Surface) SetOpaqueRegion(region *Region) {
	var obj wire.Object
	if region != nil {
		obj = region
	}
	surface.client.Enqueue(wire.NewRequest(surface, 4, "set_opaque_region", obj))
}

func (surface *Surface) SetInputRegion(region *Region) {
	var obj wire.Object
	if region != nil {
		obj = region
	}
	surface.client.Enqueue(wire.NewRequest(surface, 5, "set_input_region", obj))
}

func (surface *Surface) Commit() {
	surface.client.Enqueue(wire.NewRequest(surface, 6, "commit"))
}

// SetBufferScale requires version 3.
func (surface *Surface) SetBufferScale(scale int32) {
	surface.client.Enqueue(wire.NewRequest(surface, 8, "set_buffer_scale", scale))
}

// DamageBuffer is like Damage but in buffer coordinates. It requires
// version 4.
func (surface *Surface) DamageBuffer(x, y, width, height int32) {
	surface.client.Enqueue(wire.NewRequest(surface, 9, "damage_buffer", x, y, width, height))
}
