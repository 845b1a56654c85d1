package layershell

import (
	wl "deedles.dev/wlbg/client"
	"deedles.dev/wlbg/wire"
)

type Listener interface {
	// Configure asks the client to resize the surface. A zero width or
	// height leaves that dimension to the client.
	Configure(serial, width, height uint32)

	// Closed means the surface will never be shown again and should be
	// destroyed.
	Closed()
}

type LayerSurface struct {
	wl.Proxy
	Listener Listener
}

func (ls *LayerSurface) Delete() {
	ls.Listener = nil
}

func (ls *LayerSurface) MethodName(op uint16) string {
	switch op {
	case 0:
		return "configure"
	case 1:
		return "closed"
	}
	return "unknown"
}

func (ls *LayerSurface) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		serial := msg.ReadUint()
		width := msg.ReadUint()
		height := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if ls.Listener != nil {
			ls.Listener.Configure(serial, width, height)
		}
		return nil

	case 1:
		if ls.Listener != nil {
			ls.Listener.Closed()
		}
		return nil
	}

	return wire.UnknownOpError{Interface: SurfaceInterface, Type: "event", Op: msg.Op()}
}

func (ls *LayerSurface) SetSize(width, height uint32) {
	ls.Client().Enqueue(wire.NewRequest(ls, 0, "set_size", width, height))
}

func (ls *LayerSurface) SetAnchor(anchor Anchor) {
	ls.Client().Enqueue(wire.NewRequest(ls, 1, "set_anchor", uint32(anchor)))
}

// SetExclusiveZone reserves zone pixels from the anchored edge. -1
// asks to be stretched over the whole output, ignoring other
// surfaces' exclusive zones.
func (ls *LayerSurface) SetExclusiveZone(zone int32) {
	ls.Client().Enqueue(wire.NewRequest(ls, 2, "set_exclusive_zone", zone))
}

func (ls *LayerSurface) SetMargin(top, right, bottom, left int32) {
	ls.Client().Enqueue(wire.NewRequest(ls, 3, "set_margin", top, right, bottom, left))
}

func (ls *LayerSurface) SetKeyboardInteractivity(ki KeyboardInteractivity) {
	ls.Client().Enqueue(wire.NewRequest(ls, 4, "set_keyboard_interactivity", uint32(ki)))
}

func (ls *LayerSurface) AckConfigure(serial uint32) {
	ls.Client().Enqueue(wire.NewRequest(ls, 6, "ack_configure", serial))
}

func (ls *LayerSurface) Destroy() {
	ls.Client().Enqueue(wire.NewRequest(ls, 7, "destroy"))
	ls.Client().Remove(ls)
}

// SetLayer requires version 2.
func (ls *LayerSurface) SetLayer(layer Layer) {
	ls.Client().Enqueue(wire.NewRequest(ls, 8, "set_layer", uint32(layer)))
}
