package wl

import "deedles.dev/wlbg/wire"

const BufferInterface = "wl_buffer"

type BufferListener interface {
	Release()
}

type Buffer struct {
	Proxy
	Listener BufferListener
}

func (buf *Buffer) Delete() {
	buf.Listener = nil
}

func (buf *Buffer) MethodName(op uint16) string {
	if op == 0 {
		return "release"
	}
	return "unknown"
}

func (buf *Buffer) Dispatch(msg *wire.MessageBuffer) error {
	if msg.Op() != 0 {
		return wire.UnknownOpError{Interface: buf.inter, Type: "event", Op: msg.Op()}
	}

	if buf.Listener != nil {
		buf.Listener.Release()
	}
	return nil
}

func (buf *Buffer) Destroy() {
	buf.client.Enqueue(wire.NewRequest(buf, 0, "destroy"))
	buf.client.Remove(buf)
}
