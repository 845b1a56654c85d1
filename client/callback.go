package wl

import "deedles.dev/wlbg/wire"

const (
	CallbackInterface = "wl_callback"
	CallbackVersion   = 1
)

type CallbackListener interface {
	Done(data uint32)
}

// Callback is a one-shot notification. It is destroyed by the
// compositor once it fires.
type Callback struct {
	Proxy
	Listener CallbackListener
}

// Then sets the listener to f.
func (c *Callback) Then(f func(uint32)) {
	c.Listener = callbackListener(f)
}

func (c *Callback) Delete() {
	c.Listener = nil
}

func (c *Callback) MethodName(op uint16) string {
	if op == 0 {
		return "done"
	}
	return "unknown"
}

func (c *Callback) Dispatch(msg *wire.MessageBuffer) error {
	if msg.Op() != 0 {
		return wire.UnknownOpError{Interface: c.inter, Type: "event", Op: msg.Op()}
	}

	data := msg.ReadUint()
	if err := msg.Err(); err != nil {
		return err
	}

	lis := c.Listener
	c.client.Remove(c)
	if lis != nil {
		lis.Done(data)
	}
	return nil
}

type callbackListener func(uint32)

func (lis callbackListener) Done(data uint32) {
	lis(data)
}
