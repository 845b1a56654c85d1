package wl

import (
	"fmt"

	"deedles.dev/wlbg/wire"
)

const (
	DisplayInterface = "wl_display"
	DisplayVersion   = 1
)

type DisplayListener interface {
	Error(obj wire.Object, code uint32, message string)
	DeleteId(id uint32)
}

type Display struct {
	Proxy
	Listener DisplayListener

	registry *Registry
}

func (display *Display) Delete() {}

func (display *Display) MethodName(op uint16) string {
	switch op {
	case 0:
		return "error"
	case 1:
		return "delete_id"
	}
	return "unknown"
}

func (display *Display) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		id := msg.ReadObject()
		code := msg.ReadUint()
		message := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}

		perr := ProtocolError{ObjectID: id, Code: code, Message: message}
		obj := display.client.Get(id)
		if obj != nil {
			perr.Object = fmt.Sprint(obj)
		}
		if display.Listener != nil {
			display.Listener.Error(obj, code, message)
		}
		return display.client.fail(&perr)

	case 1:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		display.client.store.Delete(id)
		if display.Listener != nil {
			display.Listener.DeleteId(id)
		}
		return nil
	}

	return wire.UnknownOpError{Interface: display.inter, Type: "event", Op: msg.Op()}
}

// Sync asks the compositor to answer once every request sent so far
// has been processed.
func (display *Display) Sync() *Callback {
	cb := Callback{Proxy: NewProxy(display.client, CallbackInterface, CallbackVersion)}
	display.client.Add(&cb)
	display.client.Enqueue(wire.NewRequest(display, 0, "sync", &cb))
	return &cb
}

// GetRegistry returns the registry, requesting it from the compositor
// the first time it is called.
func (display *Display) GetRegistry() *Registry {
	if display.registry != nil {
		return display.registry
	}

	registry := Registry{Proxy: NewProxy(display.client, RegistryInterface, RegistryVersion)}
	display.client.Add(&registry)
	display.client.Enqueue(wire.NewRequest(display, 1, "get_registry", &registry))
	display.registry = &registry
	return &registry
}
