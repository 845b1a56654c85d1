package wl

import (
	"golang.org/x/exp/maps"

	"deedles.dev/wlbg/wire"
)

const (
	RegistryInterface = "wl_registry"
	RegistryVersion   = 1
)

type RegistryListener interface {
	Global(name uint32, inter string, version uint32)
	GlobalRemove(name uint32)
}

// Global describes a global that the compositor has advertised.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

type Registry struct {
	Proxy
	Listener RegistryListener

	globals map[uint32]Global
}

// Globals returns a snapshot of every global that is currently
// advertised.
func (registry *Registry) Globals() map[uint32]Global {
	return maps.Clone(registry.globals)
}

// Bind binds the global with the given name to obj, which must not
// have been added to the client yet.
func (registry *Registry) Bind(name uint32, obj wire.Object, inter string, version uint32) {
	registry.client.Add(obj)
	registry.client.Enqueue(wire.NewRequest(registry, 0, "bind", name, wire.NewID{
		Interface: inter,
		Version:   version,
		ID:        obj.ID(),
	}))
}

func (registry *Registry) Delete() {}

func (registry *Registry) MethodName(op uint16) string {
	switch op {
	case 0:
		return "global"
	case 1:
		return "global_remove"
	}
	return "unknown"
}

func (registry *Registry) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		name := msg.ReadUint()
		inter := msg.ReadString()
		version := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		if registry.globals == nil {
			registry.globals = make(map[uint32]Global)
		}
		registry.globals[name] = Global{Name: name, Interface: inter, Version: version}
		if registry.Listener != nil {
			registry.Listener.Global(name, inter, version)
		}
		return nil

	case 1:
		name := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		delete(registry.globals, name)
		if registry.Listener != nil {
			registry.Listener.GlobalRemove(name)
		}
		return nil
	}

	return wire.UnknownOpError{Interface: registry.inter, Type: "event", Op: msg.Op()}
}
