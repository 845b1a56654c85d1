package wl

import "deedles.dev/wlbg/wire"

const (
	CompositorInterface = "wl_compositor"
	CompositorVersion   = 4
)

type Compositor struct {
	Proxy
}

// BindCompositor binds the wl_compositor global with the given name at
// the lower of version and CompositorVersion.
func BindCompositor(client *Client, registry *Registry, name, version uint32) *Compositor {
	compositor := Compositor{Proxy: NewProxy(client, CompositorInterface, min(version, CompositorVersion))}
	registry.Bind(name, &compositor, CompositorInterface, compositor.version)
	return &compositor
}

func (compositor *Compositor) Delete() {}

func (compositor *Compositor) MethodName(op uint16) string {
	return "unknown"
}

func (compositor *Compositor) Dispatch(msg *wire.MessageBuffer) error {
	return wire.UnknownOpError{Interface: compositor.inter, Type: "event", Op: msg.Op()}
}

// CreateSurface creates a new surface. Surfaces share the version of
// the compositor that created them.
func (compositor *Compositor) CreateSurface() *Surface {
	surface := Surface{Proxy: NewProxy(compositor.client, SurfaceInterface, compositor.version)}
	compositor.client.Add(&surface)
	compositor.client.Enqueue(wire.NewRequest(compositor, 0, "create_surface", &surface))
	return &surface
}

func (compositor *Compositor) CreateRegion() *Region {
	region := Region{Proxy: NewProxy(compositor.client, RegionInterface, 1)}
	compositor.client.Add(&region)
	compositor.client.Enqueue(wire.NewRequest(compositor, 1, "create_region", &region))
	return &region
}
