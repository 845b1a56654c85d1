// Package layershell implements the client side of the
// zwlr_layer_shell_v1 protocol, which lets a client place surfaces in
// fixed layers of an output such as the background.
package layershell

import (
	wl "deedles.dev/wlbg/client"
	"deedles.dev/wlbg/wire"
)

const (
	Interface = "zwlr_layer_shell_v1"
	Version   = 4

	SurfaceInterface = "zwlr_layer_surface_v1"
)

type Layer uint32

const (
	LayerBackground Layer = iota
	LayerBottom
	LayerTop
	LayerOverlay
)

type Anchor uint32

const (
	AnchorTop Anchor = 1 << iota
	AnchorBottom
	AnchorLeft
	AnchorRight

	AnchorAll = AnchorTop | AnchorBottom | AnchorLeft | AnchorRight
)

type KeyboardInteractivity uint32

const (
	KeyboardInteractivityNone KeyboardInteractivity = iota
	KeyboardInteractivityExclusive
	KeyboardInteractivityOnDemand
)

// Protocol error codes of zwlr_layer_shell_v1.
const (
	ErrorRole               = 0
	ErrorInvalidLayer       = 1
	ErrorAlreadyConstructed = 2
)

type LayerShell struct {
	wl.Proxy
}

// Bind binds the zwlr_layer_shell_v1 global with the given name at the
// lower of version and Version.
func Bind(client *wl.Client, registry *wl.Registry, name, version uint32) *LayerShell {
	shell := LayerShell{Proxy: wl.NewProxy(client, Interface, min(version, Version))}
	registry.Bind(name, &shell, Interface, shell.Version())
	return &shell
}

func (shell *LayerShell) Delete() {}

func (shell *LayerShell) MethodName(op uint16) string {
	return "unknown"
}

func (shell *LayerShell) Dispatch(msg *wire.MessageBuffer) error {
	return wire.UnknownOpError{Interface: Interface, Type: "event", Op: msg.Op()}
}

// GetLayerSurface assigns the layer surface role to surface. A nil
// output lets the compositor pick one.
func (shell *LayerShell) GetLayerSurface(surface *wl.Surface, output *wl.Output, layer Layer, namespace string) *LayerSurface {
	ls := LayerSurface{Proxy: wl.NewProxy(shell.Client(), SurfaceInterface, shell.Version())}
	shell.Client().Add(&ls)

	var out wire.Object
	if output != nil {
		out = output
	}
	shell.Client().Enqueue(wire.NewRequest(shell, 0, "get_layer_surface", &ls, surface, out, uint32(layer), namespace))
	return &ls
}

// Destroy requires version 3. Layer surfaces created from the shell
// are not affected.
func (shell *LayerShell) Destroy() {
	if shell.Version() >= 3 {
		shell.Client().Enqueue(wire.NewRequest(shell, 1, "destroy"))
	}
	shell.Client().Remove(shell)
}
