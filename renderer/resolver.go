package renderer

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	wl "deedles.dev/wlbg/client"
	"deedles.dev/wlbg/internal/debug"
	"deedles.dev/wlbg/layershell"
	"deedles.dev/wlbg/wire"
)

// MissingCapabilityError is returned when the compositor does not
// advertise a global that the renderer can't work without.
type MissingCapabilityError struct {
	Interface string

	// Advertised lists the interfaces that the compositor did offer,
	// sorted.
	Advertised []string
}

func (err *MissingCapabilityError) Error() string {
	if len(err.Advertised) == 0 {
		return fmt.Sprintf("compositor does not support %v", err.Interface)
	}
	return fmt.Sprintf("compositor does not support %v (advertised: %v)", err.Interface, strings.Join(err.Advertised, ", "))
}

type capability int

const (
	capOther capability = iota
	capCompositor
	capShm
	capLayerShell
	capOutput
)

func classify(inter string) capability {
	switch inter {
	case wl.CompositorInterface:
		return capCompositor
	case wl.ShmInterface:
		return capShm
	case layershell.Interface:
		return capLayerShell
	case wl.OutputInterface:
		return capOutput
	}
	return capOther
}

func (c capability) String() string {
	switch c {
	case capCompositor:
		return "compositor"
	case capShm:
		return "shm"
	case capLayerShell:
		return "layer shell"
	case capOutput:
		return "output"
	}
	return "other"
}

// global is one advertised global. handle is nil until the global has
// been bound, and stays nil for globals that are of no interest.
type global struct {
	kind    capability
	inter   string
	version uint32
	handle  wire.Object
}

// OutputDescriptor describes a bound output.
type OutputDescriptor struct {
	// Global is the registry name of the output.
	Global uint32
	Output *wl.Output

	Name        string
	Description string
	Make, Model string
	Width       int32
	Height      int32
	Refresh     int32
	Scale       int32

	// Ready is set once the compositor has sent the output's initial
	// state.
	Ready bool
}

func (out *OutputDescriptor) String() string {
	if out.Name != "" {
		return out.Name
	}
	return fmt.Sprintf("output %v", out.Global)
}

// LogicalSize returns the size of the output in surface coordinates.
func (out *OutputDescriptor) LogicalSize() (width, height int32) {
	scale := max(out.Scale, 1)
	return out.Width / scale, out.Height / scale
}

// resolver tracks the registry and binds the globals that the
// renderer needs.
type resolver struct {
	client   *wl.Client
	registry *wl.Registry
	globals  map[uint32]*global

	compositor *wl.Compositor
	shm        *wl.Shm
	layerShell *layershell.LayerShell
	outputs    map[uint32]*OutputDescriptor

	outputReady   func(*OutputDescriptor)
	outputChanged func(*OutputDescriptor)
	outputRemoved func(*OutputDescriptor)
}

func newResolver(client *wl.Client) *resolver {
	res := resolver{
		client:  client,
		globals: make(map[uint32]*global),
		outputs: make(map[uint32]*OutputDescriptor),
	}
	res.registry = client.Display().GetRegistry()
	res.registry.Listener = (*registryListener)(&res)
	return &res
}

// requiredGlobalsReady reports whether the compositor, shm and layer
// shell globals have all been bound.
func (res *resolver) requiredGlobalsReady() bool {
	return (res.compositor != nil) && (res.shm != nil) && (res.layerShell != nil)
}

// missing returns an error for the first required global that has not
// been bound.
func (res *resolver) missing() error {
	var inter string
	switch {
	case res.compositor == nil:
		inter = wl.CompositorInterface
	case res.shm == nil:
		inter = wl.ShmInterface
	case res.layerShell == nil:
		inter = layershell.Interface
	default:
		return nil
	}
	return &MissingCapabilityError{Interface: inter, Advertised: res.advertised()}
}

// advertised returns the distinct interfaces of every global that the
// compositor currently offers.
func (res *resolver) advertised() []string {
	var inters []string
	for _, g := range res.registry.Globals() {
		if !slices.Contains(inters, g.Interface) {
			inters = append(inters, g.Interface)
		}
	}
	slices.Sort(inters)
	return inters
}

// currentOutputs returns every ready output, ordered by registry name.
func (res *resolver) currentOutputs() []*OutputDescriptor {
	names := make([]uint32, 0, len(res.outputs))
	for name, out := range res.outputs {
		if out.Ready {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	outputs := make([]*OutputDescriptor, 0, len(names))
	for _, name := range names {
		outputs = append(outputs, res.outputs[name])
	}
	return outputs
}

// markLegacyOutputsReady readies version 1 outputs, which never send
// done. It is called once their initial events must have arrived.
func (res *resolver) markLegacyOutputsReady() {
	for _, out := range res.outputs {
		if (out.Output.Version() < 2) && !out.Ready {
			out.Ready = true
		}
	}
}

type registryListener resolver

func (lis *registryListener) Global(name uint32, inter string, version uint32) {
	res := (*resolver)(lis)

	g := global{kind: classify(inter), inter: inter, version: version}
	res.globals[name] = &g

	switch g.kind {
	case capCompositor:
		if res.compositor == nil {
			res.compositor = wl.BindCompositor(res.client, res.registry, name, version)
			g.handle = res.compositor
		}

	case capShm:
		if res.shm == nil {
			res.shm = wl.BindShm(res.client, res.registry, name, version)
			g.handle = res.shm
		}

	case capLayerShell:
		if res.layerShell == nil {
			res.layerShell = layershell.Bind(res.client, res.registry, name, version)
			g.handle = res.layerShell
		}

	case capOutput:
		out := OutputDescriptor{Global: name, Scale: 1}
		out.Output = wl.BindOutput(res.client, res.registry, name, version)
		out.Output.Listener = &outputListener{res: res, out: &out}
		res.outputs[name] = &out
		g.handle = out.Output
	}

	debug.Printf("global %v: %v version %v (%v)", name, inter, version, g.kind)
}

func (lis *registryListener) GlobalRemove(name uint32) {
	res := (*resolver)(lis)

	g, ok := res.globals[name]
	if !ok {
		return
	}
	delete(res.globals, name)

	switch g.kind {
	case capOutput:
		out, ok := res.outputs[name]
		if !ok {
			return
		}
		delete(res.outputs, name)
		if out.Ready && (res.outputRemoved != nil) {
			res.outputRemoved(out)
		}
		out.Output.Release()

	case capCompositor, capShm, capLayerShell:
		if g.handle != nil {
			debug.Printf("required global %v (%v) was removed", name, g.inter)
		}
	}
}

type outputListener struct {
	res *resolver
	out *OutputDescriptor
}

func (lis *outputListener) Geometry(x, y, physicalWidth, physicalHeight, subpixel int32, make, model string, transform wl.OutputTransform) {
	lis.out.Make = make
	lis.out.Model = model
}

func (lis *outputListener) Mode(flags wl.OutputMode, width, height, refresh int32) {
	if flags&wl.OutputModeCurrent == 0 {
		return
	}

	lis.out.Width = width
	lis.out.Height = height
	lis.out.Refresh = refresh

	// Version 1 outputs never send done, so their first current mode
	// is as ready as they get.
	if (lis.out.Output.Version() < 2) && !lis.out.Ready {
		lis.done()
	}
}

func (lis *outputListener) Done() {
	lis.done()
}

func (lis *outputListener) done() {
	if !lis.out.Ready {
		lis.out.Ready = true
		if lis.res.outputReady != nil {
			lis.res.outputReady(lis.out)
		}
		return
	}

	if lis.res.outputChanged != nil {
		lis.res.outputChanged(lis.out)
	}
}

func (lis *outputListener) Scale(factor int32) {
	lis.out.Scale = max(factor, 1)
}

func (lis *outputListener) Name(name string) {
	lis.out.Name = name
}

func (lis *outputListener) Description(description string) {
	lis.out.Description = description
}
