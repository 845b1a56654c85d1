// Package renderer paints a background on every output of a Wayland
// compositor using the wlr layer shell.
//
// A Renderer binds the globals that it needs, gives each output a
// background layer surface backed by a shared memory buffer, and then
// follows outputs as they come and go until it is stopped.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	wl "deedles.dev/wlbg/client"
	"deedles.dev/wlbg/pattern"
	"deedles.dev/wlbg/shm"
)

// DefaultStartupTimeout bounds the initial exchange with the
// compositor.
const DefaultStartupTimeout = 5 * time.Second

type Renderer struct {
	// Pattern is drawn into every buffer. It defaults to
	// pattern.Gradient.
	Pattern pattern.Func

	// Alloc creates shared memory pools. It defaults to shm.NewPool.
	Alloc func(size int) (*shm.Pool, error)

	// StartupTimeout limits how long Run waits for the compositor to
	// describe itself. A negative value waits forever.
	StartupTimeout time.Duration

	client      *wl.Client
	res         *resolver
	backgrounds map[uint32]*background
}

// New returns a Renderer that draws through client.
func New(client *wl.Client) *Renderer {
	return &Renderer{
		Pattern:        pattern.Gradient,
		Alloc:          shm.NewPool,
		StartupTimeout: DefaultStartupTimeout,

		client:      client,
		backgrounds: make(map[uint32]*background),
	}
}

// Run renders backgrounds until ctx is cancelled, in which case it
// tears them down and returns nil, or until the connection fails. A
// compositor that lacks a required global results in a
// *MissingCapabilityError.
func (r *Renderer) Run(ctx context.Context) error {
	err := r.start()
	if err != nil {
		return err
	}

	for {
		_, err := r.client.DispatchContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return r.shutdown()
			}
			return err
		}
	}
}

func (r *Renderer) start() error {
	r.res = newResolver(r.client)

	var deadline time.Time
	if r.StartupTimeout >= 0 {
		deadline = time.Now().Add(r.StartupTimeout)
	}
	remaining := func() time.Duration {
		if deadline.IsZero() {
			return -1
		}
		return max(time.Until(deadline), 0)
	}

	// The first round trip collects the globals, the second the
	// initial state of the outputs bound during the first.
	err := r.client.RoundTrip(remaining())
	if err != nil {
		return fmt.Errorf("discover globals: %w", err)
	}
	if !r.res.requiredGlobalsReady() {
		return r.res.missing()
	}
	err = r.client.RoundTrip(remaining())
	if err != nil {
		return fmt.Errorf("discover outputs: %w", err)
	}
	r.res.markLegacyOutputsReady()

	for _, out := range r.res.currentOutputs() {
		r.outputAdded(out)
	}

	r.res.outputReady = r.outputAdded
	r.res.outputChanged = r.outputChanged
	r.res.outputRemoved = r.outputRemoved

	return r.client.Flush()
}

func (r *Renderer) outputAdded(out *OutputDescriptor) {
	if _, ok := r.backgrounds[out.Global]; ok {
		return
	}

	log.Printf("output %v: %v (%vx%v@%v)", out.Global, out, out.Width, out.Height, out.Scale)
	bg := newBackground(r, out)
	r.backgrounds[out.Global] = bg
	bg.start()
}

func (r *Renderer) outputChanged(out *OutputDescriptor) {
	bg, ok := r.backgrounds[out.Global]
	if !ok {
		return
	}
	bg.rescale()
}

func (r *Renderer) outputRemoved(out *OutputDescriptor) {
	bg, ok := r.backgrounds[out.Global]
	if !ok {
		return
	}
	delete(r.backgrounds, out.Global)

	log.Printf("output %v: %v removed", out.Global, out)
	bg.teardown()
}

// States returns the state of the background of every output, keyed
// by the output's registry name.
func (r *Renderer) States() map[uint32]SurfaceState {
	states := make(map[uint32]SurfaceState, len(r.backgrounds))
	for name, bg := range r.backgrounds {
		states[name] = bg.state
	}
	return states
}

// shutdown tears down every background, releases the outputs and
// sends the resulting requests.
func (r *Renderer) shutdown() error {
	for name, bg := range r.backgrounds {
		bg.teardown()
		delete(r.backgrounds, name)
	}
	for name, out := range r.res.outputs {
		out.Output.Release()
		delete(r.res.outputs, name)
	}

	err := r.client.Flush()
	if errors.Is(err, wl.ErrClosed) {
		return nil
	}
	return err
}
