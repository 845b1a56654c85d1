package wl_test

import (
	"errors"
	"testing"
	"time"

	wl "deedles.dev/wlbg/client"
	"deedles.dev/wlbg/internal/wltest"
	"deedles.dev/wlbg/shm"
)

func connect(t *testing.T, cfg wltest.Config) (*wltest.Compositor, *wl.Client) {
	t.Helper()

	comp, conn := wltest.Start(t, cfg)
	client := wl.NewClient(conn)
	t.Cleanup(func() { client.Close() })
	return comp, client
}

type globals map[string]uint32

func (g globals) Global(name uint32, inter string, version uint32) { g[inter] = name }
func (g globals) GlobalRemove(name uint32)                         {}

func bindAll(t *testing.T, client *wl.Client) (*wl.Compositor, *wl.Shm) {
	t.Helper()

	g := make(globals)
	registry := client.Display().GetRegistry()
	registry.Listener = g
	err := client.RoundTrip(time.Second)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}

	all := registry.Globals()
	return wl.BindCompositor(client, registry, g[wl.CompositorInterface], all[g[wl.CompositorInterface]].Version),
		wl.BindShm(client, registry, g[wl.ShmInterface], all[g[wl.ShmInterface]].Version)
}

func TestRegistry(t *testing.T) {
	comp, client := connect(t, wltest.Config{Outputs: []wltest.Output{{Name: "DP-1", Width: 640, Height: 480}}})

	g := make(globals)
	registry := client.Display().GetRegistry()
	registry.Listener = g
	if client.Display().GetRegistry() != registry {
		t.Fatal("second GetRegistry returned a different registry")
	}

	err := client.RoundTrip(time.Second)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}

	for _, inter := range []string{wl.CompositorInterface, wl.ShmInterface, wl.OutputInterface, "zwlr_layer_shell_v1"} {
		if _, ok := g[inter]; !ok {
			t.Errorf("%v was not advertised", inter)
		}
	}
	if n := len(registry.Globals()); n != 4 {
		t.Errorf("%v globals", n)
	}

	comp.RemoveOutput(g[wl.OutputInterface])
	err = client.RoundTrip(time.Second)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if n := len(registry.Globals()); n != 3 {
		t.Errorf("%v globals after removal", n)
	}
	if n := comp.Count(wl.DisplayInterface, "get_registry"); n != 1 {
		t.Errorf("%v get_registry requests", n)
	}
}

type outputState struct {
	name   string
	width  int32
	height int32
	scale  int32
	done   int
}

func (s *outputState) Geometry(x, y, pw, ph, subpixel int32, make, model string, transform wl.OutputTransform) {
}

func (s *outputState) Mode(flags wl.OutputMode, width, height, refresh int32) {
	if flags&wl.OutputModeCurrent != 0 {
		s.width, s.height = width, height
	}
}

func (s *outputState) Done()                          { s.done++ }
func (s *outputState) Scale(factor int32)             { s.scale = factor }
func (s *outputState) Name(name string)               { s.name = name }
func (s *outputState) Description(description string) {}

func TestOutput(t *testing.T) {
	_, client := connect(t, wltest.Config{Outputs: []wltest.Output{{Name: "HDMI-A-1", Width: 2560, Height: 1440, Scale: 2}}})

	g := make(globals)
	registry := client.Display().GetRegistry()
	registry.Listener = g
	if err := client.RoundTrip(time.Second); err != nil {
		t.Fatalf("round trip: %v", err)
	}

	output := wl.BindOutput(client, registry, g[wl.OutputInterface], 10)
	if output.Version() != wl.OutputVersion {
		t.Errorf("bound version %v", output.Version())
	}

	var state outputState
	output.Listener = &state
	if err := client.RoundTrip(time.Second); err != nil {
		t.Fatalf("round trip: %v", err)
	}

	want := outputState{name: "HDMI-A-1", width: 2560, height: 1440, scale: 2, done: 1}
	if state != want {
		t.Errorf("got %+v, expected %+v", state, want)
	}
}

type releaseCounter int

func (c *releaseCounter) Release() { *c++ }

func TestEventsForDestroyedObjectsAreDropped(t *testing.T) {
	comp, client := connect(t, wltest.Config{})
	compositor, wlshm := bindAll(t, client)

	pool, err := shm.NewPool(64 * 64 * 4)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	defer pool.Close()

	surface := compositor.CreateSurface()
	wlpool := wlshm.CreatePool(pool.File(), int32(pool.Cap()))
	buf := wlpool.CreateBuffer(0, 64, 64, 256, wl.ShmFormatArgb8888)
	var released releaseCounter
	buf.Listener = &released

	surface.Attach(buf, 0, 0)
	surface.Commit()
	if err := client.RoundTrip(time.Second); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	live := client.Objects()

	comp.Release(buf.ID())
	buf.Destroy()
	if client.Objects() != live-1 {
		t.Errorf("%v objects after destroy, expected %v", client.Objects(), live-1)
	}

	if err := client.RoundTrip(time.Second); err != nil {
		t.Fatalf("round trip after destroy: %v", err)
	}
	if released != 0 {
		t.Errorf("release delivered %v times to a destroyed buffer", released)
	}
	for _, err := range comp.Errors() {
		t.Errorf("compositor: %v", err)
	}
}

func TestBufferRelease(t *testing.T) {
	comp, client := connect(t, wltest.Config{})
	compositor, wlshm := bindAll(t, client)

	pool, err := shm.NewPool(16 * 16 * 4)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	defer pool.Close()

	surface := compositor.CreateSurface()
	wlpool := wlshm.CreatePool(pool.File(), int32(pool.Cap()))
	buf := wlpool.CreateBuffer(0, 16, 16, 64, wl.ShmFormatArgb8888)
	var released releaseCounter
	buf.Listener = &released

	surface.Attach(buf, 0, 0)
	surface.Damage(0, 0, 16, 16)
	surface.Commit()
	if err := client.RoundTrip(time.Second); err != nil {
		t.Fatalf("round trip: %v", err)
	}

	comp.Release(buf.ID())
	if err := client.RoundTrip(time.Second); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if released != 1 {
		t.Errorf("released %v times", released)
	}
}

func TestProtocolError(t *testing.T) {
	comp, client := connect(t, wltest.Config{})
	if err := client.RoundTrip(time.Second); err != nil {
		t.Fatalf("round trip: %v", err)
	}

	comp.SendError(1, 2, "out of memory")

	_, err := client.Dispatch(time.Second)
	var perr *wl.ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if (perr.ObjectID != 1) || (perr.Object != "wl_display@1") || (perr.Code != 2) {
		t.Errorf("error %+v", perr)
	}

	_, err = client.Dispatch(0)
	if err != perr {
		t.Errorf("error is not sticky: %v", err)
	}
}

func TestConnectionLost(t *testing.T) {
	comp, client := connect(t, wltest.Config{})
	comp.Disconnect()

	err := client.RoundTrip(time.Second)
	var lerr *wl.ConnectionLostError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected ConnectionLostError, got %v", err)
	}
	if !errors.Is(client.Err(), err) {
		t.Errorf("Err returned %v", client.Err())
	}
}

func TestDispatchTimeout(t *testing.T) {
	_, client := connect(t, wltest.Config{})

	start := time.Now()
	n, err := client.Dispatch(20 * time.Millisecond)
	if (n != 0) || (err != nil) {
		t.Fatalf("dispatch: %v, %v", n, err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("dispatch returned early")
	}
}

func TestClose(t *testing.T) {
	_, client := connect(t, wltest.Config{})
	client.Close()

	_, err := client.Dispatch(-1)
	if !errors.Is(err, wl.ErrClosed) {
		t.Fatalf("dispatch after close: %v", err)
	}
}
