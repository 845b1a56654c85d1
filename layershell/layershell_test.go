package layershell_test

import (
	"testing"
	"time"

	wl "deedles.dev/wlbg/client"
	"deedles.dev/wlbg/internal/wltest"
	"deedles.dev/wlbg/layershell"
)

type registry map[string]wl.Global

func (r registry) Global(name uint32, inter string, version uint32) {
	r[inter] = wl.Global{Name: name, Interface: inter, Version: version}
}

func (r registry) GlobalRemove(name uint32) {}

type configures []uint32

func (c *configures) Configure(serial, width, height uint32) {
	*c = append(*c, serial, width, height)
}

func (c *configures) Closed() {}

func TestLayerSurface(t *testing.T) {
	comp, conn := wltest.Start(t, wltest.Config{ConfigureWidth: 320, ConfigureHeight: 200})
	client := wl.NewClient(conn)
	defer client.Close()

	globals := make(registry)
	reg := client.Display().GetRegistry()
	reg.Listener = globals
	if err := client.RoundTrip(time.Second); err != nil {
		t.Fatalf("round trip: %v", err)
	}

	g := globals[layershell.Interface]
	shell := layershell.Bind(client, reg, g.Name, g.Version)
	if shell.Version() != layershell.Version {
		t.Errorf("bound version %v", shell.Version())
	}
	cg := globals[wl.CompositorInterface]
	compositor := wl.BindCompositor(client, reg, cg.Name, cg.Version)

	surface := compositor.CreateSurface()
	ls := shell.GetLayerSurface(surface, nil, layershell.LayerBottom, "panel")
	var events configures
	ls.Listener = &events
	ls.SetAnchor(layershell.AnchorTop | layershell.AnchorLeft | layershell.AnchorRight)
	ls.SetSize(0, 200)
	ls.SetMargin(1, 2, 3, 4)
	ls.SetLayer(layershell.LayerTop)
	surface.Commit()

	if err := client.RoundTrip(time.Second); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if (len(events) != 3) || (events[1] != 320) || (events[2] != 200) {
		t.Fatalf("configure events %v", events)
	}
	ls.AckConfigure(events[0])
	ls.Destroy()
	shell.Destroy()
	if err := client.RoundTrip(time.Second); err != nil {
		t.Fatalf("round trip: %v", err)
	}

	got := comp.LayerSurfaces()
	if len(got) != 1 {
		t.Fatalf("%v layer surfaces", len(got))
	}
	l := got[0]
	if (l.Output != 0) || (l.Layer != uint32(layershell.LayerTop)) || (l.Namespace != "panel") {
		t.Errorf("layer surface %+v", l)
	}
	if (l.Acked != events[0]) || !l.Destroyed {
		t.Errorf("acked %v, destroyed %v", l.Acked, l.Destroyed)
	}
	if n := comp.Count(layershell.Interface, "destroy"); n != 1 {
		t.Errorf("%v shell destroys", n)
	}
	for _, err := range comp.Errors() {
		t.Errorf("compositor: %v", err)
	}
}
