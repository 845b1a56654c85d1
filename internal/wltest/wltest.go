// Package wltest provides a scripted, in-process compositor for
// testing Wayland clients. It speaks the real wire protocol over a
// socketpair, maps the client's shared memory, and records every
// request so that tests can check exactly what a compositor would see.
//
// It implements just enough of wl_compositor, wl_shm, wl_output and
// zwlr_layer_shell_v1 to host background surfaces.
package wltest

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"testing"

	"golang.org/x/sys/unix"

	"deedles.dev/wlbg/internal/set"
	"deedles.dev/wlbg/shm"
	"deedles.dev/wlbg/wire"
)

// Config controls the behavior of a Compositor.
type Config struct {
	// Outputs are advertised as soon as the client asks for the
	// registry.
	Outputs []Output

	// Versions overrides the advertised versions of globals, by
	// interface. A version of zero removes the global entirely.
	Versions map[string]uint32

	// ManualConfigure disables the configure event that normally
	// answers the initial commit of a layer surface.
	ManualConfigure bool

	// ConfigureWidth and ConfigureHeight are sent in automatic
	// configure events.
	ConfigureWidth, ConfigureHeight uint32

	// ReleaseOnReplace releases a buffer as soon as a later commit
	// replaces it, as most compositors do.
	ReleaseOnReplace bool
}

// Output describes a monitor.
type Output struct {
	Name        string
	Description string
	Width       int32
	Height      int32
	Refresh     int32
	Scale       int32
}

var defaultVersions = map[string]uint32{
	"wl_compositor":       6,
	"wl_shm":              2,
	"zwlr_layer_shell_v1": 4,
	"wl_output":           4,
}

// Request is a request received from the client. Object arguments and
// plain new_id arguments are recorded as uint32 IDs.
type Request struct {
	Object    uint32
	Interface string
	Method    string
	Args      []any
}

func (r Request) String() string {
	return fmt.Sprintf("%v@%v.%v%v", r.Interface, r.Object, r.Method, r.Args)
}

// Surface is a snapshot of a wl_surface.
type Surface struct {
	ID        uint32
	Role      uint32
	Buffer    uint32
	Commits   int
	Scale     int32
	Input     uint32
	InputSet  bool
	Destroyed bool

	pending    uint32
	hasPending bool
}

// LayerSurface is a snapshot of a zwlr_layer_surface_v1.
type LayerSurface struct {
	ID        uint32
	Surface   uint32
	Output    uint32 // global name, zero if the client left it to the compositor
	Layer     uint32
	Namespace string

	Width, Height         uint32
	Anchor                uint32
	ExclusiveZone         int32
	KeyboardInteractivity uint32

	Serials   []uint32
	Acked     uint32
	Closed    bool
	Destroyed bool

	initialCommit bool
}

// Pool is a snapshot of a wl_shm_pool.
type Pool struct {
	ID        uint32
	Size      int32
	Destroyed bool

	file *os.File
	mmap shm.Mmap
}

// Buffer is a snapshot of a wl_buffer.
type Buffer struct {
	ID             uint32
	Pool           uint32
	Offset, Stride int32
	Width, Height  int32
	Format         uint32
	Commits        int
	Held           bool
	Destroyed      bool

	snapshot []byte
}

type global struct {
	name    uint32
	inter   string
	version uint32
	output  *Output
}

type object struct {
	id        uint32
	inter     string
	version   uint32
	global    uint32
	destroyed bool
}

func (obj *object) ID() uint32                         { return obj.id }
func (obj *object) SetID(id uint32)                    { obj.id = id }
func (obj *object) Delete()                            {}
func (obj *object) Dispatch(*wire.MessageBuffer) error { return nil }
func (obj *object) MethodName(op uint16) string        { return fmt.Sprintf("event%v", op) }
func (obj *object) String() string                     { return fmt.Sprintf("%v@%v", obj.inter, obj.id) }

// Compositor is a fake Wayland compositor serving a single client.
type Compositor struct {
	cfg  Config
	conn *wire.Conn
	done chan struct{}

	m             sync.Mutex
	serial        uint32
	nextName      uint32
	globals       map[uint32]*global
	objects       map[uint32]*object
	registries    set.IDs
	requests      []Request
	surfaces      map[uint32]*Surface
	layerSurfaces map[uint32]*LayerSurface
	pools         map[uint32]*Pool
	buffers       map[uint32]*Buffer
	errs          []error
}

// Start starts a compositor for the duration of the test and returns
// it along with the client's end of the connection.
func Start(t testing.TB, cfg Config) (*Compositor, *wire.Conn) {
	t.Helper()

	server, client, err := wire.Socketpair()
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}

	c := New(server, cfg)
	t.Cleanup(func() {
		c.Close()
		client.Close()
	})
	return c, client
}

// New starts a compositor that serves the client on the other end of
// conn.
func New(conn *wire.Conn, cfg Config) *Compositor {
	c := Compositor{
		cfg:           cfg,
		conn:          conn,
		done:          make(chan struct{}),
		nextName:      1,
		globals:       make(map[uint32]*global),
		objects:       make(map[uint32]*object),
		registries:    make(set.IDs),
		surfaces:      make(map[uint32]*Surface),
		layerSurfaces: make(map[uint32]*LayerSurface),
		pools:         make(map[uint32]*Pool),
		buffers:       make(map[uint32]*Buffer),
	}
	c.objects[1] = &object{id: 1, inter: "wl_display", version: 1}

	for _, inter := range []string{"wl_compositor", "wl_shm", "zwlr_layer_shell_v1"} {
		c.addGlobal(inter, nil)
	}
	for _, out := range cfg.Outputs {
		c.addGlobal("wl_output", &out)
	}

	go c.serve()

	return &c
}

func (c *Compositor) version(inter string) uint32 {
	if v, ok := c.cfg.Versions[inter]; ok {
		return v
	}
	return defaultVersions[inter]
}

func (c *Compositor) addGlobal(inter string, out *Output) *global {
	version := c.version(inter)
	if version == 0 {
		return nil
	}

	g := global{name: c.nextName, inter: inter, version: version, output: out}
	c.nextName++
	c.globals[g.name] = &g
	return &g
}

func (c *Compositor) serve() {
	defer close(c.done)

	for {
		msg, err := c.conn.ReadMessage()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.m.Lock()
				c.errs = append(c.errs, err)
				c.m.Unlock()
			}
			return
		}

		c.m.Lock()
		err = c.handle(msg)
		if err != nil {
			c.errs = append(c.errs, err)
			c.m.Unlock()
			c.conn.Close()
			return
		}
		c.m.Unlock()
	}
}

// Close disconnects the client and releases every mapping the
// compositor holds.
func (c *Compositor) Close() error {
	err := c.conn.Close()
	<-c.done

	c.m.Lock()
	defer c.m.Unlock()

	for _, pool := range c.pools {
		pool.mmap.Unmap()
		pool.mmap = nil
		pool.file.Close()
	}
	return err
}

// Disconnect closes the connection as though the compositor had
// crashed.
func (c *Compositor) Disconnect() {
	c.conn.Close()
	<-c.done
}

func (c *Compositor) send(sender wire.Object, op uint16, name string, args ...any) {
	err := wire.NewRequest(sender, op, name, args...).Build(c.conn)
	if err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, unix.EPIPE) {
		c.errs = append(c.errs, fmt.Errorf("send %v.%v: %w", sender, name, err))
	}
}

func (c *Compositor) nextSerial() uint32 {
	c.serial++
	return c.serial
}

func (c *Compositor) protocolError(id, code uint32, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	c.send(c.objects[1], displayError, "error", id, code, msg)
	return fmt.Errorf("protocol error on object %v, code %v: %v", id, code, msg)
}

func (c *Compositor) deleteID(obj *object) {
	obj.destroyed = true
	c.send(c.objects[1], displayDeleteID, "delete_id", obj.id)
}

func (c *Compositor) decode(obj *object, name, sig string, msg *wire.MessageBuffer) ([]any, error) {
	args := make([]any, 0, len(sig))
	for _, t := range sig {
		switch t {
		case 'i':
			args = append(args, msg.ReadInt())
		case 'u', 'o':
			args = append(args, msg.ReadUint())
		case 'f':
			args = append(args, msg.ReadFixed())
		case 's':
			args = append(args, msg.ReadString())
		case 'a':
			args = append(args, msg.ReadArray())
		case 'h':
			args = append(args, msg.ReadFile())

		case 'n':
			id := msg.ReadUint()
			inter := creates[obj.inter+"."+name]
			version := obj.version
			if inter != "wl_surface" && inter != "zwlr_layer_surface_v1" {
				version = 1
			}
			err := c.create(id, inter, version)
			if err != nil {
				return nil, err
			}
			args = append(args, id)

		case 'N':
			nid := msg.ReadNewID()
			err := c.create(nid.ID, nid.Interface, nid.Version)
			if err != nil {
				return nil, err
			}
			args = append(args, nid)
		}
	}

	if err := msg.Err(); err != nil {
		return nil, fmt.Errorf("decode %v.%v: %w", obj, name, err)
	}
	return args, nil
}

func (c *Compositor) create(id uint32, inter string, version uint32) error {
	if old, ok := c.objects[id]; ok && !old.destroyed {
		return c.protocolError(1, 0, "object ID %v is already in use by %v", id, old)
	}
	c.objects[id] = &object{id: id, inter: inter, version: version}
	return nil
}

func (c *Compositor) handle(msg *wire.MessageBuffer) error {
	obj, ok := c.objects[msg.Sender()]
	if !ok || obj.destroyed {
		return c.protocolError(1, 0, "request to unknown object %v", msg.Sender())
	}

	sigs := requests[obj.inter]
	if int(msg.Op()) >= len(sigs) {
		return c.protocolError(obj.id, 1, "invalid opcode %v for %v", msg.Op(), obj.inter)
	}
	req := sigs[msg.Op()]

	args, err := c.decode(obj, req.name, req.sig, msg)
	if err != nil {
		return err
	}
	c.requests = append(c.requests, Request{Object: obj.id, Interface: obj.inter, Method: req.name, Args: args})

	return c.handleRequest(obj, req.name, args)
}
