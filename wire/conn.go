package wire

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

// maxFDs is the largest number of file descriptors accepted in a
// single read. It matches libwayland's limit.
const maxFDs = 28

func xdgRuntimeDir() string {
	dir, ok := os.LookupEnv("XDG_RUNTIME_DIR")
	if ok {
		return dir
	}
	return fmt.Sprintf("/var/run/user/%v", os.Getuid())
}

// SocketPath determines the path to the Wayland Unix domain socket
// based on the contents of the $WAYLAND_DISPLAY environment variable.
// It does not attempt to determine if the value corresponds to an
// actual socket.
func SocketPath() string {
	v, ok := os.LookupEnv("WAYLAND_DISPLAY")
	if !ok || (v == "") {
		v = "wayland-0"
	}
	if filepath.IsAbs(v) {
		return v
	}

	return filepath.Join(xdgRuntimeDir(), v)
}

// fdQueue holds received file descriptors until a message claims
// them. The kernel may deliver a message's descriptors together with
// the bytes of earlier messages, so they are handed out in arrival
// order as messages are decoded rather than attached when framing.
type fdQueue struct {
	m   sync.Mutex
	fds []int
}

func (q *fdQueue) push(fds ...int) {
	q.m.Lock()
	defer q.m.Unlock()

	q.fds = append(q.fds, fds...)
}

func (q *fdQueue) pop() (int, bool) {
	q.m.Lock()
	defer q.m.Unlock()

	if len(q.fds) == 0 {
		return -1, false
	}
	fd := q.fds[0]
	q.fds = q.fds[1:]
	return fd, true
}

func (q *fdQueue) close() {
	q.m.Lock()
	defer q.m.Unlock()

	for _, fd := range q.fds {
		unix.Close(fd)
	}
	q.fds = nil
}

// Conn represents a low-level Wayland connection. It frames incoming
// bytes into messages and queues received file descriptors for the
// messages that claim them. It is not generally used directly,
// instead being handled automatically by a Client.
//
// ReadMessage and WriteMessage may be called concurrently with each
// other, but neither may be called concurrently with itself. Messages
// that carry file descriptors must be decoded in the order that they
// were read.
type Conn struct {
	conn *net.UnixConn

	buf  []byte
	fds  fdQueue
	rbuf [4096]byte
	oob  []byte
}

// NewConn creates a new Conn that wraps c. After this is called, use
// the provided Close method to close c instead of calling its own
// Close method.
func NewConn(c *net.UnixConn) *Conn {
	return &Conn{
		conn: c,
		oob:  make([]byte, unix.CmsgSpace(maxFDs*4)),
	}
}

// Dial opens a connection to the Wayland socket based on the current
// environment. It follows the procedure outlined at
// https://wayland-book.com/protocol-design/wire-protocol.html#transports
//
// If no compositor can be reached, the returned error is a
// *TransportUnavailableError.
func Dial() (*Conn, error) {
	if v, ok := os.LookupEnv("WAYLAND_SOCKET"); ok {
		fd, err := strconv.ParseInt(v, 10, 0)
		if err != nil {
			return nil, &TransportUnavailableError{Path: v, Err: fmt.Errorf("parse WAYLAND_SOCKET fd: %w", err)}
		}
		unix.CloseOnExec(int(fd))
		os.Unsetenv("WAYLAND_SOCKET")

		file := os.NewFile(uintptr(fd), "WAYLAND_SOCKET")
		defer file.Close()

		c, err := net.FileConn(file)
		if err != nil {
			return nil, &TransportUnavailableError{Path: v, Err: err}
		}
		uc, ok := c.(*net.UnixConn)
		if !ok {
			c.Close()
			return nil, &TransportUnavailableError{Path: v, Err: errors.New("WAYLAND_SOCKET is not a Unix socket")}
		}
		return NewConn(uc), nil
	}

	path := SocketPath()
	c, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, &TransportUnavailableError{Path: path, Err: err}
	}
	return NewConn(c), nil
}

// Socketpair returns two connected Conns. It is mostly useful for
// testing.
func Socketpair() (*Conn, *Conn, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("socketpair: %w", err)
	}

	conns := make([]*Conn, 0, 2)
	for i, fd := range fds {
		file := os.NewFile(uintptr(fd), "socketpair")
		c, err := net.FileConn(file)
		file.Close()
		if err != nil {
			for _, c := range conns {
				c.Close()
			}
			if i == 0 {
				unix.Close(fds[1])
			}
			return nil, nil, fmt.Errorf("wrap socketpair fd: %w", err)
		}
		conns = append(conns, NewConn(c.(*net.UnixConn)))
	}

	return conns[0], conns[1], nil
}

// Close closes the underlying connection and any file descriptors
// that were received but never claimed by a message.
func (c *Conn) Close() error {
	c.fds.close()
	return c.conn.Close()
}

// ReadMessage blocks until a complete message has been received and
// returns it. File descriptors that arrived with the bytes of the
// message are made available to it. It returns io.EOF if the peer closed the
// connection cleanly.
func (c *Conn) ReadMessage() (*MessageBuffer, error) {
	for {
		msg, err := c.next()
		if (msg != nil) || (err != nil) {
			return msg, err
		}

		err = c.fill()
		if err != nil {
			return nil, err
		}
	}
}

func (c *Conn) next() (*MessageBuffer, error) {
	if len(c.buf) < HeaderSize {
		return nil, nil
	}

	so := byteOrder.Uint32(c.buf[4:8])
	size := int(so >> 16)
	if size < HeaderSize {
		return nil, MessageSizeError{Size: size}
	}
	if len(c.buf) < size {
		return nil, nil
	}

	msg := MessageBuffer{
		sender: byteOrder.Uint32(c.buf[0:4]),
		op:     uint16(so & 0xFFFF),
		size:   uint16(size),
		fds:    &c.fds,
	}
	data := make([]byte, size-HeaderSize)
	copy(data, c.buf[HeaderSize:size])
	msg.data.Reset(data)

	c.buf = append(c.buf[:0], c.buf[size:]...)

	return &msg, nil
}

func (c *Conn) fill() error {
	n, oobn, _, _, err := c.conn.ReadMsgUnix(c.rbuf[:], c.oob)
	if oobn > 0 {
		fds, ferr := parseRights(c.oob[:oobn])
		c.fds.push(fds...)
		if err == nil {
			err = ferr
		}
	}
	c.buf = append(c.buf, c.rbuf[:n]...)
	if err != nil {
		return err
	}
	if n == 0 {
		return io.EOF
	}
	return nil
}

func parseRights(oob []byte) (fds []int, err error) {
	cmsgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fmt.Errorf("parse socket control messages: %w", err)
	}
	for _, cmsg := range cmsgs {
		rights, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			if errors.Is(err, unix.EINVAL) {
				continue
			}
			return fds, fmt.Errorf("parse unix control message: %w", err)
		}
		fds = append(fds, rights...)
	}
	return fds, nil
}

// WriteMessage writes a single, already encoded message and passes
// fds along with it. The fds are not closed.
func (c *Conn) WriteMessage(data []byte, fds []int) error {
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}

	n, _, err := c.conn.WriteMsgUnix(data, oob, nil)
	if err != nil {
		return err
	}
	if n < len(data) {
		return io.ErrShortWrite
	}
	return nil
}
