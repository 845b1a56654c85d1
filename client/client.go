// Package wl implements the client side of the core Wayland protocol.
//
// A Client owns the connection to the compositor. A background
// goroutine reads and frames incoming messages, but every object is
// only ever touched by the goroutine that calls Dispatch, so protocol
// state needs no locking.
package wl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"deedles.dev/wlbg/internal/cq"
	"deedles.dev/wlbg/internal/debug"
	"deedles.dev/wlbg/internal/objstore"
	"deedles.dev/wlbg/wire"
)

// ErrClosed is returned by Dispatch after Close has been called.
var ErrClosed = errors.New("client closed")

// ErrRoundTripTimeout is returned by RoundTrip when the compositor
// doesn't answer in time.
var ErrRoundTripTimeout = errors.New("round trip timed out")

type inbound struct {
	msg *wire.MessageBuffer
	err error
}

type Client struct {
	done  chan struct{}
	close sync.Once

	conn    *wire.Conn
	store   *objstore.Store
	display *Display
	in      *cq.Queue[inbound]
	out     []*wire.MessageBuilder
	err     error
}

// Dial connects to the compositor specified by the environment.
func Dial() (*Client, error) {
	c, err := wire.Dial()
	if err != nil {
		return nil, err
	}

	return NewClient(c), nil
}

// NewClient creates a client that communicates over conn. The client
// takes ownership of conn.
func NewClient(conn *wire.Conn) *Client {
	client := Client{
		done:  make(chan struct{}),
		conn:  conn,
		store: objstore.New(1),
		in:    cq.New[inbound](),
	}
	client.display = &Display{Proxy: NewProxy(&client, DisplayInterface, DisplayVersion)}
	client.Add(client.display)

	go client.listen()

	return &client
}

func (client *Client) listen() {
	for {
		msg, err := client.conn.ReadMessage()
		if !client.in.Add(inbound{msg: msg, err: err}) || (err != nil) {
			return
		}
	}
}

// Display returns the wl_display singleton.
func (client *Client) Display() *Display {
	return client.display
}

// Close closes the connection. Requests that have not been flushed are
// discarded.
func (client *Client) Close() error {
	client.close.Do(func() { close(client.done) })
	client.in.Stop()
	for _, msg := range client.out {
		msg.Close()
	}
	client.out = nil
	return client.conn.Close()
}

// Add registers obj, assigning it a new ID.
func (client *Client) Add(obj wire.Object) {
	client.store.Add(obj)
}

// Get returns the live object with the given ID, or nil.
func (client *Client) Get(id uint32) wire.Object {
	return client.store.Get(id)
}

// Remove forgets obj and calls its Delete method. It is used after
// sending a destructor request. Events that are already in flight for
// obj are discarded when they arrive.
func (client *Client) Remove(obj wire.Object) {
	if client.store.Get(obj.ID()) == obj {
		client.store.Delete(obj.ID())
	}
}

// Objects returns the number of live objects, including the display.
func (client *Client) Objects() int {
	return client.store.Len()
}

// Enqueue queues msg to be sent on the next flush. Requests are always
// sent in the order that they were enqueued.
func (client *Client) Enqueue(msg *wire.MessageBuilder) {
	client.out = append(client.out, msg)
}

// Flush sends every queued request. A failure to write is fatal for
// the connection.
func (client *Client) Flush() error {
	if client.err != nil {
		return client.err
	}
	select {
	case <-client.done:
		return ErrClosed
	default:
	}

	for len(client.out) > 0 {
		msg := client.out[0]
		client.out = client.out[1:]

		debug.Printf(" -> %v", msg)
		err := msg.Build(client.conn)
		if err != nil {
			return client.fail(fmt.Errorf("send %v: %w", msg, err))
		}
	}
	client.out = nil
	return nil
}

// Dispatch flushes queued requests and then waits up to timeout for
// events to arrive. A negative timeout waits forever. Every event
// received so far is dispatched in order, newly queued requests are
// flushed, and the number of events processed is returned. It returns
// zero and no error if the timeout elapsed first.
//
// Once Dispatch returns a *ConnectionLostError or a *ProtocolError, the
// connection is unusable and every further call returns the same
// error.
func (client *Client) Dispatch(timeout time.Duration) (int, error) {
	var expire <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expire = timer.C
	}

	return client.wait(nil, expire)
}

// DispatchContext is like Dispatch but waits until ctx is done instead
// of for a fixed time, in which case it returns ctx.Err().
func (client *Client) DispatchContext(ctx context.Context) (int, error) {
	return client.wait(ctx, nil)
}

func (client *Client) wait(ctx context.Context, expire <-chan time.Time) (int, error) {
	err := client.Flush()
	if err != nil {
		return 0, err
	}

	var cancel <-chan struct{}
	if ctx != nil {
		cancel = ctx.Done()
	}

	select {
	case <-client.done:
		return 0, ErrClosed

	case <-cancel:
		return 0, ctx.Err()

	case <-expire:
		return 0, nil

	case batch := <-client.in.Get():
		n, err := client.process(batch)
		if err != nil {
			return n, err
		}
		return n, client.Flush()
	}
}

func (client *Client) process(batch []inbound) (n int, err error) {
	for _, ev := range batch {
		if ev.err != nil {
			return n, client.fail(ev.err)
		}

		err := client.dispatch(ev.msg)
		n++
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (client *Client) dispatch(msg *wire.MessageBuffer) error {
	obj := client.store.Get(msg.Sender())
	if obj == nil {
		debug.Printf("discarded event %v for unknown object %v", msg.Op(), msg.Sender())
		return nil
	}

	err := obj.Dispatch(msg)
	if debug.Enabled() {
		debug.Printf("%v", msg.Debug(obj))
	}
	if client.err != nil {
		return client.err
	}
	if err != nil {
		return client.fail(fmt.Errorf("dispatch %v event %v: %w", obj, msg.Op(), err))
	}
	return nil
}

func (client *Client) fail(err error) error {
	if client.err != nil {
		return client.err
	}

	var perr *ProtocolError
	if !errors.As(err, &perr) {
		err = &ConnectionLostError{Err: err}
	}
	client.err = err
	return err
}

// Err returns the fatal error that ended the connection, if any.
func (client *Client) Err() error {
	return client.err
}

// RoundTrip sends a wl_display.sync request and dispatches events
// until the compositor answers it, which guarantees that every request
// sent before it has been processed. A negative timeout waits forever.
func (client *Client) RoundTrip(timeout time.Duration) error {
	var done bool
	client.display.Sync().Then(func(uint32) { done = true })

	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	for !done {
		wait := time.Duration(-1)
		if timeout >= 0 {
			wait = time.Until(deadline)
			if wait <= 0 {
				return ErrRoundTripTimeout
			}
		}

		_, err := client.Dispatch(wait)
		if err != nil {
			return err
		}
	}
	return nil
}
