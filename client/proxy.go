package wl

import "fmt"

// Proxy holds the client-side state common to every protocol object.
// Protocol bindings embed it.
type Proxy struct {
	id      uint32
	inter   string
	version uint32
	client  *Client
}

// NewProxy returns a Proxy for an object of the given interface and
// version that has not yet been added to client.
func NewProxy(client *Client, inter string, version uint32) Proxy {
	return Proxy{
		inter:   inter,
		version: version,
		client:  client,
	}
}

func (p *Proxy) ID() uint32 {
	return p.id
}

func (p *Proxy) SetID(id uint32) {
	p.id = id
}

// Version is the negotiated version of the object.
func (p *Proxy) Version() uint32 {
	return p.version
}

func (p *Proxy) Interface() string {
	return p.inter
}

func (p *Proxy) Client() *Client {
	return p.client
}

func (p *Proxy) String() string {
	return fmt.Sprintf("%v@%v", p.inter, p.id)
}
