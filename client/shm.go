package wl

import (
	"os"

	"deedles.dev/wlbg/wire"
)

const (
	ShmInterface = "wl_shm"
	ShmVersion   = 1
)

type ShmFormat uint32

const (
	ShmFormatArgb8888 ShmFormat = 0
	ShmFormatXrgb8888 ShmFormat = 1
)

type ShmListener interface {
	Format(format ShmFormat)
}

type Shm struct {
	Proxy
	Listener ShmListener
}

// BindShm binds the wl_shm global with the given name at the lower of
// version and ShmVersion.
func BindShm(client *Client, registry *Registry, name, version uint32) *Shm {
	shm := Shm{Proxy: NewProxy(client, ShmInterface, min(version, ShmVersion))}
	registry.Bind(name, &shm, ShmInterface, shm.version)
	return &shm
}

func (shm *Shm) Delete() {
	shm.Listener = nil
}

func (shm *Shm) MethodName(op uint16) string {
	if op == 0 {
		return "format"
	}
	return "unknown"
}

func (shm *Shm) Dispatch(msg *wire.MessageBuffer) error {
	if msg.Op() != 0 {
		return wire.UnknownOpError{Interface: shm.inter, Type: "event", Op: msg.Op()}
	}

	format := msg.ReadUint()
	if err := msg.Err(); err != nil {
		return err
	}
	if shm.Listener != nil {
		shm.Listener.Format(ShmFormat(format))
	}
	return nil
}

// CreatePool shares file, which must be at least size bytes long, with
// the compositor. The file is duplicated, so the caller keeps
// ownership of it.
func (shm *Shm) CreatePool(file *os.File, size int32) *ShmPool {
	pool := ShmPool{Proxy: NewProxy(shm.client, ShmPoolInterface, 1)}
	shm.client.Add(&pool)
	shm.client.Enqueue(wire.NewRequest(shm, 0, "create_pool", &pool, file, size))
	return &pool
}
