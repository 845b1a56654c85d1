package wl

import "deedles.dev/wlbg/wire"

const ShmPoolInterface = "wl_shm_pool"

type ShmPool struct {
	Proxy
}

func (pool *ShmPool) Delete() {}

func (pool *ShmPool) MethodName(op uint16) string {
	return "unknown"
}

func (pool *ShmPool) Dispatch(msg *wire.MessageBuffer) error {
	return wire.UnknownOpError{Interface: pool.inter, Type: "event", Op: msg.Op()}
}

func (pool *ShmPool) CreateBuffer(offset, width, height, stride int32, format ShmFormat) *Buffer {
	buf := Buffer{Proxy: NewProxy(pool.client, BufferInterface, 1)}
	pool.client.Add(&buf)
	pool.client.Enqueue(wire.NewRequest(pool, 0, "create_buffer", &buf, offset, width, height, stride, uint32(format)))
	return &buf
}

// Destroy destroys the pool. Buffers created from it remain valid
// until they are destroyed themselves.
func (pool *ShmPool) Destroy() {
	pool.client.Enqueue(wire.NewRequest(pool, 1, "destroy"))
	pool.client.Remove(pool)
}

// Resize tells the compositor that the backing file has grown to size
// bytes. Pools can never shrink.
func (pool *ShmPool) Resize(size int32) {
	pool.client.Enqueue(wire.NewRequest(pool, 2, "resize", size))
}
