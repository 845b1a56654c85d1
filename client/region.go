package wl

import "deedles.dev/wlbg/wire"

const RegionInterface = "wl_region"

// Region is a set of rectangles in surface-local coordinates.
type Region struct {
	Proxy
}

func (region *Region) Delete() {}

func (region *Region) MethodName(op uint16) string {
	return "unknown"
}

func (region *Region) Dispatch(msg *wire.MessageBuffer) error {
	return wire.UnknownOpError{Interface: region.inter, Type: "event", Op: msg.Op()}
}

func (region *Region) Destroy() {
	region.client.Enqueue(wire.NewRequest(region, 0, "destroy"))
	region.client.Remove(region)
}

func (region *Region) Add(x, y, width, height int32) {
	region.client.Enqueue(wire.NewRequest(region, 1, "add", x, y, width, height))
}

func (region *Region) Subtract(x, y, width, height int32) {
	region.client.Enqueue(wire.NewRequest(region, 2, "subtract", x, y, width, height))
}
