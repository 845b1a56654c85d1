// Package set provides a set of object IDs.
package set

import "golang.org/x/exp/slices"

// IDs is a set of protocol object IDs.
type IDs map[uint32]struct{}

func (s IDs) Add(id uint32) { s[id] = struct{}{} }

// Sorted returns the IDs in ascending order, so that events broadcast
// to every member go out in creation order.
func (s IDs) Sorted() []uint32 {
	ids := make([]uint32, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
