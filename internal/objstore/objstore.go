// Package objstore tracks the live protocol objects of a connection
// by ID.
package objstore

import "deedles.dev/wlbg/wire"

// Store maps object IDs to objects. IDs are allocated sequentially
// starting from the value given to New.
type Store struct {
	objects map[uint32]wire.Object
	nextID  uint32
}

func New(start uint32) *Store {
	return &Store{
		objects: make(map[uint32]wire.Object),
		nextID:  start,
	}
}

// Add adds obj to the store, assigning it a new ID if it doesn't
// already have one.
func (s *Store) Add(obj wire.Object) {
	id := obj.ID()
	if id == 0 {
		id = s.nextID
		obj.SetID(id)
		s.nextID++
	}

	s.objects[id] = obj
}

func (s *Store) Get(id uint32) wire.Object {
	return s.objects[id]
}

// Delete removes the object with the given ID and notifies it. It
// does nothing if there is no such object.
func (s *Store) Delete(id uint32) {
	obj, ok := s.objects[id]
	if !ok {
		return
	}
	delete(s.objects, id)
	obj.Delete()
}

// Len returns the number of live objects.
func (s *Store) Len() int {
	return len(s.objects)
}
