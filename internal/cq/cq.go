// Package cq implements a simple concurrent queue that batches
// values from producers until a consumer asks for them.
package cq

import "sync"

type Queue[T any] struct {
	done  chan struct{}
	close sync.Once

	add chan T
	get chan []T
}

func New[T any]() *Queue[T] {
	q := Queue[T]{
		done: make(chan struct{}),
		add:  make(chan T),
		get:  make(chan []T),
	}
	go q.run()

	return &q
}

// Stop stops the queue. Values that were added but not yet retrieved
// are dropped.
func (q *Queue[T]) Stop() {
	q.close.Do(func() {
		close(q.done)
	})
}

// Done returns a channel that is closed when the queue is stopped.
func (q *Queue[T]) Done() <-chan struct{} {
	return q.done
}

// Add adds v to the queue. It returns false without adding anything if
// the queue has been stopped.
func (q *Queue[T]) Add(v T) bool {
	select {
	case <-q.done:
		return false
	case q.add <- v:
		return true
	}
}

// Get returns a channel that yields every value added since the last
// receive, in order. It never yields an empty batch.
func (q *Queue[T]) Get() <-chan []T {
	return q.get
}

func (q *Queue[T]) run() {
	var s []T
	var get chan []T

	for {
		select {
		case <-q.done:
			return

		case v := <-q.add:
			s = append(s, v)
			get = q.get

		case get <- s:
			s = nil
			get = nil
		}
	}
}
