// Copyright 2024-2026 Aiku AI

package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/aiku/hookrelay/pkg/events"
)

// ErrClosed is returned by Push after Close.
var ErrClosed = errors.New("queue closed")

// Queue is an unbounded FIFO of events. Push is safe from any number of
// goroutines; Pop is meant for a single consumer.
type Queue struct {
	mu     sync.Mutex
	items  []events.Event
	closed bool

	notify chan struct{}
	done   chan struct{}
}

// NewQueue returns an empty open queue.
func NewQueue() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push appends evt. It never blocks.
func (q *Queue) Push(evt events.Event) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, evt)
	depth := len(q.items)
	q.mu.Unlock()

	queueDepth.Set(float64(depth))
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Close stops accepting new events. Events already queued can still be
// popped.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pop blocks until an event is available and returns it. It returns false
// once the queue is closed and drained, or when ctx is done.
func (q *Queue) Pop(ctx context.Context) (events.Event, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			evt := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			depth := len(q.items)
			q.mu.Unlock()
			queueDepth.Set(float64(depth))
			return evt, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, false
		}

		select {
		case <-q.notify:
		case <-q.done:
		case <-ctx.Done():
			return nil, false
		}
	}
}
