package hub

import (
	"sync"
	"sync/atomic"
)

// ConnState tracks the lifecycle of a connection.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateActive
	StateDraining
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// OverflowPolicy selects what happens when a connection's delivery queue is full.
type OverflowPolicy int

const (
	// DropOldest evicts the head of the queue to admit the incoming event.
	DropOldest OverflowPolicy = iota
	// DropNewest rejects the incoming event and keeps the queue as-is.
	DropNewest
)

func (p OverflowPolicy) String() string {
	if p == DropNewest {
		return "drop_newest"
	}
	return "drop_oldest"
}

// EnqueueResult reports whether an enqueue admitted the event without loss.
type EnqueueResult int

const (
	// EnqueueAccepted means the event was queued and nothing was evicted.
	EnqueueAccepted EnqueueResult = iota
	// EnqueueDropped means an event was lost: either the incoming one
	// (drop-newest) or the queue head (drop-oldest).
	EnqueueDropped
)

// Connection is one live client. It owns a bounded FIFO delivery queue:
// the dispatcher enqueues, the connection's delivery worker dequeues, and
// no other component touches the queue.
type Connection struct {
	id string

	mu       sync.Mutex
	notEmpty *sync.Cond
	queue    []*Event
	capacity int
	policy   OverflowPolicy
	state    ConnState

	dropped atomic.Uint64
}

func newConnection(id string, capacity int, policy OverflowPolicy) *Connection {
	if capacity < 1 {
		capacity = 1
	}
	c := &Connection{
		id:       id,
		queue:    make([]*Event, 0, capacity),
		capacity: capacity,
		policy:   policy,
		state:    StateConnecting,
	}
	c.notEmpty = sync.NewCond(&c.mu)
	return c
}

// ID returns the unique connection identifier assigned at registration.
func (c *Connection) ID() string {
	return c.id
}

// State returns the current lifecycle state.
func (c *Connection) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dropped returns how many events this connection has lost to queue overflow.
func (c *Connection) Dropped() uint64 {
	return c.dropped.Load()
}

func (c *Connection) activate() {
	c.mu.Lock()
	if c.state == StateConnecting {
		c.state = StateActive
	}
	c.mu.Unlock()
}

// Enqueue pushes an event onto the delivery queue without ever blocking the
// caller. On a full queue the configured overflow policy decides which event
// is lost. Enqueueing to a draining or closed connection is a no-op.
func (c *Connection) Enqueue(event *Event) EnqueueResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDraining || c.state == StateClosed {
		return EnqueueDropped
	}

	if len(c.queue) >= c.capacity {
		c.dropped.Add(1)
		if c.policy == DropNewest {
			return EnqueueDropped
		}
		// drop-oldest: evict the head, admit the new event
		copy(c.queue, c.queue[1:])
		c.queue[len(c.queue)-1] = event
		c.notEmpty.Signal()
		return EnqueueDropped
	}

	c.queue = append(c.queue, event)
	c.notEmpty.Signal()
	return EnqueueAccepted
}

// NextForDelivery blocks until an event is available and pops it. It returns
// ok=false once the connection is closed and the queue has drained, which is
// the delivery worker's signal to exit. Only the delivery worker calls this.
func (c *Connection) NextForDelivery() (*Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.queue) == 0 && c.state != StateClosed {
		c.notEmpty.Wait()
	}

	if len(c.queue) == 0 {
		return nil, false
	}

	event := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	return event, true
}

// drain stops intake so the queue can only shrink. Used during shutdown
// before the final Close.
func (c *Connection) drain() {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateActive {
		c.state = StateDraining
	}
	c.mu.Unlock()
}

// Close transitions the connection to closed and wakes a blocked
// NextForDelivery. It is idempotent and safe to call concurrently from the
// transport-error path, forced eviction, and shutdown. Already-queued events
// are still handed to the delivery worker before it exits.
func (c *Connection) Close() {
	c.mu.Lock()
	if c.state != StateClosed {
		c.state = StateClosed
		c.notEmpty.Broadcast()
	}
	c.mu.Unlock()
}

// IsClosed returns true once Close has been called.
func (c *Connection) IsClosed() bool {
	return c.State() == StateClosed
}

// queueLen is used by diagnostics endpoints.
func (c *Connection) queueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
