package hub

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"go-realtime-hub/internal/infrastructure/logger"
)

// connectionLookup resolves a connection ID to its live Connection, if any.
// The hub owns the connection set; the dispatcher only reads through it.
type connectionLookup func(connID string) (*Connection, bool)

// Dispatcher turns publish requests into per-subscriber enqueues. Publishes
// to the same channel are serialized by a per-channel mutex held across
// sequence assignment and the enqueue loop: that is what makes delivery
// order equal publish order for every subscriber. The critical section stays
// short because each enqueue is non-blocking, so a publish returns in time
// proportional to the subscriber count regardless of how slowly any
// subscriber drains. Different channels publish concurrently.
type Dispatcher struct {
	registry *Registry
	lookup   connectionLookup
	logger   logger.Logger

	// channel name -> publish lock; retained alongside the registry's
	// sequence counters, bounded by channel-name cardinality
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	published atomic.Uint64
	dropped   atomic.Uint64
}

func newDispatcher(registry *Registry, lookup connectionLookup, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		lookup:   lookup,
		logger:   log.WithField("component", "dispatcher"),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (d *Dispatcher) channelLock(channel string) *sync.Mutex {
	d.locksMu.Lock()
	defer d.locksMu.Unlock()

	mu, ok := d.locks[channel]
	if !ok {
		mu = &sync.Mutex{}
		d.locks[channel] = mu
	}
	return mu
}

// Publish assigns the channel's next sequence number, wraps the payload into
// an immutable event, and enqueues it onto every current subscriber. A
// subscriber that drops the event never delays or fails delivery to the
// others; drops are counted, not returned as errors. The assigned sequence
// number is returned to the publisher.
func (d *Dispatcher) Publish(channel string, payload json.RawMessage) uint64 {
	mu := d.channelLock(channel)
	mu.Lock()
	defer mu.Unlock()

	seq := d.registry.NextSeq(channel)
	event := newEvent(channel, seq, payload)
	d.published.Add(1)

	for _, connID := range d.registry.SubscribersOf(channel) {
		conn, ok := d.lookup(connID)
		if !ok {
			// closed between snapshot and enqueue; harmless
			continue
		}
		if conn.Enqueue(event) == EnqueueDropped {
			d.dropped.Add(1)
			d.logger.Debugf(
				"dropped event seq=%d on channel %s for connection %s (policy %s)",
				seq, channel, connID, conn.policy,
			)
		}
	}

	return seq
}

// Published returns the total number of publish calls handled.
func (d *Dispatcher) Published() uint64 {
	return d.published.Load()
}

// DroppedTotal returns the total number of per-subscriber drops across all
// connections, including ones that have since closed.
func (d *Dispatcher) DroppedTotal() uint64 {
	return d.dropped.Load()
}
