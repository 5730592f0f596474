package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-realtime-hub/internal/infrastructure/logger"
)

const defaultWriteTimeout = 10 * time.Second

// Options configures per-connection delivery behavior.
type Options struct {
	// QueueCapacity bounds each connection's delivery queue.
	QueueCapacity int
	// Overflow selects the policy applied when a queue is full.
	Overflow OverflowPolicy
	// WriteTimeout bounds a single transport write by the delivery worker.
	WriteTimeout time.Duration
}

// DefaultOptions mirrors the service defaults: a 256-event queue with
// drop-oldest, so a lagging subscriber always sees the most recent events.
func DefaultOptions() Options {
	return Options{
		QueueCapacity: 256,
		Overflow:      DropOldest,
		WriteTimeout:  defaultWriteTimeout,
	}
}

// Hub is the composition root: it owns the channel registry, the live
// connection set, and one delivery worker per connection. The transport
// layer registers connections and forwards client subscribe/unsubscribe/
// publish requests; the hub never touches transport framing.
type Hub struct {
	opts     Options
	registry *Registry

	connections   map[string]*Connection
	connectionsMu sync.RWMutex

	dispatcher *Dispatcher

	running   bool
	runningMu sync.RWMutex

	workers sync.WaitGroup

	logger logger.Logger
}

// New creates a Hub. Call Start before registering connections.
func New(log logger.Logger, opts Options) *Hub {
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = DefaultOptions().QueueCapacity
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}

	h := &Hub{
		opts:        opts,
		registry:    NewRegistry(),
		connections: make(map[string]*Connection),
		logger:      log.WithField("component", "hub"),
	}
	h.dispatcher = newDispatcher(h.registry, h.connection, log)
	return h
}

// Start marks the hub as accepting connections and publishes.
func (h *Hub) Start(ctx context.Context) error {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()

	if h.running {
		return fmt.Errorf("hub is already running")
	}
	h.running = true

	h.logger.Infof(
		"hub started (queue capacity %d, overflow %s)",
		h.opts.QueueCapacity, h.opts.Overflow,
	)
	return nil
}

// Stop gracefully shuts the hub down: every connection is drained, then
// closed, and all delivery workers are waited for. Pending queued events are
// still written out unless ctx expires first.
func (h *Hub) Stop(ctx context.Context) error {
	h.runningMu.Lock()
	if !h.running {
		h.runningMu.Unlock()
		return nil
	}
	h.running = false
	h.runningMu.Unlock()

	h.connectionsMu.Lock()
	conns := make([]*Connection, 0, len(h.connections))
	for _, conn := range h.connections {
		conns = append(conns, conn)
	}
	h.connections = make(map[string]*Connection)
	h.connectionsMu.Unlock()

	for _, conn := range conns {
		conn.drain()
	}
	for _, conn := range conns {
		conn.Close()
		h.registry.RemoveConnection(conn.ID())
	}

	done := make(chan struct{})
	go func() {
		h.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for delivery workers: %w", ctx.Err())
	}

	h.registry.Clear()
	h.logger.Info("hub stopped")
	return nil
}

// IsRunning returns true between Start and Stop.
func (h *Hub) IsRunning() bool {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	return h.running
}

// RegisterConnection creates a Connection for the given transport, starts its
// delivery worker, and returns the assigned connection ID.
func (h *Hub) RegisterConnection(transport Transport) (string, error) {
	if !h.IsRunning() {
		return "", fmt.Errorf("hub is not running")
	}

	conn := newConnection(uuid.NewString(), h.opts.QueueCapacity, h.opts.Overflow)
	conn.activate()

	h.connectionsMu.Lock()
	h.connections[conn.ID()] = conn
	h.connectionsMu.Unlock()

	h.workers.Add(1)
	go h.deliveryLoop(conn, transport)

	h.logger.Infof("connection %s registered", conn.ID())
	return conn.ID(), nil
}

// UnregisterConnection closes a connection and removes it from every channel.
// It is idempotent and safe to call from both the transport-error path and
// explicit disconnect handling.
func (h *Hub) UnregisterConnection(connID string) {
	h.connectionsMu.Lock()
	conn, exists := h.connections[connID]
	if exists {
		delete(h.connections, connID)
	}
	h.connectionsMu.Unlock()

	if !exists {
		return
	}

	conn.Close()
	h.registry.RemoveConnection(connID)
	h.logger.Infof("connection %s unregistered", connID)
}

// Subscribe adds a connection to a channel, creating the channel on first
// use. Subscribing an unknown (already closed) connection is a no-op. The
// connections lock is held across the existence check and the registry
// update so a concurrent UnregisterConnection cannot slip its registry
// cleanup in between and leave a ghost subscriber keeping the channel alive.
func (h *Hub) Subscribe(connID, channel string) {
	h.connectionsMu.RLock()
	defer h.connectionsMu.RUnlock()

	if _, ok := h.connections[connID]; !ok {
		return
	}
	h.registry.Subscribe(connID, channel)
	h.logger.Debugf("connection %s subscribed to %s", connID, channel)
}

// Unsubscribe removes a connection from a channel.
func (h *Hub) Unsubscribe(connID, channel string) {
	h.registry.Unsubscribe(connID, channel)
	h.logger.Debugf("connection %s unsubscribed from %s", connID, channel)
}

// Publish fans a payload out to every subscriber of a channel and returns the
// assigned sequence number. Publishing to a channel with no subscribers still
// advances the sequence and succeeds.
func (h *Hub) Publish(channel string, payload json.RawMessage) (uint64, error) {
	if !h.IsRunning() {
		return 0, fmt.Errorf("hub is not running")
	}
	return h.dispatcher.Publish(channel, payload), nil
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.connectionsMu.RLock()
	defer h.connectionsMu.RUnlock()
	return len(h.connections)
}

// ChannelCount returns the number of channels with at least one subscriber.
func (h *Hub) ChannelCount() int {
	return h.registry.ChannelCount()
}

// HasChannel reports whether a channel currently exists.
func (h *Hub) HasChannel(channel string) bool {
	return h.registry.HasChannel(channel)
}

// Stats is a point-in-time diagnostics snapshot.
type Stats struct {
	Connections int    `json:"connections"`
	Channels    int    `json:"channels"`
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
}

// GetStats returns hub-wide counters for the diagnostics API.
func (h *Hub) GetStats() Stats {
	return Stats{
		Connections: h.ConnectionCount(),
		Channels:    h.registry.ChannelCount(),
		Published:   h.dispatcher.Published(),
		Dropped:     h.dispatcher.DroppedTotal(),
	}
}

// ConnectionInfo describes one live connection for the diagnostics API.
type ConnectionInfo struct {
	ID       string   `json:"id"`
	State    string   `json:"state"`
	Queued   int      `json:"queued"`
	Dropped  uint64   `json:"dropped"`
	Channels []string `json:"channels"`
}

// Connections returns a snapshot of all live connections.
func (h *Hub) Connections() []ConnectionInfo {
	h.connectionsMu.RLock()
	conns := make([]*Connection, 0, len(h.connections))
	for _, conn := range h.connections {
		conns = append(conns, conn)
	}
	h.connectionsMu.RUnlock()

	infos := make([]ConnectionInfo, 0, len(conns))
	for _, conn := range conns {
		infos = append(infos, ConnectionInfo{
			ID:       conn.ID(),
			State:    conn.State().String(),
			Queued:   conn.queueLen(),
			Dropped:  conn.Dropped(),
			Channels: h.registry.ChannelsOf(conn.ID()),
		})
	}
	return infos
}

func (h *Hub) connection(connID string) (*Connection, bool) {
	h.connectionsMu.RLock()
	defer h.connectionsMu.RUnlock()
	conn, ok := h.connections[connID]
	return conn, ok
}

// deliveryLoop drains one connection's queue and writes events to its
// transport in order. A write failure closes only this connection; other
// subscribers keep draining independently.
func (h *Hub) deliveryLoop(conn *Connection, transport Transport) {
	defer h.workers.Done()
	defer transport.Close()

	for {
		event, ok := conn.NextForDelivery()
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), h.opts.WriteTimeout)
		err := transport.WriteEvent(ctx, event)
		cancel()
		if err != nil {
			h.logger.Warnf(
				"write to connection %s failed, closing: %v", conn.ID(), err,
			)
			h.UnregisterConnection(conn.ID())
			return
		}
	}
}
