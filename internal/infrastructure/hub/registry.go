package hub

import "sync"

// Registry maps channel names to subscriber sets. Channels materialize on
// first subscribe and are deleted again when their last subscriber leaves, so
// memory stays bounded under churn. Sequence counters live in a separate map
// keyed by name: deleting and recreating a channel never resets its sequence,
// which keeps gap detection meaningful across resubscription.
type Registry struct {
	mu sync.RWMutex

	// channel name -> set of connection IDs
	channels map[string]map[string]struct{}
	// connection ID -> set of channel names, for symmetric cleanup
	subscriptions map[string]map[string]struct{}
	// channel name -> last assigned sequence number; survives channel deletion
	seqs map[string]uint64
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		channels:      make(map[string]map[string]struct{}),
		subscriptions: make(map[string]map[string]struct{}),
		seqs:          make(map[string]uint64),
	}
}

// Subscribe adds a connection to a channel, creating the channel if absent.
// Subscribing twice is a no-op.
func (r *Registry) Subscribe(connID, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.channels[channel]
	if !ok {
		subs = make(map[string]struct{})
		r.channels[channel] = subs
	}
	subs[connID] = struct{}{}

	chans, ok := r.subscriptions[connID]
	if !ok {
		chans = make(map[string]struct{})
		r.subscriptions[connID] = chans
	}
	chans[channel] = struct{}{}
}

// Unsubscribe removes a connection from a channel. The channel is deleted on
// the transition to zero subscribers. Unsubscribing from a channel the
// connection never joined is a no-op.
func (r *Registry) Unsubscribe(connID, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribeLocked(connID, channel)
}

func (r *Registry) unsubscribeLocked(connID, channel string) {
	if subs, ok := r.channels[channel]; ok {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(r.channels, channel)
		}
	}
	if chans, ok := r.subscriptions[connID]; ok {
		delete(chans, channel)
		if len(chans) == 0 {
			delete(r.subscriptions, connID)
		}
	}
}

// RemoveConnection removes a connection from every channel it subscribed to,
// deleting channels that become empty. Called once when a connection closes.
func (r *Registry) RemoveConnection(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for channel := range r.subscriptions[connID] {
		if subs, ok := r.channels[channel]; ok {
			delete(subs, connID)
			if len(subs) == 0 {
				delete(r.channels, channel)
			}
		}
	}
	delete(r.subscriptions, connID)
}

// SubscribersOf returns a point-in-time copy of a channel's subscriber set.
// The copy does not alias the live set, so fan-out is insulated from
// concurrent subscribe/unsubscribe.
func (r *Registry) SubscribersOf(channel string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs, ok := r.channels[channel]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	return ids
}

// NextSeq assigns the next sequence number for a channel name. Counters start
// at 1 and are never reused, even after the channel itself is deleted and
// recreated under the same name.
func (r *Registry) NextSeq(channel string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seqs[channel]++
	return r.seqs[channel]
}

// HasChannel reports whether a channel currently has subscribers.
func (r *Registry) HasChannel(channel string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.channels[channel]
	return ok
}

// ChannelCount returns the number of live channels.
func (r *Registry) ChannelCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// ChannelsOf returns the channel names a connection is subscribed to.
func (r *Registry) ChannelsOf(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chans := r.subscriptions[connID]
	names := make([]string, 0, len(chans))
	for name := range chans {
		names = append(names, name)
	}
	return names
}

// Clear drops all channels and subscriptions. Sequence counters are kept so
// a publish after a restart of the hub (not the process) does not go backwards.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = make(map[string]map[string]struct{})
	r.subscriptions = make(map[string]map[string]struct{})
}
