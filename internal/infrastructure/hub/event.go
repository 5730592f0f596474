package hub

import (
	"encoding/json"
	"time"
)

// Event is one published payload bound to a channel. The sequence number is
// assigned per channel at publish time and is strictly increasing for the
// lifetime of the process, so a consumer can detect dropped events as gaps.
//
// Events are immutable after creation and shared by reference across all
// subscriber queues of a single publish.
type Event struct {
	Channel     string          `json:"channel"`
	Seq         uint64          `json:"seq"`
	Payload     json.RawMessage `json:"payload"`
	PublishedAt time.Time       `json:"published_at"`
}

func newEvent(channel string, seq uint64, payload json.RawMessage) *Event {
	return &Event{
		Channel:     channel,
		Seq:         seq,
		Payload:     payload,
		PublishedAt: time.Now().UTC(),
	}
}
