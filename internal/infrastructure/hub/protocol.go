package hub

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Action tags an inbound client message.
type Action string

const (
	ActionSubscribe   Action = "subscribe"
	ActionUnsubscribe Action = "unsubscribe"
	ActionPublish     Action = "publish"
)

// Channel names are short UTF-8 strings; the bounds keep the registry keys sane.
const (
	channelLenMin = 1
	channelLenMax = 256
)

// ClientMessage is the tagged variant every transport speaks inbound:
// subscribe, unsubscribe, or publish, always naming a channel.
type ClientMessage struct {
	Action  Action          `json:"action"`
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeClientMessage parses and validates one inbound frame. A decode error
// is reported back to the client; it never closes the connection.
func DecodeClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	switch msg.Action {
	case ActionSubscribe, ActionUnsubscribe, ActionPublish:
	default:
		return nil, fmt.Errorf("unknown action %q", msg.Action)
	}

	if err := ValidateChannelName(msg.Channel); err != nil {
		return nil, err
	}

	if msg.Action == ActionPublish && len(msg.Payload) == 0 {
		return nil, fmt.Errorf("publish requires a payload")
	}

	return &msg, nil
}

// ValidateChannelName enforces the channel naming rules shared by all
// transports.
func ValidateChannelName(name string) error {
	if len(name) < channelLenMin || len(name) > channelLenMax {
		return fmt.Errorf("channel name must be %d-%d bytes", channelLenMin, channelLenMax)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("channel name must be valid UTF-8")
	}
	return nil
}

// ServerFrame is the envelope every transport writes outbound. Type is one of
// "connected", "event", or "error".
type ServerFrame struct {
	Type         string          `json:"type"`
	ConnectionID string          `json:"connection_id,omitempty"`
	Channel      string          `json:"channel,omitempty"`
	Seq          uint64          `json:"seq,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	PublishedAt  string          `json:"published_at,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// ConnectedFrame greets a freshly registered connection with its ID.
func ConnectedFrame(connID string) *ServerFrame {
	return &ServerFrame{Type: "connected", ConnectionID: connID}
}

// EventFrame wraps a delivered event.
func EventFrame(event *Event) *ServerFrame {
	return &ServerFrame{
		Type:        "event",
		Channel:     event.Channel,
		Seq:         event.Seq,
		Payload:     event.Payload,
		PublishedAt: event.PublishedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// ErrorFrame reports a per-message failure (bad frame, bad channel name)
// without tearing down the connection.
func ErrorFrame(msg string) *ServerFrame {
	return &ServerFrame{Type: "error", Error: msg}
}
