package hub

import (
	"strings"
	"testing"
)

func TestDecodeClientMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		action  Action
	}{
		{
			name:   "subscribe",
			input:  `{"action":"subscribe","channel":"room1"}`,
			action: ActionSubscribe,
		},
		{
			name:   "unsubscribe",
			input:  `{"action":"unsubscribe","channel":"room1"}`,
			action: ActionUnsubscribe,
		},
		{
			name:   "publish with payload",
			input:  `{"action":"publish","channel":"room1","payload":{"text":"hi"}}`,
			action: ActionPublish,
		},
		{
			name:    "publish without payload",
			input:   `{"action":"publish","channel":"room1"}`,
			wantErr: true,
		},
		{
			name:    "unknown action",
			input:   `{"action":"shout","channel":"room1"}`,
			wantErr: true,
		},
		{
			name:    "missing channel",
			input:   `{"action":"subscribe"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			input:   `subscribe room1`,
			wantErr: true,
		},
		{
			name:    "channel name too long",
			input:   `{"action":"subscribe","channel":"` + strings.Repeat("x", 300) + `"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeClientMessage([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg.Action != tt.action {
				t.Errorf("action = %q, want %q", msg.Action, tt.action)
			}
		})
	}
}

func TestValidateChannelName(t *testing.T) {
	if err := ValidateChannelName("room1"); err != nil {
		t.Errorf("valid name rejected: %v", err)
	}
	if err := ValidateChannelName(""); err == nil {
		t.Error("empty name accepted")
	}
	if err := ValidateChannelName(string([]byte{0xff, 0xfe})); err == nil {
		t.Error("invalid UTF-8 accepted")
	}
}

func TestEventFrame(t *testing.T) {
	event := newEvent("room1", 7, []byte(`{"a":1}`))
	frame := EventFrame(event)

	if frame.Type != "event" {
		t.Errorf("frame type = %q, want event", frame.Type)
	}
	if frame.Seq != 7 || frame.Channel != "room1" {
		t.Errorf("frame = %+v, want seq 7 on room1", frame)
	}
	if frame.PublishedAt == "" {
		t.Error("frame is missing published_at")
	}
}
