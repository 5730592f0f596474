package hub

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func testEvent(channel string, seq uint64) *Event {
	return newEvent(channel, seq, json.RawMessage(`{}`))
}

func TestConnection_FIFOOrder(t *testing.T) {
	conn := newConnection("c1", 8, DropOldest)
	conn.activate()

	for seq := uint64(1); seq <= 3; seq++ {
		if got := conn.Enqueue(testEvent("room1", seq)); got != EnqueueAccepted {
			t.Fatalf("Enqueue seq %d = %v, want accepted", seq, got)
		}
	}

	for seq := uint64(1); seq <= 3; seq++ {
		event, ok := conn.NextForDelivery()
		if !ok {
			t.Fatalf("NextForDelivery returned ok=false at seq %d", seq)
		}
		if event.Seq != seq {
			t.Errorf("delivered seq %d, want %d", event.Seq, seq)
		}
	}
}

func TestConnection_DropOldest(t *testing.T) {
	conn := newConnection("c1", 2, DropOldest)
	conn.activate()

	conn.Enqueue(testEvent("room1", 1))
	conn.Enqueue(testEvent("room1", 2))
	if got := conn.Enqueue(testEvent("room1", 3)); got != EnqueueDropped {
		t.Fatalf("Enqueue on full queue = %v, want dropped", got)
	}

	if got := conn.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}

	// head was evicted: the survivors are the two most recent events
	for _, want := range []uint64{2, 3} {
		event, ok := conn.NextForDelivery()
		if !ok {
			t.Fatal("queue drained early")
		}
		if event.Seq != want {
			t.Errorf("delivered seq %d, want %d", event.Seq, want)
		}
	}
}

func TestConnection_DropNewest(t *testing.T) {
	conn := newConnection("c1", 2, DropNewest)
	conn.activate()

	conn.Enqueue(testEvent("room1", 1))
	conn.Enqueue(testEvent("room1", 2))
	if got := conn.Enqueue(testEvent("room1", 3)); got != EnqueueDropped {
		t.Fatalf("Enqueue on full queue = %v, want dropped", got)
	}

	for _, want := range []uint64{1, 2} {
		event, ok := conn.NextForDelivery()
		if !ok {
			t.Fatal("queue drained early")
		}
		if event.Seq != want {
			t.Errorf("delivered seq %d, want %d", event.Seq, want)
		}
	}
}

func TestConnection_CloseWakesBlockedReader(t *testing.T) {
	conn := newConnection("c1", 8, DropOldest)
	conn.activate()

	done := make(chan bool, 1)
	go func() {
		_, ok := conn.NextForDelivery()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	conn.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("NextForDelivery returned ok=true after close on empty queue")
		}
	case <-time.After(time.Second):
		t.Fatal("NextForDelivery still blocked after Close")
	}
}

func TestConnection_CloseDrainsPendingEvents(t *testing.T) {
	conn := newConnection("c1", 8, DropOldest)
	conn.activate()

	conn.Enqueue(testEvent("room1", 1))
	conn.Enqueue(testEvent("room1", 2))
	conn.Close()

	for _, want := range []uint64{1, 2} {
		event, ok := conn.NextForDelivery()
		if !ok {
			t.Fatalf("queued event seq %d discarded by Close", want)
		}
		if event.Seq != want {
			t.Errorf("delivered seq %d, want %d", event.Seq, want)
		}
	}

	if _, ok := conn.NextForDelivery(); ok {
		t.Error("NextForDelivery returned ok=true after drain")
	}
}

func TestConnection_EnqueueAfterCloseIsNoOp(t *testing.T) {
	conn := newConnection("c1", 8, DropOldest)
	conn.activate()
	conn.Close()

	if got := conn.Enqueue(testEvent("room1", 1)); got != EnqueueDropped {
		t.Errorf("Enqueue after close = %v, want dropped", got)
	}
	if got := conn.Dropped(); got != 0 {
		t.Errorf("Dropped() = %d after post-close enqueue, want 0", got)
	}
	if got := conn.queueLen(); got != 0 {
		t.Errorf("queue length %d after post-close enqueue, want 0", got)
	}
}

func TestConnection_CloseIsIdempotent(t *testing.T) {
	conn := newConnection("c1", 8, DropOldest)
	conn.activate()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn.Close()
		}()
	}
	wg.Wait()

	if !conn.IsClosed() {
		t.Error("connection not closed after concurrent Close calls")
	}
}

func TestConnection_StateTransitions(t *testing.T) {
	conn := newConnection("c1", 8, DropOldest)
	if conn.State() != StateConnecting {
		t.Errorf("new connection state = %v, want connecting", conn.State())
	}

	conn.activate()
	if conn.State() != StateActive {
		t.Errorf("state after activate = %v, want active", conn.State())
	}

	conn.drain()
	if conn.State() != StateDraining {
		t.Errorf("state after drain = %v, want draining", conn.State())
	}
	if got := conn.Enqueue(testEvent("room1", 1)); got != EnqueueDropped {
		t.Errorf("Enqueue while draining = %v, want dropped", got)
	}

	conn.Close()
	if conn.State() != StateClosed {
		t.Errorf("state after close = %v, want closed", conn.State())
	}
}
