package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestDispatcherDeliversToSink(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)
	defer d.Close()

	d.Emit(context.Background(), Event{EventType: "session.issue", UserID: "u1", Success: true})

	select {
	case event := <-sink.Events():
		if event.EventType != "session.issue" || event.UserID != "u1" {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the sink")
	}
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, nil)
	if d != nil {
		t.Fatal("disabled config must produce a nil dispatcher")
	}

	// Nil receivers are safe no-ops.
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reports zero drops")
	}
}

func TestCloseDrainsBufferedEvents(t *testing.T) {
	var buf bytes.Buffer
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, NewJSONWriterSink(&buf))

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "session.revoke", Reason: "Cancelled"})
	}
	d.Close()

	scanner := bufio.NewScanner(&buf)
	lines := 0
	for scanner.Scan() {
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines, err)
		}
		if event.EventType != "session.revoke" {
			t.Fatalf("event type = %q", event.EventType)
		}
		lines++
	}
	if lines != 5 {
		t.Fatalf("drained %d events, want 5", lines)
	}
}

func TestEmitAfterCloseIsDiscarded(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)
	d.Close()

	d.Emit(context.Background(), Event{EventType: "late"})

	select {
	case event := <-sink.Events():
		t.Fatalf("event delivered after close: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDropIfFullCountsDiscards(t *testing.T) {
	// A blocking sink keeps the worker busy so the buffer can fill.
	block := make(chan struct{})
	sink := blockingSink{release: block}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	defer d.Close()

	for i := 0; i < 20; i++ {
		d.Emit(context.Background(), Event{EventType: "flood"})
	}
	close(block)

	if d.Dropped() == 0 {
		t.Fatal("expected at least one dropped event")
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(context.Context, Event) {
	<-s.release
}
