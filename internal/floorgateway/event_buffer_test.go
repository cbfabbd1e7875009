package floorgateway

import "testing"

func bufEvent(version int64, id string) ChangeEvent {
	return ChangeEvent{Version: version, Entity: "booking", RecordID: id, Action: "update"}
}

func TestEventBufferReplayAfter(t *testing.T) {
	buf := NewEventBuffer(10)
	buf.Append(bufEvent(1, "b1"))
	buf.Append(bufEvent(2, "b1"))
	buf.Append(bufEvent(3, "b2"))

	replay, ok := buf.ReplayAfter(1)
	if !ok {
		t.Fatal("expected buffer to cover version 1")
	}
	if len(replay) != 2 {
		t.Fatalf("expected 2 replay events, got %d", len(replay))
	}
	if replay[0].Version != 2 || replay[1].Version != 3 {
		t.Fatalf("unexpected replay order: %+v", replay)
	}
}

func TestEventBufferReportsWindowMiss(t *testing.T) {
	buf := NewEventBuffer(3)
	for v := int64(1); v <= 6; v++ {
		buf.Append(bufEvent(v, "b1"))
	}
	// Oldest retained is 4; a client at version 1 needs the change log.
	if _, ok := buf.ReplayAfter(1); ok {
		t.Fatal("expected window miss for version 1")
	}
	replay, ok := buf.ReplayAfter(3)
	if !ok {
		t.Fatal("expected buffer to cover version 3")
	}
	if len(replay) != 3 || replay[0].Version != 4 {
		t.Fatalf("unexpected replay: %+v", replay)
	}
}

func TestEventBufferSubscribe(t *testing.T) {
	buf := NewEventBuffer(10)
	ch := buf.Subscribe()
	defer buf.Unsubscribe(ch)

	buf.Append(bufEvent(1, "b1"))
	select {
	case ev := <-ch:
		if ev.Version != 1 || ev.RecordID != "b1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("expected buffered delivery")
	}
}

func TestEventBufferCloseStopsWatchers(t *testing.T) {
	buf := NewEventBuffer(10)
	ch := buf.Subscribe()
	buf.Close()
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	buf.Append(bufEvent(1, "b1"))
	if evs, _ := buf.ReplayAfter(0); len(evs) != 0 {
		t.Fatalf("append after close retained %d events", len(evs))
	}
}
