package floorgateway

import (
	"encoding/json"
	"sync"
	"time"
)

// ChangeEvent is one record mutation on the wire. Version is the
// server-assigned change-log version: monotonic per restaurant, so clients
// merge last-write-wins and discard anything older than what they hold.
type ChangeEvent struct {
	Version  int64           `json:"version"`
	Entity   string          `json:"entity"`
	RecordID string          `json:"id"`
	Action   string          `json:"action"`
	ServerTS int64           `json:"server_ts"`
	Payload  json.RawMessage `json:"payload"`
}

// EventBuffer keeps a bounded in-memory tail of a restaurant's change feed
// and fans out live events to subscribers. Clients that fell behind the
// window replay from the change log instead.
type EventBuffer struct {
	mu       sync.Mutex
	max      int
	events   []ChangeEvent
	watchers map[chan ChangeEvent]struct{}
	closed   bool
}

func NewEventBuffer(max int) *EventBuffer {
	if max <= 0 {
		max = 500
	}
	return &EventBuffer{
		max:      max,
		watchers: map[chan ChangeEvent]struct{}{},
	}
}

func (b *EventBuffer) Append(ev ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if ev.ServerTS == 0 {
		ev.ServerTS = time.Now().UnixMilli()
	}
	b.events = append(b.events, ev)
	if len(b.events) > b.max {
		b.events = b.events[len(b.events)-b.max:]
	}
	for ch := range b.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// ReplayAfter returns buffered events with version strictly greater than
// after. The second result is false when the buffer window no longer reaches
// back that far, meaning the caller must replay from the change log.
func (b *EventBuffer) ReplayAfter(after int64) ([]ChangeEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return nil, false
	}
	if b.events[0].Version > after+1 {
		return nil, false
	}
	out := make([]ChangeEvent, 0, len(b.events))
	for _, ev := range b.events {
		if ev.Version > after {
			out = append(out, ev)
		}
	}
	return out, true
}

func (b *EventBuffer) Subscribe() chan ChangeEvent {
	ch := make(chan ChangeEvent, 32)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.watchers[ch] = struct{}{}
	return ch
}

func (b *EventBuffer) Unsubscribe(ch chan ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.watchers[ch]; ok {
		delete(b.watchers, ch)
		close(ch)
	}
}

func (b *EventBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.watchers {
		close(ch)
		delete(b.watchers, ch)
	}
}
