package realtime

import (
	"encoding/json"
	"sort"
	"sync"

	"floorboard/internal/floor"
	"floorboard/internal/floorgateway"
	"floorboard/internal/store"

	"github.com/rs/zerolog/log"
)

// Cache is the client's local view of the floor: bookings and tables merged
// last-write-wins by change version, with an optimistic overlay for writes
// awaiting server confirmation.
type Cache struct {
	mu       sync.Mutex
	bookings map[string]floor.Booking
	tables   map[string]floor.Table
	pending  map[string]floor.Booking
	version  int64
}

func NewCache() *Cache {
	return &Cache{
		bookings: map[string]floor.Booking{},
		tables:   map[string]floor.Table{},
		pending:  map[string]floor.Booking{},
	}
}

// Seed loads the initial snapshot fetched before the event stream attaches.
func (c *Cache) Seed(bookings []floor.Booking, tables []floor.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range bookings {
		c.bookings[b.ID] = b
		if b.Version > c.version {
			c.version = b.Version
		}
	}
	for _, t := range tables {
		c.tables[t.ID] = t
		if t.Version > c.version {
			c.version = t.Version
		}
	}
}

// Apply merges one authoritative change event. Events at or below the
// record's held version are discarded: a reconnect replay delivering stale
// backlog never regresses local state. An accepted booking event also clears
// that booking's pending overlay, confirmed or corrected by the server.
func (c *Cache) Apply(ev floorgateway.ChangeEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Entity {
	case store.EntityBooking:
		held, ok := c.bookings[ev.RecordID]
		if ok && ev.Version <= held.Version {
			return false
		}
		var b floor.Booking
		if err := json.Unmarshal(ev.Payload, &b); err != nil {
			log.Warn().Err(err).Str("id", ev.RecordID).Msg("bad booking payload")
			return false
		}
		b.Version = ev.Version
		c.bookings[b.ID] = b
		delete(c.pending, b.ID)
	case store.EntityTable:
		held, ok := c.tables[ev.RecordID]
		if ok && ev.Version <= held.Version {
			return false
		}
		var t floor.Table
		if err := json.Unmarshal(ev.Payload, &t); err != nil {
			log.Warn().Err(err).Str("id", ev.RecordID).Msg("bad table payload")
			return false
		}
		t.Version = ev.Version
		c.tables[t.ID] = t
	default:
		return false
	}
	if ev.Version > c.version {
		c.version = ev.Version
	}
	return true
}

// Version is the highest change version held, the cursor a reconnect sends
// as Last-Event-ID.
func (c *Cache) Version() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// StagePending records an optimistic local write. The view shows it in place
// of the committed record, flagged pending, until the authoritative event
// lands or the write fails and is discarded.
func (c *Cache) StagePending(b floor.Booking) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[b.ID] = b
}

// DiscardPending rolls back an optimistic write whose persistence failed,
// restoring the last committed state.
func (c *Cache) DiscardPending(bookingID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, bookingID)
}

// BookingState is a booking as the dashboard should render it.
type BookingState struct {
	Booking floor.Booking
	Pending bool
}

// Bookings returns the merged view, pending overlay applied, ordered by
// scheduled time.
func (c *Cache) Bookings() []BookingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]BookingState, 0, len(c.bookings)+len(c.pending))
	for id, b := range c.bookings {
		if p, ok := c.pending[id]; ok {
			out = append(out, BookingState{Booking: p, Pending: true})
			continue
		}
		out = append(out, BookingState{Booking: b})
	}
	for id, p := range c.pending {
		if _, ok := c.bookings[id]; !ok {
			out = append(out, BookingState{Booking: p, Pending: true})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Booking.ScheduledAt.Equal(out[j].Booking.ScheduledAt) {
			return out[i].Booking.ID < out[j].Booking.ID
		}
		return out[i].Booking.ScheduledAt.Before(out[j].Booking.ScheduledAt)
	})
	return out
}

// Tables returns the current table layout ordered by label.
func (c *Cache) Tables() []floor.Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]floor.Table, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Booking returns one booking with its overlay applied.
func (c *Cache) Booking(id string) (BookingState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pending[id]; ok {
		return BookingState{Booking: p, Pending: true}, true
	}
	b, ok := c.bookings[id]
	return BookingState{Booking: b}, ok
}
