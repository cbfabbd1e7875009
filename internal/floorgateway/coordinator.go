package floorgateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"floorboard/internal/app/floorops"
	"floorboard/internal/floor"
	"floorboard/internal/store"

	"github.com/rs/zerolog/log"
)

const eventBufferSize = 500

// ChangeLog is the slice of the store the coordinator needs for replay.
type ChangeLog interface {
	ListChangesAfter(ctx context.Context, restaurantID string, after int64, limit int) ([]store.Change, error)
}

// Coordinator fronts the engine's write operations. It serializes writes per
// booking so two staff acting on the same party apply in order and the second
// re-validates against the first's result, and it publishes every committed
// change to the restaurant's event feed.
type Coordinator struct {
	svc *floorops.Service
	log ChangeLog

	mu          sync.Mutex
	restaurants map[string]*floorRuntime
	gates       map[string]*bookingGate
}

type floorRuntime struct {
	buffer *EventBuffer
}

type bookingGate struct {
	mu   sync.Mutex
	refs int
}

func NewCoordinator(svc *floorops.Service, changes ChangeLog) *Coordinator {
	return &Coordinator{
		svc:         svc,
		log:         changes,
		restaurants: map[string]*floorRuntime{},
		gates:       map[string]*bookingGate{},
	}
}

// lockBooking blocks until the booking's in-flight operation, if any,
// resolves. Operations on different bookings never contend.
func (c *Coordinator) lockBooking(bookingID string) func() {
	c.mu.Lock()
	g := c.gates[bookingID]
	if g == nil {
		g = &bookingGate{}
		c.gates[bookingID] = g
	}
	g.refs++
	c.mu.Unlock()

	g.mu.Lock()
	return func() {
		g.mu.Unlock()
		c.mu.Lock()
		g.refs--
		if g.refs == 0 {
			delete(c.gates, bookingID)
		}
		c.mu.Unlock()
	}
}

func (c *Coordinator) runtimeFor(restaurantID string) *floorRuntime {
	c.mu.Lock()
	defer c.mu.Unlock()
	rt := c.restaurants[restaurantID]
	if rt == nil {
		rt = &floorRuntime{buffer: NewEventBuffer(eventBufferSize)}
		c.restaurants[restaurantID] = rt
	}
	return rt
}

func (c *Coordinator) GetOccupancy(ctx context.Context, restaurantID string, asOf time.Time) (*floorops.OccupancyView, error) {
	return c.svc.GetOccupancy(ctx, restaurantID, asOf)
}

func (c *Coordinator) ApplyTransition(ctx context.Context, bookingID string, target floor.DiningStatus, actorID string) (*floorops.TransitionResult, error) {
	release := c.lockBooking(bookingID)
	defer release()

	res, err := c.svc.ApplyTransition(ctx, bookingID, target, actorID)
	if err != nil {
		return nil, err
	}
	c.publishBooking(res.Booking, store.ActionUpdate)
	return res, nil
}

func (c *Coordinator) ReassignTables(ctx context.Context, bookingID string, tableIDs []string, force bool, asOf time.Time) (*floor.Booking, error) {
	release := c.lockBooking(bookingID)
	defer release()

	b, err := c.svc.ReassignTables(ctx, bookingID, tableIDs, force, asOf)
	if err != nil {
		return nil, err
	}
	c.publishBooking(*b, store.ActionUpdate)
	return b, nil
}

func (c *Coordinator) UpdateTablePosition(ctx context.Context, tableID string, x, y float64) (*floor.Table, error) {
	t, err := c.svc.UpdateTablePosition(ctx, tableID, x, y)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(t)
	if err == nil {
		c.runtimeFor(t.RestaurantID).buffer.Append(ChangeEvent{
			Version:  t.Version,
			Entity:   store.EntityTable,
			RecordID: t.ID,
			Action:   store.ActionUpdate,
			Payload:  payload,
		})
	}
	return t, nil
}

func (c *Coordinator) publishBooking(b floor.Booking, action string) {
	payload, err := json.Marshal(b)
	if err != nil {
		log.Error().Err(err).Str("booking_id", b.ID).Msg("marshal booking event")
		return
	}
	c.runtimeFor(b.RestaurantID).buffer.Append(ChangeEvent{
		Version:  b.Version,
		Entity:   store.EntityBooking,
		RecordID: b.ID,
		Action:   action,
		Payload:  payload,
	})
}

// EventsAfter returns the events a reconnecting client missed. The in-memory
// buffer serves the common case; when the client's cursor fell off the
// window, the change log backfills.
func (c *Coordinator) EventsAfter(ctx context.Context, restaurantID string, after int64) ([]ChangeEvent, error) {
	rt := c.runtimeFor(restaurantID)
	if evs, ok := rt.buffer.ReplayAfter(after); ok {
		return evs, nil
	}
	changes, err := c.log.ListChangesAfter(ctx, restaurantID, after, eventBufferSize)
	if err != nil {
		return nil, err
	}
	out := make([]ChangeEvent, 0, len(changes))
	for _, ch := range changes {
		out = append(out, ChangeEvent{
			Version:  ch.Version,
			Entity:   ch.Entity,
			RecordID: ch.RecordID,
			Action:   ch.Action,
			ServerTS: ch.CreatedAt.UnixMilli(),
			Payload:  ch.Payload,
		})
	}
	return out, nil
}

// Subscribe attaches a live watcher to the restaurant's feed.
func (c *Coordinator) Subscribe(restaurantID string) (chan ChangeEvent, func()) {
	rt := c.runtimeFor(restaurantID)
	ch := rt.buffer.Subscribe()
	return ch, func() { rt.buffer.Unsubscribe(ch) }
}
