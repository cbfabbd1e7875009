package floorops

import (
	"context"
	"errors"
	"sort"
	"time"

	"floorboard/internal/floor"
	"floorboard/internal/store"

	"github.com/rs/zerolog/log"
)

// Store is the persistence surface the engine needs. *store.Store satisfies
// it; tests use an in-memory fake.
type Store interface {
	GetBooking(ctx context.Context, id string) (*floor.Booking, error)
	ListBookingsForDay(ctx context.Context, restaurantID string, at time.Time) ([]floor.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, from, to floor.DiningStatus, checkIn *time.Time) (*floor.Booking, error)
	ReassignTables(ctx context.Context, bookingID string, tableIDs []string) (*floor.Booking, error)
	ListTables(ctx context.Context, restaurantID string) ([]floor.Table, error)
	GetTablesByIDs(ctx context.Context, ids []string) ([]floor.Table, error)
	UpdateTablePosition(ctx context.Context, tableID string, x, y float64) (*floor.Table, error)
}

type Config struct {
	Derive         floor.DeriveConfig
	PersistTimeout time.Duration
}

func (c Config) persistTimeout() time.Duration {
	if c.PersistTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PersistTimeout
}

// Service implements the engine's read and write operations. It holds no
// mutable state beyond configuration; all floor state lives in the store and
// is re-read fresh before every write.
type Service struct {
	store Store
	cfg   Config
	now   func() time.Time
}

func NewService(st Store, cfg Config) *Service {
	return &Service{store: st, cfg: cfg, now: time.Now}
}

// GetOccupancy derives the whole floor at asOf. Tables with conflicting
// physically-present bookings are listed in Inconsistent and logged; their
// occupancy omits a current booking rather than guessing.
func (s *Service) GetOccupancy(ctx context.Context, restaurantID string, asOf time.Time) (*OccupancyView, error) {
	tables, err := s.store.ListTables(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	bookings, err := s.store.ListBookingsForDay(ctx, restaurantID, asOf)
	if err != nil {
		return nil, err
	}
	view := &OccupancyView{
		AsOf:   asOf.UnixMilli(),
		Tables: make(map[string]floor.Occupancy, len(tables)),
	}
	for _, t := range tables {
		occ, err := floor.Derive(t, bookings, asOf, s.cfg.Derive)
		if errors.Is(err, floor.ErrDerivationInconsistency) {
			log.Warn().
				Str("restaurant_id", restaurantID).
				Str("table_id", t.ID).
				Msg("multiple present bookings on one table")
			view.Inconsistent = append(view.Inconsistent, t.ID)
		} else if err != nil {
			return nil, err
		}
		view.Tables[t.ID] = occ
	}
	sort.Strings(view.Inconsistent)
	return view, nil
}

// ApplyTransition moves a booking to target. Legality is validated against
// the freshest known status, and the persist is conditioned on that same
// status, so a concurrent move by another client surfaces as
// ErrStaleTransition instead of being overwritten.
func (s *Service) ApplyTransition(ctx context.Context, bookingID string, target floor.DiningStatus, actorID string) (*TransitionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.persistTimeout())
	defer cancel()

	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if err := floor.ValidateTransition(b.Status, target); err != nil {
		return nil, err
	}
	var checkIn *time.Time
	if target == floor.StatusArrived && b.CheckInAt == nil {
		ts := s.now()
		checkIn = &ts
	}
	updated, err := s.store.UpdateBookingStatus(ctx, bookingID, b.Status, target, checkIn)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	log.Info().
		Str("booking_id", bookingID).
		Str("actor_id", actorID).
		Str("from", string(b.Status)).
		Str("to", string(target)).
		Int64("version", updated.Version).
		Msg("dining status transition")
	return &TransitionResult{Booking: *updated, LegalNext: floor.LegalNext(updated.Status)}, nil
}

// ReassignTables atomically swaps the booking's table set. Capacity failures
// are always hard; occupancy conflicts are bypassable with force because the
// dashboard confirms the override with the user first.
func (s *Service) ReassignTables(ctx context.Context, bookingID string, tableIDs []string, force bool, asOf time.Time) (*floor.Booking, error) {
	if len(tableIDs) == 0 {
		return nil, ErrInvalidRequest
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.persistTimeout())
	defer cancel()

	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	tables, err := s.store.GetTablesByIDs(ctx, tableIDs)
	if err != nil {
		return nil, err
	}
	if len(tables) != len(dedupe(tableIDs)) {
		return nil, ErrNotFound
	}

	capacity := 0
	for _, t := range tables {
		capacity += t.MaxCovers
	}
	if capacity < b.PartySize {
		return nil, ErrCapacityExceeded
	}

	if !force {
		bookings, err := s.store.ListBookingsForDay(ctx, b.RestaurantID, asOf)
		if err != nil {
			return nil, err
		}
		for _, t := range tables {
			if occupiedByOther(t, bookings, bookingID, asOf, s.cfg.Derive) {
				return nil, ErrTableOccupiedConflict
			}
		}
	}

	updated, err := s.store.ReassignTables(ctx, bookingID, dedupe(tableIDs))
	if err != nil {
		return nil, mapStoreErr(err)
	}
	log.Info().
		Str("booking_id", bookingID).
		Strs("table_ids", updated.TableIDs).
		Bool("force", force).
		Int64("version", updated.Version).
		Msg("booking tables reassigned")
	return updated, nil
}

// UpdateTablePosition persists the drag-end position. The value is absolute,
// not a delta; the caller already collapsed intermediate drag frames.
func (s *Service) UpdateTablePosition(ctx context.Context, tableID string, x, y float64) (*floor.Table, error) {
	if x < 0 || x > 1 || y < 0 || y > 1 {
		return nil, ErrInvalidRequest
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.persistTimeout())
	defer cancel()
	t, err := s.store.UpdateTablePosition(ctx, tableID, x, y)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return t, nil
}

// occupiedByOther reports whether the table currently holds a physically
// present party other than the booking being moved. A confirmed reservation
// merely claiming its window does not block; staff may overlap those
// deliberately. An inconsistent table counts as occupied.
func occupiedByOther(t floor.Table, bookings []floor.Booking, bookingID string, asOf time.Time, cfg floor.DeriveConfig) bool {
	occ, err := floor.Derive(t, bookings, asOf, cfg)
	if errors.Is(err, floor.ErrDerivationInconsistency) {
		log.Warn().Str("table_id", t.ID).Msg("reassignment target table is inconsistent")
		return true
	}
	return occ.Current != nil && occ.Current.Status.IsPresent() && occ.Current.ID != bookingID
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrStale):
		return ErrStaleTransition
	}
	return err
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
