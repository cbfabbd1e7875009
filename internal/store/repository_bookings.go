package store

import (
	"context"
	"encoding/json"
	"time"

	"floorboard/internal/floor"

	"github.com/jackc/pgx/v5"
)

const bookingSelect = `
	SELECT b.id, b.restaurant_id, b.scheduled_at, b.turn_minutes, b.party_size,
	       b.dining_status, b.check_in_at, b.version,
	       COALESCE(array_agg(bt.table_id ORDER BY bt.table_id)
	                FILTER (WHERE bt.table_id IS NOT NULL), '{}')
	FROM bookings b
	LEFT JOIN booking_tables bt ON bt.booking_id = b.id`

func scanBooking(row pgx.Row) (floor.Booking, error) {
	var b floor.Booking
	var turnMinutes int
	err := row.Scan(&b.ID, &b.RestaurantID, &b.ScheduledAt, &turnMinutes,
		&b.PartySize, &b.Status, &b.CheckInAt, &b.Version, &b.TableIDs)
	b.TurnTime = time.Duration(turnMinutes) * time.Minute
	return b, err
}

func (s *Store) CreateBooking(ctx context.Context, b floor.Booking) (*floor.Booking, error) {
	if b.ID == "" {
		b.ID = NewID()
	}
	if b.Status == "" {
		b.Status = floor.StatusPending
	}
	if b.TurnTime <= 0 {
		b.TurnTime = floor.DefaultTurnTime
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO bookings (id, restaurant_id, scheduled_at, turn_minutes, party_size, dining_status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.RestaurantID, b.ScheduledAt, int(b.TurnTime/time.Minute), b.PartySize, b.Status); err != nil {
		return nil, err
	}
	for _, tableID := range b.TableIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO booking_tables (booking_id, table_id) VALUES ($1, $2)`,
			b.ID, tableID); err != nil {
			return nil, err
		}
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	version, err := appendChange(ctx, tx, b.RestaurantID, EntityBooking, b.ID, ActionInsert, payload)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE bookings SET version = $2 WHERE id = $1`, b.ID, version); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	b.Version = version
	return &b, nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (*floor.Booking, error) {
	b, err := scanBooking(s.Pool.QueryRow(ctx,
		bookingSelect+` WHERE b.id = $1 GROUP BY b.id`, id))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &b, nil
}

// ListBookingsForDay returns the restaurant's bookings scheduled on the day
// containing at, plus any booking still physically present regardless of its
// scheduled day, so a late-running party never drops off the floor at
// midnight.
func (s *Store) ListBookingsForDay(ctx context.Context, restaurantID string, at time.Time) ([]floor.Booking, error) {
	dayStart := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
	rows, err := s.Pool.Query(ctx,
		bookingSelect+`
		WHERE b.restaurant_id = $1
		  AND (b.scheduled_at >= $2 AND b.scheduled_at < $3
		       OR b.dining_status = ANY($4))
		GROUP BY b.id
		ORDER BY b.scheduled_at`,
		restaurantID, dayStart, dayStart.Add(24*time.Hour), presentStatuses())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]floor.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateBookingStatus persists a status transition conditioned on the status
// the caller validated against. Zero rows matched while the booking exists
// means another client moved it first: ErrStale.
func (s *Store) UpdateBookingStatus(ctx context.Context, id string, from, to floor.DiningStatus, checkIn *time.Time) (*floor.Booking, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// check_in_at only ever gains a value; re-entering arrived keeps the
	// original stamp.
	tag, err := tx.Exec(ctx,
		`UPDATE bookings
		 SET dining_status = $3, check_in_at = COALESCE(check_in_at, $4), updated_at = now()
		 WHERE id = $1 AND dining_status = $2`,
		id, from, to, checkIn)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrStale
		}
		return nil, ErrNotFound
	}

	b, err := scanBooking(tx.QueryRow(ctx,
		bookingSelect+` WHERE b.id = $1 GROUP BY b.id`, id))
	if err != nil {
		return nil, err
	}
	b.Version, err = finishBookingWrite(ctx, tx, &b)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &b, nil
}

// ReassignTables swaps the booking's table set in one transaction. No reader
// ever observes the booking with the old links gone and the new ones absent.
func (s *Store) ReassignTables(ctx context.Context, bookingID string, tableIDs []string) (*floor.Booking, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM booking_tables WHERE booking_id = $1`, bookingID); err != nil {
		return nil, err
	}
	for _, tableID := range tableIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO booking_tables (booking_id, table_id) VALUES ($1, $2)`,
			bookingID, tableID); err != nil {
			return nil, err
		}
	}
	b, err := scanBooking(tx.QueryRow(ctx,
		bookingSelect+` WHERE b.id = $1 GROUP BY b.id`, bookingID))
	if err != nil {
		return nil, mapNotFound(err)
	}
	b.Version, err = finishBookingWrite(ctx, tx, &b)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &b, nil
}

func finishBookingWrite(ctx context.Context, tx pgx.Tx, b *floor.Booking) (int64, error) {
	payload, err := json.Marshal(b)
	if err != nil {
		return 0, err
	}
	version, err := appendChange(ctx, tx, b.RestaurantID, EntityBooking, b.ID, ActionUpdate, payload)
	if err != nil {
		return 0, err
	}
	_, err = tx.Exec(ctx, `UPDATE bookings SET version = $2 WHERE id = $1`, b.ID, version)
	return version, err
}

func presentStatuses() []string {
	return []string{
		string(floor.StatusArrived), string(floor.StatusSeated),
		string(floor.StatusOrdered), string(floor.StatusAppetizers),
		string(floor.StatusMainCourse), string(floor.StatusDessert),
		string(floor.StatusPayment),
	}
}
