package store

import "context"

// ListChangesAfter returns the restaurant's change log rows with a version
// strictly greater than after, oldest first. Feeds event-buffer warmup and
// replay for clients whose Last-Event-ID fell off the in-memory window.
func (s *Store) ListChangesAfter(ctx context.Context, restaurantID string, after int64, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT version, restaurant_id, entity, record_id, action, payload, created_at
		 FROM floor_changes
		 WHERE restaurant_id = $1 AND version > $2
		 ORDER BY version
		 LIMIT $3`, restaurantID, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Change, 0)
	for rows.Next() {
		var c Change
		if err := rows.Scan(&c.Version, &c.RestaurantID, &c.Entity, &c.RecordID,
			&c.Action, &c.Payload, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LatestChangeVersion returns the restaurant's newest change version, zero
// when the log is empty.
func (s *Store) LatestChangeVersion(ctx context.Context, restaurantID string) (int64, error) {
	var v int64
	err := s.Pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM floor_changes WHERE restaurant_id = $1`,
		restaurantID).Scan(&v)
	return v, err
}
