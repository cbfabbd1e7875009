package store

import (
	"context"
	"encoding/json"

	"floorboard/internal/floor"

	"github.com/jackc/pgx/v5"
)

const tableColumns = `id, restaurant_id, label, min_covers, max_covers, table_type, pos_x, pos_y, active, version`

func scanTable(row pgx.Row) (floor.Table, error) {
	var t floor.Table
	err := row.Scan(&t.ID, &t.RestaurantID, &t.Label, &t.MinCovers, &t.MaxCovers,
		&t.Type, &t.X, &t.Y, &t.Active, &t.Version)
	return t, err
}

func (s *Store) CreateTable(ctx context.Context, t floor.Table) (string, error) {
	if t.ID == "" {
		t.ID = NewID()
	}
	if t.Type == "" {
		t.Type = floor.TableStandard
	}
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO floor_tables (id, restaurant_id, label, min_covers, max_covers, table_type, pos_x, pos_y, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)`,
		t.ID, t.RestaurantID, t.Label, t.MinCovers, t.MaxCovers, t.Type, t.X, t.Y)
	return t.ID, err
}

func (s *Store) GetTable(ctx context.Context, id string) (*floor.Table, error) {
	t, err := scanTable(s.Pool.QueryRow(ctx,
		`SELECT `+tableColumns+` FROM floor_tables WHERE id = $1`, id))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &t, nil
}

func (s *Store) ListTables(ctx context.Context, restaurantID string) ([]floor.Table, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+tableColumns+` FROM floor_tables
		 WHERE restaurant_id = $1 AND active ORDER BY label`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]floor.Table, 0)
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTablesByIDs(ctx context.Context, ids []string) ([]floor.Table, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+tableColumns+` FROM floor_tables WHERE id = ANY($1) AND active`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]floor.Table, 0, len(ids))
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTablePosition writes the authoritative final position. Callers batch
// drag updates and only commit at drag end; every call here is absolute.
func (s *Store) UpdateTablePosition(ctx context.Context, tableID string, x, y float64) (*floor.Table, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	t, err := scanTable(tx.QueryRow(ctx,
		`UPDATE floor_tables SET pos_x = $2, pos_y = $3 WHERE id = $1 AND active
		 RETURNING `+tableColumns, tableID, x, y))
	if err != nil {
		return nil, mapNotFound(err)
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	version, err := appendChange(ctx, tx, t.RestaurantID, EntityTable, t.ID, ActionUpdate, payload)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE floor_tables SET version = $2 WHERE id = $1`, t.ID, version); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	t.Version = version
	return &t, nil
}

func appendChange(ctx context.Context, tx pgx.Tx, restaurantID, entity, recordID, action string, payload []byte) (int64, error) {
	var version int64
	err := tx.QueryRow(ctx,
		`INSERT INTO floor_changes (restaurant_id, entity, record_id, action, payload)
		 VALUES ($1, $2, $3, $4, $5) RETURNING version`,
		restaurantID, entity, recordID, action, payload).Scan(&version)
	return version, err
}
