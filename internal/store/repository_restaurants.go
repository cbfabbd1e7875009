package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateRestaurant(ctx context.Context, name string) (string, error) {
	id := NewID()
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO restaurants (id, name) VALUES ($1, $2)`, id, name)
	return id, err
}

func (s *Store) GetRestaurant(ctx context.Context, id string) (*Restaurant, error) {
	var r Restaurant
	err := s.Pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM restaurants WHERE id = $1`, id).
		Scan(&r.ID, &r.Name, &r.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &r, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
