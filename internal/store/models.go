package store

import (
	"encoding/json"
	"time"
)

type Restaurant struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Change is one row of the floor change log. Version values are assigned by
// the database sequence, so they are monotonic across writers; the same value
// is stamped onto the mutated record inside the writing transaction.
type Change struct {
	Version      int64           `json:"version"`
	RestaurantID string          `json:"restaurant_id"`
	Entity       string          `json:"entity"`
	RecordID     string          `json:"id"`
	Action       string          `json:"action"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
}

const (
	EntityBooking = "booking"
	EntityTable   = "table"

	ActionInsert = "insert"
	ActionUpdate = "update"
)
