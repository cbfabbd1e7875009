package floorops

import "errors"

var (
	ErrNotFound              = errors.New("not_found")
	ErrInvalidRequest        = errors.New("invalid_request")
	ErrStaleTransition       = errors.New("stale_transition")
	ErrCapacityExceeded      = errors.New("capacity_exceeded")
	ErrTableOccupiedConflict = errors.New("table_occupied_conflict")
)
