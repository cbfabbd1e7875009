package floorops

import "floorboard/internal/floor"

// OccupancyView is the whole floor at one instant. Inconsistent table ids are
// reported alongside the map, never silently resolved.
type OccupancyView struct {
	AsOf         int64                      `json:"as_of_ms"`
	Tables       map[string]floor.Occupancy `json:"tables"`
	Inconsistent []string                   `json:"inconsistent_table_ids,omitempty"`
}

type ReassignRequest struct {
	TableIDs []string `json:"table_ids"`
	Force    bool     `json:"force"`
}

type TransitionRequest struct {
	Target  floor.DiningStatus `json:"target"`
	ActorID string             `json:"actor_id"`
}

// TransitionResult carries the updated booking plus the next legal actions so
// the dashboard re-renders buttons without encoding legality itself.
type TransitionResult struct {
	Booking   floor.Booking            `json:"booking"`
	LegalNext []floor.TransitionOption `json:"legal_next"`
}
