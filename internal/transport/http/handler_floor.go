package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"floorboard/internal/app/floorops"
	"floorboard/internal/floor"
	"floorboard/internal/floorgateway"

	"github.com/go-chi/chi/v5"
)

// Eight tables is already an implausible join for one party; anything larger
// is a malformed request, not a layout decision.
const maxReassignTables = 8

// FloorReads is the read-only store surface the floor handlers use directly,
// bypassing the coordinator for queries that publish nothing.
type FloorReads interface {
	ListTables(ctx context.Context, restaurantID string) ([]floor.Table, error)
	ListBookingsForDay(ctx context.Context, restaurantID string, at time.Time) ([]floor.Booking, error)
	GetBooking(ctx context.Context, id string) (*floor.Booking, error)
}

type FloorHandlers struct {
	coord *floorgateway.Coordinator
	reads FloorReads
}

func NewFloorHandlers(coord *floorgateway.Coordinator, reads FloorReads) *FloorHandlers {
	return &FloorHandlers{coord: coord, reads: reads}
}

func (h *FloorHandlers) Occupancy() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID := chi.URLParam(r, "restaurant_id")
		asOf := time.Now()
		if v := r.URL.Query().Get("as_of"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
				return
			}
			asOf = t
		}
		metricOccupancyQueryTotal.Add(1)
		view, err := h.coord.GetOccupancy(r.Context(), restaurantID, asOf)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(view)
	}
}

func (h *FloorHandlers) Tables() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tables, err := h.reads.ListTables(r.Context(), chi.URLParam(r, "restaurant_id"))
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": tables})
	}
}

func (h *FloorHandlers) Bookings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		at := time.Now()
		if v := r.URL.Query().Get("date"); v != "" {
			d, err := time.Parse("2006-01-02", v)
			if err != nil {
				WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
				return
			}
			at = d.Add(12 * time.Hour)
		}
		bookings, err := h.reads.ListBookingsForDay(r.Context(), chi.URLParam(r, "restaurant_id"), at)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": bookings})
	}
}

func (h *FloorHandlers) Booking() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := h.reads.GetBooking(r.Context(), chi.URLParam(r, "booking_id"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		resp := floorops.TransitionResult{Booking: *b, LegalNext: floor.LegalNext(b.Status)}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *FloorHandlers) Transition() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req floorops.TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if !req.Target.Valid() {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		metricTransitionTotal.Add(1)
		res, err := h.coord.ApplyTransition(r.Context(), chi.URLParam(r, "booking_id"), req.Target, req.ActorID)
		if err != nil {
			metricTransitionErrors.Add(1)
			writeEngineError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(res)
	}
}

func (h *FloorHandlers) Reassign() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req floorops.ReassignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if len(req.TableIDs) == 0 || len(req.TableIDs) > maxReassignTables {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		metricReassignTotal.Add(1)
		b, err := h.coord.ReassignTables(r.Context(), chi.URLParam(r, "booking_id"), req.TableIDs, req.Force, time.Now())
		if err != nil {
			metricReassignErrors.Add(1)
			writeEngineError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(b)
	}
}

func (h *FloorHandlers) TablePosition() http.HandlerFunc {
	type positionReq struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req positionReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		t, err := h.coord.UpdateTablePosition(r.Context(), chi.URLParam(r, "table_id"), req.X, req.Y)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(t)
	}
}

// Changes is the polling fallback for clients without a live event stream:
// everything after the cursor, from the in-memory buffer or the change log.
func (h *FloorHandlers) Changes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after := int64(0)
		if v := r.URL.Query().Get("after"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
				return
			}
			after = n
		}
		events, err := h.coord.EventsAfter(r.Context(), chi.URLParam(r, "restaurant_id"), after)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if events == nil {
			events = []floorgateway.ChangeEvent{}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": events})
	}
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, floorops.ErrInvalidRequest):
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, floor.ErrInvalidTransition):
		WriteHTTPError(w, http.StatusBadRequest, "invalid_transition")
	case errors.Is(err, floorops.ErrNotFound):
		WriteHTTPError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, floorops.ErrStaleTransition):
		WriteHTTPError(w, http.StatusConflict, "stale_transition")
	case errors.Is(err, floorops.ErrTableOccupiedConflict):
		WriteHTTPError(w, http.StatusConflict, "table_occupied_conflict")
	case errors.Is(err, floorops.ErrCapacityExceeded):
		WriteHTTPError(w, http.StatusUnprocessableEntity, "capacity_exceeded")
	default:
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}
