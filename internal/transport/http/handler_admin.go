package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"floorboard/internal/floor"
	"floorboard/internal/store"

	"github.com/go-chi/chi/v5"
)

// AdminHandlers covers floor setup: creating restaurants, laying out tables,
// and entering bookings. The dashboard proper only reads and transitions.
type AdminHandlers struct {
	store *store.Store
}

func NewAdminHandlers(st *store.Store) *AdminHandlers {
	return &AdminHandlers{store: st}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "db": "down"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "db": "up"})
	}
}

func (h *AdminHandlers) CreateRestaurant() http.HandlerFunc {
	type createReq struct {
		Name string `json:"name"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req createReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		id, err := h.store.CreateRestaurant(r.Context(), req.Name)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": id})
	}
}

func (h *AdminHandlers) CreateTable() http.HandlerFunc {
	type createReq struct {
		Label     int             `json:"label"`
		MinCovers int             `json:"min_covers"`
		MaxCovers int             `json:"max_covers"`
		Type      floor.TableType `json:"type"`
		X         float64         `json:"x"`
		Y         float64         `json:"y"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req createReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if req.Label <= 0 || req.MaxCovers <= 0 || req.MinCovers > req.MaxCovers ||
			req.X < 0 || req.X > 1 || req.Y < 0 || req.Y > 1 {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		id, err := h.store.CreateTable(r.Context(), floor.Table{
			RestaurantID: chi.URLParam(r, "restaurant_id"),
			Label:        req.Label,
			MinCovers:    req.MinCovers,
			MaxCovers:    req.MaxCovers,
			Type:         req.Type,
			X:            req.X,
			Y:            req.Y,
		})
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": id})
	}
}

func (h *AdminHandlers) CreateBooking() http.HandlerFunc {
	type createReq struct {
		ScheduledAt time.Time `json:"scheduled_at"`
		TurnMinutes int       `json:"turn_minutes"`
		PartySize   int       `json:"party_size"`
		TableIDs    []string  `json:"table_ids"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req createReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if req.ScheduledAt.IsZero() || req.PartySize <= 0 || req.TurnMinutes < 0 {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		b, err := h.store.CreateBooking(r.Context(), floor.Booking{
			RestaurantID: chi.URLParam(r, "restaurant_id"),
			ScheduledAt:  req.ScheduledAt,
			TurnTime:     time.Duration(req.TurnMinutes) * time.Minute,
			PartySize:    req.PartySize,
			TableIDs:     req.TableIDs,
		})
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(b)
	}
}
