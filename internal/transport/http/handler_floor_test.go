package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"floorboard/internal/app/floorops"
	"floorboard/internal/floor"
	"floorboard/internal/floorgateway"
	"floorboard/internal/store"

	"github.com/go-chi/chi/v5"
)

type memStore struct {
	bookings map[string]floor.Booking
	tables   map[string]floor.Table
	version  int64
}

func newMemStore() *memStore {
	return &memStore{bookings: map[string]floor.Booking{}, tables: map[string]floor.Table{}}
}

func (m *memStore) nextVersion() int64 {
	m.version++
	return m.version
}

func (m *memStore) GetBooking(_ context.Context, id string) (*floor.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (m *memStore) ListBookingsForDay(_ context.Context, restaurantID string, _ time.Time) ([]floor.Booking, error) {
	var out []floor.Booking
	for _, b := range m.bookings {
		if b.RestaurantID == restaurantID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) UpdateBookingStatus(_ context.Context, id string, from, to floor.DiningStatus, checkIn *time.Time) (*floor.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if b.Status != from {
		return nil, store.ErrStale
	}
	b.Status = to
	if checkIn != nil && b.CheckInAt == nil {
		b.CheckInAt = checkIn
	}
	b.Version = m.nextVersion()
	m.bookings[id] = b
	return &b, nil
}

func (m *memStore) ReassignTables(_ context.Context, bookingID string, tableIDs []string) (*floor.Booking, error) {
	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, store.ErrNotFound
	}
	b.TableIDs = tableIDs
	b.Version = m.nextVersion()
	m.bookings[bookingID] = b
	return &b, nil
}

func (m *memStore) ListTables(_ context.Context, restaurantID string) ([]floor.Table, error) {
	var out []floor.Table
	for _, t := range m.tables {
		if t.RestaurantID == restaurantID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) GetTablesByIDs(_ context.Context, ids []string) ([]floor.Table, error) {
	var out []floor.Table
	for _, id := range ids {
		if t, ok := m.tables[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) UpdateTablePosition(_ context.Context, tableID string, x, y float64) (*floor.Table, error) {
	t, ok := m.tables[tableID]
	if !ok {
		return nil, store.ErrNotFound
	}
	t.X, t.Y = x, y
	t.Version = m.nextVersion()
	m.tables[tableID] = t
	return &t, nil
}

func (m *memStore) ListChangesAfter(context.Context, string, int64, int) ([]store.Change, error) {
	return nil, nil
}

func newTestRouter(m *memStore) *chi.Mux {
	svc := floorops.NewService(m, floorops.Config{})
	coord := floorgateway.NewCoordinator(svc, m)
	h := NewFloorHandlers(coord, m)

	r := chi.NewRouter()
	r.Get("/api/restaurants/{restaurant_id}/occupancy", h.Occupancy())
	r.Get("/api/restaurants/{restaurant_id}/tables", h.Tables())
	r.Get("/api/restaurants/{restaurant_id}/bookings", h.Bookings())
	r.Get("/api/restaurants/{restaurant_id}/changes", h.Changes())
	r.Get("/api/bookings/{booking_id}", h.Booking())
	r.Post("/api/bookings/{booking_id}/transition", h.Transition())
	r.Post("/api/bookings/{booking_id}/tables", h.Reassign())
	r.Patch("/api/tables/{table_id}/position", h.TablePosition())
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error
}

func TestOccupancyEndpoint(t *testing.T) {
	m := newMemStore()
	m.tables["t1"] = floor.Table{ID: "t1", RestaurantID: "r1", Label: 1, MaxCovers: 4, Active: true}
	m.bookings["b1"] = floor.Booking{
		ID: "b1", RestaurantID: "r1", Status: floor.StatusSeated,
		TableIDs: []string{"t1"}, ScheduledAt: time.Now().Add(-30 * time.Minute), PartySize: 2,
	}
	r := newTestRouter(m)

	w := do(t, r, http.MethodGet, "/api/restaurants/r1/occupancy", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var view floorops.OccupancyView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	occ, ok := view.Tables["t1"]
	if !ok {
		t.Fatal("table t1 missing from view")
	}
	if occ.Current == nil || occ.Current.ID != "b1" {
		t.Fatalf("current = %+v, want booking b1", occ.Current)
	}
}

func TestOccupancyRejectsBadAsOf(t *testing.T) {
	r := newTestRouter(newMemStore())
	w := do(t, r, http.MethodGet, "/api/restaurants/r1/occupancy?as_of=yesterday", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestTransitionEndpoint(t *testing.T) {
	m := newMemStore()
	m.bookings["b1"] = floor.Booking{ID: "b1", RestaurantID: "r1", Status: floor.StatusSeated, PartySize: 2}
	r := newTestRouter(m)

	w := do(t, r, http.MethodPost, "/api/bookings/b1/transition", `{"target":"ordered","actor_id":"staff-1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res floorops.TransitionResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Booking.Status != floor.StatusOrdered {
		t.Fatalf("status = %s, want ordered", res.Booking.Status)
	}
	if len(res.LegalNext) == 0 {
		t.Fatal("legal_next empty after non-terminal transition")
	}
}

func TestTransitionErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		seed       floor.DiningStatus
		body       string
		wantStatus int
		wantCode   string
	}{
		{"illegal jump", floor.StatusPending, `{"target":"dessert"}`, http.StatusBadRequest, "invalid_transition"},
		{"no-show after arrival", floor.StatusSeated, `{"target":"no_show"}`, http.StatusBadRequest, "invalid_transition"},
		{"unknown status", floor.StatusPending, `{"target":"vanished"}`, http.StatusBadRequest, "invalid_request"},
		{"terminal is frozen", floor.StatusCompleted, `{"target":"seated"}`, http.StatusBadRequest, "invalid_transition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMemStore()
			m.bookings["b1"] = floor.Booking{ID: "b1", RestaurantID: "r1", Status: tt.seed, PartySize: 2}
			r := newTestRouter(m)

			w := do(t, r, http.MethodPost, "/api/bookings/b1/transition", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if got := errCode(t, w); got != tt.wantCode {
				t.Fatalf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestTransitionUnknownBooking(t *testing.T) {
	r := newTestRouter(newMemStore())
	w := do(t, r, http.MethodPost, "/api/bookings/nope/transition", `{"target":"confirmed"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestReassignCapacityExceeded(t *testing.T) {
	m := newMemStore()
	m.tables["t1"] = floor.Table{ID: "t1", RestaurantID: "r1", Label: 1, MaxCovers: 2, Active: true}
	m.bookings["b1"] = floor.Booking{ID: "b1", RestaurantID: "r1", Status: floor.StatusConfirmed, PartySize: 6}
	r := newTestRouter(m)

	w := do(t, r, http.MethodPost, "/api/bookings/b1/tables", `{"table_ids":["t1"]}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body %s)", w.Code, w.Body.String())
	}
	if got := errCode(t, w); got != "capacity_exceeded" {
		t.Fatalf("code = %q, want capacity_exceeded", got)
	}
}

func TestReassignOccupiedConflictAndForce(t *testing.T) {
	m := newMemStore()
	m.tables["t1"] = floor.Table{ID: "t1", RestaurantID: "r1", Label: 1, MaxCovers: 4, Active: true}
	m.bookings["sitting"] = floor.Booking{
		ID: "sitting", RestaurantID: "r1", Status: floor.StatusMainCourse,
		TableIDs: []string{"t1"}, ScheduledAt: time.Now().Add(-time.Hour), PartySize: 2,
	}
	m.bookings["moving"] = floor.Booking{ID: "moving", RestaurantID: "r1", Status: floor.StatusConfirmed, PartySize: 2}
	r := newTestRouter(m)

	w := do(t, r, http.MethodPost, "/api/bookings/moving/tables", `{"table_ids":["t1"]}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (body %s)", w.Code, w.Body.String())
	}
	if got := errCode(t, w); got != "table_occupied_conflict" {
		t.Fatalf("code = %q, want table_occupied_conflict", got)
	}

	w = do(t, r, http.MethodPost, "/api/bookings/moving/tables", `{"table_ids":["t1"],"force":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("forced status = %d, body = %s", w.Code, w.Body.String())
	}
	var b floor.Booking
	if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(b.TableIDs) != 1 || b.TableIDs[0] != "t1" {
		t.Fatalf("table_ids = %v, want [t1]", b.TableIDs)
	}
}

func TestReassignRejectsOversizedSet(t *testing.T) {
	r := newTestRouter(newMemStore())
	ids := make([]string, maxReassignTables+1)
	for i := range ids {
		ids[i] = "t"
	}
	body, _ := json.Marshal(map[string]any{"table_ids": ids})
	w := do(t, r, http.MethodPost, "/api/bookings/b1/tables", string(body))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestTablePositionEndpoint(t *testing.T) {
	m := newMemStore()
	m.tables["t1"] = floor.Table{ID: "t1", RestaurantID: "r1", Label: 1, MaxCovers: 4, Active: true}
	r := newTestRouter(m)

	w := do(t, r, http.MethodPatch, "/api/tables/t1/position", `{"x":0.25,"y":0.75}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var tb floor.Table
	if err := json.Unmarshal(w.Body.Bytes(), &tb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tb.X != 0.25 || tb.Y != 0.75 {
		t.Fatalf("position = (%v, %v), want (0.25, 0.75)", tb.X, tb.Y)
	}

	w = do(t, r, http.MethodPatch, "/api/tables/t1/position", `{"x":1.5,"y":0.5}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("out-of-bounds status = %d, want 400", w.Code)
	}
}

func TestChangesPolling(t *testing.T) {
	m := newMemStore()
	m.bookings["b1"] = floor.Booking{ID: "b1", RestaurantID: "r1", Status: floor.StatusPending, PartySize: 2}
	r := newTestRouter(m)

	w := do(t, r, http.MethodPost, "/api/bookings/b1/transition", `{"target":"confirmed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("transition status = %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/api/restaurants/r1/changes?after=0", "")
	if w.Code != http.StatusOK {
		t.Fatalf("changes status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Items []floorgateway.ChangeEvent `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("got %d events, want 1", len(resp.Items))
	}
	if resp.Items[0].RecordID != "b1" || resp.Items[0].Entity != store.EntityBooking {
		t.Fatalf("event = %+v, want booking b1", resp.Items[0])
	}

	w = do(t, r, http.MethodGet, "/api/restaurants/r1/changes?after=oops", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad cursor status = %d, want 400", w.Code)
	}
}
