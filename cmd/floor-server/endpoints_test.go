package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"floorboard/internal/app/floorops"
	"floorboard/internal/config"
	"floorboard/internal/floor"
	"floorboard/internal/floorgateway"
	"floorboard/internal/store"
	"floorboard/internal/testutil"
	httptransport "floorboard/internal/transport/http"

	"github.com/go-chi/chi/v5"
)

func newEndpointRouter(st *store.Store) *chi.Mux {
	svc := floorops.NewService(st, floorops.Config{})
	coord := floorgateway.NewCoordinator(svc, st)
	return httptransport.NewRouter(st, coord)
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeID(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode id: %v", err)
	}
	return resp.ID
}

func TestFloorEndpointsEndToEnd(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	router := newEndpointRouter(st)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz expected 200, got %d", w.Code)
	}

	w = postJSON(t, router, "/api/restaurants", `{"name":"E2E Bistro"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create restaurant expected 201, got %d: %s", w.Code, w.Body.String())
	}
	rid := decodeID(t, w)

	w = postJSON(t, router, "/api/restaurants/"+rid+"/tables",
		`{"label":1,"min_covers":2,"max_covers":4,"type":"booth","x":0.2,"y":0.3}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create table expected 201, got %d: %s", w.Code, w.Body.String())
	}
	tid := decodeID(t, w)

	scheduled := time.Now().Format(time.RFC3339)
	w = postJSON(t, router, "/api/restaurants/"+rid+"/bookings",
		fmt.Sprintf(`{"scheduled_at":%q,"party_size":2,"table_ids":[%q]}`, scheduled, tid))
	if w.Code != http.StatusCreated {
		t.Fatalf("create booking expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var booking floor.Booking
	if err := json.Unmarshal(w.Body.Bytes(), &booking); err != nil {
		t.Fatalf("decode booking: %v", err)
	}
	if booking.Status != floor.StatusPending {
		t.Fatalf("new booking status = %s, want pending", booking.Status)
	}

	// Walk the party through arrival; the first arrived transition stamps
	// check-in.
	for _, target := range []string{"confirmed", "arrived", "seated"} {
		w = postJSON(t, router, "/api/bookings/"+booking.ID+"/transition",
			fmt.Sprintf(`{"target":%q,"actor_id":"host-1"}`, target))
		if w.Code != http.StatusOK {
			t.Fatalf("transition to %s expected 200, got %d: %s", target, w.Code, w.Body.String())
		}
	}
	var res floorops.TransitionResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode transition: %v", err)
	}
	if res.Booking.CheckInAt == nil {
		t.Fatal("check-in not stamped after arrival")
	}

	// A client still holding an old view is rejected, not silently merged:
	// the seated booking cannot re-run pending's transitions.
	w = postJSON(t, router, "/api/bookings/"+booking.ID+"/transition", `{"target":"confirmed"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("stale-view transition expected 400, got %d", w.Code)
	}

	// Seated party shows as the table's current occupant.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/restaurants/"+rid+"/occupancy", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("occupancy expected 200, got %d", w.Code)
	}
	var view floorops.OccupancyView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode occupancy: %v", err)
	}
	if occ := view.Tables[tid]; occ.Current == nil || occ.Current.ID != booking.ID {
		t.Fatalf("table %s current = %+v, want booking %s", tid, view.Tables[tid].Current, booking.ID)
	}

	// Drag the table and confirm the absolute position landed.
	req := httptest.NewRequest(http.MethodPatch, "/api/tables/"+tid+"/position", strings.NewReader(`{"x":0.8,"y":0.9}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("position expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Every mutation so far is in the change feed, versions ascending.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/restaurants/"+rid+"/changes?after=0", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("changes expected 200, got %d", w.Code)
	}
	var changes struct {
		Items []floorgateway.ChangeEvent `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &changes); err != nil {
		t.Fatalf("decode changes: %v", err)
	}
	if len(changes.Items) < 5 {
		t.Fatalf("expected at least 5 change events, got %d", len(changes.Items))
	}
	for i := 1; i < len(changes.Items); i++ {
		if changes.Items[i].Version <= changes.Items[i-1].Version {
			t.Fatalf("change versions not ascending at %d: %d then %d",
				i, changes.Items[i-1].Version, changes.Items[i].Version)
		}
	}
}

func TestSeedDemoFloor(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()

	ctx := context.Background()
	if err := seedDemoFloor(ctx, st, config.EngineConfig{TurnTimeMinutes: 90}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var tables, bookings int
	if err := st.Pool.QueryRow(ctx, `SELECT count(*) FROM floor_tables`).Scan(&tables); err != nil {
		t.Fatalf("count tables: %v", err)
	}
	if err := st.Pool.QueryRow(ctx, `SELECT count(*) FROM bookings`).Scan(&bookings); err != nil {
		t.Fatalf("count bookings: %v", err)
	}
	if tables != 5 {
		t.Fatalf("seeded %d tables, want 5", tables)
	}
	if bookings != 3 {
		t.Fatalf("seeded %d bookings, want 3", bookings)
	}

	var turn int
	if err := st.Pool.QueryRow(ctx, `SELECT turn_minutes FROM bookings LIMIT 1`).Scan(&turn); err != nil {
		t.Fatalf("read turn: %v", err)
	}
	if turn != 90 {
		t.Fatalf("turn_minutes = %d, want configured 90", turn)
	}
}
