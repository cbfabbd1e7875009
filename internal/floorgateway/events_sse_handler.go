package floorgateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

var ssePingInterval = 15 * time.Second

// EventsSSEHandler streams a restaurant's change feed. A reconnecting client
// sends Last-Event-ID (its highest seen version) and receives the backlog
// before the live tail; the periodic ping doubles as the heartbeat clients
// use for staleness detection.
func EventsSSEHandler(coord *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID := chi.URLParam(r, "restaurant_id")
		if restaurantID == "" {
			writeErr(w, http.StatusBadRequest, "restaurant_not_found")
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeErr(w, http.StatusInternalServerError, "stream_not_supported")
			return
		}

		setSSEHeaders(w)

		var after int64
		if v := r.Header.Get("Last-Event-ID"); v != "" {
			if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
				after = parsed
			}
		}

		// Subscribe before replaying so nothing lands in the gap; the sent
		// set below drops the overlap. Versions are unique per restaurant,
		// and its order can differ from commit order when writes to
		// different bookings race, so a single high-water mark would drop
		// the event that arrives late.
		ch, unsubscribe := coord.Subscribe(restaurantID)
		defer unsubscribe()

		replay, err := coord.EventsAfter(r.Context(), restaurantID, after)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "internal_error")
			return
		}
		sent := make(map[int64]struct{}, len(replay))
		for _, ev := range replay {
			if err := writeSSE(w, ev); err != nil {
				return
			}
			if ev.Version != 0 {
				sent[ev.Version] = struct{}{}
			}
		}
		flusher.Flush()

		ticker := time.NewTicker(ssePingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if ev.Version != 0 {
					if _, dup := sent[ev.Version]; dup {
						continue
					}
					sent[ev.Version] = struct{}{}
				}
				if err := writeSSE(w, ev); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if _, err := fmt.Fprintf(w, "event: ping\ndata: {\"ts\":%d}\n\n", time.Now().UnixMilli()); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

func writeSSE(w http.ResponseWriter, ev ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if ev.Version != 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", ev.Version); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "event: change\ndata: %s\n\n", data); err != nil {
		return err
	}
	return nil
}

func writeErr(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code})
}
