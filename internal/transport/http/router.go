package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"floorboard/internal/floorgateway"
	"floorboard/internal/store"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func NewRouter(st *store.Store, coord *floorgateway.Coordinator) *chi.Mux {
	floorHandlers := NewFloorHandlers(coord, st)
	adminHandlers := NewAdminHandlers(st)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())

		r.Post("/restaurants", adminHandlers.CreateRestaurant())
		r.Post("/restaurants/{restaurant_id}/tables", adminHandlers.CreateTable())
		r.Post("/restaurants/{restaurant_id}/bookings", adminHandlers.CreateBooking())

		r.Get("/restaurants/{restaurant_id}/occupancy", floorHandlers.Occupancy())
		r.Get("/restaurants/{restaurant_id}/tables", floorHandlers.Tables())
		r.Get("/restaurants/{restaurant_id}/bookings", floorHandlers.Bookings())
		r.Get("/restaurants/{restaurant_id}/changes", floorHandlers.Changes())
		r.Get("/restaurants/{restaurant_id}/events", floorgateway.EventsSSEHandler(coord))

		r.Get("/bookings/{booking_id}", floorHandlers.Booking())
		r.Post("/bookings/{booking_id}/transition", floorHandlers.Transition())
		r.Post("/bookings/{booking_id}/tables", floorHandlers.Reassign())

		r.Patch("/tables/{table_id}/position", floorHandlers.TablePosition())

		r.Route("/debug", func(r chi.Router) {
			r.Use(BodyCaptureMiddleware(4096))
			r.Get("/vars", expvar.Handler().ServeHTTP)
		})
	})

	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 64)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
