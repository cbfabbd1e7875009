package main

import (
	"context"
	"net/http"
	"time"

	"floorboard/internal/app/floorops"
	"floorboard/internal/config"
	"floorboard/internal/floor"
	"floorboard/internal/floorgateway"
	"floorboard/internal/logging"
	"floorboard/internal/store"
	httptransport "floorboard/internal/transport/http"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	st, err := store.New(cfg.Server.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer st.Close()
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}

	if cfg.Server.SeedDemoFloor {
		if err := seedDemoFloor(context.Background(), st, cfg.Engine); err != nil {
			log.Fatal().Err(err).Msg("seed demo floor failed")
		}
	}

	svc := floorops.NewService(st, floorops.Config{
		Derive: floor.DeriveConfig{
			WarnThreshold: cfg.Engine.WarnThreshold,
			UpcomingLimit: cfg.Engine.UpcomingLimit,
			HistoryLimit:  cfg.Engine.HistoryLimit,
		},
		PersistTimeout: cfg.Engine.PersistTimeout(),
	})
	coord := floorgateway.NewCoordinator(svc, st)

	r := httptransport.NewRouter(st, coord)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}

// seedDemoFloor creates a small restaurant with a handful of tables and
// tonight's bookings so a fresh checkout has something to render.
func seedDemoFloor(ctx context.Context, st *store.Store, engine config.EngineConfig) error {
	restaurantID, err := st.CreateRestaurant(ctx, "Demo Bistro")
	if err != nil {
		return err
	}

	tables := []floor.Table{
		{RestaurantID: restaurantID, Label: 1, MinCovers: 1, MaxCovers: 2, Type: floor.TableWindow, X: 0.15, Y: 0.2},
		{RestaurantID: restaurantID, Label: 2, MinCovers: 2, MaxCovers: 4, Type: floor.TableStandard, X: 0.4, Y: 0.2},
		{RestaurantID: restaurantID, Label: 3, MinCovers: 2, MaxCovers: 4, Type: floor.TableStandard, X: 0.65, Y: 0.2},
		{RestaurantID: restaurantID, Label: 4, MinCovers: 4, MaxCovers: 6, Type: floor.TableBooth, X: 0.15, Y: 0.6},
		{RestaurantID: restaurantID, Label: 5, MinCovers: 4, MaxCovers: 8, Type: floor.TablePrivate, X: 0.55, Y: 0.6},
	}
	tableIDs := make([]string, 0, len(tables))
	for _, t := range tables {
		id, err := st.CreateTable(ctx, t)
		if err != nil {
			return err
		}
		tableIDs = append(tableIDs, id)
	}

	turn := time.Duration(engine.TurnTimeMinutes) * time.Minute
	tonight := time.Now().Truncate(time.Hour)
	bookings := []floor.Booking{
		{RestaurantID: restaurantID, ScheduledAt: tonight, TurnTime: turn, PartySize: 2, Status: floor.StatusConfirmed, TableIDs: tableIDs[:1]},
		{RestaurantID: restaurantID, ScheduledAt: tonight.Add(30 * time.Minute), TurnTime: turn, PartySize: 4, Status: floor.StatusPending, TableIDs: tableIDs[1:2]},
		{RestaurantID: restaurantID, ScheduledAt: tonight.Add(time.Hour), TurnTime: turn, PartySize: 6, Status: floor.StatusConfirmed, TableIDs: tableIDs[3:4]},
	}
	for _, b := range bookings {
		if _, err := st.CreateBooking(ctx, b); err != nil {
			return err
		}
	}
	log.Info().Str("restaurant_id", restaurantID).Int("tables", len(tables)).Int("bookings", len(bookings)).Msg("demo floor seeded")
	return nil
}
