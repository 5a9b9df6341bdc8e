// README: Entry point; loads config, wires services, starts the HTTP server
// and the offline replay sweeper.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	aiprovider "deliverycity/internal/ai"
	"deliverycity/internal/config"
	httptransport "deliverycity/internal/http"
	"deliverycity/internal/infra"
	"deliverycity/internal/maps"
	"deliverycity/internal/modules/courier"
	"deliverycity/internal/modules/customer"
	"deliverycity/internal/modules/dispatch"
	"deliverycity/internal/modules/location"
	"deliverycity/internal/modules/order"
	"deliverycity/internal/modules/restaurant"
	"deliverycity/internal/offline"
)

// replayInterval is the periodic sweep for queued offline confirmations.
const replayInterval = 30 * time.Second

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Error("DC_JWT_SECRET is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	// Live routing and geocoding are optional: absent an API key the
	// estimator serves heuristic fallbacks and reverse geocoding is off.
	var travelProvider location.TravelTimeProvider
	var geocodeSvc *maps.GeocodeService
	if cfg.Maps.APIKey != "" {
		distanceSvc, err := maps.NewDistanceService(cfg.Maps.APIKey)
		if err != nil {
			log.Error("maps client init failed", "error", err)
			os.Exit(1)
		}
		travelProvider = distanceSvc
		geocodeSvc, err = maps.NewGeocodeService(cfg.Maps.APIKey)
		if err != nil {
			log.Error("maps client init failed", "error", err)
			os.Exit(1)
		}
	}
	estimator := location.NewEstimator(travelProvider, log)

	var descProvider aiprovider.DescriptionProvider
	if cfg.AI.GeminiKey != "" {
		gemini, err := aiprovider.NewGeminiProvider(ctx, cfg.AI.GeminiKey)
		if err != nil {
			log.Error("gemini init failed", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		descProvider = gemini
	}

	if err := os.MkdirAll(cfg.Offline.Dir, 0o700); err != nil {
		log.Error("offline dir init failed", "error", err)
		os.Exit(1)
	}
	offlineStore := offline.NewStore(cfg.Offline.Dir, log)

	courierStore := courier.NewStore(dbPool, redisClient)
	courierSvc := courier.NewService(courierStore, log)

	customerStore := customer.NewStore(dbPool)
	customerSvc := customer.NewService(customerStore, log)

	restaurantStore := restaurant.NewStore(dbPool)
	restaurantSvc := restaurant.NewService(restaurantStore, descProvider, log)

	orderStore := order.NewStore(dbPool)
	orderSvc := order.NewService(orderStore, restaurantSvc, offlineStore, courierSvc, restaurantSvc, cfg.Checkout, log)

	dispatchSvc := dispatch.NewService(orderSvc, courierSvc, restaurantSvc, log)

	confirmer := offline.NewDurableConfirmer(offlineStore, orderSvc, log)
	reconciler := offline.NewReconciler(offlineStore, orderSvc, log)

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Orders:      orderSvc,
		Customers:   customerSvc,
		Couriers:    courierSvc,
		Restaurants: restaurantSvc,
		Dispatch:    dispatchSvc,
		Confirmer:   confirmer,
		Reconciler:  reconciler,
		Offline:     offlineStore,
		Estimator:   estimator,
		Geocode:     geocodeSvc,
		JWTSecret:   cfg.Auth.JWTSecret,
		Log:         log,
	})

	go runReplaySweeper(ctx, reconciler, log)

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("listening", "addr", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// runReplaySweeper periodically retries queued offline confirmations so a
// reconnect is never required to drain the queue.
func runReplaySweeper(ctx context.Context, r *offline.Reconciler, log *slog.Logger) {
	ticker := time.NewTicker(replayInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if applied := r.Replay(ctx); applied > 0 {
				log.Info("offline confirmations replayed", "applied", applied)
			}
		}
	}
}
