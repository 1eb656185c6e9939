package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/carefinder/internal/adapters/cache"
	"github.com/zatekoja/carefinder/internal/adapters/catalog"
	"github.com/zatekoja/carefinder/internal/adapters/providers/geolocation"
	"github.com/zatekoja/carefinder/internal/api/handlers"
	"github.com/zatekoja/carefinder/internal/api/middleware"
	"github.com/zatekoja/carefinder/internal/api/routes"
	"github.com/zatekoja/carefinder/internal/application/services"
	"github.com/zatekoja/carefinder/internal/domain/providers"
	"github.com/zatekoja/carefinder/internal/infrastructure/clients/redis"
	"github.com/zatekoja/carefinder/internal/infrastructure/observability"
	"github.com/zatekoja/carefinder/pkg/config"
)

// ServiceName is reported by the banner endpoint.
const ServiceName = "NHS Care Finder API"

// App is the fully wired service.
type App struct {
	Config  *config.Config
	Service *services.FacilityService
	Metrics *observability.Metrics

	cache       providers.CacheProvider
	redisClient *redis.Client
}

// New wires the catalog, cache, geocoder and service from cfg. A catalog that fails
// to load aborts startup; an unreachable Redis falls back to the in-process cache.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	metrics, err := observability.InitMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	places, err := catalog.Load(ctx, cfg.Catalog.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to load facility catalog: %w", err)
	}

	app := &App{Config: cfg, Metrics: metrics}

	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, using in-process cache")
		} else {
			app.redisClient = client
			app.cache = cache.NewRedisAdapter(client, "carefinder:")
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis cache initialized")
		}
	}
	if app.cache == nil {
		app.cache = cache.NewMemoryAdapter(cfg.Geocoding.CacheSize, cfg.Geocoding.CacheTTL)
	}

	var geocoder providers.Geocoder
	switch cfg.Geocoding.Provider {
	case "mock":
		log.Warn().Msg("Using mock geocoder; only a fixed set of postcodes will resolve")
		geocoder = geolocation.NewMockGeocoder()
	default:
		geocoder = geolocation.NewUKPostcodeResolver(cfg.Geocoding, &http.Client{}, app.cache, metrics)
	}

	location, err := time.LoadLocation(cfg.Search.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid search timezone: %w", err)
	}

	app.Service = services.NewFacilityService(places, geocoder, services.SearchOptions{
		DefaultRadiusKm: cfg.Search.DefaultRadiusKm,
		MaxRadiusKm:     cfg.Search.MaxRadiusKm,
		Location:        location,
	})
	return app, nil
}

// Handler builds the HTTP handler with the full middleware chain.
func (a *App) Handler() http.Handler {
	router := routes.NewRouter(
		handlers.NewFacilityHandler(a.Service, a.Config.Server.RequestTimeout),
		handlers.NewGeolocationHandler(a.Service),
		handlers.NewHealthHandler(ServiceName),
		middleware.NewCacheMiddleware(a.cache, nil, a.Metrics),
		a.Config.Server.AllowedOrigins,
		a.Metrics,
	)
	return router.SetupRoutes()
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight requests.
func (a *App) Serve(ctx context.Context) error {
	addr := a.Config.Server.Addr()
	server := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Leave room for the outer search deadline.
		WriteTimeout: a.Config.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error during server shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}

// Close releases external connections.
func (a *App) Close() error {
	if a.redisClient != nil {
		return a.redisClient.Close()
	}
	return nil
}
