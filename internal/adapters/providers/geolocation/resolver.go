package geolocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/zatekoja/carefinder/internal/domain/entities"
	"github.com/zatekoja/carefinder/internal/domain/providers"
	"github.com/zatekoja/carefinder/internal/infrastructure/observability"
	"github.com/zatekoja/carefinder/pkg/config"
	apperrors "github.com/zatekoja/carefinder/pkg/errors"
)

const cacheKeyPrefix = "geo:v1:postcode:"

// Tier is one strategy in the fallback chain. Lookup receives the normalized input
// and a context bounded by Timeout.
type Tier struct {
	Name    string
	Timeout time.Duration
	Lookup  func(ctx context.Context, normalized string) (entities.Coordinate, error)
}

// TieredResolver tries each tier in order and returns the first usable coordinate.
// Tier failures are logged and absorbed; only exhaustion of every tier is reported.
type TieredResolver struct {
	tiers    []Tier
	cache    providers.CacheProvider
	cacheTTL time.Duration
	metrics  *observability.Metrics
	flights  singleflight.Group
}

// NewTieredResolver creates a resolver over tiers. cache and metrics may be nil.
func NewTieredResolver(tiers []Tier, cache providers.CacheProvider, cacheTTL time.Duration, metrics *observability.Metrics) *TieredResolver {
	return &TieredResolver{
		tiers:    tiers,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  metrics,
	}
}

// UKPostcodeTiers builds the standard chain: exact postcode, fuzzy postcode search,
// outward-code centroid, then a free-text geocoder restricted by countryHint.
func UKPostcodeTiers(postcodes *PostcodesClient, nominatim *NominatimClient, lookupTimeout, fallbackTimeout time.Duration, countryHint string) []Tier {
	return []Tier{
		{
			Name:    "exact",
			Timeout: lookupTimeout,
			Lookup: func(ctx context.Context, normalized string) (entities.Coordinate, error) {
				return postcodes.LookupPostcode(ctx, CompactPostcode(normalized))
			},
		},
		{
			Name:    "fuzzy",
			Timeout: lookupTimeout,
			Lookup:  postcodes.SearchPostcodes,
		},
		{
			Name:    "outcode",
			Timeout: lookupTimeout,
			Lookup: func(ctx context.Context, normalized string) (entities.Coordinate, error) {
				out, ok := OutwardCode(normalized)
				if !ok {
					return entities.Coordinate{}, ErrNoResult
				}
				return postcodes.LookupOutcode(ctx, out)
			},
		},
		{
			Name:    "nominatim",
			Timeout: fallbackTimeout,
			Lookup: func(ctx context.Context, normalized string) (entities.Coordinate, error) {
				q := normalized
				if countryHint != "" {
					q = fmt.Sprintf("%s, %s", normalized, countryHint)
				}
				return nominatim.Search(ctx, q)
			},
		},
	}
}

// NewUKPostcodeResolver wires the standard chain from configuration.
func NewUKPostcodeResolver(cfg config.GeocodingConfig, httpClient *http.Client, cache providers.CacheProvider, metrics *observability.Metrics) *TieredResolver {
	breaker := BreakerSettings{
		ConsecutiveFailures: uint32(max(cfg.BreakerFailures, 1)),
		Cooldown:            cfg.BreakerCooldown,
	}
	postcodes := NewPostcodesClientWithOptions(cfg.PostcodesURL, httpClient, breaker)
	nominatim := NewNominatimClientWithOptions(cfg.NominatimURL, cfg.UserAgent, httpClient, breaker)
	tiers := UKPostcodeTiers(postcodes, nominatim, cfg.LookupTimeout, cfg.FallbackTimeout, cfg.CountryHint)
	return NewTieredResolver(tiers, cache, cfg.CacheTTL, metrics)
}

// Geocode resolves raw to a coordinate. Concurrent lookups of the same postcode share
// one pass through the tiers.
func (r *TieredResolver) Geocode(ctx context.Context, raw string) (entities.Coordinate, error) {
	normalized := NormalizePostcode(raw)
	if normalized == "" {
		return entities.Coordinate{}, apperrors.NewLocationNotFoundError(raw, errors.New("empty location"))
	}

	// Spacing variants of one postcode share a flight and a cache entry.
	key := cacheKeyPrefix + CompactPostcode(normalized)
	if c, ok := r.fromCache(ctx, key); ok {
		return c, nil
	}

	// The shared flight must outlive any single caller's cancellation; each tier
	// still carries its own timeout.
	flightCtx := context.WithoutCancel(ctx)
	ch := r.flights.DoChan(key, func() (interface{}, error) {
		c, err := r.resolve(flightCtx, raw, normalized)
		if err != nil {
			return nil, err
		}
		r.toCache(flightCtx, key, c)
		return c, nil
	})

	select {
	case <-ctx.Done():
		return entities.Coordinate{}, fmt.Errorf("geocode %q: %w", raw, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return entities.Coordinate{}, res.Err
		}
		return res.Val.(entities.Coordinate), nil
	}
}

func (r *TieredResolver) resolve(ctx context.Context, raw, normalized string) (entities.Coordinate, error) {
	ctx, span := observability.StartSpan(ctx, "geocode.resolve")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	var lastErr error
	for _, tier := range r.tiers {
		c, err := r.attempt(ctx, tier, normalized)
		if err == nil {
			observability.SetSpanAttributes(span, attribute.String("geocode.tier", tier.Name))
			logger.Debug().Str("postcode", normalized).Str("tier", tier.Name).Msg("postcode resolved")
			return c, nil
		}

		lastErr = apperrors.NewExternalError(fmt.Sprintf("geocoding tier %s failed", tier.Name), err)
		logger.Debug().Err(err).Str("postcode", normalized).Str("tier", tier.Name).Msg("geocoding tier failed, falling through")
	}

	logger.Warn().Str("postcode", normalized).Int("tiers", len(r.tiers)).Msg("postcode could not be resolved")
	notFound := apperrors.NewLocationNotFoundError(raw, lastErr)
	observability.RecordError(span, notFound)
	return entities.Coordinate{}, notFound
}

func (r *TieredResolver) attempt(ctx context.Context, tier Tier, normalized string) (c entities.Coordinate, err error) {
	tierCtx := ctx
	if tier.Timeout > 0 {
		var cancel context.CancelFunc
		tierCtx, cancel = context.WithTimeout(ctx, tier.Timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		outcome := "hit"
		switch {
		case errors.Is(err, ErrNoResult):
			outcome = "miss"
		case err != nil:
			outcome = "error"
		}
		observability.RecordGeocodeAttempt(ctx, r.metrics, tier.Name, outcome, time.Since(start))
	}()

	c, err = tier.Lookup(tierCtx, normalized)
	if err != nil {
		return entities.Coordinate{}, err
	}
	if err := c.Validate(); err != nil {
		return entities.Coordinate{}, err
	}
	return c, nil
}

func (r *TieredResolver) fromCache(ctx context.Context, key string) (entities.Coordinate, bool) {
	if r.cache == nil {
		return entities.Coordinate{}, false
	}
	raw, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			observability.LoggerFromContext(ctx).Debug().Err(err).Msg("geocode cache read failed")
		}
		observability.RecordCacheMiss(ctx, r.metrics, "geocode")
		return entities.Coordinate{}, false
	}
	var c entities.Coordinate
	if err := json.Unmarshal(raw, &c); err != nil || c.Validate() != nil {
		observability.RecordCacheMiss(ctx, r.metrics, "geocode")
		return entities.Coordinate{}, false
	}
	observability.RecordCacheHit(ctx, r.metrics, "geocode")
	return c, true
}

func (r *TieredResolver) toCache(ctx context.Context, key string, c entities.Coordinate) {
	if r.cache == nil || r.cacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, payload, int(r.cacheTTL.Seconds())); err != nil {
		observability.LoggerFromContext(ctx).Debug().Err(err).Msg("geocode cache write failed")
	}
}
