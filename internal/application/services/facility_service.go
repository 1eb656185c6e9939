package services

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/carefinder/internal/domain/entities"
	"github.com/zatekoja/carefinder/internal/domain/providers"
	"github.com/zatekoja/carefinder/internal/domain/repositories"
	"github.com/zatekoja/carefinder/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/carefinder/pkg/errors"
)

const directionsBaseURL = "https://www.google.com/maps/dir/"

// Feature names accepted by SearchQuery.Features.
var knownFeatures = map[string]bool{"wheelchair": true, "parking": true, "xray": true}

// SearchOptions configures FacilityService.
type SearchOptions struct {
	DefaultRadiusKm float64
	MaxRadiusKm     float64
	// Location is the zone opening hours are evaluated in. Nil means UTC.
	Location *time.Location
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// FacilityService handles facility lookups and proximity searches
type FacilityService struct {
	repo     repositories.FacilityRepository
	geocoder providers.Geocoder
	opts     SearchOptions
}

// NewFacilityService creates a new facility service
func NewFacilityService(repo repositories.FacilityRepository, geocoder providers.Geocoder, opts SearchOptions) *FacilityService {
	if opts.DefaultRadiusKm <= 0 {
		opts.DefaultRadiusKm = 10
	}
	if opts.MaxRadiusKm < opts.DefaultRadiusKm {
		opts.MaxRadiusKm = math.Max(50, opts.DefaultRadiusKm)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &FacilityService{
		repo:     repo,
		geocoder: geocoder,
		opts:     opts,
	}
}

// GetByID retrieves a facility by ID
func (s *FacilityService) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	return s.repo.GetByID(ctx, id)
}

// Geocode resolves a free-text location with the configured geocoder.
func (s *FacilityService) Geocode(ctx context.Context, location string) (entities.Coordinate, error) {
	if strings.TrimSpace(location) == "" {
		return entities.Coordinate{}, apperrors.NewValidationError("Provide postcode")
	}
	return s.geocoder.Geocode(ctx, location)
}

// Search resolves the query origin, annotates every candidate with its distance and
// opening status at a single instant, and returns the matches nearest first.
func (s *FacilityService) Search(ctx context.Context, query entities.SearchQuery) (*entities.SearchResponse, error) {
	ctx, span := observability.StartSpan(ctx, "facility.search")
	defer span.End()

	if err := s.normalize(&query); err != nil {
		return nil, err
	}

	origin, err := s.resolveOrigin(ctx, query)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	candidates, err := s.repo.List(ctx, repositories.FacilityFilter{Category: query.Category})
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewInternalError("failed to list facilities", err)
	}

	now := s.opts.Now().In(s.opts.Location)
	limit := query.RadiusKm * 1000

	results := make([]entities.SearchResult, 0, len(candidates))
	for _, f := range candidates {
		if query.Category != "" && f.Category != query.Category {
			continue
		}

		distance := int(math.Round(entities.DistanceMeters(origin, f.Location)))
		if float64(distance) > limit {
			continue
		}

		status := f.Opening.StatusAt(now)
		if query.OpenNow && !status.Open {
			continue
		}
		if !hasFeatures(&f, query.Features) {
			continue
		}

		results = append(results, entities.SearchResult{
			Facility:       f,
			DistanceMeters: distance,
			Status:         status,
			DirectionsURL:  DirectionsURL(f.Location),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceMeters < results[j].DistanceMeters
	})
	applySort(results, query.Sort)

	observability.SetSpanAttributes(span,
		attribute.String("search.category", string(query.Category)),
		attribute.Float64("search.radius_km", query.RadiusKm),
		attribute.Int("search.results", len(results)),
	)

	return &entities.SearchResponse{
		Origin:   origin,
		RadiusKm: query.RadiusKm,
		Results:  results,
		Count:    len(results),
	}, nil
}

func (s *FacilityService) normalize(q *entities.SearchQuery) error {
	if q.RadiusKm == 0 {
		q.RadiusKm = s.opts.DefaultRadiusKm
	}
	if math.IsNaN(q.RadiusKm) || q.RadiusKm <= 0 || q.RadiusKm > s.opts.MaxRadiusKm {
		return apperrors.NewValidationError(fmt.Sprintf("radius must be greater than 0 and at most %g km", s.opts.MaxRadiusKm))
	}
	if q.Category != "" && !q.Category.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("Unknown type: %s", q.Category))
	}
	if q.Sort == "" {
		q.Sort = entities.SortNearest
	}
	if !q.Sort.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("Unknown sort: %s", q.Sort))
	}
	for _, name := range q.Features {
		if !knownFeatures[name] {
			return apperrors.NewValidationError(fmt.Sprintf("Unknown feature: %s", name))
		}
	}
	return nil
}

func (s *FacilityService) resolveOrigin(ctx context.Context, q entities.SearchQuery) (entities.Coordinate, error) {
	if q.OriginCoord != nil {
		if err := q.OriginCoord.Validate(); err != nil {
			return entities.Coordinate{}, apperrors.NewValidationError(err.Error())
		}
		return *q.OriginCoord, nil
	}
	if strings.TrimSpace(q.OriginText) == "" {
		return entities.Coordinate{}, apperrors.NewValidationError("Provide postcode or lat/lon")
	}
	if s.geocoder == nil {
		return entities.Coordinate{}, apperrors.NewInternalError("no geocoder configured", nil)
	}
	return s.geocoder.Geocode(ctx, q.OriginText)
}

func hasFeatures(f *entities.Facility, names []string) bool {
	for _, name := range names {
		if !f.HasFeature(name) {
			return false
		}
	}
	return true
}

// applySort reorders results already sorted by distance. Every ordering is stable,
// so distance remains the tie-breaker.
func applySort(results []entities.SearchResult, key entities.SortKey) {
	switch key {
	case entities.SortOpen:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Status.Open && !results[j].Status.Open
		})
	case entities.SortClosing:
		sort.SliceStable(results, func(i, j int) bool {
			return lessOptional(results[i].Status.ClosesInMinutes, results[j].Status.ClosesInMinutes)
		})
	case entities.SortWait:
		sort.SliceStable(results, func(i, j int) bool {
			return lessOptional(results[i].WaitMinutes, results[j].WaitMinutes)
		})
	}
}

// lessOptional orders known values ascending with unknown values last.
func lessOptional(a, b *int) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a < *b
	}
}

// DirectionsURL links to turn-by-turn directions to c.
func DirectionsURL(c entities.Coordinate) string {
	params := url.Values{}
	params.Set("api", "1")
	params.Set("destination", fmt.Sprintf("%g,%g", c.Lat, c.Lon))
	return directionsBaseURL + "?" + params.Encode()
}
