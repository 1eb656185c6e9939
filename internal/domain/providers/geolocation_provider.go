package providers

import (
	"context"

	"github.com/zatekoja/carefinder/internal/domain/entities"
)

// Geocoder converts a free-text location into coordinates
type Geocoder interface {
	Geocode(ctx context.Context, query string) (entities.Coordinate, error)
}

// GeocoderFunc adapts a function to the Geocoder interface.
type GeocoderFunc func(ctx context.Context, query string) (entities.Coordinate, error)

// Geocode calls f.
func (f GeocoderFunc) Geocode(ctx context.Context, query string) (entities.Coordinate, error) {
	return f(ctx, query)
}
