package geolocation

import (
	"context"
	"fmt"

	"github.com/zatekoja/carefinder/internal/domain/entities"
	"github.com/zatekoja/carefinder/internal/domain/providers"
	apperrors "github.com/zatekoja/carefinder/pkg/errors"
)

// MockGeocoder resolves a fixed set of postcodes and outward codes without network
// access. It is used for local development and demos.
type MockGeocoder struct {
	postcodes map[string]entities.Coordinate
	outcodes  map[string]entities.Coordinate
}

// NewMockGeocoder creates a mock geocoder seeded with a handful of UK locations.
func NewMockGeocoder() providers.Geocoder {
	return &MockGeocoder{
		postcodes: map[string]entities.Coordinate{
			"BN214YB": {Lat: 50.7712, Lon: 0.2775},
			"BN211UD": {Lat: 50.7687, Lon: 0.2837},
			"BN11AA":  {Lat: 50.8214, Lon: -0.1394},
			"SW1A1AA": {Lat: 51.5010, Lon: -0.1416},
			"M11AE":   {Lat: 53.4808, Lon: -2.2426},
		},
		outcodes: map[string]entities.Coordinate{
			"BN21": {Lat: 50.7716, Lon: 0.2760},
			"BN22": {Lat: 50.7880, Lon: 0.2860},
			"BN1":  {Lat: 50.8300, Lon: -0.1400},
			"SW1A": {Lat: 51.5020, Lon: -0.1300},
		},
	}
}

// Geocode matches the compact postcode first, then its outward code.
func (m *MockGeocoder) Geocode(_ context.Context, raw string) (entities.Coordinate, error) {
	normalized := NormalizePostcode(raw)
	if c, ok := m.postcodes[CompactPostcode(normalized)]; ok {
		return c, nil
	}
	if out, ok := OutwardCode(normalized); ok {
		if c, ok := m.outcodes[out]; ok {
			return c, nil
		}
	}
	return entities.Coordinate{}, apperrors.NewLocationNotFoundError(raw, fmt.Errorf("not in mock table"))
}
