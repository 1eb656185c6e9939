package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/carefinder/internal/api/handlers"
	"github.com/zatekoja/carefinder/internal/domain/entities"
	apperrors "github.com/zatekoja/carefinder/pkg/errors"
)

type MockFacilityService struct {
	mock.Mock
}

func (m *MockFacilityService) Search(ctx context.Context, query entities.SearchQuery) (*entities.SearchResponse, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SearchResponse), args.Error(1)
}

func (m *MockFacilityService) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Facility), args.Error(1)
}

func serve(h http.HandlerFunc, pattern, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func sampleResponse() *entities.SearchResponse {
	closes := 45
	return &entities.SearchResponse{
		Origin:   entities.Coordinate{Lat: 50.7712, Lon: 0.2804},
		RadiusKm: 10,
		Results: []entities.SearchResult{{
			Facility: entities.Facility{
				ID:       "walk-in-1",
				Name:     "Station Health Centre",
				Category: entities.CategoryWalkIn,
				Location: entities.Coordinate{Lat: 50.7692, Lon: 0.281},
				Opening: entities.WeeklySchedule{
					Mon: []entities.TimeWindow{{Open: "08:00", Close: "20:00"}},
				},
			},
			DistanceMeters: 230,
			Status:         entities.OpenStatus{Open: true, ClosesInMinutes: &closes},
			DirectionsURL:  "https://www.google.com/maps/dir/?api=1&destination=50.7692%2C0.281",
		}},
		Count: 1,
	}
}

func TestFacilityHandler_SearchPlaces_ReturnsContract(t *testing.T) {
	service := new(MockFacilityService)
	handler := handlers.NewFacilityHandler(service, time.Second)

	service.On("Search", mock.Anything, entities.SearchQuery{
		OriginText: "BN21 4YB",
		Category:   entities.CategoryWalkIn,
	}).Return(sampleResponse(), nil)

	rec := serve(handler.SearchPlaces, "GET /places", "/places?postcode=BN21+4YB&type=walk-in")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	query := body["query"].(map[string]interface{})
	assert.Equal(t, "BN21 4YB", query["postcode"])
	assert.Nil(t, query["lat"])
	assert.Nil(t, query["lon"])
	assert.Equal(t, "walk-in", query["type"])
	assert.Equal(t, 10.0, query["radius"])
	assert.Equal(t, map[string]interface{}{"lat": 50.7712, "lon": 0.2804}, query["origin"])
	assert.Equal(t, 1.0, body["count"])

	results := body["results"].([]interface{})
	require.Len(t, results, 1)
	first := results[0].(map[string]interface{})
	assert.Equal(t, "walk-in-1", first["id"])
	assert.Equal(t, "walk-in", first["type"])
	assert.Equal(t, 230.0, first["distanceMeters"])
	assert.Equal(t, map[string]interface{}{"open": true, "closesInMins": 45.0}, first["status"])
	assert.NotNil(t, first["opening"])
	assert.Contains(t, first["directionsUrl"], "destination=50.7692")
	service.AssertExpectations(t)
}

func TestFacilityHandler_SearchPlaces_ParsesCoordinatesAndRefinements(t *testing.T) {
	service := new(MockFacilityService)
	handler := handlers.NewFacilityHandler(service, 0)

	origin := &entities.Coordinate{Lat: 50.77, Lon: 0.28}
	service.On("Search", mock.Anything, entities.SearchQuery{
		OriginCoord: origin,
		RadiusKm:    5,
		OpenNow:     true,
		Features:    []string{"wheelchair", "xray"},
		Sort:        entities.SortWait,
	}).Return(&entities.SearchResponse{Origin: *origin, RadiusKm: 5, Results: []entities.SearchResult{}}, nil)

	rec := serve(handler.SearchPlaces, "GET /places",
		"/places?lat=50.77&lon=0.28&radius=5&open=true&wheelchair=1&parking=false&xray=true&sort=WAIT")
	require.Equal(t, http.StatusOK, rec.Code)

	var body handlersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Query.Lat)
	assert.Equal(t, 50.77, *body.Query.Lat)
	assert.Nil(t, body.Query.Postcode)
	assert.Equal(t, 0, body.Count)
	assert.NotNil(t, body.Results)
	service.AssertExpectations(t)
}

type handlersResponse struct {
	Query struct {
		Postcode *string  `json:"postcode"`
		Lat      *float64 `json:"lat"`
		Lon      *float64 `json:"lon"`
	} `json:"query"`
	Count   int               `json:"count"`
	Results []json.RawMessage `json:"results"`
}

func TestFacilityHandler_SearchPlaces_RejectsBadQueries(t *testing.T) {
	tests := map[string]string{
		"no origin":     "/places",
		"lat only":      "/places?lat=50.77",
		"both origins":  "/places?postcode=BN21&lat=50.77&lon=0.28",
		"bad lat":       "/places?lat=north&lon=0.28",
		"bad lon":       "/places?lat=50.77&lon=east",
		"unknown type":  "/places?postcode=BN21&type=dentist",
		"zero radius":   "/places?postcode=BN21&radius=0",
		"text radius":   "/places?postcode=BN21&radius=far",
		"bad open flag": "/places?postcode=BN21&open=maybe",
		"bad parking":   "/places?postcode=BN21&parking=yes",
	}
	for name, target := range tests {
		t.Run(name, func(t *testing.T) {
			service := new(MockFacilityService)
			handler := handlers.NewFacilityHandler(service, time.Second)

			rec := serve(handler.SearchPlaces, "GET /places", target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeError(t, rec))
			service.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
		})
	}
}

func TestFacilityHandler_SearchPlaces_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"location not found", apperrors.NewLocationNotFoundError("ZZ99 9ZZ", nil), http.StatusBadRequest, "Postcode not found: ZZ99 9ZZ"},
		{"validation", apperrors.NewValidationError("radius must be greater than 0 and at most 50 km"), http.StatusBadRequest, "radius must be greater than 0 and at most 50 km"},
		{"deadline", fmt.Errorf("geocode: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "Search timed out"},
		{"client disconnect", fmt.Errorf("geocode: %w", context.Canceled), 499, "request cancelled"},
		{"unexpected", apperrors.NewInternalError("failed to list facilities", nil), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockFacilityService)
			handler := handlers.NewFacilityHandler(service, time.Second)
			service.On("Search", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := serve(handler.SearchPlaces, "GET /places", "/places?postcode=ZZ99+9ZZ")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeError(t, rec))
		})
	}
}

func TestFacilityHandler_SearchPlaces_ClientDisconnectIsNotLoggedAsError(t *testing.T) {
	var buf bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = previous })

	service := new(MockFacilityService)
	handler := handlers.NewFacilityHandler(service, time.Second)
	service.On("Search", mock.Anything, mock.Anything).Return(nil, context.Canceled)

	rec := serve(handler.SearchPlaces, "GET /places", "/places?postcode=BN21+4YB")
	assert.NotEqual(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, buf.String(), `"level":"error"`)
}

func TestFacilityHandler_SearchPlaces_AppliesTimeout(t *testing.T) {
	service := new(MockFacilityService)
	handler := handlers.NewFacilityHandler(service, 250*time.Millisecond)

	service.On("Search", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= 250*time.Millisecond
	}), mock.Anything).Return(sampleResponse(), nil)

	rec := serve(handler.SearchPlaces, "GET /places", "/places?postcode=BN21+4YB")
	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertExpectations(t)
}

func TestFacilityHandler_GetPlace(t *testing.T) {
	service := new(MockFacilityService)
	handler := handlers.NewFacilityHandler(service, time.Second)

	facility := &entities.Facility{ID: "ae-1", Name: "County Hospital A&E", Category: entities.CategoryEmergency}
	service.On("GetByID", mock.Anything, "ae-1").Return(facility, nil)
	service.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.NewFacilityNotFoundError("missing"))

	rec := serve(handler.GetPlace, "GET /places/{id}", "/places/ae-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var got entities.Facility
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "County Hospital A&E", got.Name)

	rec = serve(handler.GetPlace, "GET /places/{id}", "/places/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Place not found", decodeError(t, rec))
}
