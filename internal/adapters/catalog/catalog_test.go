package catalog

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/carefinder/internal/domain/entities"
	"github.com/zatekoja/carefinder/internal/domain/repositories"
	apperrors "github.com/zatekoja/carefinder/pkg/errors"
)

const twoFacilities = `[
  {"id": "a", "name": "Alpha Surgery", "type": "gp", "location": {"lat": 50.77, "lon": 0.28},
   "opening": {"mon": [{"open": "08:00", "close": "18:00"}]}},
  {"id": "b", "name": "Beta A&E", "type": "ae", "location": {"lat": 50.78, "lon": 0.26},
   "opening": {"sun": [{"open": "00:00", "close": "23:59"}]}, "waitMinutes": 120}
]`

func TestLoad_EmbeddedSeedIsValid(t *testing.T) {
	for _, source := range []string{"", SourceEmbedded} {
		c, err := Load(context.Background(), source)
		require.NoError(t, err)
		assert.Greater(t, c.Len(), 0)

		all, err := c.List(context.Background(), repositories.FacilityFilter{})
		require.NoError(t, err)
		seen := map[entities.Category]bool{}
		for _, f := range all {
			seen[f.Category] = true
		}
		for _, cat := range entities.Categories {
			assert.True(t, seen[cat], "seed has no %s facility", cat)
		}
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.json")
	require.NoError(t, os.WriteFile(path, []byte(twoFacilities), 0o600))

	c, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

type fakeS3 struct {
	body   string
	err    error
	bucket string
	key    string
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket = *params.Bucket
	f.key = *params.Key
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestLoader_FromS3(t *testing.T) {
	fake := &fakeS3{body: twoFacilities}
	loader := &Loader{NewS3Client: func(ctx context.Context) (ObjectGetter, error) { return fake, nil }}

	c, err := loader.Load(context.Background(), "s3://care-feeds/catalog/places.json")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "care-feeds", fake.bucket)
	assert.Equal(t, "catalog/places.json", fake.key)
}

func TestLoader_S3Errors(t *testing.T) {
	fake := &fakeS3{err: errors.New("access denied")}
	loader := &Loader{NewS3Client: func(ctx context.Context) (ObjectGetter, error) { return fake, nil }}

	_, err := loader.Load(context.Background(), "s3://care-feeds/places.json")
	assert.ErrorContains(t, err, "access denied")

	for _, bad := range []string{"s3://", "s3://bucket", "s3://bucket/", "s3:///key"} {
		_, err := loader.Load(context.Background(), bad)
		assert.Error(t, err, bad)
	}
}

func TestParse_RejectsInvalidCatalogs(t *testing.T) {
	tests := map[string]string{
		"not json":       `{`,
		"unknown field":  `[{"id":"a","name":"A","type":"gp","location":{"lat":1,"lon":1},"opening":{},"colour":"red"}]`,
		"missing id":     `[{"name":"A","type":"gp","location":{"lat":1,"lon":1},"opening":{}}]`,
		"unknown type":   `[{"id":"a","name":"A","type":"dentist","location":{"lat":1,"lon":1},"opening":{}}]`,
		"bad latitude":   `[{"id":"a","name":"A","type":"gp","location":{"lat":91,"lon":1},"opening":{}}]`,
		"bad window":     `[{"id":"a","name":"A","type":"gp","location":{"lat":1,"lon":1},"opening":{"mon":[{"open":"18:00","close":"08:00"}]}}]`,
		"duplicate id":   `[{"id":"a","name":"A","type":"gp","location":{"lat":1,"lon":1},"opening":{}},{"id":"a","name":"B","type":"ae","location":{"lat":1,"lon":1},"opening":{}}]`,
		"malformed time": `[{"id":"a","name":"A","type":"gp","location":{"lat":1,"lon":1},"opening":{"tue":[{"open":"8am","close":"17:00"}]}}]`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestStaticCatalog_GetByID(t *testing.T) {
	c, err := Parse([]byte(twoFacilities))
	require.NoError(t, err)

	f, err := c.GetByID(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "Beta A&E", f.Name)
	require.NotNil(t, f.WaitMinutes)
	assert.Equal(t, 120, *f.WaitMinutes)

	// Callers get a copy.
	f.Name = "changed"
	again, err := c.GetByID(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "Beta A&E", again.Name)

	_, err = c.GetByID(context.Background(), "zzz")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestStaticCatalog_ResultsDoNotAliasCatalog(t *testing.T) {
	c, err := Parse([]byte(twoFacilities))
	require.NoError(t, err)
	ctx := context.Background()

	a, err := c.GetByID(ctx, "a")
	require.NoError(t, err)
	a.Opening.Mon[0].Close = "09:00"

	listed, err := c.List(ctx, repositories.FacilityFilter{})
	require.NoError(t, err)
	*listed[1].WaitMinutes = 5
	listed[0].Opening.Mon = append(listed[0].Opening.Mon[:0], entities.TimeWindow{Open: "10:00", Close: "11:00"})

	a, err = c.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []entities.TimeWindow{{Open: "08:00", Close: "18:00"}}, a.Opening.Mon)
	b, err := c.GetByID(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 120, *b.WaitMinutes)
}

func TestStaticCatalog_ListKeepsOrderAndFilters(t *testing.T) {
	c, err := Parse([]byte(twoFacilities))
	require.NoError(t, err)

	all, err := c.List(context.Background(), repositories.FacilityFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)

	ae, err := c.List(context.Background(), repositories.FacilityFilter{Category: entities.CategoryEmergency})
	require.NoError(t, err)
	require.Len(t, ae, 1)
	assert.Equal(t, "b", ae[0].ID)
}
