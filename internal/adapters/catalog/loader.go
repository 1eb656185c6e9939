package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/carefinder/internal/domain/entities"
)

// SourceEmbedded selects the seed catalog compiled into the binary.
const SourceEmbedded = "embedded"

//go:embed places.seed.json
var embeddedSeed []byte

// ObjectGetter is the subset of the S3 client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader reads a catalog from one of the supported sources.
type Loader struct {
	// NewS3Client is called lazily for s3:// sources.
	NewS3Client func(ctx context.Context) (ObjectGetter, error)
}

// NewLoader returns a loader that builds S3 clients from the default AWS credential chain.
func NewLoader() *Loader {
	return &Loader{NewS3Client: defaultS3Client}
}

func defaultS3Client(ctx context.Context) (ObjectGetter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Load is shorthand for NewLoader().Load.
func Load(ctx context.Context, source string) (*StaticCatalog, error) {
	return NewLoader().Load(ctx, source)
}

// Load reads and validates the catalog. source is "embedded" (or empty), a file
// path, or an s3://bucket/key URI.
func (l *Loader) Load(ctx context.Context, source string) (*StaticCatalog, error) {
	source = strings.TrimSpace(source)
	raw, err := l.read(ctx, source)
	if err != nil {
		return nil, err
	}

	catalog, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", describe(source), err)
	}

	log.Info().
		Str("source", describe(source)).
		Int("facilities", catalog.Len()).
		Msg("Facility catalog loaded")
	return catalog, nil
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, error) {
	switch {
	case source == "" || source == SourceEmbedded:
		return embeddedSeed, nil
	case strings.HasPrefix(source, "s3://"):
		bucket, key, err := parseS3URI(source)
		if err != nil {
			return nil, err
		}
		if l.NewS3Client == nil {
			return nil, fmt.Errorf("no S3 client configured for %s", source)
		}
		client, err := l.NewS3Client(ctx)
		if err != nil {
			return nil, err
		}
		return ReadS3Object(ctx, client, bucket, key)
	default:
		raw, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog file: %w", err)
		}
		return raw, nil
	}
}

// ReadS3Object downloads one object in full.
func ReadS3Object(ctx context.Context, client ObjectGetter, bucket, key string) ([]byte, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", bucket, key, err)
	}
	return buf.Bytes(), nil
}

// Parse decodes a JSON array of facilities and builds a validated catalog.
func Parse(raw []byte) (*StaticCatalog, error) {
	var facilities []entities.Facility
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&facilities); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return NewStaticCatalog(facilities)
}

func parseS3URI(uri string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(uri, "s3://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 catalog source %q, expected s3://bucket/key", uri)
	}
	return bucket, key, nil
}

func describe(source string) string {
	if source == "" {
		return SourceEmbedded
	}
	return source
}
