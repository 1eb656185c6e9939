package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Geocoding GeocodingConfig
	Catalog   CatalogConfig
	Search    SearchConfig
	OTEL      OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// GeocodingConfig holds the postcode resolver configuration
type GeocodingConfig struct {
	Provider        string
	PostcodesURL    string
	NominatimURL    string
	UserAgent       string
	CountryHint     string
	LookupTimeout   time.Duration
	FallbackTimeout time.Duration
	CacheTTL        time.Duration
	CacheSize       int
	BreakerFailures int
	BreakerCooldown time.Duration
}

// CatalogConfig controls where the facility catalog is read from at startup.
// Source is "embedded", a filesystem path, or an s3://bucket/key URI.
type CatalogConfig struct {
	Source string
}

// SearchConfig holds search defaults
type SearchConfig struct {
	DefaultRadiusKm float64
	MaxRadiusKm     float64
	// Timezone is the IANA zone opening hours are evaluated in.
	Timezone string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("PORT", getEnvAsInt("SERVER_PORT", 3001)),
			Env:            getEnv("APP_ENV", "production"),
			RequestTimeout: getEnvAsDuration("SEARCH_TIMEOUT", 30*time.Second),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Geocoding: GeocodingConfig{
			Provider:        getEnv("GEOCODING_PROVIDER", "tiered"),
			PostcodesURL:    getEnv("POSTCODES_API_URL", "https://api.postcodes.io"),
			NominatimURL:    getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
			UserAgent:       getEnv("GEOCODING_USER_AGENT", "nhs-care-finder/1.0"),
			CountryHint:     getEnv("GEOCODING_COUNTRY_HINT", "UK"),
			LookupTimeout:   getEnvAsDuration("GEOCODING_LOOKUP_TIMEOUT", 6*time.Second),
			FallbackTimeout: getEnvAsDuration("GEOCODING_FALLBACK_TIMEOUT", 8*time.Second),
			CacheTTL:        getEnvAsDuration("GEOCODING_CACHE_TTL", 24*time.Hour),
			CacheSize:       getEnvAsInt("GEOCODING_CACHE_SIZE", 4096),
			BreakerFailures: getEnvAsInt("GEOCODING_BREAKER_FAILURES", 5),
			BreakerCooldown: getEnvAsDuration("GEOCODING_BREAKER_COOLDOWN", 30*time.Second),
		},
		Catalog: CatalogConfig{
			Source: getEnv("CATALOG_SOURCE", "embedded"),
		},
		Search: SearchConfig{
			DefaultRadiusKm: getEnvAsFloat("SEARCH_DEFAULT_RADIUS_KM", 10),
			MaxRadiusKm:     getEnvAsFloat("SEARCH_MAX_RADIUS_KM", 50),
			Timezone:        getEnv("SEARCH_TIMEZONE", "Europe/London"),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "nhs-care-finder-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Search.DefaultRadiusKm <= 0 {
		return fmt.Errorf("SEARCH_DEFAULT_RADIUS_KM must be positive, got %v", c.Search.DefaultRadiusKm)
	}
	if c.Search.MaxRadiusKm < c.Search.DefaultRadiusKm {
		return fmt.Errorf("SEARCH_MAX_RADIUS_KM (%v) must not be below the default radius (%v)", c.Search.MaxRadiusKm, c.Search.DefaultRadiusKm)
	}
	if _, err := time.LoadLocation(c.Search.Timezone); err != nil {
		return fmt.Errorf("invalid SEARCH_TIMEZONE %q: %w", c.Search.Timezone, err)
	}
	switch c.Geocoding.Provider {
	case "tiered", "mock":
	default:
		return fmt.Errorf("unknown GEOCODING_PROVIDER %q", c.Geocoding.Provider)
	}
	return nil
}

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
