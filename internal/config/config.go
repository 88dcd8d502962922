package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	NOAAToken  string
	USGSAPIKey string

	RawDataDir  string
	OutputFile  string
	RegionsFile string

	LogLevel        string
	LogFormat       string
	MetricsAddr     string
	ShutdownTimeout time.Duration

	// Courtesy pauses and the wait before the single 429 retry.
	RequestDelay           time.Duration
	OfficeDelay            time.Duration
	RateLimitWait          time.Duration
	DirectoryRateLimitWait time.Duration

	// Mapbox geocoding configuration.
	MapboxToken   string
	MapboxEnabled bool
	MapboxTimeout time.Duration

	// Upstream endpoint overrides. Empty selects each client's public default.
	USGSBaseURL   string
	IEMEndpoint   string
	NOAAEndpoint  string
	EPQSEndpoint  string
	MapboxBaseURL string

	// Optional sinks.
	KafkaBrokers   []string
	KafkaSinkTopic string
	UploadURL      string
	AWSRegion      string
}

// CacheDir is where the keyed enrichment and station caches live.
func (c *Config) CacheDir() string {
	return filepath.Join(c.RawDataDir, "cache")
}

// AlertCacheDir holds one alert file per (year, month).
func (c *Config) AlertCacheDir() string {
	return filepath.Join(c.CacheDir(), "nws")
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory, when present, seeds variables that are not
// already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	requestDelay, err := parseDuration("REQUEST_DELAY", "100ms", true)
	if err != nil {
		return nil, err
	}
	officeDelay, err := parseDuration("OFFICE_DELAY", "200ms", true)
	if err != nil {
		return nil, err
	}
	rateLimitWait, err := parseDuration("RATE_LIMIT_WAIT", "2s", true)
	if err != nil {
		return nil, err
	}
	directoryWait, err := parseDuration("DIRECTORY_RATE_LIMIT_WAIT", "3s", true)
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s", false)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	rawDir := sharedcfg.EnvOrDefault("RAW_DATA_DIR", "./raw_data")

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		NOAAToken:              os.Getenv("NOAA_TOKEN"),
		USGSAPIKey:             os.Getenv("USGS_API_KEY"),
		RawDataDir:             rawDir,
		OutputFile:             sharedcfg.EnvOrDefault("OUTPUT_FILE", filepath.Join(rawDir, "flood_dataset.csv")),
		RegionsFile:            os.Getenv("REGIONS_FILE"),
		LogLevel:               sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:              sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		MetricsAddr:            os.Getenv("METRICS_ADDR"),
		ShutdownTimeout:        shutdownTimeout,
		RequestDelay:           requestDelay,
		OfficeDelay:            officeDelay,
		RateLimitWait:          rateLimitWait,
		DirectoryRateLimitWait: directoryWait,
		MapboxToken:            mapboxToken,
		MapboxEnabled:          mapboxEnabled,
		MapboxTimeout:          mapboxTimeout,
		USGSBaseURL:            os.Getenv("USGS_BASE_URL"),
		IEMEndpoint:            os.Getenv("IEM_ENDPOINT"),
		NOAAEndpoint:           os.Getenv("NOAA_ENDPOINT"),
		EPQSEndpoint:           os.Getenv("EPQS_ENDPOINT"),
		MapboxBaseURL:          os.Getenv("MAPBOX_BASE_URL"),
		KafkaBrokers:           brokers,
		KafkaSinkTopic:         sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "flood-dataset-records"),
		UploadURL:              os.Getenv("UPLOAD_URL"),
		AWSRegion:              sharedcfg.EnvOrDefault("AWS_REGION", "us-east-1"),
	}

	if cfg.RawDataDir == "" {
		return nil, errors.New("RAW_DATA_DIR must not be empty")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.UploadURL != "" && !strings.HasPrefix(cfg.UploadURL, "s3://") && !strings.HasPrefix(cfg.UploadURL, "gs://") {
		return nil, fmt.Errorf("invalid UPLOAD_URL %q: must start with s3:// or gs://", cfg.UploadURL)
	}

	return cfg, nil
}

// parseDuration reads a duration variable. Zero is accepted only when allowZero is set.
func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
