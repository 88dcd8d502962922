// Package enrich decorates the precipitation, elevation and gage-height
// clients with persistent caches. Every value, including "no value", is
// cached once fetched; upstream failures degrade to an absent value.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/flood-data-etl/internal/adapter/apiclient"
	"github.com/couchcryptid/flood-data-etl/internal/geocache"
)

// Cache file names under the cache directory.
const (
	PrecipitationFile = "precipitation.json"
	ElevationFile     = "elevation.json"
	GageHeightFile    = "gage_height.json"
)

// PrecipitationFetcher returns the precipitation total around a point for a day.
type PrecipitationFetcher interface {
	Precipitation(ctx context.Context, lat, lon float64, date time.Time) (*float64, error)
}

// ElevationFetcher returns the ground elevation of a point.
type ElevationFetcher interface {
	Elevation(ctx context.Context, lat, lon float64) (*float64, error)
}

// GageHeightFetcher returns a station's gage height for a day.
type GageHeightFetcher interface {
	GageHeight(ctx context.Context, stationID string, date time.Time) (*float64, error)
}

type pointDay struct {
	lat, lon float64
	date     time.Time
}

type point struct {
	lat, lon float64
}

type stationDay struct {
	id   string
	date time.Time
}

// cachedValue is the shared load-or-fetch-and-store step.
type cachedValue[K any] struct {
	name   string
	cache  *geocache.KeyedFile[K, float64]
	logger *slog.Logger
}

// get returns the cached value for k, calling fetch on a miss. Only the
// caller's cancellation is returned as an error. An open circuit breaker
// yields absent without caching; every other failure is cached as absent.
func (c *cachedValue[K]) get(ctx context.Context, k K, fetch func() (*float64, error), attrs ...any) (*float64, error) {
	if v, ok := c.cache.Load(k); ok {
		return v, nil
	}

	v, err := fetch()
	if err != nil {
		if apiclient.IsTransient(ctx, err) {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%s: %w", c.name, ctx.Err())
			}
			c.logger.Warn("upstream unavailable, value not cached", append(attrs, "source", c.name, "error", err)...)
			return nil, nil
		}
		c.logger.Warn("fetch failed, caching absent value", append(attrs, "source", c.name, "error", err)...)
		c.cache.Store(k, nil)
		return nil, nil
	}
	c.cache.Store(k, v)
	return v, nil
}

// Precipitation caches precipitation by coordinate (4 decimals) and day.
type Precipitation struct {
	inner PrecipitationFetcher
	c     cachedValue[pointDay]
}

// NewPrecipitation wraps inner with the precipitation cache in store.
func NewPrecipitation(inner PrecipitationFetcher, store geocache.Storage, logger *slog.Logger, opts ...geocache.Option) *Precipitation {
	key := func(k pointDay) string {
		return fmt.Sprintf("%.4f,%.4f,%s", k.lat, k.lon, k.date.Format(time.DateOnly))
	}
	opts = append([]geocache.Option{geocache.WithLogger(logger)}, opts...)
	return &Precipitation{
		inner: inner,
		c: cachedValue[pointDay]{
			name:   "precipitation",
			cache:  geocache.NewKeyedFile[pointDay, float64](store, PrecipitationFile, key, opts...),
			logger: logger,
		},
	}
}

// Precipitation implements PrecipitationFetcher.
func (p *Precipitation) Precipitation(ctx context.Context, lat, lon float64, date time.Time) (*float64, error) {
	return p.c.get(ctx, pointDay{lat: lat, lon: lon, date: date}, func() (*float64, error) {
		return p.inner.Precipitation(ctx, lat, lon, date)
	}, "lat", lat, "lon", lon, "date", date.Format(time.DateOnly))
}

// Elevation caches elevation by coordinate (4 decimals).
type Elevation struct {
	inner ElevationFetcher
	c     cachedValue[point]
}

// NewElevation wraps inner with the elevation cache in store.
func NewElevation(inner ElevationFetcher, store geocache.Storage, logger *slog.Logger, opts ...geocache.Option) *Elevation {
	key := func(k point) string {
		return fmt.Sprintf("%.4f,%.4f", k.lat, k.lon)
	}
	opts = append([]geocache.Option{geocache.WithLogger(logger)}, opts...)
	return &Elevation{
		inner: inner,
		c: cachedValue[point]{
			name:   "elevation",
			cache:  geocache.NewKeyedFile[point, float64](store, ElevationFile, key, opts...),
			logger: logger,
		},
	}
}

// Elevation implements ElevationFetcher.
func (e *Elevation) Elevation(ctx context.Context, lat, lon float64) (*float64, error) {
	return e.c.get(ctx, point{lat: lat, lon: lon}, func() (*float64, error) {
		return e.inner.Elevation(ctx, lat, lon)
	}, "lat", lat, "lon", lon)
}

// GageHeight caches gage height by station and day.
type GageHeight struct {
	inner GageHeightFetcher
	c     cachedValue[stationDay]
}

// NewGageHeight wraps inner with the gage-height cache in store.
func NewGageHeight(inner GageHeightFetcher, store geocache.Storage, logger *slog.Logger, opts ...geocache.Option) *GageHeight {
	key := func(k stationDay) string {
		return k.id + "," + k.date.Format(time.DateOnly)
	}
	opts = append([]geocache.Option{geocache.WithLogger(logger)}, opts...)
	return &GageHeight{
		inner: inner,
		c: cachedValue[stationDay]{
			name:   "gage_height",
			cache:  geocache.NewKeyedFile[stationDay, float64](store, GageHeightFile, key, opts...),
			logger: logger,
		},
	}
}

// GageHeight implements GageHeightFetcher. An empty station ID returns
// absent without a request or a cache entry.
func (g *GageHeight) GageHeight(ctx context.Context, stationID string, date time.Time) (*float64, error) {
	if stationID == "" {
		return nil, nil
	}
	return g.c.get(ctx, stationDay{id: stationID, date: date}, func() (*float64, error) {
		return g.inner.GageHeight(ctx, stationID, date)
	}, "station", stationID, "date", date.Format(time.DateOnly))
}
