// Package stations owns the in-memory directory of stream monitoring
// stations used for the nearest-station join.
package stations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
	"github.com/couchcryptid/flood-data-etl/internal/geocache"
	"github.com/couchcryptid/flood-data-etl/internal/observability"
	"github.com/couchcryptid/flood-data-etl/internal/regions"
)

// CacheFile is the station list snapshot written after every load.
const CacheFile = "usgs_stations.json"

// ErrNoStations is returned when a region yields no stations. The run cannot
// continue without the directory.
var ErrNoStations = errors.New("no stations returned")

// Fetcher downloads the stations of one state. returned is the upstream
// result count, which may exceed len(stations) when features are malformed.
type Fetcher interface {
	Stations(ctx context.Context, stateCode string) (stations []domain.Station, returned int, err error)
}

// Directory holds the loaded stations and answers nearest-station queries.
type Directory struct {
	fetcher Fetcher
	regions *regions.Table
	cache   *geocache.File[[]domain.Station]
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.RWMutex
	stations []domain.Station
	loaded   atomic.Bool
}

// New creates an empty directory. metrics may be nil.
func New(fetcher Fetcher, table *regions.Table, store geocache.Storage, logger *slog.Logger, metrics *observability.Metrics) *Directory {
	return &Directory{
		fetcher: fetcher,
		regions: table,
		cache:   geocache.NewFile[[]domain.Station](store, CacheFile, geocache.WithLogger(logger)),
		logger:  logger,
		metrics: metrics,
	}
}

// Load downloads the stations for target (every region when empty or unknown)
// and replaces the directory contents. A region with zero results aborts with
// ErrNoStations; other per-region failures are logged and the region skipped.
// The snapshot file is written afterwards and never read back.
func (d *Directory) Load(ctx context.Context, target string) error {
	var all []domain.Station
	for _, code := range d.regions.StateCodes(target) {
		got, returned, err := d.fetcher.Stations(ctx, code)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("load stations: %w", ctx.Err())
			}
			d.logger.Warn("station download failed, skipping region", "state_code", code, "error", err)
			continue
		}
		if returned == 0 {
			d.logger.Error("no stations returned for region", "state_code", code)
			return fmt.Errorf("state %s: %w", code, ErrNoStations)
		}
		d.logger.Info("stations loaded", "state_code", code, "count", len(got))
		all = append(all, got...)
	}

	d.mu.Lock()
	d.stations = all
	d.mu.Unlock()
	d.loaded.Store(true)

	if d.metrics != nil {
		d.metrics.StationsLoaded.Set(float64(len(all)))
	}
	if all == nil {
		all = []domain.Station{}
	}
	d.cache.Save(all)
	d.logger.Info("station directory ready", "stations", len(all))
	return nil
}

// Nearest returns the ID of the closest station strictly within
// domain.MaxStationDistanceKm of (lat, lon).
func (d *Directory) Nearest(lat, lon float64) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return domain.NearestStation(d.stations, domain.Coord{Lat: lat, Lon: lon}, domain.MaxStationDistanceKm)
}

// Stations returns a copy of the loaded stations in download order.
func (d *Directory) Stations() []domain.Station {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Station, len(d.stations))
	copy(out, d.stations)
	return out
}

// CheckReadiness returns nil once Load has completed.
func (d *Directory) CheckReadiness(_ context.Context) error {
	if !d.loaded.Load() {
		return errors.New("station directory not loaded yet")
	}
	return nil
}
