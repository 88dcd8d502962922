package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

// Negative samples are displaced by up to this many degrees on each axis and
// by 1..maxShiftDays days forward.
const (
	maxShiftDegrees = 0.5
	maxShiftDays    = 28
)

var errInvalidCoord = errors.New("coordinate out of range")

// CentroidLocator derives alert coordinates from geometry, the region table
// and an optional geocoder.
type CentroidLocator struct {
	gazetteer domain.Gazetteer
	geocoder  domain.Geocoder
	target    string
	logger    *slog.Logger
}

// NewCentroidLocator creates a locator. target is the region abbreviation
// whose default coordinate is the last resort; empty accepts any region.
// Pass a nil geocoder to disable geocoding.
func NewCentroidLocator(gaz domain.Gazetteer, geocoder domain.Geocoder, target string, logger *slog.Logger) *CentroidLocator {
	return &CentroidLocator{
		gazetteer: gaz,
		geocoder:  geocoder,
		target:    target,
		logger:    logger,
	}
}

// Locate implements Locator.
func (l *CentroidLocator) Locate(ctx context.Context, a domain.Alert) (domain.Coord, error) {
	c, source, err := domain.ResolveCentroid(ctx, a, l.gazetteer, l.geocoder, l.target, l.logger)
	if err != nil {
		return domain.Coord{}, err
	}
	l.logger.Debug("centroid resolved", "source", source, "lat", c.Lat, "lon", c.Lon)
	return c, nil
}

// perturb returns the negative sample for a positive at c on day d.
func perturb(rng *rand.Rand, c domain.Coord, d time.Time) domain.Sample {
	return domain.Sample{
		Coord: domain.Coord{
			Lat: c.Lat + offset(rng),
			Lon: c.Lon + offset(rng),
		},
		Date: d.AddDate(0, 0, 1+rng.IntN(maxShiftDays)),
	}
}

// offset is uniform in [-maxShiftDegrees, +maxShiftDegrees).
func offset(rng *rand.Rand) float64 {
	return (rng.Float64()*2 - 1) * maxShiftDegrees
}

// enrich fills the measured columns of rec in call order precipitation,
// elevation, nearest station and gage height, pausing between upstream calls.
func (b *Builder) enrich(ctx context.Context, rec *domain.Record) error {
	if !(domain.Coord{Lat: rec.Lat, Lon: rec.Lon}).Valid() {
		return errInvalidCoord
	}

	precip, err := b.src.Precipitation.Precipitation(ctx, rec.Lat, rec.Lon, rec.Date)
	if err != nil {
		return err
	}
	rec.PrecipMM = precip
	if err := b.pause(ctx); err != nil {
		return err
	}

	elev, err := b.src.Elevation.Elevation(ctx, rec.Lat, rec.Lon)
	if err != nil {
		return err
	}
	rec.ElevationM = elev
	if err := b.pause(ctx); err != nil {
		return err
	}

	stationID, ok := b.src.Stations.Nearest(rec.Lat, rec.Lon)
	if ok {
		rec.StationID = &stationID
	}
	gage, err := b.src.GageHeight.GageHeight(ctx, stationID, rec.Date)
	if err != nil {
		return err
	}
	rec.GageHeightFt = gage
	return b.pause(ctx)
}

func (b *Builder) pause(ctx context.Context) error {
	return domain.Pause(ctx, b.clock, b.opts.RequestDelay)
}
