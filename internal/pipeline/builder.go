package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
	"github.com/couchcryptid/flood-data-etl/internal/enrich"
	"github.com/couchcryptid/flood-data-etl/internal/observability"
)

// StationIndex loads the station directory and answers nearest-station queries.
type StationIndex interface {
	Load(ctx context.Context, target string) error
	Nearest(lat, lon float64) (string, bool)
}

// AlertFetcher returns the alerts of one month.
type AlertFetcher interface {
	Fetch(ctx context.Context, year, month int) ([]domain.Alert, error)
}

// Locator derives the representative coordinate of an alert.
type Locator interface {
	Locate(ctx context.Context, a domain.Alert) (domain.Coord, error)
}

// Sources are the collaborators a Builder joins.
type Sources struct {
	Stations      StationIndex
	Alerts        AlertFetcher
	Locator       Locator
	Precipitation enrich.PrecipitationFetcher
	Elevation     enrich.ElevationFetcher
	GageHeight    enrich.GageHeightFetcher
}

// Options control the collection window and pacing of a build.
type Options struct {
	// Target is the region passed to the station directory. Empty means all.
	Target     string
	YearsBack  int
	MonthLimit int
	// RequestDelay is the pause after each enrichment call.
	RequestDelay time.Duration
	// Seed fixes the negative-sample perturbation. Zero seeds randomly.
	Seed  uint64
	Clock clockwork.Clock
}

// Progress is a snapshot of a running build.
type Progress struct {
	PeriodsDone   int64 `json:"periods_done"`
	PeriodsTotal  int64 `json:"periods_total"`
	Alerts        int64 `json:"alerts"`
	AlertsSkipped int64 `json:"alerts_skipped"`
	Positives     int64 `json:"positives"`
	Negatives     int64 `json:"negatives"`
	Failures      int64 `json:"failures"`
}

// Builder assembles the labeled dataset.
type Builder struct {
	src     Sources
	opts    Options
	rng     *rand.Rand
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	stationsReady atomic.Bool
	periodsDone   atomic.Int64
	periodsTotal  atomic.Int64
	alerts        atomic.Int64
	alertsSkipped atomic.Int64
	positives     atomic.Int64
	negatives     atomic.Int64
	failures      atomic.Int64
}

// NewBuilder creates a Builder. metrics may be nil.
func NewBuilder(src Sources, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Builder {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	seed1, seed2 := opts.Seed, opts.Seed
	if opts.Seed == 0 {
		seed1, seed2 = rand.Uint64(), rand.Uint64()
	}
	return &Builder{
		src:     src,
		opts:    opts,
		rng:     rand.New(rand.NewPCG(seed1, seed2)),
		clock:   opts.Clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Build loads the station directory, then walks every (year, month) of the
// collection window and emits a positive and a negative record per alert.
// Per-record failures are logged and the record dropped; only a station
// directory failure or cancellation stops the build.
func (b *Builder) Build(ctx context.Context) ([]domain.Record, error) {
	if err := b.src.Stations.Load(ctx, b.opts.Target); err != nil {
		return nil, fmt.Errorf("load station directory: %w", err)
	}
	b.stationsReady.Store(true)

	periods := domain.CollectionWindow(b.opts.YearsBack, b.opts.MonthLimit)
	b.periodsTotal.Store(int64(len(periods)))

	var records []domain.Record
	for _, p := range periods {
		alerts, err := b.src.Alerts.Fetch(ctx, p.Year, p.Month)
		if err != nil {
			return nil, fmt.Errorf("fetch alerts %04d-%02d: %w", p.Year, p.Month, err)
		}
		b.alerts.Add(int64(len(alerts)))

		for _, a := range alerts {
			out, err := b.buildAlert(ctx, a)
			if err != nil {
				return nil, err
			}
			records = append(records, out...)
		}
		b.periodsDone.Add(1)
		b.logger.Info("period complete", "year", p.Year, "month", p.Month, "alerts", len(alerts), "records", len(records))
	}
	return records, nil
}

// buildAlert returns the positive then the negative record of a. Only
// cancellation is returned as an error.
func (b *Builder) buildAlert(ctx context.Context, a domain.Alert) ([]domain.Record, error) {
	coord, err := b.src.Locator.Locate(ctx, a)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		b.alertsSkipped.Add(1)
		b.logger.Warn("no coordinate for alert, skipping", "area", a.AreaDesc, "onset", a.Onset.Format(time.DateOnly), "error", err)
		return nil, nil
	}

	out := make([]domain.Record, 0, 2)

	pos := domain.NewPositive(a, coord)
	if rec, ok, err := b.assemble(ctx, pos, "positive"); err != nil {
		return nil, err
	} else if ok {
		out = append(out, rec)
		b.positives.Add(1)
	}

	neg := domain.NewNegative(perturb(b.rng, coord, a.Onset))
	if rec, ok, err := b.assemble(ctx, neg, "negative"); err != nil {
		return nil, err
	} else if ok {
		out = append(out, rec)
		b.negatives.Add(1)
	}
	return out, nil
}

func (b *Builder) assemble(ctx context.Context, rec domain.Record, label string) (domain.Record, bool, error) {
	if err := b.enrich(ctx, &rec); err != nil {
		if ctx.Err() != nil {
			return domain.Record{}, false, ctx.Err()
		}
		b.failures.Add(1)
		if b.metrics != nil {
			b.metrics.RecordFailures.WithLabelValues(label).Inc()
		}
		b.logger.Warn("record assembly failed, skipping",
			"label", label,
			"lat", rec.Lat,
			"lon", rec.Lon,
			"date", rec.Date.Format(time.DateOnly),
			"error", err,
		)
		return domain.Record{}, false, nil
	}
	if b.metrics != nil {
		b.metrics.RecordsBuilt.WithLabelValues(label).Inc()
	}
	return rec, true, nil
}

// Progress returns the counters of the current build.
func (b *Builder) Progress() Progress {
	return Progress{
		PeriodsDone:   b.periodsDone.Load(),
		PeriodsTotal:  b.periodsTotal.Load(),
		Alerts:        b.alerts.Load(),
		AlertsSkipped: b.alertsSkipped.Load(),
		Positives:     b.positives.Load(),
		Negatives:     b.negatives.Load(),
		Failures:      b.failures.Load(),
	}
}

// StationsReady reports whether the station directory has been loaded.
func (b *Builder) StationsReady() bool {
	return b.stationsReady.Load()
}
