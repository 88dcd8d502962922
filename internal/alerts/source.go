// Package alerts fetches historical flood alerts per month, filters them to
// the target region and caches each month's result on disk.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
	"github.com/couchcryptid/flood-data-etl/internal/geocache"
	"github.com/couchcryptid/flood-data-etl/internal/observability"
	"github.com/couchcryptid/flood-data-etl/internal/regions"
)

// CacheDir is the cache subdirectory holding one file per month.
const CacheDir = "nws"

// EventFetcher lists the flood events one weather office issued in a year.
type EventFetcher interface {
	FloodEvents(ctx context.Context, office string, year int) ([]domain.FloodEvent, error)
}

// Options scope and pace a Source.
type Options struct {
	// Target is a region name or abbreviation. Empty queries every office.
	Target string
	// County keeps only alerts whose location text names it.
	County string
	// OfficeDelay is the pause between office queries.
	OfficeDelay time.Duration
	Clock       clockwork.Clock
}

// Source returns the flood alerts of a month.
type Source struct {
	fetcher EventFetcher
	offices []string
	region  *regions.Region
	county  string
	delay   time.Duration
	clock   clockwork.Clock
	cache   *geocache.FilePerKey[domain.Period, []domain.Alert]
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Source. metrics may be nil.
func New(fetcher EventFetcher, table *regions.Table, store geocache.Storage, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Source {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	s := &Source{
		fetcher: fetcher,
		offices: table.Offices(opts.Target),
		county:  strings.TrimSpace(opts.County),
		delay:   opts.OfficeDelay,
		clock:   opts.Clock,
		cache: geocache.NewFilePerKey[domain.Period, []domain.Alert](store, "alerts", CacheFile,
			geocache.WithLogger(logger), geocache.WithMetrics(metrics)),
		logger:  logger,
		metrics: metrics,
	}
	if r, ok := table.Lookup(opts.Target); ok {
		s.region = &r
	}
	return s
}

// CacheFile names the cache file of a month relative to the cache root.
func CacheFile(p domain.Period) string {
	return fmt.Sprintf("%s/%04d-%02d.json", CacheDir, p.Year, p.Month)
}

// Fetch returns the alerts issued in (year, month). A cached month is read
// without requests. Otherwise every office is queried, failed offices are
// skipped, and the region's alerts are cached even when empty. The county
// filter applies to the returned list only, never to the cached one. Only
// cancellation is returned as an error.
func (s *Source) Fetch(ctx context.Context, year, month int) ([]domain.Alert, error) {
	period := domain.Period{Year: year, Month: month}
	if cached, ok := s.cache.Load(period); ok {
		s.logger.Debug("alerts cache hit", "year", year, "month", month, "alerts", len(cached))
		return s.inCounty(cached), nil
	}

	alerts := make([]domain.Alert, 0)
	for i, office := range s.offices {
		if i > 0 {
			if err := domain.Pause(ctx, s.clock, s.delay); err != nil {
				return nil, fmt.Errorf("fetch alerts %04d-%02d: %w", year, month, err)
			}
		}

		events, err := s.fetcher.FloodEvents(ctx, office, year)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("fetch alerts %04d-%02d: %w", year, month, ctx.Err())
			}
			s.logger.Warn("alert query failed, skipping office", "office", office, "year", year, "error", err)
			continue
		}

		for _, e := range events {
			if a, ok := s.accept(e, month); ok {
				alerts = append(alerts, a)
			}
		}
	}

	s.cache.Store(period, alerts)
	if s.metrics != nil {
		s.metrics.AlertsFetched.Add(float64(len(alerts)))
	}
	s.logger.Info("alerts fetched", "year", year, "month", month, "offices", len(s.offices), "alerts", len(alerts))
	return s.inCounty(alerts), nil
}

// inCounty keeps the alerts whose area names the county, ignoring case.
func (s *Source) inCounty(alerts []domain.Alert) []domain.Alert {
	if s.county == "" {
		return alerts
	}
	county := strings.ToLower(s.county)
	kept := make([]domain.Alert, 0, len(alerts))
	for _, a := range alerts {
		if strings.Contains(strings.ToLower(a.AreaDesc), county) {
			kept = append(kept, a)
		}
	}
	return kept
}

// accept applies the month and region filters and converts the event.
func (s *Source) accept(e domain.FloodEvent, month int) (domain.Alert, bool) {
	issued, err := e.IssueDate()
	if err != nil {
		s.logger.Debug("skipping event with unparseable issue time", "eventid", e.EventID, "issue", e.Issue)
		return domain.Alert{}, false
	}
	if int(issued.Month()) != month {
		return domain.Alert{}, false
	}
	if s.region != nil &&
		!strings.Contains(e.Locations, "["+s.region.Abbrev+"]") &&
		!strings.Contains(e.Locations, s.region.Name) {
		return domain.Alert{}, false
	}
	return e.ToAlert(issued), true
}
