package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/flood-data-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/flood-data-etl/internal/adapter/epqs"
	"github.com/couchcryptid/flood-data-etl/internal/adapter/iem"
	kafkaadapter "github.com/couchcryptid/flood-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/flood-data-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/flood-data-etl/internal/adapter/noaa"
	"github.com/couchcryptid/flood-data-etl/internal/adapter/objectstore"
	"github.com/couchcryptid/flood-data-etl/internal/adapter/usgs"
	"github.com/couchcryptid/flood-data-etl/internal/alerts"
	"github.com/couchcryptid/flood-data-etl/internal/config"
	"github.com/couchcryptid/flood-data-etl/internal/domain"
	"github.com/couchcryptid/flood-data-etl/internal/enrich"
	"github.com/couchcryptid/flood-data-etl/internal/geocache"
	"github.com/couchcryptid/flood-data-etl/internal/observability"
	"github.com/couchcryptid/flood-data-etl/internal/pipeline"
	"github.com/couchcryptid/flood-data-etl/internal/regions"
	"github.com/couchcryptid/flood-data-etl/internal/stations"
)

type deps struct {
	pipeline *pipeline.Pipeline
	closers  []func() error
	logger   *slog.Logger
}

func (d *deps) close() {
	for _, c := range d.closers {
		if err := c(); err != nil {
			d.logger.Error("close error", "error", err)
		}
	}
}

// wire builds every collaborator of a run from cfg and opts.
func wire(ctx context.Context, cfg *config.Config, opts runOptions, logger *slog.Logger, metrics *observability.Metrics) (*deps, error) {
	table, err := regions.Load(cfg.RegionsFile)
	if err != nil {
		return nil, err
	}

	target := ""
	if opts.State != "" {
		r, ok := table.Lookup(opts.State)
		if ok {
			target = r.Abbrev
		} else {
			logger.Warn("unknown state, collecting every region", "state", opts.State)
		}
	}
	logger.Info("run settings",
		"state", opts.State,
		"county", opts.County,
		"months", opts.Months,
		"years", opts.Years,
		"seed", opts.Seed,
		"cache_dir", cfg.CacheDir(),
		"alert_cache_dir", cfg.AlertCacheDir(),
		"output", cfg.OutputFile,
	)
	if cfg.NOAAToken == "" {
		logger.Warn("NOAA_TOKEN not set, precipitation requests will be rejected")
	}

	store := geocache.NewDir(cfg.CacheDir())
	cacheOpts := []geocache.Option{geocache.WithMetrics(metrics)}

	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxBaseURL, cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, store, logger, append(cacheOpts, geocache.WithLogger(logger))...)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "timeout", cfg.MapboxTimeout)
	} else {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("mapbox geocoding disabled")
	}

	directory := stations.New(
		usgs.NewStationsClient(cfg.USGSBaseURL, cfg.USGSAPIKey, cfg.DirectoryRateLimitWait, logger, metrics),
		table, store, logger, metrics,
	)
	alertSource := alerts.New(
		iem.NewClient(cfg.IEMEndpoint, cfg.DirectoryRateLimitWait, logger, metrics),
		table, store, logger, metrics,
		alerts.Options{Target: target, County: opts.County, OfficeDelay: cfg.OfficeDelay},
	)

	builder := pipeline.NewBuilder(pipeline.Sources{
		Stations: directory,
		Alerts:   alertSource,
		Locator:  pipeline.NewCentroidLocator(table, geocoder, target, logger),
		Precipitation: enrich.NewPrecipitation(
			noaa.NewClient(cfg.NOAAEndpoint, cfg.NOAAToken, cfg.RateLimitWait, logger, metrics),
			store, logger, cacheOpts...),
		Elevation: enrich.NewElevation(
			epqs.NewClient(cfg.EPQSEndpoint, cfg.RateLimitWait, logger, metrics),
			store, logger, cacheOpts...),
		GageHeight: enrich.NewGageHeight(
			usgs.NewGageClient(cfg.USGSBaseURL, cfg.USGSAPIKey, cfg.RateLimitWait, logger, metrics),
			store, logger, cacheOpts...),
	}, pipeline.Options{
		Target:       target,
		YearsBack:    opts.Years,
		MonthLimit:   opts.Months,
		RequestDelay: cfg.RequestDelay,
		Seed:         opts.Seed,
	}, logger, metrics)

	d := &deps{logger: logger}
	var sinkOpts []pipeline.Option

	if len(cfg.KafkaBrokers) > 0 {
		w := kafkaadapter.NewWriter(cfg, logger)
		d.closers = append(d.closers, w.Close)
		sinkOpts = append(sinkOpts, pipeline.WithSink("kafka", w))
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic)
	}
	if cfg.UploadURL != "" {
		u, err := objectstore.New(ctx, cfg.UploadURL, cfg.AWSRegion, logger)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("upload sink: %w", err)
		}
		d.closers = append(d.closers, u.Close)
		sinkOpts = append(sinkOpts, pipeline.WithSink("upload", u))
		logger.Info("upload sink enabled", "url", cfg.UploadURL)
	}

	csv := pipeline.Sink{Name: "csv", Loader: csvfile.NewWriter(cfg.OutputFile, logger)}
	d.pipeline = pipeline.New(builder, csv, logger, metrics, sinkOpts...)
	return d, nil
}
