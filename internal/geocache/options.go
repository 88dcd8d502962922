package geocache

import (
	"io"
	"log/slog"

	"github.com/couchcryptid/flood-data-etl/internal/observability"
)

type options struct {
	logger  *slog.Logger
	metrics *observability.Metrics
	codec   Codec
}

// Option configures a cache.
type Option func(*options)

// WithLogger sets the logger used for cache warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records lookups in the cache_lookups_total counter.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithCodec replaces the JSON codec.
func WithCodec(c Codec) Option {
	return func(o *options) { o.codec = c }
}

func newOptions(opts []Option) options {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		codec:  JSON{},
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func (o options) observe(cache string, hit bool) {
	if o.metrics == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	o.metrics.CacheLookups.WithLabelValues(cache, result).Inc()
}
