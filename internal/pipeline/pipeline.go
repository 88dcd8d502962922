// Package pipeline builds the labeled flood dataset and delivers it to the
// configured sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
	"github.com/couchcryptid/flood-data-etl/internal/observability"
)

// DatasetBuilder produces the full record set.
type DatasetBuilder interface {
	Build(ctx context.Context) ([]domain.Record, error)
	Progress() Progress
	StationsReady() bool
}

// BatchLoader writes the records to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, records []domain.Record) error
}

// Sink is a named BatchLoader.
type Sink struct {
	Name   string
	Loader BatchLoader
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSink adds a secondary sink. Secondary failures are logged, not returned.
func WithSink(name string, l BatchLoader) Option {
	return func(p *Pipeline) { p.secondary = append(p.secondary, Sink{Name: name, Loader: l}) }
}

// WithSinkAttempts sets how many times a secondary sink is tried. Default 3.
func WithSinkAttempts(n int) Option {
	return func(p *Pipeline) { p.attempts = n }
}

// WithClock replaces the clock used for sink retry backoff.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// Pipeline runs one dataset build and fans the result out to its sinks.
type Pipeline struct {
	builder   DatasetBuilder
	primary   Sink
	secondary []Sink
	attempts  int
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Pipeline whose primary sink failure fails the run. metrics may
// be nil.
func New(b DatasetBuilder, primary Sink, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		builder:  b,
		primary:  primary,
		attempts: 3,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once the station directory is loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.builder.StationsReady() {
		return errors.New("station directory not loaded yet")
	}
	return nil
}

// Progress reports the counters of the running build.
func (p *Pipeline) Progress() Progress {
	return p.builder.Progress()
}

// Run builds the dataset and loads it. It returns the build error, the primary
// sink error, or nil.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started")
	p.setRunning(1)
	defer p.setRunning(0)
	start := p.clock.Now()

	records, err := p.builder.Build(ctx)
	if err != nil {
		return err
	}
	prog := p.builder.Progress()
	p.logger.Info("dataset built",
		"records", len(records),
		"positives", prog.Positives,
		"negatives", prog.Negatives,
		"failures", prog.Failures,
		"alerts_skipped", prog.AlertsSkipped,
	)

	if err := p.primary.Loader.LoadBatch(ctx, records); err != nil {
		return fmt.Errorf("%s sink: %w", p.primary.Name, err)
	}
	p.countLoaded(p.primary.Name, len(records))

	for _, s := range p.secondary {
		if err := p.loadWithRetry(ctx, s, records); err != nil {
			p.logger.Error("sink failed", "sink", s.Name, "error", err)
			continue
		}
		p.countLoaded(s.Name, len(records))
	}

	if p.metrics != nil {
		p.metrics.BuildDuration.Observe(p.clock.Since(start).Seconds())
	}
	p.logger.Info("pipeline finished", "records", len(records), "duration", p.clock.Since(start))
	return nil
}

func (p *Pipeline) setRunning(v float64) {
	if p.metrics != nil {
		p.metrics.PipelineRunning.Set(v)
	}
}

func (p *Pipeline) countLoaded(sink string, n int) {
	if p.metrics != nil {
		p.metrics.SinkRecords.WithLabelValues(sink).Add(float64(n))
	}
}

// loadWithRetry tries a sink up to p.attempts times with exponential backoff
// starting at 200ms and capped at 5s.
func (p *Pipeline) loadWithRetry(ctx context.Context, s Sink, records []domain.Record) error {
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	var err error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err = s.Loader.LoadBatch(ctx, records); err == nil {
			return nil
		}
		if ctx.Err() != nil || attempt == p.attempts {
			break
		}
		p.logger.Warn("sink load failed, retrying", "sink", s.Name, "attempt", attempt, "backoff", backoff, "error", err)
		if perr := domain.Pause(ctx, p.clock, backoff); perr != nil {
			return perr
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
	return err
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
