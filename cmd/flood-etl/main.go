// Command flood-etl builds the labeled flood dataset: it loads the stream
// station directory, walks historical flood alerts month by month, joins each
// alert with precipitation, elevation and gage height, and writes positive and
// negative samples to CSV.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/flood-data-etl/internal/adapter/http"
	"github.com/couchcryptid/flood-data-etl/internal/config"
	"github.com/couchcryptid/flood-data-etl/internal/observability"
	"github.com/couchcryptid/flood-data-etl/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one build and returns the process exit code.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "flood-etl: %v\n", err)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	if opts.Output != "" {
		cfg.OutputFile = opts.Output
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	return execute(ctx, cfg, opts, logger, metrics)
}

// execute wires the build from cfg and runs it.
func execute(ctx context.Context, cfg *config.Config, opts runOptions, logger *slog.Logger, metrics *observability.Metrics) int {
	deps, err := wire(ctx, cfg, opts, logger, metrics)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return 1
	}
	defer deps.close()

	var srv *httpadapter.Server
	if cfg.MetricsAddr != "" {
		srv = httpadapter.NewServer[pipeline.Progress](cfg.MetricsAddr, deps.pipeline, deps.pipeline, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	runErr := deps.pipeline.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		cancel()
	}

	switch {
	case runErr == nil:
		logger.Info("dataset complete", "output", cfg.OutputFile)
		return 0
	case errors.Is(runErr, context.Canceled):
		logger.Warn("build interrupted", "error", runErr)
		return 130
	default:
		logger.Error("build failed", "error", runErr)
		return 1
	}
}
