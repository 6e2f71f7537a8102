package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/HSLdevcom/ajoaikadata/internal/config"
	"github.com/HSLdevcom/ajoaikadata/internal/metrics"
)

// version and commit are injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// sinkFlushInterval bounds how long a batched record can sit before it is
// merged into its canonical table, independent of BYTEWAX_BATCH_SIZE.
const sinkFlushInterval = 5 * time.Second

func main() {
	var envFile string
	var showVersion bool
	flag.StringVar(&envFile, "env-file", "", "Path to .env file (default: .env)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("ajoaikadata %s (commit=%s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Str("app_name", string(cfg.AppName)).Logger().Level(level)
	log.Info().Str("version", version).Str("commit", commit).Str("role", string(cfg.AppName)).Msg("ajoaikadata starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsSrv := startMetricsServer(cfg.MetricsAddr, log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	var runErr error
	switch cfg.AppName {
	case config.RoleReader:
		runErr = runReader(ctx, cfg, log)
	case config.RoleContentParser:
		runErr = runContentParser(ctx, cfg, log)
	case config.RoleEventCreator:
		runErr = runEventCreator(ctx, cfg, log)
	case config.RolePgSink:
		runErr = runPgSink(ctx, cfg, log)
	default:
		log.Fatal().Str("app_name", string(cfg.AppName)).Msg("unreachable: config.Validate should have rejected this APP_NAME")
	}
	if runErr != nil {
		log.Fatal().Err(runErr).Msg("ajoaikadata exited with error")
	}
	log.Info().Msg("ajoaikadata stopped")
}

// startMetricsServer exposes Prometheus metrics in the background; a
// failure to bind is logged, not fatal, since metrics scraping is an
// observability concern, not a correctness one.
func startMetricsServer(addr string, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics server listening")
	return srv
}

// registerRuntimeCollector wires a keyed runtime's live gauges into the
// default Prometheus registry, matching the teacher's pgxpool Collector
// pattern of reading state at scrape time rather than tracking it
// incrementally. pool is nil outside the pgsink role.
func registerRuntimeCollector(pool *pgxpool.Pool, stats metrics.RuntimeStats) {
	prometheus.MustRegister(metrics.NewCollector(pool, stats))
}
