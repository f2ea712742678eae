package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/flotillawatch/flotillawatch/internal/capture"
	"github.com/flotillawatch/flotillawatch/internal/config"
	"github.com/flotillawatch/flotillawatch/internal/geo"
	"github.com/flotillawatch/flotillawatch/internal/history"
	"github.com/flotillawatch/flotillawatch/internal/logging"
	"github.com/flotillawatch/flotillawatch/internal/metrics"
	"github.com/flotillawatch/flotillawatch/internal/monitor"
	"github.com/flotillawatch/flotillawatch/internal/notify"
	intOtel "github.com/flotillawatch/flotillawatch/internal/otel"
	"github.com/flotillawatch/flotillawatch/internal/pipeline"
	"github.com/flotillawatch/flotillawatch/internal/retention"
	"github.com/flotillawatch/flotillawatch/internal/scheduler"
	"github.com/flotillawatch/flotillawatch/internal/telemetry"
)

// Version and BuildDate can be set at build time via ldflags.
var (
	Version   = "0.1.0"
	BuildDate = "unknown"

	AppName = "flotillawatch"
)

func main() {
	configDir := flag.String("config", ".", "directory containing flotillawatch.cfg.json")
	flag.Parse()

	if err := config.Load(*configDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	sessionStart := time.Now().UTC()
	logsDir := config.GetString("logsDir")
	shotsDir := config.GetString("shots.dir")

	// Best-effort: the capture step retries directory creation per run.
	_ = os.MkdirAll(logsDir, 0o755)
	_ = os.MkdirAll(shotsDir, 0o755)

	// OTel provider (no-op unless enabled)
	var otelLogFile io.Writer
	if config.GetBool("otel.enabled") {
		f, err := os.Create(filepath.Join(logsDir, fmt.Sprintf("%s.otel.%s.log", AppName, sessionStart.Format("20060102_150405"))))
		if err == nil {
			otelLogFile = f
			defer f.Close()
		}
	}
	provider, err := intOtel.New(intOtel.Config{
		Enabled:      config.GetBool("otel.enabled"),
		ServiceName:  config.GetString("otel.serviceName"),
		BatchTimeout: parseDuration(config.GetString("otel.batchTimeout"), 5*time.Second),
		LogWriter:    otelLogFile,
		Endpoint:     config.GetString("otel.endpoint"),
		Insecure:     config.GetBool("otel.insecure"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize OTel: %v\n", err)
		os.Exit(1)
	}

	// Session log file; fall back to stdout-only if it cannot be created
	var runSeq atomic.Uint64
	logManager := logging.NewSlogManager()
	logManager.SetContextProvider(func() []slog.Attr {
		return []slog.Attr{slog.Uint64("runSeq", runSeq.Load())}
	})
	logFile, err := os.Create(logging.LogFilePath(logsDir, AppName, sessionStart))
	if err != nil {
		logManager.Setup(nil, config.GetString("logLevel"), provider.LoggerProvider())
		logManager.Logger().Warn("Could not create session log file, logging to stdout only", "error", err)
	} else {
		defer logFile.Close()
		logManager.Setup(logFile, config.GetString("logLevel"), provider.LoggerProvider())
	}
	logger := logManager.Logger()

	logger.Info("Starting up", "version", Version, "buildDate", BuildDate)

	zlog := zerolog.New(os.Stdout).With().Timestamp().Logger()

	reference := geo.Point{
		Lat: config.GetFloat64("telemetry.referenceLat"),
		Lon: config.GetFloat64("telemetry.referenceLon"),
	}

	fetcher := telemetry.New(
		config.GetString("telemetry.serverUrl"),
		config.GetString("telemetry.mmsi"),
		reference,
		logger,
	)

	capturer := capture.NewService(capture.Config{
		PageURL:        config.GetString("capture.pageUrl"),
		Selector:       config.GetString("capture.selector"),
		ViewportWidth:  config.GetInt("capture.viewportWidth"),
		ViewportHeight: config.GetInt("capture.viewportHeight"),
		WaitTimeout:    parseDuration(config.GetString("capture.waitTimeout"), 30*time.Second),
		SettleDelay:    parseDuration(config.GetString("capture.settleDelay"), 5*time.Second),
		ShotsDir:       shotsDir,
	}, logger)

	notifier := notify.NewService(
		config.GetString("notify.webhookUrl"),
		config.GetString("notify.username"),
		config.GetString("notify.iconEmoji"),
		logger,
	)

	pruner := retention.NewManager(shotsDir, capture.FilePrefix, config.GetInt("shots.keep"), logger)

	var zone *geo.Zone
	if wkt := config.GetString("telemetry.alertZoneWkt"); wkt != "" {
		zone, err = geo.ParseZone(wkt)
		if err != nil {
			logger.Error("Invalid alert zone WKT, zone reporting disabled", "error", err)
			zone = nil
		}
	}

	var store *history.Store
	if config.GetBool("history.enabled") {
		store, err = history.Open(config.GetString("history.dbFile"), config.GetInt("history.keepRuns"))
		if err != nil {
			logger.Error("Could not open run history store, continuing without it", "error", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	var runMetrics pipeline.RunMetrics
	if config.GetBool("influx.enabled") {
		metricsMgr := metrics.NewManager(zlog, filepath.Join(logsDir, "influx_backup.gz"))
		if err := metricsMgr.Connect(); err != nil {
			logger.Error("Could not set up run metrics, continuing without them", "error", err)
		} else {
			runMetrics = metricsMgr
			defer metricsMgr.Close()
		}
	}

	mon := monitor.NewService(filepath.Join(shotsDir, "status.json"), logger)

	pipe := pipeline.NewService(pipeline.Dependencies{
		Fetcher:    fetcher,
		Capturer:   capturer,
		Notifier:   notifier,
		Pruner:     pruner,
		History:    store,
		Metrics:    runMetrics,
		Monitor:    mon,
		Zone:       zone,
		LogManager: logManager,
	}, pipeline.Config{
		PageURL:        config.GetString("capture.pageUrl"),
		CenterOnVessel: config.GetBool("capture.centerOnVessel"),
	})

	ctx := context.Background()

	sched, err := scheduler.NewService(
		config.GetString("schedule.cron"),
		func(ctx context.Context, trigger string) {
			runSeq.Add(1)
			pipe.Run(ctx, trigger)
			if err := logManager.Flush(ctx); err != nil {
				logger.Error("Log flush failed", "error", err)
			}
		},
		logging.NewCronLogger(zlog),
		logger,
	)
	if err != nil {
		logger.Error("Invalid schedule configuration", "error", err)
		os.Exit(1)
	}

	if err := sched.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	logger.Info("Scheduler running", "nextRun", sched.NextRun().Format(time.RFC3339))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh

	// Shutdown is immediate: future firings stop, in-flight runs are not awaited.
	logger.Info("Received signal, shutting down", "signal", sig.String())
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := provider.Shutdown(shutdownCtx); err != nil {
		logger.Error("OTel shutdown failed", "error", err)
	}
}

// parseDuration parses a config duration, falling back when unset or invalid.
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
