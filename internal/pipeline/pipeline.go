// Package pipeline runs the fetch → capture → notify → prune sequence.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/flotillawatch/flotillawatch/internal/geo"
	"github.com/flotillawatch/flotillawatch/internal/history"
	"github.com/flotillawatch/flotillawatch/internal/logging"
	"github.com/flotillawatch/flotillawatch/internal/metrics"
	"github.com/flotillawatch/flotillawatch/internal/monitor"
	"github.com/flotillawatch/flotillawatch/internal/telemetry"
)

// Fetcher provides vessel telemetry. A nil snapshot with nil error means the
// API had no data for the query date.
type Fetcher interface {
	Fetch(ctx context.Context) (*telemetry.Snapshot, error)
}

// Capturer produces one screenshot artifact, returning its path.
type Capturer interface {
	Capture(ctx context.Context, pageURL string) (string, error)
}

// Notifier delivers a run summary message.
type Notifier interface {
	Notify(ctx context.Context, artifactPath string, snap *telemetry.Snapshot, inZone *bool) error
	Configured() bool
}

// Pruner bounds the artifact count on disk.
type Pruner interface {
	Prune() (int, error)
}

// RunMetrics records one point per run.
type RunMetrics interface {
	WriteRun(run metrics.RunPoint) error
}

// Dependencies holds all collaborators for the pipeline service.
// History, Metrics, Monitor and Zone are optional and may be nil.
type Dependencies struct {
	Fetcher    Fetcher
	Capturer   Capturer
	Notifier   Notifier
	Pruner     Pruner
	History    *history.Store
	Metrics    RunMetrics
	Monitor    *monitor.Service
	Zone       *geo.Zone
	LogManager *logging.SlogManager
}

// Config holds per-run settings.
type Config struct {
	PageURL        string
	CenterOnVessel bool
}

// Result is the explicit outcome of one run.
type Result struct {
	Trigger      string
	StartedAt    time.Time
	FinishedAt   time.Time
	Snapshot     *telemetry.Snapshot
	ArtifactPath string
	Notified     bool
	Failed       bool
}

// Service executes pipeline runs.
//
// Runs are not mutually excluded: a startup run and a near-simultaneous
// scheduled firing can overlap. The 6-hour cadence makes that unlikely and
// the worst case is a duplicate screenshot and notification.
type Service struct {
	deps Dependencies
	cfg  Config
}

// NewService creates a new pipeline service.
func NewService(deps Dependencies, cfg Config) *Service {
	return &Service{deps: deps, cfg: cfg}
}

// Run executes one full pipeline pass. Every step failure is soft: it is
// logged and the run degrades rather than aborting the process. trigger is
// "startup" or "schedule".
func (s *Service) Run(ctx context.Context, trigger string) Result {
	logger := s.deps.LogManager.Logger()
	// Every record logged for this run carries the trigger.
	ctx = logging.WithAttrs(ctx, slog.String("trigger", trigger))
	res := Result{Trigger: trigger, StartedAt: time.Now()}

	logger.InfoContext(ctx, "Pipeline run starting")

	// Telemetry is carried forward when present, and its absence never stops
	// the capture.
	snap, err := s.deps.Fetcher.Fetch(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Telemetry fetch failed, continuing without telemetry", "error", err)
	}
	res.Snapshot = snap

	artifact, err := s.deps.Capturer.Capture(ctx, s.pageURL(snap))
	if err != nil {
		logger.ErrorContext(ctx, "Screenshot capture failed", "error", err)
	}
	res.ArtifactPath = artifact

	if artifact == "" {
		res.Failed = true
		logger.ErrorContext(ctx, "Pipeline run failed, no screenshot produced")
	} else {
		res.Notified = s.notify(ctx, logger, artifact, snap)

		if _, err := s.deps.Pruner.Prune(); err != nil {
			logger.ErrorContext(ctx, "Screenshot retention pruning failed", "error", err)
		}
	}

	res.FinishedAt = time.Now()
	s.record(ctx, logger, res)

	logger.InfoContext(ctx, "Pipeline run finished",
		"failed", res.Failed,
		"notified", res.Notified,
		"durationMs", res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
	)

	return res
}

// pageURL appends a projected center coordinate when configured and telemetry
// is available, so the map renders around the vessel's last position.
func (s *Service) pageURL(snap *telemetry.Snapshot) string {
	if !s.cfg.CenterOnVessel || snap == nil {
		return s.cfg.PageURL
	}

	u, err := url.Parse(s.cfg.PageURL)
	if err != nil {
		return s.cfg.PageURL
	}

	x, y := geo.WebMercator(snap.Point())
	q := u.Query()
	q.Set("x", fmt.Sprintf("%.0f", x))
	q.Set("y", fmt.Sprintf("%.0f", y))
	u.RawQuery = q.Encode()

	return u.String()
}

func (s *Service) notify(ctx context.Context, logger *slog.Logger, artifact string, snap *telemetry.Snapshot) bool {
	var inZone *bool
	if s.deps.Zone != nil && snap != nil {
		v := s.deps.Zone.Contains(snap.Point())
		inZone = &v
	}

	if err := s.deps.Notifier.Notify(ctx, artifact, snap, inZone); err != nil {
		logger.ErrorContext(ctx, "Notification delivery failed", "error", err)
		return false
	}

	return s.deps.Notifier.Configured()
}

// record persists the run outcome to the optional history, metrics and
// status collaborators. All of it is best-effort.
func (s *Service) record(ctx context.Context, logger *slog.Logger, res Result) {
	if s.deps.History != nil {
		rec := &history.RunRecord{
			StartedAt:    res.StartedAt,
			FinishedAt:   res.FinishedAt,
			Trigger:      res.Trigger,
			ArtifactPath: res.ArtifactPath,
			HasTelemetry: res.Snapshot != nil,
			Notified:     res.Notified,
			Failed:       res.Failed,
		}
		if res.Snapshot != nil {
			rec.DistanceKm = res.Snapshot.DistanceToReferenceKm
			rec.SpeedKnots = res.Snapshot.Position.Speed
		}
		if err := s.deps.History.Record(rec); err != nil {
			logger.ErrorContext(ctx, "Failed to record run history", "error", err)
		}
	}

	if s.deps.Metrics != nil {
		run := metrics.RunPoint{
			Trigger:      res.Trigger,
			Success:      !res.Failed,
			HasTelemetry: res.Snapshot != nil,
			Notified:     res.Notified,
			Duration:     res.FinishedAt.Sub(res.StartedAt),
			Time:         res.StartedAt,
		}
		if res.Snapshot != nil {
			run.DistanceKm = res.Snapshot.DistanceToReferenceKm
			run.SpeedKnots = res.Snapshot.Position.Speed
		}
		if err := s.deps.Metrics.WriteRun(run); err != nil {
			logger.ErrorContext(ctx, "Failed to write run metrics", "error", err)
		}
	}

	if s.deps.Monitor != nil {
		status := monitor.RunStatus{
			Trigger:      res.Trigger,
			StartedAt:    res.StartedAt,
			FinishedAt:   res.FinishedAt,
			Failed:       res.Failed,
			ArtifactPath: res.ArtifactPath,
			HasTelemetry: res.Snapshot != nil,
			Notified:     res.Notified,
		}
		if res.Snapshot != nil {
			status.DistanceKm = res.Snapshot.DistanceToReferenceKm
		}
		s.deps.Monitor.RecordRun(status)
	}
}
