// Package capture drives a headless Chrome instance to screenshot the
// rendered vessel map canvas.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// FilePrefix is the artifact naming convention shared with the retention manager.
const FilePrefix = "flotilla-canvas-"

// Config holds page capture settings.
type Config struct {
	PageURL        string
	Selector       string
	ViewportWidth  int
	ViewportHeight int
	WaitTimeout    time.Duration // navigation + element wait budget
	SettleDelay    time.Duration // blind wait for async canvas rendering
	ShotsDir       string
	ExecPath       string // optional browser binary override
}

// Service captures one element screenshot per pipeline run.
type Service struct {
	cfg Config
	log *slog.Logger
}

// NewService creates a new capture service.
func NewService(cfg Config, log *slog.Logger) *Service {
	return &Service{cfg: cfg, log: log}
}

// FileName builds a sortable artifact file name for the given timestamp.
// Timestamps are UTC with colons replaced so names sort in creation order.
func FileName(ts time.Time) string {
	return FilePrefix + ts.UTC().Format("2006-01-02T15-04-05Z") + ".png"
}

// Capture renders the target page and writes a PNG of the canvas element's
// bounds into the shots directory. The browser process is terminated on every
// exit path. The returned path is empty when no artifact was produced.
func (s *Service) Capture(ctx context.Context, pageURL string) (string, error) {
	if err := os.MkdirAll(s.cfg.ShotsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create shots directory: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(s.cfg.ViewportWidth, s.cfg.ViewportHeight),
		chromedp.Flag("hide-scrollbars", true),
	)
	if s.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(s.cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	// Cancelling the context tears down the browser process, including on
	// element-wait timeouts and screenshot failures.
	defer cancelBrowser()

	start := time.Now()

	// Navigation and the element wait share the configured budget. The settle
	// delay and the screenshot itself are outside it.
	waitCtx, cancelWait := context.WithTimeout(browserCtx, s.cfg.WaitTimeout)
	defer cancelWait()

	// Navigate completes on the page load event rather than network idle;
	// outstanding requests are absorbed by the element wait and settle delay.
	err := chromedp.Run(waitCtx,
		chromedp.EmulateViewport(int64(s.cfg.ViewportWidth), int64(s.cfg.ViewportHeight)),
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible(s.cfg.Selector, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("waiting for %q on %s: %w", s.cfg.Selector, pageURL, err)
	}

	s.log.Debug("Element ready, settling",
		"selector", s.cfg.Selector,
		"waitedMs", time.Since(start).Milliseconds(),
	)

	// The canvas keeps drawing after it appears and exposes no readiness
	// signal, so a fixed settle delay stands in for one.
	var buf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Sleep(s.cfg.SettleDelay),
		chromedp.Screenshot(s.cfg.Selector, &buf, chromedp.NodeVisible, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("capturing %q: %w", s.cfg.Selector, err)
	}

	path := filepath.Join(s.cfg.ShotsDir, FileName(time.Now()))
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}

	s.log.Info("Screenshot captured",
		"path", path,
		"bytes", len(buf),
		"tookMs", time.Since(start).Milliseconds(),
	)

	return path, nil
}
