// Package notify posts pipeline run summaries to a messaging webhook.
//
// The webhook channel accepts text only. The captured PNG is never attached;
// the message carries its file name and the vessel telemetry instead. This is
// a known limitation of the delivery mechanism, not an oversight.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/flotillawatch/flotillawatch/internal/telemetry"
)

// PlaceholderURL is the value shipped in example configs. A webhook left at
// this value is treated the same as an unset one.
const PlaceholderURL = "https://hooks.example.com/services/CHANGE/ME"

// payload is the webhook message body.
type payload struct {
	Text      string `json:"text"`
	Username  string `json:"username"`
	IconEmoji string `json:"icon_emoji"`
}

// Service delivers run notifications to a single webhook.
type Service struct {
	webhookURL string
	username   string
	iconEmoji  string
	httpClient *http.Client
	log        *slog.Logger
}

// NewService creates a new notifier.
func NewService(webhookURL, username, iconEmoji string, log *slog.Logger) *Service {
	return &Service{
		webhookURL: webhookURL,
		username:   username,
		iconEmoji:  iconEmoji,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// Configured reports whether a usable webhook URL is set.
func (s *Service) Configured() bool {
	return s.webhookURL != "" && s.webhookURL != PlaceholderURL
}

// BuildMessage renders the notification text. The vessel block is only
// present when telemetry is available; inZone is nil when no alert zone is
// configured or no telemetry was fetched.
func BuildMessage(now time.Time, artifactPath string, snap *telemetry.Snapshot, inZone *bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Flotilla map snapshot %s (%s)",
		now.UTC().Format(time.RFC3339), filepath.Base(artifactPath))

	if snap == nil {
		return b.String()
	}

	fmt.Fprintf(&b, "\nVessel: %s", snap.Vessel.Name)
	fmt.Fprintf(&b, "\nMMSI: %s", snap.Vessel.MMSI)
	fmt.Fprintf(&b, "\nPosition: %.6f, %.6f", snap.Position.Lat, snap.Position.Lon)
	fmt.Fprintf(&b, "\nDistance to reference: %.2f km", snap.DistanceToReferenceKm)
	fmt.Fprintf(&b, "\nLast observed: %s", snap.Position.LastPositionUTC)
	fmt.Fprintf(&b, "\nSpeed: %.1f kn", snap.Position.Speed)

	if inZone != nil {
		if *inZone {
			b.WriteString("\nInside alert zone: yes")
		} else {
			b.WriteString("\nInside alert zone: no")
		}
	}

	return b.String()
}

// Notify formats and delivers a run summary. A missing webhook configuration
// is logged as a warning and skipped; it is not an error. Delivery failures
// are returned for the caller to log.
func (s *Service) Notify(ctx context.Context, artifactPath string, snap *telemetry.Snapshot, inZone *bool) error {
	if !s.Configured() {
		s.log.Warn("Webhook URL not configured, skipping notification",
			"env", "FLOTILLA_WEBHOOK_URL")
		return nil
	}

	text := BuildMessage(time.Now(), artifactPath, snap, inZone)
	return s.post(ctx, text)
}

func (s *Service) post(ctx context.Context, text string) error {
	body, err := json.Marshal(payload{
		Text:      text,
		Username:  s.username,
		IconEmoji: s.iconEmoji,
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	s.log.Info("Notification delivered", "chars", len(text))
	return nil
}
