// Package telemetry talks to the vessel position API.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flotillawatch/flotillawatch/internal/geo"
)

// Position is one telemetry sample as reported by the vessel API.
type Position struct {
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
	Speed             float64 `json:"speed"`
	LastPositionEpoch int64   `json:"last_position_epoch"`
	LastPositionUTC   string  `json:"last_position_UTC"`
}

// Vessel is a tracked vessel with its reported positions for the query date.
// The API's own position ordering is trusted, positions[0] is the current one.
type Vessel struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	MMSI      string     `json:"mmsi"`
	Positions []Position `json:"positions"`
}

// Response is the vessel API response body.
type Response struct {
	Days    int               `json:"days"`
	Start   string            `json:"start"`
	Vessels map[string]Vessel `json:"vessels"`
}

// Snapshot is the derived telemetry for one pipeline run.
type Snapshot struct {
	Vessel                Vessel
	Position              Position
	DistanceToReferenceKm float64
}

// Point returns the snapshot's position as a geo point.
func (s *Snapshot) Point() geo.Point {
	return geo.Point{Lat: s.Position.Lat, Lon: s.Position.Lon}
}

// Client handles communication with the vessel telemetry API.
type Client struct {
	baseURL    string
	mmsi       string
	reference  geo.Point
	httpClient *http.Client
	log        *slog.Logger
}

// New creates a new telemetry client for a single tracked vessel.
func New(baseURL, mmsi string, reference geo.Point, log *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		mmsi:       mmsi,
		reference:  reference,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// Fetch requests today's data for the tracked vessel and derives a snapshot.
// Returns (nil, nil) when the API has no data for the vessel; that is an
// expected outcome, not an error. Errors cover transport and parse failures
// only. No retries are attempted.
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	start := time.Now().UTC().Format("2006-01-02")

	q := url.Values{}
	q.Set("start", start)
	q.Set("mmsis", c.mmsi)
	reqURL := c.baseURL + "/api/vessel?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vessel request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vessel request returned status %d", resp.StatusCode)
	}

	var body Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode vessel response: %w", err)
	}

	vessel, ok := body.Vessels[c.mmsi]
	if !ok || len(vessel.Positions) == 0 {
		c.log.Info("No vessel data for query date", "mmsi", c.mmsi, "start", start)
		return nil, nil
	}

	current := vessel.Positions[0]
	snap := &Snapshot{
		Vessel:   vessel,
		Position: current,
		DistanceToReferenceKm: geo.HaversineKm(
			c.reference,
			geo.Point{Lat: current.Lat, Lon: current.Lon},
		),
	}

	c.log.Info("Fetched vessel telemetry",
		"mmsi", c.mmsi,
		"vessel", vessel.Name,
		"lat", current.Lat,
		"lon", current.Lon,
		"distanceKm", snap.DistanceToReferenceKm,
	)

	return snap, nil
}
