package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flotillawatch/flotillawatch/internal/geo"
)

var testReference = geo.Point{Lat: 31.5, Lon: 34.45}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew(t *testing.T) {
	c := New("http://localhost:5000", "229944000", testReference, discardLogger())

	if c == nil {
		t.Fatal("New returned nil")
	}
	if c.baseURL != "http://localhost:5000" {
		t.Errorf("expected baseURL=http://localhost:5000, got %s", c.baseURL)
	}
	if c.mmsi != "229944000" {
		t.Errorf("expected mmsi=229944000, got %s", c.mmsi)
	}
	if c.httpClient == nil {
		t.Error("httpClient is nil")
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "229944000", testReference, discardLogger())
	if c.baseURL != "http://localhost:5000" {
		t.Errorf("expected trailing slash trimmed, got %s", c.baseURL)
	}
}

func TestFetch_Success(t *testing.T) {
	var receivedPath, receivedStart, receivedMMSIs string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		receivedStart = r.URL.Query().Get("start")
		receivedMMSIs = r.URL.Query().Get("mmsis")

		fmt.Fprint(w, `{
			"days": 1,
			"start": "2026-08-31",
			"vessels": {
				"229944000": {
					"id": "v1",
					"name": "Condor",
					"mmsi": "229944000",
					"positions": [
						{"lat": 31.6, "lon": 34.5, "speed": 7.4, "last_position_epoch": 1756600000, "last_position_UTC": "2026-08-31T00:26:40Z"},
						{"lat": 31.7, "lon": 34.6, "speed": 6.0, "last_position_epoch": 1756590000, "last_position_UTC": "2026-08-30T21:40:00Z"}
					]
				}
			}
		}`)
	}))
	defer server.Close()

	c := New(server.URL, "229944000", testReference, discardLogger())
	snap, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if snap == nil {
		t.Fatal("expected snapshot, got nil")
	}

	if receivedPath != "/api/vessel" {
		t.Errorf("expected path /api/vessel, got %s", receivedPath)
	}
	if want := time.Now().UTC().Format("2006-01-02"); receivedStart != want {
		t.Errorf("expected start=%s, got %s", want, receivedStart)
	}
	if receivedMMSIs != "229944000" {
		t.Errorf("expected mmsis=229944000, got %s", receivedMMSIs)
	}

	if snap.Vessel.Name != "Condor" {
		t.Errorf("expected vessel name Condor, got %s", snap.Vessel.Name)
	}
	if snap.Position.Lat != 31.6 || snap.Position.Lon != 34.5 {
		t.Errorf("expected first position to be used, got %+v", snap.Position)
	}
	if snap.Position.Speed != 7.4 {
		t.Errorf("expected speed 7.4, got %f", snap.Position.Speed)
	}

	want := geo.HaversineKm(testReference, geo.Point{Lat: 31.6, Lon: 34.5})
	if math.Abs(snap.DistanceToReferenceKm-want) > 1e-9 {
		t.Errorf("expected distance %f, got %f", want, snap.DistanceToReferenceKm)
	}
}

func TestFetch_EmptyPositions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"days":1,"start":"2026-08-31","vessels":{"229944000":{"id":"v1","name":"Condor","mmsi":"229944000","positions":[]}}}`)
	}))
	defer server.Close()

	c := New(server.URL, "229944000", testReference, discardLogger())
	snap, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("expected no error for empty positions, got %v", err)
	}
	if snap != nil {
		t.Errorf("expected nil snapshot for empty positions, got %+v", snap)
	}
}

func TestFetch_MissingVessel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"days":1,"start":"2026-08-31","vessels":{}}`)
	}))
	defer server.Close()

	c := New(server.URL, "229944000", testReference, discardLogger())
	snap, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("expected no error for missing vessel, got %v", err)
	}
	if snap != nil {
		t.Errorf("expected nil snapshot for missing vessel, got %+v", snap)
	}
}

func TestFetch_ServerDown(t *testing.T) {
	c := New("http://localhost:59999", "229944000", testReference, discardLogger()) // unlikely to be listening
	_, err := c.Fetch(context.Background())
	if err == nil {
		t.Error("expected error for unreachable server")
	}
}

func TestFetch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, "229944000", testReference, discardLogger())
	_, err := c.Fetch(context.Background())
	if err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestFetch_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"days": not json`)
	}))
	defer server.Close()

	c := New(server.URL, "229944000", testReference, discardLogger())
	_, err := c.Fetch(context.Background())
	if err == nil {
		t.Error("expected error for malformed body")
	}
}
