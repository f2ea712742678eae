package retention

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFiles(t *testing.T, dir string, names []string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("png"), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestPrune_KeepsNewestTen(t *testing.T) {
	dir := t.TempDir()

	var matching []string
	for i := 1; i <= 13; i++ {
		matching = append(matching, fmt.Sprintf("flotilla-canvas-2026-08-%02dT06-00-00Z.png", i))
	}
	writeFiles(t, dir, matching)
	writeFiles(t, dir, []string{"notes.txt", "flotilla-canvas-keep.jpg"})

	m := NewManager(dir, "flotilla-canvas-", 10, discardLogger())
	deleted, err := m.Prune()
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 deletions, got %d", deleted)
	}

	remaining := listDir(t, dir)

	// The three oldest matching files are gone
	for _, name := range matching[:3] {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("expected %s to be deleted", name)
		}
	}
	// The ten newest matching files survive
	for _, name := range matching[3:] {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to survive: %v", name, err)
		}
	}
	// Non-matching files are untouched
	for _, name := range []string{"notes.txt", "flotilla-canvas-keep.jpg"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected non-matching %s to be untouched: %v", name, err)
		}
	}

	if len(remaining) != 12 { // 10 matching + 2 non-matching
		t.Errorf("expected 12 files remaining, got %d: %v", len(remaining), remaining)
	}
}

func TestPrune_FewerThanKeepIsNoop(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"flotilla-canvas-2026-08-29T06-00-00Z.png",
		"flotilla-canvas-2026-08-30T06-00-00Z.png",
		"flotilla-canvas-2026-08-31T06-00-00Z.png",
	}
	writeFiles(t, dir, names)

	m := NewManager(dir, "flotilla-canvas-", 10, discardLogger())
	deleted, err := m.Prune()
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected no deletions, got %d", deleted)
	}
	if got := listDir(t, dir); len(got) != 3 {
		t.Errorf("expected 3 files remaining, got %v", got)
	}
}

func TestPrune_EmptyDir(t *testing.T) {
	m := NewManager(t.TempDir(), "flotilla-canvas-", 10, discardLogger())
	deleted, err := m.Prune()
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected no deletions, got %d", deleted)
	}
}

func TestPrune_MissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing"), "flotilla-canvas-", 10, discardLogger())
	if _, err := m.Prune(); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestPrune_SkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "flotilla-canvas-2026-01-01T00-00-00Z.png"), 0o755); err != nil {
		t.Fatal(err)
	}
	var names []string
	for i := 1; i <= 11; i++ {
		names = append(names, fmt.Sprintf("flotilla-canvas-2026-08-%02dT06-00-00Z.png", i))
	}
	writeFiles(t, dir, names)

	m := NewManager(dir, "flotilla-canvas-", 10, discardLogger())
	deleted, err := m.Prune()
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deletion, got %d", deleted)
	}
	if _, err := os.Stat(filepath.Join(dir, "flotilla-canvas-2026-01-01T00-00-00Z.png")); err != nil {
		t.Errorf("expected directory entry to be untouched: %v", err)
	}
}
