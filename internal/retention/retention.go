// Package retention bounds the number of screenshot artifacts kept on disk.
package retention

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Manager prunes old artifacts from a storage directory.
type Manager struct {
	dir    string
	prefix string
	keep   int
	log    *slog.Logger
}

// NewManager creates a retention manager keeping the newest `keep` files
// whose names start with prefix and end in .png.
func NewManager(dir, prefix string, keep int, log *slog.Logger) *Manager {
	return &Manager{
		dir:    dir,
		prefix: prefix,
		keep:   keep,
		log:    log,
	}
}

// Prune deletes every matching artifact beyond the newest `keep`. Artifact
// names embed a sortable timestamp, so descending name order is newest-first.
// Individual delete failures are logged and skipped. Non-matching files are
// never touched. Returns the number of files deleted.
func (m *Manager) Prune() (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list shots directory: %w", err)
	}

	var matching []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, m.prefix) && strings.HasSuffix(name, ".png") {
			matching = append(matching, name)
		}
	}

	if len(matching) <= m.keep {
		return 0, nil
	}

	sort.Sort(sort.Reverse(sort.StringSlice(matching)))

	deleted := 0
	for _, name := range matching[m.keep:] {
		path := filepath.Join(m.dir, name)
		if err := os.Remove(path); err != nil {
			m.log.Error("Failed to delete old screenshot", "path", path, "error", err)
			continue
		}
		m.log.Info("Deleted old screenshot", "path", path)
		deleted++
	}

	return deleted, nil
}
