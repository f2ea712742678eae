// Package history records pipeline run outcomes in a local SQLite file.
package history

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RunRecord is one pipeline run outcome.
type RunRecord struct {
	ID           uint      `gorm:"primarykey"`
	StartedAt    time.Time `gorm:"index"`
	FinishedAt   time.Time
	Trigger      string // "startup" or "schedule"
	ArtifactPath string // empty when capture failed
	HasTelemetry bool
	DistanceKm   float64
	SpeedKnots   float64
	Notified     bool
	Failed       bool
}

// Store persists run records, bounded to a maximum row count.
type Store struct {
	db       *gorm.DB
	keepRuns int
}

// Open creates (or opens) the SQLite history database at path and migrates
// the schema.
func Open(path string, keepRuns int) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}

	if err := db.AutoMigrate(&RunRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history schema: %w", err)
	}

	return &Store{db: db, keepRuns: keepRuns}, nil
}

// Record inserts a run record and trims rows beyond the retention bound.
func (s *Store) Record(rec *RunRecord) error {
	if err := s.db.Create(rec).Error; err != nil {
		return fmt.Errorf("failed to insert run record: %w", err)
	}

	// Keep the newest keepRuns rows.
	if s.keepRuns > 0 {
		err := s.db.Exec(
			`DELETE FROM run_records WHERE id NOT IN
			 (SELECT id FROM run_records ORDER BY id DESC LIMIT ?)`,
			s.keepRuns,
		).Error
		if err != nil {
			return fmt.Errorf("failed to trim run history: %w", err)
		}
	}

	return nil
}

// Recent returns the newest n run records, newest first.
func (s *Store) Recent(n int) ([]RunRecord, error) {
	var recs []RunRecord
	err := s.db.Order("id desc").Limit(n).Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	return recs, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}
