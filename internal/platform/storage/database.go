package storage

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"screamshot-server/internal/platform/errors"
	"screamshot-server/internal/platform/storage/migrations"
)

// CaptureRecord is one row of the capture log.
type CaptureRecord struct {
	ID         uint           `gorm:"primaryKey"`
	CaptureID  string         `gorm:"column:capture_id;uniqueIndex;not null"`
	URL        string         `gorm:"column:url;not null"`
	Status     string         `gorm:"index;not null"`
	Params     datatypes.JSON `gorm:"type:json"`
	Errors     datatypes.JSON `gorm:"type:json"`
	Bytes      int64          `gorm:"not null;default:0"`
	DurationMs int64          `gorm:"column:duration_ms;not null;default:0"`
	CreatedAt  time.Time      `gorm:"index;not null"`
}

func (CaptureRecord) TableName() string {
	return "capture_records"
}

// OpenSQLite opens (creating if needed) the SQLite database at dsn and applies migrations.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New(errors.KindStorage, "storage.open", "sqlite dsn is required")
	}
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(errors.KindStorage, "storage.open", "create data directory", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", "open sqlite", err)
	}
	// sqlite allows a single writer; the bus workers share one connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", "sqlite pool", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := NewMigrationManager(db, &migrations.Migration001Captures{}).RunMigrations(); err != nil {
		return nil, err
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
