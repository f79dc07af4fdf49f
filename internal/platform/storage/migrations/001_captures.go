package migrations

import (
	"gorm.io/gorm"
)

// Migration001Captures creates the capture log table.
type Migration001Captures struct{}

func (m *Migration001Captures) Version() string {
	return "001_captures"
}

func (m *Migration001Captures) Description() string {
	return "Create capture log table"
}

func (m *Migration001Captures) Up(db *gorm.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS capture_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			capture_id VARCHAR(64) NOT NULL UNIQUE,
			url TEXT NOT NULL,
			status VARCHAR(16) NOT NULL,
			params JSON,
			errors JSON,
			bytes INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_capture_records_status ON capture_records(status)`,
		`CREATE INDEX IF NOT EXISTS idx_capture_records_created_at ON capture_records(created_at)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration001Captures) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS capture_records`).Error
}
