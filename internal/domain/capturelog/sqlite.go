package capturelog

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"screamshot-server/internal/platform/storage"
)

type sqliteStore struct {
	db         *gorm.DB
	maxEntries int
}

// NewSQLite creates a gorm backed store. The capture_records table must already exist.
func NewSQLite(db *gorm.DB, cfg Config) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite database handle required")
	}
	if !db.Migrator().HasTable(&storage.CaptureRecord{}) {
		return nil, fmt.Errorf("capture_records table missing, run migrations first")
	}
	return &sqliteStore{db: db, maxEntries: cfg.maxEntries()}, nil
}

func (s *sqliteStore) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		return fmt.Errorf("entry id required")
	}
	params, err := sonic.Marshal(entry.Params)
	if err != nil {
		return err
	}
	errs, err := sonic.Marshal(entry.Errors)
	if err != nil {
		return err
	}
	record := storage.CaptureRecord{
		CaptureID:  entry.ID,
		URL:        entry.URL,
		Status:     entry.Status,
		Params:     datatypes.JSON(params),
		Errors:     datatypes.JSON(errs),
		Bytes:      entry.Bytes,
		DurationMs: entry.DurationMs,
		CreatedAt:  entry.CreatedAt,
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		// keep only the newest maxEntries rows
		return tx.Exec(
			`DELETE FROM capture_records WHERE id <= (
				SELECT id FROM capture_records ORDER BY id DESC LIMIT 1 OFFSET ?
			)`, s.maxEntries,
		).Error
	})
}

func (s *sqliteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	limit = clampLimit(limit, s.maxEntries)
	var records []storage.CaptureRecord
	if err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(records))
	for _, rec := range records {
		entry := Entry{
			ID:         rec.CaptureID,
			URL:        rec.URL,
			Status:     rec.Status,
			Bytes:      rec.Bytes,
			DurationMs: rec.DurationMs,
			CreatedAt:  rec.CreatedAt,
		}
		if len(rec.Params) > 0 {
			if err := sonic.Unmarshal(rec.Params, &entry.Params); err != nil {
				return nil, fmt.Errorf("decode params of %s: %w", rec.CaptureID, err)
			}
		}
		if len(rec.Errors) > 0 {
			if err := sonic.Unmarshal(rec.Errors, &entry.Errors); err != nil {
				return nil, fmt.Errorf("decode errors of %s: %w", rec.CaptureID, err)
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := s.db.WithContext(ctx).
		Model(&storage.CaptureRecord{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	var retained int64
	byStatus := make(map[string]int64, len(rows))
	for _, r := range rows {
		byStatus[r.Status] = r.Count
		retained += r.Count
	}
	return map[string]any{
		"type":      DriverSQLite,
		"retained":  retained,
		"capacity":  s.maxEntries,
		"by_status": byStatus,
	}, nil
}

// Close is a no-op; the database handle is owned by the caller.
func (s *sqliteStore) Close(context.Context) error {
	return nil
}
