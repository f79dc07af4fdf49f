package capturelog

import (
	"gorm.io/gorm"

	"screamshot-server/internal/platform/errors"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Dependencies carries handles owned by the caller. SQLiteDB is closed by
// whoever opened it, not by the store.
type Dependencies struct {
	SQLiteDB *gorm.DB
}

type constructor func(Config, Dependencies) (Store, error)

var drivers = map[string]constructor{
	DriverMemory: func(cfg Config, _ Dependencies) (Store, error) {
		return NewMemory(cfg), nil
	},
	DriverSQLite: func(cfg Config, deps Dependencies) (Store, error) {
		if deps.SQLiteDB == nil {
			return nil, errors.New(errors.KindConfig, "capturelog.new", "sqlite driver needs an open database")
		}
		return NewSQLite(deps.SQLiteDB, cfg)
	},
	DriverRedis: func(cfg Config, _ Dependencies) (Store, error) {
		return NewRedis(cfg)
	},
}

// New opens the store named by cfg.Driver. An empty driver means memory.
func New(cfg Config, deps Dependencies) (Store, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverMemory
	}
	open, ok := drivers[cfg.Driver]
	if !ok {
		return nil, errors.New(errors.KindConfig, "capturelog.new", "unknown capture log driver "+cfg.Driver)
	}
	return open(cfg, deps)
}
