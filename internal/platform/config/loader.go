package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is probed in the working directory when no path is given.
	DefaultPath = "config.yaml"
	// EnvPath names the variable that points at the config file.
	EnvPath = "SCREAMSHOT_CONFIG"
)

// Loader reads YAML configuration on top of DefaultConfig and applies env overrides.
type Loader struct {
	useDotEnv bool
	path      string
	lookupEnv func(string) (string, bool)
	validate  *validator.Validate
}

// NewLoader creates a loader that reads .env, then the config file, then the environment.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		lookupEnv: os.LookupEnv,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath pins the config file location.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// WithLookupEnv overrides environment lookups (useful for tests).
func (l *Loader) WithLookupEnv(fn func(string) (string, bool)) *Loader {
	if fn != nil {
		l.lookupEnv = fn
	}
	return l
}

// Result captures the loaded configuration and its origin path.
// Path is empty when only defaults and environment were used.
type Result struct {
	Config *Config
	Path   string
}

// Load resolves the configuration and validates it.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// a missing .env is normal outside development
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	path, explicit := l.resolvePath()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decodeYAML(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
			path = ""
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := l.validateConfig(cfg); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: path}, nil
}

func (l *Loader) resolvePath() (string, bool) {
	if l.path != "" {
		return l.path, true
	}
	if p, ok := l.lookupEnv(EnvPath); ok && strings.TrimSpace(p) != "" {
		return strings.TrimSpace(p), true
	}
	return DefaultPath, false
}

func decodeYAML(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

func (l *Loader) applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := l.lookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := l.lookupEnv("SCREAMSHOT_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SCREAMSHOT_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v, ok := l.lookupEnv("SCREAMSHOT_AUTH_SECRET"); ok && v != "" {
		cfg.Server.Auth.Secret = v
		cfg.Server.Auth.Enabled = true
	}
	str("SCREAMSHOT_LOG_LEVEL", &cfg.Log.Level)
	str("SCREAMSHOT_CHROME_PATH", &cfg.Browser.ExecPath)
	str("SCREAMSHOT_REMOTE_URL", &cfg.Browser.RemoteURL)
	str("SCREAMSHOT_CAPTURE_LOG_DRIVER", &cfg.CaptureLog.Driver)
	str("SCREAMSHOT_REDIS_ADDR", &cfg.CaptureLog.Redis.Addr)
	return nil
}

func (l *Loader) validateConfig(cfg *Config) error {
	if err := l.validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.CaptureLog.Enabled {
		switch cfg.CaptureLog.Driver {
		case "sqlite":
			if cfg.CaptureLog.SQLite.DSN == "" {
				return errors.New("invalid config: capture_log.sqlite.dsn is required")
			}
		case "redis":
			if cfg.CaptureLog.Redis.Addr == "" {
				return errors.New("invalid config: capture_log.redis.addr is required")
			}
		}
	}
	return nil
}
