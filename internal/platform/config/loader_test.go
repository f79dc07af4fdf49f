package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func noEnv(string) (string, bool) { return "", false }

func TestLoader_Load(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "config.yaml")

	configContent := `
server:
  ip: "127.0.0.1"
  port: 8080
log:
  log_level: "DEBUG"
  log_dir: "/tmp/logs"
  log_file: "test.log"
browser:
  timeout: 45s
  default_width: 1024
  default_height: 768
capture_log:
  driver: sqlite
  sqlite:
    dsn: "file::memory:"
`

	if err := os.WriteFile(configFile, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	res, err := NewLoader().WithDotEnv(false).WithLookupEnv(noEnv).WithPath(configFile).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg := res.Config

	if res.Path != configFile {
		t.Errorf("expected path %s, got %s", configFile, res.Path)
	}
	if cfg.Server.IP != "127.0.0.1" {
		t.Errorf("expected server IP 127.0.0.1, got %s", cfg.Server.IP)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "DEBUG" {
		t.Errorf("expected log level DEBUG, got %s", cfg.Log.Level)
	}
	if cfg.Browser.Timeout != 45*time.Second {
		t.Errorf("expected browser timeout 45s, got %s", cfg.Browser.Timeout)
	}
	if cfg.Browser.DefaultWidth != 1024 || cfg.Browser.DefaultHeight != 768 {
		t.Errorf("unexpected viewport %dx%d", cfg.Browser.DefaultWidth, cfg.Browser.DefaultHeight)
	}
	if cfg.CaptureLog.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", cfg.CaptureLog.Driver)
	}
	// untouched sections keep their defaults
	if !cfg.Browser.Headless {
		t.Error("expected headless default to survive partial file")
	}
}

func TestLoader_DefaultsWhenFileMissing(t *testing.T) {
	oldWd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(oldWd)

	res, err := NewLoader().WithDotEnv(false).WithLookupEnv(noEnv).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Path != "" {
		t.Errorf("expected empty path, got %q", res.Path)
	}
	if res.Config.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", res.Config.Server.Port)
	}
}

func TestLoader_ExplicitMissingFile(t *testing.T) {
	_, err := NewLoader().WithDotEnv(false).WithLookupEnv(noEnv).
		WithPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	if err == nil {
		t.Fatal("expected error for explicit missing file")
	}
}

func TestLoader_EnvOverrides(t *testing.T) {
	env := map[string]string{
		"SCREAMSHOT_PORT":               "9100",
		"SCREAMSHOT_AUTH_SECRET":        "s3cret",
		"SCREAMSHOT_CHROME_PATH":        "/usr/bin/chromium",
		"SCREAMSHOT_CAPTURE_LOG_DRIVER": "redis",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	oldWd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(oldWd)

	res, err := NewLoader().WithDotEnv(false).WithLookupEnv(lookup).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg := res.Config
	if cfg.Server.Port != 9100 {
		t.Errorf("expected port 9100, got %d", cfg.Server.Port)
	}
	if !cfg.Server.Auth.Enabled || cfg.Server.Auth.Secret != "s3cret" {
		t.Errorf("expected auth enabled with secret, got %+v", cfg.Server.Auth)
	}
	if cfg.Browser.ExecPath != "/usr/bin/chromium" {
		t.Errorf("unexpected exec path %q", cfg.Browser.ExecPath)
	}
	if cfg.CaptureLog.Driver != "redis" {
		t.Errorf("unexpected driver %q", cfg.CaptureLog.Driver)
	}
}

func TestLoader_Validate(t *testing.T) {
	loader := NewLoader()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "invalid server port",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "auth enabled without secret",
			mutate:  func(c *Config) { c.Server.Auth.Enabled = true },
			wantErr: true,
		},
		{
			name:    "unknown capture log driver",
			mutate:  func(c *Config) { c.CaptureLog.Driver = "mongo" },
			wantErr: true,
		},
		{
			name: "redis driver without addr",
			mutate: func(c *Config) {
				c.CaptureLog.Driver = "redis"
				c.CaptureLog.Redis.Addr = ""
			},
			wantErr: true,
		},
		{
			name:    "zero viewport",
			mutate:  func(c *Config) { c.Browser.DefaultWidth = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := loader.validateConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoader_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  prot: 80\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewLoader().WithDotEnv(false).WithLookupEnv(noEnv).WithPath(path).Load(); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}
