package config

import (
	"time"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Log           LogConfig           `yaml:"log"`
	Web           WebConfig           `yaml:"web"`
	Browser       BrowserConfig       `yaml:"browser"`
	Capture       CaptureConfig       `yaml:"capture"`
	CaptureLog    CaptureLogConfig    `yaml:"capture_log"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServerConfig struct {
	IP              string        `yaml:"ip" validate:"omitempty,ip"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
	AllowOrigins    []string      `yaml:"allow_origins"`
	Auth            AuthConfig    `yaml:"auth"`
}

// AuthConfig guards the /api group with HS256 bearer tokens when enabled.
type AuthConfig struct {
	Enabled bool          `yaml:"enabled"`
	Secret  string        `yaml:"secret" validate:"required_if=Enabled true"`
	Issuer  string        `yaml:"issuer"`
	TTL     time.Duration `yaml:"ttl" validate:"min=0"`
}

type LogConfig struct {
	Level string `yaml:"log_level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	Enabled   bool   `yaml:"enabled"`
	StaticDir string `yaml:"static_dir" validate:"required_if=Enabled true"`
}

// BrowserConfig drives the chromedp generator. RemoteURL takes precedence over ExecPath.
type BrowserConfig struct {
	ExecPath      string        `yaml:"exec_path"`
	RemoteURL     string        `yaml:"remote_url" validate:"omitempty,url"`
	Headless      bool          `yaml:"headless"`
	NoSandbox     bool          `yaml:"no_sandbox"`
	UserAgent     string        `yaml:"user_agent"`
	Timeout       time.Duration `yaml:"timeout" validate:"min=0"`
	DefaultWidth  int           `yaml:"default_width" validate:"min=1"`
	DefaultHeight int           `yaml:"default_height" validate:"min=1"`
	MaxTabs       int           `yaml:"max_tabs" validate:"min=0"`
}

type CaptureConfig struct {
	TempDir       string `yaml:"temp_dir"`
	MaxBodyBytes  int64  `yaml:"max_body_bytes" validate:"min=0"`
	MaxImageBytes int64  `yaml:"max_image_bytes" validate:"min=0"`
}

type CaptureLogConfig struct {
	Enabled    bool                 `yaml:"enabled"`
	Driver     string               `yaml:"driver" validate:"omitempty,oneof=memory sqlite redis"`
	MaxEntries int                  `yaml:"max_entries" validate:"min=0"`
	SQLite     CaptureLogSQLite     `yaml:"sqlite"`
	Redis      CaptureLogRedisStore `yaml:"redis"`
}

type CaptureLogSQLite struct {
	DSN string `yaml:"dsn"`
}

type CaptureLogRedisStore struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type MCPConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Name     string `yaml:"name"`
	BasePath string `yaml:"base_path"`
}

type ObservabilityConfig struct {
	Enabled bool `yaml:"enabled"`
}
