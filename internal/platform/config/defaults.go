package config

import "time"

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:              "0.0.0.0",
			Port:            8000,
			ShutdownTimeout: 10 * time.Second,
			AllowOrigins:    []string{"*"},
			Auth: AuthConfig{
				Enabled: false,
				Issuer:  "screamshot",
				TTL:     24 * time.Hour,
			},
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			Enabled:   true,
			StaticDir: "web",
		},
		Browser: BrowserConfig{
			Headless:      true,
			Timeout:       30 * time.Second,
			DefaultWidth:  800,
			DefaultHeight: 600,
			MaxTabs:       4,
		},
		Capture: CaptureConfig{
			MaxBodyBytes:  1 << 20,
			MaxImageBytes: 32 << 20,
		},
		CaptureLog: CaptureLogConfig{
			Enabled:    true,
			Driver:     "memory",
			MaxEntries: 500,
			SQLite: CaptureLogSQLite{
				DSN: "data/captures.db",
			},
			Redis: CaptureLogRedisStore{
				Addr:   "127.0.0.1:6379",
				Prefix: "screamshot:captures",
			},
		},
		MCP: MCPConfig{
			Enabled:  false,
			Name:     "screamshot",
			BasePath: "/mcp",
		},
		Observability: ObservabilityConfig{
			Enabled: false,
		},
	}
}
