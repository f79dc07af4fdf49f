// Package capturelog keeps a bounded history of capture requests.
package capturelog

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"screamshot-server/internal/domain/screenshot"
)

// Entry is one recorded capture request.
type Entry struct {
	ID         string         `json:"id"`
	URL        string         `json:"url"`
	Status     string         `json:"status"`
	Params     map[string]any `json:"params,omitempty"`
	Errors     []string       `json:"errors,omitempty"`
	Bytes      int64          `json:"bytes"`
	DurationMs int64          `json:"duration_ms"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Store persists entries and returns the most recent ones first.
type Store interface {
	Record(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// Config describes the high level store selection parameters.
type Config struct {
	Driver     string
	MaxEntries int
	Redis      *RedisConfig
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

const (
	defaultMaxEntries = 500
	redacted          = "[redacted]"
)

func (c Config) maxEntries() int {
	if c.MaxEntries <= 0 {
		return defaultMaxEntries
	}
	return c.MaxEntries
}

// EntryFromOutcome converts a capture outcome, assigning an id and hiding credentials.
func EntryFromOutcome(o screenshot.Outcome) Entry {
	createdAt := o.At
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return Entry{
		ID:         uuid.NewString(),
		URL:        stripUserinfo(o.URL),
		Status:     string(o.Status),
		Params:     redactParams(o.Params),
		Errors:     append([]string(nil), o.Errors...),
		Bytes:      o.Bytes,
		DurationMs: o.Duration.Milliseconds(),
		CreatedAt:  createdAt.UTC(),
	}
}

func redactParams(params map[string]any) map[string]any {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		if k == screenshot.ParamCredentials {
			out[k] = redacted
			continue
		}
		if s, ok := v.(string); ok && k == screenshot.ParamURL {
			v = stripUserinfo(s)
		}
		out[k] = v
	}
	return out
}

// stripUserinfo drops user:password from a page address.
func stripUserinfo(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = nil
	return u.String()
}

func clampLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}
