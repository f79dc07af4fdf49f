package webapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screamshot-server/internal/domain/capturelog"
	"screamshot-server/internal/platform/logging"
)

func newEngine(t *testing.T, store capturelog.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, err := NewService(Options{
		Captures: store,
		Logger:   logging.Nop(),
		Version:  "test",
		Dropped:  func() int64 { return 3 },
	})
	require.NoError(t, err)

	engine := gin.New()
	svc.Register(context.Background(), engine, engine.Group("/api"))
	return engine
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Code    int             `json:"code"`
}

func get(t *testing.T, engine *gin.Engine, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestCaptures_NewestFirstWithLimit(t *testing.T) {
	store := capturelog.NewMemory(capturelog.Config{MaxEntries: 10})
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Record(context.Background(), capturelog.Entry{
			ID: id, URL: "http://" + id, Status: "ok", CreatedAt: time.Now(),
		}))
	}
	engine := newEngine(t, store)

	rec, env := get(t, engine, "/api/captures?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	var entries []capturelog.Entry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].ID)
	assert.Equal(t, "b", entries[1].ID)
}

func TestCaptures_BadLimit(t *testing.T) {
	engine := newEngine(t, capturelog.NewMemory(capturelog.Config{}))
	for _, limit := range []string{"0", "-1", "many"} {
		rec, env := get(t, engine, "/api/captures?limit="+limit)
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
		assert.False(t, env.Success)
	}
}

func TestCaptures_Disabled(t *testing.T) {
	engine := newEngine(t, nil)
	rec, _ := get(t, engine, "/api/captures")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	engine := newEngine(t, capturelog.NewMemory(capturelog.Config{}))
	rec, env := get(t, engine, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var report HealthReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "ok", report.Status)
	assert.Equal(t, "test", report.Version)
	assert.EqualValues(t, 3, report.DroppedEvents)
	assert.Equal(t, "memory", report.CaptureLog["type"])
	assert.Positive(t, report.Goroutines)
}

func TestNewService_RequiresLogger(t *testing.T) {
	_, err := NewService(Options{})
	assert.Error(t, err)
}
