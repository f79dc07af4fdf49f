package webapi

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"screamshot-server/internal/domain/capturelog"
	"screamshot-server/internal/platform/errors"
	"screamshot-server/internal/platform/logging"
	"screamshot-server/internal/platform/observability"
	httptransport "screamshot-server/internal/transport/http"
)

const (
	defaultCaptureLimit = 50
	maxCaptureLimit     = 500
)

// Options wires the read-only API.
type Options struct {
	Captures capturelog.Store
	Logger   *logging.Logger
	Version  string
	// Dropped reports events lost by the event bus, may be nil.
	Dropped func() int64
}

// Service serves health information and the capture history.
type Service struct {
	captures capturelog.Store
	logger   *logging.Logger
	version  string
	dropped  func() int64
	started  time.Time
}

// NewService creates the service. Captures may be nil when the capture log is disabled.
func NewService(opts Options) (*Service, error) {
	if opts.Logger == nil {
		return nil, errors.New(errors.KindConfig, "webapi.new", "logger is required")
	}
	return &Service{
		captures: opts.Captures,
		logger:   opts.Logger,
		version:  opts.Version,
		dropped:  opts.Dropped,
		started:  time.Now(),
	}, nil
}

// Register mounts /api routes on api and /health on root.
func (s *Service) Register(_ context.Context, root gin.IRouter, api *gin.RouterGroup) {
	root.GET("/health", s.handleHealth)
	api.GET("/captures", s.handleCaptures)
	s.logger.InfoTag(logging.TagHTTP, "webapi routes registered")
}

// HealthReport is the /health payload.
type HealthReport struct {
	Status        string             `json:"status"`
	Version       string             `json:"version,omitempty"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	Goroutines    int                `json:"goroutines"`
	ProcessRSS    uint64             `json:"process_rss_bytes,omitempty"`
	HostMemUsed   float64            `json:"host_mem_used_percent,omitempty"`
	DroppedEvents int64              `json:"dropped_events"`
	CaptureLog    map[string]any     `json:"capture_log,omitempty"`
	Counters      map[string]float64 `json:"counters,omitempty"`
}

// handleHealth reports liveness and basic process statistics.
// @Summary Service health
// @Tags System
// @Produce json
// @Success 200 {object} httptransport.APIResponse{data=HealthReport}
// @Router /health [get]
func (s *Service) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()
	report := HealthReport{
		Status:        "ok",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		Counters:      observability.Counters(),
	}

	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if info, err := p.MemoryInfoWithContext(ctx); err == nil {
			report.ProcessRSS = info.RSS
		}
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		report.HostMemUsed = vm.UsedPercent
	}
	if s.dropped != nil {
		report.DroppedEvents = s.dropped()
	}
	if s.captures != nil {
		stats, err := s.captures.Stats(ctx)
		if err != nil {
			s.logger.WarnTag(logging.TagStore, "capture log stats: %v", err)
			report.Status = "degraded"
		} else {
			report.CaptureLog = stats
		}
	}

	httptransport.RespondSuccess(c, http.StatusOK, report, "")
}

// handleCaptures lists recent capture requests, newest first.
// @Summary Recent captures
// @Tags Screenshot
// @Produce json
// @Param limit query int false "Maximum entries (default 50)"
// @Security BearerAuth
// @Success 200 {object} httptransport.APIResponse{data=[]capturelog.Entry}
// @Failure 400 {object} httptransport.APIResponse
// @Failure 503 {object} httptransport.APIResponse
// @Router /api/captures [get]
func (s *Service) handleCaptures(c *gin.Context) {
	if s.captures == nil {
		httptransport.RespondError(c, http.StatusServiceUnavailable, "capture log disabled", nil)
		return
	}

	limit := defaultCaptureLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httptransport.RespondError(c, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = min(n, maxCaptureLimit)
	}

	entries, err := s.captures.Recent(c.Request.Context(), limit)
	if err != nil {
		s.logger.ErrorTag(logging.TagStore, "list captures: %v", err)
		httptransport.RespondError(c, http.StatusInternalServerError, httptransport.MsgInternalError, nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, entries, "")
}
