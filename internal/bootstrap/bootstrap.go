package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	_ "screamshot-server/docs"
	domainauth "screamshot-server/internal/domain/auth"
	"screamshot-server/internal/domain/capturelog"
	"screamshot-server/internal/domain/eventbus"
	"screamshot-server/internal/domain/image"
	domainscreenshot "screamshot-server/internal/domain/screenshot"
	"screamshot-server/internal/domain/screenshot/browser"
	platformconfig "screamshot-server/internal/platform/config"
	platformerrors "screamshot-server/internal/platform/errors"
	platformlogging "screamshot-server/internal/platform/logging"
	platformobservability "screamshot-server/internal/platform/observability"
	platformstorage "screamshot-server/internal/platform/storage"
	httptransport "screamshot-server/internal/transport/http"
	httpscreenshot "screamshot-server/internal/transport/http/screenshot"
	httpwebapi "screamshot-server/internal/transport/http/webapi"
	mcptransport "screamshot-server/internal/transport/mcp"
)

const (
	tagBoot         = platformlogging.TagBoot
	eventBusWorkers = 2
	shutdownGrace   = 15 * time.Second
)

// Options tune a bootstrap run.
type Options struct {
	ConfigPath string
	Version    string
	// Generator replaces the chromedp browser when set.
	Generator domainscreenshot.Generator
}

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	opts                  Options
	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	bus                   *eventbus.AsyncEventBus
	db                    *gorm.DB
	captures              capturelog.Store
	browser               *browser.Generator
	generator             domainscreenshot.Generator
	screenshots           *domainscreenshot.Service
	tokens                *domainauth.AuthToken
}

// Run starts the service and blocks until ctx is cancelled or a signal arrives.
func Run(ctx context.Context, opts Options) error {
	state := &appState{opts: opts}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		state.close()
		return err
	}
	defer state.close()

	logger := state.logger
	logBootstrapGraph(steps, logger)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)
	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	return waitForShutdown(signalCtx, cancel, logger, group)
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	logger.InfoTag(tagBoot, "init graph")
	for _, step := range steps {
		logger.InfoTag(tagBoot, "%s (%s)", step.Title, step.ID)
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph lists the init steps in execution order.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindPlatform,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Set up observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindPlatform,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "eventbus:start",
			Title:     "Start event bus",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindPlatform,
			Execute:   startEventBusStep,
		},
		{
			ID:        "capturelog:init-store",
			Title:     "Open capture log",
			DependsOn: []string{"eventbus:start"},
			Kind:      platformerrors.KindStorage,
			Execute:   initCaptureLogStep,
		},
		{
			ID:        "browser:init-generator",
			Title:     "Prepare screenshot generator",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindCapture,
			Execute:   initGeneratorStep,
		},
		{
			ID:        "screenshot:init-service",
			Title:     "Assemble screenshot service",
			DependsOn: []string{"browser:init-generator", "eventbus:start"},
			Kind:      platformerrors.KindDomain,
			Execute:   initScreenshotServiceStep,
		},
		{
			ID:        "auth:init-tokens",
			Title:     "Initialise API tokens",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindAuth,
			Execute:   initAuthStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().WithPath(state.opts.ConfigPath).Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	if state.configPath == "" {
		state.configPath = "defaults"
	}
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return err
	}
	state.logger = logger
	logger.InfoTag(tagBoot, "logging ready [%s] config=%s", state.config.Log.Level, state.configPath)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	cfg := platformobservability.Config{Enabled: state.config.Observability.Enabled}
	shutdown, err := platformobservability.Setup(ctx, cfg, state.logger.Slog())
	if err != nil {
		return err
	}
	state.observabilityShutdown = shutdown
	return nil
}

func startEventBusStep(_ context.Context, state *appState) error {
	bus := eventbus.NewAsyncEventBus(eventBusWorkers, state.logger)
	bus.Start()
	state.bus = bus
	return nil
}

func initCaptureLogStep(_ context.Context, state *appState) error {
	cfg := state.config.CaptureLog
	if !cfg.Enabled {
		state.logger.InfoTag(platformlogging.TagStore, "capture log disabled")
		return nil
	}

	var deps capturelog.Dependencies
	if cfg.Driver == capturelog.DriverSQLite {
		db, err := platformstorage.OpenSQLite(cfg.SQLite.DSN)
		if err != nil {
			return err
		}
		state.db = db
		deps.SQLiteDB = db
	}

	store, err := capturelog.New(capturelog.Config{
		Driver:     cfg.Driver,
		MaxEntries: cfg.MaxEntries,
		Redis: &capturelog.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		},
	}, deps)
	if err != nil {
		return err
	}
	state.captures = store

	if err := capturelog.NewRecorder(store, state.logger).Attach(state.bus); err != nil {
		return err
	}
	state.logger.InfoTag(platformlogging.TagStore, "capture log ready, driver=%s", cfg.Driver)
	return nil
}

func initGeneratorStep(_ context.Context, state *appState) error {
	if state.opts.Generator != nil {
		state.generator = state.opts.Generator
		return nil
	}
	state.browser = browser.New(BrowserConfig(state.config.Browser), state.logger)
	state.generator = state.browser
	return nil
}

// BrowserConfig maps the browser section of the config onto the chromedp generator.
func BrowserConfig(b platformconfig.BrowserConfig) browser.Config {
	return browser.Config{
		ExecPath:      b.ExecPath,
		RemoteURL:     b.RemoteURL,
		Headless:      b.Headless,
		NoSandbox:     b.NoSandbox,
		UserAgent:     b.UserAgent,
		Timeout:       b.Timeout,
		DefaultWidth:  b.DefaultWidth,
		DefaultHeight: b.DefaultHeight,
		MaxTabs:       b.MaxTabs,
	}
}

func initScreenshotServiceStep(_ context.Context, state *appState) error {
	pipeline := image.NewPipeline(image.Options{
		TempDir: state.config.Capture.TempDir,
		Limits:  image.Limits{MaxBytes: state.config.Capture.MaxImageBytes},
		Logger:  state.logger,
	})
	svc, err := domainscreenshot.NewService(domainscreenshot.ServiceOptions{
		Generator: state.generator,
		Encoder:   pipeline,
		Observer:  eventbus.NewCapturePublisher(state.bus),
		Logger:    state.logger,
	})
	if err != nil {
		return err
	}
	state.screenshots = svc
	return nil
}

func initAuthStep(_ context.Context, state *appState) error {
	auth := state.config.Server.Auth
	if !auth.Enabled {
		return nil
	}
	tokens, err := domainauth.NewAuthToken(auth.Secret, auth.Issuer)
	if err != nil {
		return err
	}
	state.tokens = tokens.WithTTL(auth.TTL)
	state.logger.InfoTag(platformlogging.TagAuth, "bearer token auth enabled for /api")
	return nil
}

// close releases everything the init steps acquired, in reverse order.
func (s *appState) close() {
	logger := s.logger
	if logger == nil {
		logger = platformlogging.Nop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			logger.WarnTag(platformlogging.TagBrowser, "browser did not close cleanly: %v", err)
		}
	}
	if s.bus != nil {
		s.bus.Stop()
	}
	if s.captures != nil {
		if err := s.captures.Close(ctx); err != nil {
			logger.WarnTag(platformlogging.TagStore, "capture log close: %v", err)
		}
	}
	if s.db != nil {
		if err := platformstorage.Close(s.db); err != nil {
			logger.WarnTag(platformlogging.TagStore, "database close: %v", err)
		}
	}
	if s.observabilityShutdown != nil {
		if err := s.observabilityShutdown(ctx); err != nil {
			logger.WarnTag(tagBoot, "observability shutdown: %v", err)
		}
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}

// buildHandler assembles the gin engine with every route group.
func buildHandler(ctx context.Context, state *appState) (http.Handler, *mcptransport.Server, error) {
	var authMiddleware gin.HandlerFunc
	if state.tokens != nil {
		authMiddleware = httptransport.AuthMiddleware(state.tokens, state.logger)
	}

	router, err := httptransport.Build(httptransport.Options{
		Config:         state.config,
		Logger:         state.logger,
		AuthMiddleware: authMiddleware,
	})
	if err != nil {
		return nil, nil, platformerrors.Wrap(platformerrors.KindTransport, "http:build-router", "failed to build router", err)
	}

	screenshotService, err := httpscreenshot.NewService(state.screenshots, state.logger, state.config.Capture.MaxBodyBytes)
	if err != nil {
		return nil, nil, platformerrors.Wrap(platformerrors.KindTransport, "http:screenshot-service", "failed to create screenshot handler", err)
	}
	screenshotService.Register(ctx, router.API)

	webapiService, err := httpwebapi.NewService(httpwebapi.Options{
		Captures: state.captures,
		Logger:   state.logger,
		Version:  state.opts.Version,
		Dropped:  state.bus.Dropped,
	})
	if err != nil {
		return nil, nil, platformerrors.Wrap(platformerrors.KindTransport, "http:webapi-service", "failed to create webapi service", err)
	}
	webapiService.Register(ctx, router.Engine, router.API)

	httptransport.RegisterDocs(router.Engine, state.logger)

	var mcpServer *mcptransport.Server
	if state.config.MCP.Enabled {
		mcpServer, err = mcptransport.New(mcptransport.Options{
			Name:     state.config.MCP.Name,
			Version:  state.opts.Version,
			BasePath: state.config.MCP.BasePath,
			Service:  state.screenshots,
			Logger:   state.logger,
		})
		if err != nil {
			return nil, nil, platformerrors.Wrap(platformerrors.KindTransport, "mcp:new-server", "failed to create mcp server", err)
		}
		mcpRoutes := router.Engine.Group(mcpServer.BasePath())
		if authMiddleware != nil {
			mcpRoutes.Use(authMiddleware)
		}
		mcpServer.Mount(mcpRoutes)
	}

	return router.Engine, mcpServer, nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	cfg := state.config
	logger := state.logger

	handler, mcpServer, err := buildHandler(groupCtx, state)
	if err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.IP, strconv.Itoa(cfg.Server.Port)),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	g.Go(func() error {
		logger.InfoTag(platformlogging.TagHTTP, "listening on http://%s", httpServer.Addr)
		logger.InfoTag(platformlogging.TagHTTP, "api docs at http://%s/docs", httpServer.Addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag(platformlogging.TagHTTP, "http server failed: %v", err)
			return err
		}
		return nil
	})

	// ListenAndServe returns as soon as Shutdown starts; the group only
	// finishes once in-flight handlers have drained.
	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if mcpServer != nil {
			if err := mcpServer.Shutdown(shutdownCtx); err != nil {
				logger.WarnTag(platformlogging.TagMCP, "mcp shutdown: %v", err)
			}
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.ErrorTag(platformlogging.TagHTTP, "http shutdown failed: %v", err)
			return err
		}
		logger.InfoTag(platformlogging.TagHTTP, "http server stopped")
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		// a server exited on its own, usually a bind failure
		cancel()
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindTransport, "bootstrap:serve", "server stopped", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.InfoTag(tagBoot, "shutting down: %v", context.Cause(ctx))
	cancel()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag(tagBoot, "error during shutdown: %v", err)
			return err
		}
		logger.InfoTag(tagBoot, "all services stopped")
	case <-time.After(shutdownGrace):
		logger.ErrorTag(tagBoot, "shutdown timed out")
		return errors.New("shutdown timed out")
	}
	return nil
}
