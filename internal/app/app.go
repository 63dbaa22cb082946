package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirechat-poll/internal/chatsync"
	"github.com/vovakirdan/wirechat-poll/internal/config"
	"github.com/vovakirdan/wirechat-poll/internal/log"
	"github.com/vovakirdan/wirechat-poll/internal/messages"
	"github.com/vovakirdan/wirechat-poll/internal/poller"
	"github.com/vovakirdan/wirechat-poll/internal/scroll"
	"github.com/vovakirdan/wirechat-poll/internal/session"
	"github.com/vovakirdan/wirechat-poll/internal/store"
	"github.com/vovakirdan/wirechat-poll/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirechat-poll/internal/transport/http"
)

// UI is a front end driving the sync loop. It returns when the user is done.
type UI func(ctx context.Context, a *App) error

// App wires together storage, transport and the sync loop.
type App struct {
	cfg             config.Config
	prefs           store.Prefs
	sync            *chatsync.Orchestrator
	metrics         *chatsync.Metrics
	metricsServer   *stdhttp.Server
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application. confirm answers deletion prompts; nil
// refuses them.
func New(cfg config.Config, logger *zerolog.Logger, confirm chatsync.Confirmer) (*App, error) {
	if logger == nil {
		logger = log.Nop()
	}
	prefs, err := openPrefs(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("init prefs: %w", err)
	}
	logger.Info().Str("data_path", cfg.DataPath).Msg("preferences opened")

	client, err := transporthttp.NewClient(cfg.BaseURL, transporthttp.Options{
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Logger:    logger,
	})
	if err != nil {
		_ = prefs.Close()
		return nil, fmt.Errorf("init client: %w", err)
	}

	metrics := chatsync.NewMetrics()
	orch, err := chatsync.New(chatsync.Options{
		Backend:      client,
		Sessions:     session.NewService(client, prefs, nil, logger),
		Store:        messages.New(cfg.ReconcileWindow),
		Subscription: poller.New(cfg.PollInterval, logger),
		Confirmer:    confirm,
		Metrics:      metrics,
		Denylist:     cfg.Denylist,
		Logger:       logger,
	})
	if err != nil {
		_ = prefs.Close()
		return nil, fmt.Errorf("init sync: %w", err)
	}

	a := &App{
		cfg:             cfg,
		prefs:           prefs,
		sync:            orch,
		metrics:         metrics,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}
	if cfg.MetricsAddr != "" {
		a.metricsServer = transporthttp.NewMetricsServer(cfg.MetricsAddr, metrics.Reg)
	}
	return a, nil
}

func openPrefs(path string) (store.Prefs, error) {
	if path == "" {
		return store.NewMemory(), nil
	}
	st, err := sqlite.New(path)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Sync returns the orchestrator front ends dispatch to.
func (a *App) Sync() *chatsync.Orchestrator {
	return a.sync
}

// Prefs returns the persisted preferences.
func (a *App) Prefs() store.Prefs {
	return a.prefs
}

// Scroll returns the scroll tracker configured for the message list.
func (a *App) Scroll() scroll.Tracker {
	return scroll.Tracker{Buffer: a.cfg.ScrollBuffer}
}

// Metrics returns the sync counters.
func (a *App) Metrics() *chatsync.Metrics {
	return a.metrics
}

// Run starts the sync loop, the optional metrics server and ui, and blocks
// until ui returns or ctx is cancelled.
func (a *App) Run(ctx context.Context, ui UI) error {
	defer a.cleanup()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.sync.Run(gctx)
	})

	if a.metricsServer != nil {
		g.Go(func() error {
			a.log.Info().Str("addr", a.metricsServer.Addr).Msg("metrics server listening")
			if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
			defer cancel()

			a.log.Info().Msg("shutting down metrics server")
			return a.metricsServer.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer cancel()
		return ui(gctx, a)
	})

	return g.Wait()
}

// cleanup closes the preference store.
func (a *App) cleanup() {
	if a.prefs == nil {
		return
	}
	if err := a.prefs.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close prefs")
	} else {
		a.log.Info().Msg("prefs closed")
	}
}
