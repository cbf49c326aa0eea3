package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/searchktools/mini-server/config"
	"github.com/searchktools/mini-server/core"
	"github.com/searchktools/mini-server/core/handler"
	"github.com/searchktools/mini-server/core/middleware"
	"github.com/searchktools/mini-server/core/storage"
)

// App wires configuration, storage and the engine together
type App struct {
	cfg    *config.Config
	log    zerolog.Logger
	store  *storage.Store
	engine *core.Engine
}

// New creates an application instance with every route registered
func New(cfg *config.Config) (*App, error) {
	log, err := NewLogger(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}
	return NewWithLogger(cfg, log)
}

// NewWithLogger is New with a caller supplied logger
func NewWithLogger(cfg *config.Config, log zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.New(cfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("open files directory: %w", err)
	}

	engine := core.NewEngine(
		core.WithLogger(log),
		core.WithReadTimeout(cfg.ReadTimeoutDuration()),
		core.WithWriteTimeout(cfg.WriteTimeoutDuration()),
		core.WithMaxConnections(cfg.MaxConnections),
		core.WithAcceptRate(cfg.AcceptRate),
		core.WithMaxHeaderBytes(cfg.MaxHeaderBytes),
		core.WithMaxBodyBytes(cfg.MaxBodyBytes),
		core.WithReusePort(cfg.ReusePort),
	)
	engine.Use(middleware.AccessLog(log), middleware.Recovery(log))
	handler.Register(engine, store, log)

	return &App{
		cfg:    cfg,
		log:    log,
		store:  store,
		engine: engine,
	}, nil
}

// Engine returns the underlying engine for route registration
func (a *App) Engine() *core.Engine {
	return a.engine
}

// Store returns the files store
func (a *App) Store() *storage.Store {
	return a.store
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then
// shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := a.engine.Listen(ctx, a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.Addr(), err)
	}

	a.log.Info().
		Str("addr", ln.Addr().String()).
		Str("directory", a.store.Base()).
		Int("routes", len(a.engine.Routes())).
		Msg("mini-server starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := a.engine.Serve(gctx, ln)
		if errors.Is(err, core.ErrServerClosed) || gctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info().Msg("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeoutDuration())
		defer cancel()
		if err := a.engine.Shutdown(sctx); err != nil {
			a.log.Warn().Err(err).Msg("connections closed before finishing")
		}
		return nil
	})

	err = g.Wait()
	a.engine.Monitor().LogSummary(a.log)
	a.log.Info().
		Uint64("requests", a.engine.Monitor().TotalRequests()).
		Uint64("connections", a.engine.GetPoolStats().TotalConnections).
		Msg("server stopped")
	return err
}
