package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ezenity/ezenity-api/internal/config"
	"github.com/ezenity/ezenity-api/internal/health"
	"github.com/ezenity/ezenity-api/internal/observability"
)

// TokenSweeper removes refresh tokens past their retention window.
type TokenSweeper interface {
	PruneExpiredTokens(ctx context.Context) (int64, error)
}

// Drainer is anything holding in-flight background work at shutdown.
type Drainer interface {
	Wait(ctx context.Context) error
}

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	Sweeper       TokenSweeper
	Mail          Drainer
	Readiness     *health.Runner

	SweepInterval                time.Duration
	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime, sweeper TokenSweeper, mail Drainer, readiness *health.Runner) *App {
	return &App{
		Config:                       cfg,
		Logger:                       logger,
		Server:                       server,
		Observability:                runtime,
		Sweeper:                      sweeper,
		Mail:                         mail,
		Readiness:                    readiness,
		SweepInterval:                cfg.RefreshTokenSweep,
		ShutdownTimeout:              cfg.ShutdownTimeout,
		ShutdownHTTPDrainTimeout:     cfg.ShutdownHTTPDrainTimeout,
		ShutdownObservabilityTimeout: cfg.ShutdownObservabilityTimeout,
	}
}

// Run serves HTTP and sweeps tokens until ctx is cancelled, then shuts down
// in order: HTTP drain, pending mail, telemetry flush.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server starting", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.sweepLoop(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})
	return g.Wait()
}

func (a *App) sweepLoop(ctx context.Context) {
	if a.Sweeper == nil || a.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(a.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single prune pass and logs the outcome.
func (a *App) SweepOnce(ctx context.Context) {
	removed, err := a.Sweeper.PruneExpiredTokens(ctx)
	if err != nil {
		if ctx.Err() == nil {
			a.Logger.Error("refresh token sweep failed", "error", err)
		}
		return
	}
	if removed > 0 {
		a.Logger.Info("refresh token sweep", "removed", removed)
	}
}

func (a *App) shutdown() error {
	a.Logger.Info("shutting down")
	deadline, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout)
	defer cancel()

	var errs []error
	httpCtx, httpCancel := context.WithTimeout(deadline, a.ShutdownHTTPDrainTimeout)
	if err := a.Server.Shutdown(httpCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	httpCancel()

	if a.Mail != nil {
		if err := a.Mail.Wait(deadline); err != nil {
			errs = append(errs, fmt.Errorf("mail drain: %w", err))
		}
	}

	obsCtx, obsCancel := context.WithTimeout(deadline, a.ShutdownObservabilityTimeout)
	if err := a.Observability.Shutdown(obsCtx); err != nil {
		errs = append(errs, fmt.Errorf("observability shutdown: %w", err))
	}
	obsCancel()
	return errors.Join(errs...)
}
