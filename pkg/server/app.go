package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "SignalBridge/internal/domain/repository"
	"SignalBridge/internal/usecase"
	pkgch "SignalBridge/pkg/clickhouse"
	"SignalBridge/pkg/config"
	xhttp "SignalBridge/pkg/http"
	pkgkafka "SignalBridge/pkg/kafka"
	applogger "SignalBridge/pkg/logger"
	"SignalBridge/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	store      drepo.Store
	leaseQueue *usecase.LeaseQueue
	relay      drepo.SignalSource
	jobs       *queue.RedisQueue
	producer   *pkgkafka.Producer
	chClient   *pkgch.Client
	httpServer *xhttp.Server
	handler    xhttp.Handler
}

// New creates a new App instance with all dependencies. The relay,
// jobs, producer, and chClient arguments may be nil when the matching
// subsystem is disabled in configuration.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	store drepo.Store,
	handler xhttp.Handler,
	leaseQueue *usecase.LeaseQueue,
	relay drepo.SignalSource,
	jobs *queue.RedisQueue,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:        cfg,
		l:          l,
		store:      store,
		handler:    handler,
		leaseQueue: leaseQueue,
		relay:      relay,
		jobs:       jobs,
		producer:   producer,
		chClient:   chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestMetrics(a.l, 0),
	)

	// Background reaper returns stale leases to the queue even when
	// the owning connection never polls again.
	go a.leaseQueue.RunReaper(ctx, a.cfg.Bridge.ReapInterval)
	a.l.Info("reaper started",
		applogger.Duration("interval", a.cfg.Bridge.ReapInterval),
		applogger.Duration("lease_timeout", a.cfg.Bridge.LeaseTimeout))

	// Relay ingestion source
	if a.relay != nil {
		go func() {
			if err := a.relay.Run(ctx); err != nil && ctx.Err() == nil {
				a.l.Error("relay stopped", applogger.Error(err))
			}
		}()
		a.l.Info("relay started", applogger.String("url", a.cfg.Relay.URL))
	}

	// Async job workers (delivery log mirroring)
	if a.jobs != nil {
		if err := a.jobs.Start(); err != nil {
			a.l.Error("queue start error", applogger.Error(err))
			return err
		}
		a.l.Info("queue workers started", applogger.Int("workers", a.cfg.Redis.Workers))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.relay != nil {
		if err := a.relay.Close(); err != nil {
			a.l.Warn("relay close error", applogger.Error(err))
		}
	}

	if a.jobs != nil {
		if err := a.jobs.Stop(shutdownCtx); err != nil {
			a.l.Warn("queue stop error", applogger.Error(err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if err := a.store.Close(); err != nil {
		a.l.Warn("store close error", applogger.Error(err))
	}

	a.l.Info("shutdown complete")
	return nil
}
