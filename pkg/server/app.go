package server

import (
	"context"
	"fmt"

	"OTCFeed/internal/usecase"
	"OTCFeed/pkg/cache"
	pkgch "OTCFeed/pkg/clickhouse"
	"OTCFeed/pkg/config"
	xhttp "OTCFeed/pkg/http"
	pkgkafka "OTCFeed/pkg/kafka"
	applogger "OTCFeed/pkg/logger"
)

// Components are the parts the App drives. Collector, Consumer and
// ClickHouse are optional.
type Components struct {
	Bootstrap  *usecase.SymbolBootstrap
	Emitter    *usecase.TickEmitter
	Processor  *usecase.TickProcessor
	Collector  *usecase.ReferenceCollector
	Consumer   *pkgkafka.Consumer
	Handlers   []pkgkafka.MessageHandler
	HTTP       xhttp.Handler
	ClickHouse *pkgch.Client
	Cache      cache.Service
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	c          Components
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, c Components) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, l: l, c: c}
}

// Run starts every component and blocks until ctx is cancelled, then shuts down.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.c.Bootstrap.Run(runCtx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	go a.c.Processor.Run(runCtx)
	a.c.Emitter.Start(runCtx)

	if a.c.Collector != nil {
		if err := a.c.Collector.Start(runCtx); err != nil {
			// ticks keep flowing around the last reference
			a.l.Error("reference collector start failed", applogger.Error(err))
		} else {
			a.l.Info("reference collector started")
		}
	}

	if a.c.Consumer != nil && len(a.c.Handlers) > 0 {
		topics := make([]string, 0, len(a.c.Handlers))
		for _, h := range a.c.Handlers {
			a.c.Consumer.RegisterHandler(h)
			topics = append(topics, h.Topic())
		}
		if err := a.c.Consumer.Start(); err != nil {
			a.l.Error("kafka consumer error", applogger.Error(err))
		} else {
			a.l.Info("kafka consumer started", applogger.Strings("topics", topics))
		}
	}

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.c.HTTP,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithCORSOrigins(a.cfg.Server.CORSOrigins),
		xhttp.WithLogger(a.l),
	)
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	a.l.Info("otc feed running",
		applogger.String("backend", a.c.Processor.Backend()),
		applogger.Int("markets", len(a.cfg.Markets)),
	)
	<-ctx.Done()
	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown stops producers of work before the sinks they write to.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.c.Collector != nil {
		if err := a.c.Collector.Shutdown(ctx); err != nil {
			a.l.Warn("collector stop error", applogger.Error(err))
		}
	}

	a.c.Emitter.Wait()

	if a.c.Consumer != nil {
		if err := a.c.Consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// flushes the last batch, then closes publisher and storage
	if err := a.c.Processor.Close(ctx); err != nil {
		a.l.Warn("tick processor close error", applogger.Error(err))
	}

	if a.c.ClickHouse != nil {
		if err := a.c.ClickHouse.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.c.Cache != nil {
		if err := a.c.Cache.Close(); err != nil {
			a.l.Warn("cache close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
