package servercmd

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sajjad-MoBe/genv/internal/api"
	"github.com/sajjad-MoBe/genv/internal/config"
	"github.com/sajjad-MoBe/genv/internal/grpcPack"
	"github.com/sajjad-MoBe/genv/internal/storage"
)

const (
	serviceName     = "genv-server"
	shutdownTimeout = 10 * time.Second
)

// App is a fully wired server
type App struct {
	cfg    *config.Config
	logger logrus.FieldLogger

	table    *storage.Table
	registry *prometheus.Registry
	tracer   *api.Tracer

	apiServer  *api.Server
	opsServer  *api.Server
	grpcServer *grpcPack.Server

	apiListener  net.Listener
	opsListener  net.Listener
	grpcListener net.Listener
}

// NewApp loads the table and builds every server cfg enables
func NewApp(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*App, error) {
	snapshotter, err := cfg.Snapshotter()
	if err != nil {
		return nil, fmt.Errorf("snapshot backend: %w", err)
	}

	tracer, err := api.NewTracer(serviceName, cfg.JaegerEndpoint)
	if err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := api.NewMetrics(registry)

	table := storage.Open(ctx, snapshotter, logger.WithField("component", "storage"))
	metrics.UpdateStorageMetrics(table.Len())
	table.OnPersist(metrics.ObservePersist)

	handler := api.NewHandler(table, logger.WithField("component", "api"))
	router := api.Router(handler, api.RouterConfig{
		Auth:    api.NewAuthorizer(cfg.Secret, metrics),
		Metrics: metrics,
		Tracer:  tracer,
		Logger:  logger.WithField("component", "http"),
	})

	a := &App{
		cfg:       cfg,
		logger:    logger,
		table:     table,
		registry:  registry,
		tracer:    tracer,
		apiServer: api.NewServer("api", router, logger),
	}

	if cfg.OpsListen != "" {
		health := api.NewHealthManager()
		health.RegisterChecker("storage", api.NewStorageHealthChecker(table))
		health.RegisterChecker("api", api.NewLifecycleHealthChecker(a.apiServer))
		a.opsServer = api.NewServer("ops", api.OpsRouter(registry, health), logger)
	}

	if cfg.GRPCListen != "" {
		a.grpcServer = grpcPack.NewServer(logger)
		table.OnPersist(a.grpcServer.ObservePersist)
	}

	return a, nil
}

// Listen binds every enabled listener so address errors surface before
// anything is served
func (a *App) Listen() error {
	var err error
	if a.apiListener, err = net.Listen("tcp", a.cfg.Listen); err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.Listen, err)
	}
	if a.opsServer != nil {
		if a.opsListener, err = net.Listen("tcp", a.cfg.OpsListen); err != nil {
			a.closeListeners()
			return fmt.Errorf("listen on %s: %w", a.cfg.OpsListen, err)
		}
	}
	if a.grpcServer != nil {
		if a.grpcListener, err = net.Listen("tcp", a.cfg.GRPCListen); err != nil {
			a.closeListeners()
			return fmt.Errorf("listen on %s: %w", a.cfg.GRPCListen, err)
		}
	}
	return nil
}

// Addr returns the bound API address, nil before Listen
func (a *App) Addr() net.Addr {
	if a.apiListener == nil {
		return nil
	}
	return a.apiListener.Addr()
}

// OpsAddr returns the bound ops address, nil when disabled
func (a *App) OpsAddr() net.Addr {
	if a.opsListener == nil {
		return nil
	}
	return a.opsListener.Addr()
}

// GRPCAddr returns the bound gRPC address, nil when disabled
func (a *App) GRPCAddr() net.Addr {
	if a.grpcListener == nil {
		return nil
	}
	return a.grpcListener.Addr()
}

// Serve runs every server until ctx is done or one of them fails, then
// shuts all of them down
func (a *App) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.apiServer.Serve(a.apiListener) })
	if a.opsServer != nil {
		g.Go(func() error { return a.opsServer.Serve(a.opsListener) })
	}
	if a.grpcServer != nil {
		g.Go(func() error { return a.grpcServer.Serve(a.grpcListener) })
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		return a.shutdown()
	})

	return g.Wait()
}

// Run listens and serves until ctx is done
func (a *App) Run(ctx context.Context) error {
	if err := a.Listen(); err != nil {
		return err
	}
	return a.Serve(ctx)
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := a.apiServer.Shutdown(ctx)
	if a.opsServer != nil {
		if opsErr := a.opsServer.Shutdown(ctx); err == nil {
			err = opsErr
		}
	}
	if a.grpcServer != nil {
		a.grpcServer.Stop(ctx)
	}
	if tracerErr := a.tracer.Shutdown(ctx); err == nil {
		err = tracerErr
	}
	return err
}

func (a *App) closeListeners() {
	for _, lis := range []net.Listener{a.apiListener, a.opsListener, a.grpcListener} {
		if lis != nil {
			lis.Close()
		}
	}
}
