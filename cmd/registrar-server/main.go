package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/BrandonDHaskell/Registrar/server/internal/config"
	"github.com/BrandonDHaskell/Registrar/server/internal/health"
	"github.com/BrandonDHaskell/Registrar/server/internal/httpapi"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/metrics"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/notify"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/service"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/validate"
)

func main() {
	logger := log.New(os.Stdout, "registrar-server ", log.LstdFlags|log.LUTC)

	cfg, err := config.Load(getenvDefault("REGISTRAR_CONFIG_DIR", "."))
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("backends: %v", err)
	}
	defer b.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Services
	svc := service.NewRecordService(service.Deps{
		Records:   b.records,
		Validator: validate.Default(),
		Queue:     b.queue,
		Trigger:   notify.AbsenceTrigger{},
		Logger:    logger,
		Metrics:   m,
		Options: service.Options{
			MaxAttempts:    cfg.MaxAttempts,
			AttemptTimeout: cfg.AttemptTimeout,
		},
	})

	dispatcher := notify.NewDispatcher(b.queue, b.notifier, notify.DispatcherConfig{
		IntervalSeconds: cfg.DispatchSeconds,
	}, logger, m)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	pruner := notify.NewPruner(b.queue, notify.PrunerConfig{
		RetentionDays: cfg.NotificationRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger, m)
	pruner.Start(ctx)
	defer pruner.Stop()

	// HTTP + gRPC health
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:     logger,
		Addr:       cfg.HTTPAddr,
		Records:    svc,
		Dispatcher: dispatcher,
		Queue:      b.queue,
		Gatherer:   reg,
	})
	hs := health.NewServer(cfg.GRPCAddr, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(hs.Start)
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hs.Shutdown(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Printf("server error: %v", err)
	}
	logger.Printf("stopped")
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
