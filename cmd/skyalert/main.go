package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/py-sit/skyalert/internal/alert"
	"github.com/py-sit/skyalert/internal/api"
	"github.com/py-sit/skyalert/internal/config"
	"github.com/py-sit/skyalert/internal/db"
	"github.com/py-sit/skyalert/internal/kafka"
	"github.com/py-sit/skyalert/internal/logging"
	"github.com/py-sit/skyalert/internal/observability"
	"github.com/py-sit/skyalert/internal/store"
	"github.com/py-sit/skyalert/internal/weather"
	"github.com/py-sit/skyalert/pkg/email"
	"github.com/py-sit/skyalert/pkg/telegram"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Connect to database
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := dbConn.InitSchema(ctx); err != nil {
		logger.Errorf("Schema init failed: %v", err)
		log.Fatalf("Schema init failed: %v", err)
	}

	clock := clockwork.NewRealClock()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.New(registry)

	// Build the alert pipeline
	cache := weather.NewCache(cfg.Weather.CacheTTL, clock)
	forecaster := weather.NewClient(cfg, cache, logger)
	pending := store.NewPendingFile(cfg.DataDir)
	sender := email.New(cfg, logger)
	notifier := telegram.New(cfg, logger)
	hub := api.NewHub(logger)

	evaluator := alert.NewEvaluator(clock, logger)
	gate := alert.NewGate(dbConn, pending, sender, hub, notifier, clock, logger)
	dispatcher := alert.NewDispatcher(dbConn, pending, sender, metrics, clock, logger)
	service := alert.NewService(dbConn, forecaster, evaluator, gate, dispatcher, pending, cfg.Dispatch.BatchSize, clock, metrics, logger)
	scheduler := alert.NewScheduler(service, clock, metrics, logger)

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Scheduler start failed: %v", err)
	}

	handler := api.NewHandler(service, scheduler, hub, logger)

	// Kafka trigger consumer, only when a broker is configured
	if cfg.Kafka.Broker != "" {
		consumer := kafka.NewConsumer(cfg, handler, logger)
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Errorf("Kafka consumer stopped: %v", err)
			}
		}()
		logger.Infof("Kafka consumer initialized with topic: %s", cfg.Kafka.Topic)
	}

	router := api.NewRouter(handler, registry, logger, cfg)
	server := &http.Server{Addr: cfg.API.Port, Handler: router}

	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("API server failed: %v", err)
			cancel()
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Infof("Received signal %v, shutting down", s)
	case <-ctx.Done():
	}

	if scheduler.IsRunning() {
		if err := scheduler.Stop(); err != nil {
			logger.Errorf("Scheduler stop failed: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API server shutdown failed: %v", err)
	}
}
