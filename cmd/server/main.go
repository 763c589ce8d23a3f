package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flagflow/ml-service/internal/analysis"
	"github.com/flagflow/ml-service/internal/api"
	"github.com/flagflow/ml-service/internal/config"
	"github.com/flagflow/ml-service/internal/domain"
	"github.com/flagflow/ml-service/internal/events"
	"github.com/flagflow/ml-service/internal/investigation"
	"github.com/flagflow/ml-service/internal/memory"
	"github.com/flagflow/ml-service/internal/pkg/logger"
	"github.com/flagflow/ml-service/internal/pkg/telemetry"
	"github.com/flagflow/ml-service/internal/repository"
	"github.com/flagflow/ml-service/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Telemetry.ServiceName, cfg.Telemetry.Environment, cfg.Telemetry.Environment != "production")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, &cfg.Telemetry, log)
	if err != nil {
		log.Fatal("failed to initialize tracing", logger.ErrorField(err))
	}
	defer shutdownTracing(context.Background())

	// Pattern memory (Redis). The engine degrades without it, but refusing to
	// start on a bad address surfaces misconfiguration early.
	redisClient := memory.NewClient(&cfg.Redis)
	store := memory.NewStore(redisClient, &cfg.Patterns, log)
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		log.Warn("pattern memory unreachable at startup, continuing degraded", logger.ErrorField(err))
	}

	// Optional assessment audit storage
	var repo domain.AssessmentRepository
	if cfg.Database.Enabled {
		pg, err := repository.NewPostgresRepository(ctx, &cfg.Database)
		if err != nil {
			log.Fatal("failed to connect to database", logger.ErrorField(err))
		}
		defer pg.Close()
		repo = pg
	}

	// Optional event publishing
	var publisher domain.EventPublisher
	if cfg.Kafka.Enabled {
		kp, err := events.NewKafkaPublisher(&cfg.Kafka)
		if err != nil {
			log.Fatal("failed to create kafka publisher", logger.ErrorField(err))
		}
		defer kp.Close()
		publisher = kp
	}

	trk := tracker.New(log)
	detector := analysis.NewDetector(analysis.DefaultRuleset())
	aggregator := analysis.NewAggregator(&cfg.Scoring)
	engine := investigation.NewEngine(detector, aggregator, store, repo, publisher, trk, &cfg.Scoring, &cfg.Patterns, log)

	// Reap tracking entries leaked by operations that never completed
	go func() {
		ticker := time.NewTicker(cfg.Tracker.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				trk.CleanupStaleOperations(cfg.Tracker.StaleTimeout)
			}
		}
	}()

	e := api.NewRouter(cfg, api.NewHandler(engine, store, trk, log))
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)

	go func() {
		if err := e.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("server stopped unexpectedly", logger.ErrorField(err))
		}
	}()
	log.Info("server started", logger.StringField("addr", serverAddr))

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", logger.ErrorField(err))
	}
	log.Info("server exited")
}
