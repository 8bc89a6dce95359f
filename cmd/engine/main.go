// Command engine runs the hazard alert engine: scheduled collection across
// the seismic, weather, and hydrological sources, threshold classification,
// deduplication, persistence, and live fan-out.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/hazardwatch/alert-engine/internal/adapter/http"
	kafkaadapter "github.com/hazardwatch/alert-engine/internal/adapter/kafka"
	"github.com/hazardwatch/alert-engine/internal/adapter/sqlite"
	"github.com/hazardwatch/alert-engine/internal/adapter/ws"
	"github.com/hazardwatch/alert-engine/internal/broker"
	"github.com/hazardwatch/alert-engine/internal/classify"
	"github.com/hazardwatch/alert-engine/internal/config"
	"github.com/hazardwatch/alert-engine/internal/dedup"
	"github.com/hazardwatch/alert-engine/internal/domain"
	"github.com/hazardwatch/alert-engine/internal/observability"
	"github.com/hazardwatch/alert-engine/internal/oracle"
	"github.com/hazardwatch/alert-engine/internal/scheduler"
	"github.com/hazardwatch/alert-engine/internal/source"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
)

func main() {
	// .env is a local-dev convenience; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	tables, err := classify.LoadTables(cfg.ThresholdsPath)
	if err != nil {
		logger.Error("failed to load threshold tables", "error", err)
		os.Exit(1)
	}
	classifier, err := classify.New(tables, logger)
	if err != nil {
		logger.Error("failed to build classifier", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.Open(cfg.StorePath, logger)
	if err != nil {
		logger.Error("failed to open alert store", "path", cfg.StorePath, "error", err)
		os.Exit(1)
	}

	// Enrichment always runs: the rule scorer answers locally when no
	// prediction service is configured.
	var scorer domain.Scorer = oracle.NewRuleScorer(tables)
	if cfg.OracleEnabled {
		scorer = oracle.NewClient(cfg.OracleURL, cfg.OracleTimeout, scorer, logger)
		logger.Info("prediction oracle enabled", "url", cfg.OracleURL, "timeout", cfg.OracleTimeout)
	} else {
		logger.Info("prediction oracle disabled, using rule-based estimates")
	}

	gate := dedup.New(store, scorer, dedup.DefaultConfig(), clock, logger)

	hub := broker.New(logger, broker.WithSubscriptionGauge(func(n int) {
		metrics.Subscriptions.Set(float64(n))
	}))

	publishers := scheduler.Publishers{hub}
	var mirror *kafkaadapter.Mirror
	if cfg.KafkaEnabled {
		mirror = kafkaadapter.NewMirror(cfg.KafkaBrokers, cfg.KafkaAlertsTopic, logger)
		publishers = append(publishers, mirror)
		logger.Info("kafka alert mirror enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAlertsTopic)
	}

	adapters := []source.Adapter{
		source.NewSeismic(cfg.CollectTimeout, clock, logger),
		source.NewWeather(cfg.CollectTimeout, clock, logger),
		source.NewHydro(cfg.CollectTimeout, clock, logger),
	}

	schedCfg := scheduler.DefaultConfig()
	schedCfg.Intervals[domain.CategorySeismic] = cfg.SeismicInterval
	schedCfg.Intervals[domain.CategoryWeather] = cfg.WeatherInterval
	schedCfg.Intervals[domain.CategoryHydrological] = cfg.HydroInterval
	schedCfg.CollectTimeout = cfg.CollectTimeout

	sched := scheduler.New(adapters, classifier, gate, publishers, store, schedCfg, clock, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Ready:   sched,
		Trigger: sched,
		Alerts:  store,
		Updates: hub,
		WS:      ws.NewHandler(hub, logger),
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := sched.Run(ctx); err != nil {
			logger.Error("scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if mirror != nil {
		if err := mirror.Close(); err != nil {
			logger.Error("kafka mirror close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("alert store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
