package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/clock-sync-engine/internal/adapter/fontsource"
	httpadapter "github.com/couchcryptid/clock-sync-engine/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/clock-sync-engine/internal/adapter/kafka"
	mqttadapter "github.com/couchcryptid/clock-sync-engine/internal/adapter/mqtt"
	redisadapter "github.com/couchcryptid/clock-sync-engine/internal/adapter/redis"
	"github.com/couchcryptid/clock-sync-engine/internal/adapter/settingsfile"
	"github.com/couchcryptid/clock-sync-engine/internal/config"
	"github.com/couchcryptid/clock-sync-engine/internal/engine"
	"github.com/couchcryptid/clock-sync-engine/internal/observability"
	"github.com/couchcryptid/clock-sync-engine/internal/pipeline"
)

func main() {
	// Local development reads overrides from .env; real environment wins.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("clock engine exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	var closers []namedCloser
	ready := readiness{}

	// Settings persistence: Redis when configured, else the local TOML file.
	var store engine.SettingsReader
	var fileStore *settingsfile.Store
	if cfg.SettingsFile != "" {
		fileStore = settingsfile.New(cfg.SettingsFile, logger)
	}
	switch {
	case cfg.RedisAddr != "":
		rs := redisadapter.NewStore(cfg)
		store = rs
		ready = append(ready, rs)
		closers = append(closers, namedCloser{"redis", rs.Close})
		logger.Info("settings stored in redis", "addr", cfg.RedisAddr, "key", cfg.RedisKey)
	case fileStore != nil:
		store = fileStore
		logger.Info("settings stored in file", "path", cfg.SettingsFile)
	default:
		logger.Info("settings persistence disabled")
	}

	fontClient, err := fontsource.NewClient(cfg.FontBaseURL, cfg.FontTimeout, logger, metrics)
	if err != nil {
		return err
	}
	fonts := fontsource.NewCachedLoader(fontClient, cfg.FontCacheSize, metrics)

	eng := engine.New(clock, store, fonts, logger, metrics, engine.Options{
		TickInterval:         cfg.TickInterval,
		MaxStep:              cfg.MaxOffsetStep,
		SkewToleranceMinutes: cfg.SkewToleranceMinutes,
		Location:             cfg.Location,
	})
	ready = append(ready, eng)

	// Outbound display sinks.
	var loaders []pipeline.BatchLoader
	var mqttClient *mqttadapter.Client
	if cfg.MQTTBroker != "" {
		mqttClient = mqttadapter.NewClient(cfg, logger, metrics)
		if err := mqttClient.Connect(ctx); err != nil {
			return fmt.Errorf("connect mqtt: %w", err)
		}
		if err := mqttClient.Subscribe(ctx, eng); err != nil {
			return fmt.Errorf("subscribe mqtt: %w", err)
		}
		loaders = append(loaders, mqttClient)
		closers = append(closers, namedCloser{"mqtt", mqttClient.Close})
	}

	var reader *kafkaadapter.Reader
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer := kafkaadapter.NewWriter(cfg, logger)
		loaders = append(loaders, writer)
		closers = append(closers, namedCloser{"kafka reader", reader.Close}, namedCloser{"kafka writer", writer.Close})
	}

	var wg sync.WaitGroup
	goRun := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				logger.Error(name+" error", "error", err)
			}
		}()
	}

	if len(loaders) > 0 {
		pub := pipeline.NewPublisher(clock, logger, metrics, cfg.BatchSize, cfg.BatchFlushInterval, loaders...)
		cancel := eng.SubscribeDisplay(pub.Enqueue)
		defer cancel()
		goRun("display publisher", pub.Run)
	}

	if err := eng.Init(ctx); err != nil {
		return fmt.Errorf("init clock engine: %w", err)
	}

	if reader != nil {
		p := pipeline.New(reader, eng, logger, metrics, cfg.BatchSize)
		ready = append(ready, p)
		goRun("pipeline", p.Run)
	}

	if fileStore != nil {
		goRun("settings watcher", func(ctx context.Context) error {
			// Edits to the backing file are not written back into it.
			fileIsStore := cfg.RedisAddr == ""
			return fileStore.Watch(ctx, func(ctx context.Context, raw map[string]any) {
				if fileIsStore {
					eng.ReloadSettings(raw)
					return
				}
				eng.HandleSettings(ctx, raw)
			})
		})
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, eng, ready, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	eng.Stop()
	wg.Wait()
	for _, c := range closers {
		if err := c.close(); err != nil {
			logger.Error(c.name+" close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

type namedCloser struct {
	name  string
	close func() error
}

// readiness is ready when every component is.
type readiness []sharedobs.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
