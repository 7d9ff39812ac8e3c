package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"storenet/internal/config"
	"storenet/internal/engine"
	"storenet/internal/handler"
	"storenet/internal/hub"
	"storenet/internal/repository/sqlite"
	"storenet/internal/service"
	"storenet/internal/sink"
	"storenet/internal/watcher"
)

func main() {
	// Command line flags override the config file
	configPath := flag.String("config", "", "config file path (default: search standard locations)")
	addr := flag.String("addr", "", "HTTP listen address")
	dbPath := flag.String("db", "", "SQLite database path")
	writeConfig := flag.Bool("write-config", false, "write the effective config to -config (or the default location) and exit")
	flag.Parse()

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storenet: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	if *writeConfig {
		target := *configPath
		if target == "" {
			target = config.DefaultConfigPath()
		}
		if err := cfg.Save(target); err != nil {
			fmt.Fprintf(os.Stderr, "storenet: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config written to %s\n", target)
		return
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "storenet: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, path, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func run(cfg *config.Config, configPath string, logger *zap.Logger) error {
	source := configPath
	if source == "" {
		source = "defaults"
	}
	logger.Info("starting storenet", zap.String("config", source))
	logger.Debug(cfg.Summary())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize SQLite repository
	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()
	logger.Info("database opened", zap.String("path", cfg.Database.Path))

	eventBus := service.NewEventBus()

	opts := service.Options{
		MaxPowerPasses: cfg.Simulation.MaxPowerPasses,
		Boot: engine.BootConfig{
			Delay:  cfg.Simulation.BootDelay.Duration(),
			Jitter: cfg.Simulation.BootJitter.Duration(),
			Seed:   cfg.Simulation.Seed,
		},
		Logger: logger,
	}

	// Optional sinks
	if cfg.Metrics.Enabled() {
		recorder, err := sink.NewInfluxRecorder(cfg.Metrics.InfluxURL, cfg.Metrics.Database, cfg.Metrics.Measurement, logger)
		if err != nil {
			return fmt.Errorf("metrics sink: %w", err)
		}
		go recorder.Run(ctx)
		opts.Metrics = recorder
		logger.Info("metrics enabled", zap.String("database", cfg.Metrics.Database))
	}
	if cfg.Events.Enabled() {
		publisher, err := sink.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Queue, logger)
		if err != nil {
			// The planner works without the broker
			logger.Warn("event sink unavailable", zap.Error(err))
		} else {
			defer publisher.Close()
			go service.Forward(ctx, eventBus, publisher, logger)
			logger.Info("event sink enabled", zap.String("queue", cfg.Events.Queue))
		}
	}

	svc := service.NewTopologyService(repo, eventBus, opts)

	// SSE hub fed from the event bus
	sseHub := hub.New(logger)
	go sseHub.Run(ctx)
	go sseHub.Relay(ctx, eventBus)

	if cfg.Server.Topology != "" {
		if _, err := svc.Load(ctx, cfg.Server.Topology); err != nil {
			logger.Warn("saved topology not loaded", zap.String("name", cfg.Server.Topology), zap.Error(err))
		}
	}

	if cfg.Watch.File != "" {
		if _, err := svc.LoadFile(cfg.Watch.File); err != nil {
			logger.Warn("initial topology file load failed", zap.String("path", cfg.Watch.File), zap.Error(err))
		}
		w := watcher.New(cfg.Watch.File, func(p string) error {
			_, err := svc.LoadFile(p)
			return err
		}, logger).WithDebounce(cfg.Watch.Debounce.Duration())
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watcher stopped", zap.Error(err))
			}
		}()
	}

	go tick(ctx, svc, cfg.Simulation.ClockTick.Duration(), logger)

	// Setup routes
	mux := http.NewServeMux()
	handler.NewTopologyHandler(svc, logger).Register(mux)
	mux.Handle("GET /events", sseHub)

	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: handler.Chain(mux,
			handler.Recover(logger),
			handler.CORS,
			handler.Logger(logger),
		),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  cfg.Server.IdleTimeout.Duration(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
	return nil
}

// tick advances the simulation clock in step with wall time
func tick(ctx context.Context, svc *service.TopologyService, every time.Duration, logger *zap.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res := svc.Advance(every)
			if len(res.Booted) > 0 {
				logger.Debug("boots completed", zap.Strings("devices", res.Booted), zap.Float64("clock", res.Clock))
			}
		case <-ctx.Done():
			return
		}
	}
}
