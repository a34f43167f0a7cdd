// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/digestd/lib/config"
	"github.com/bureau-foundation/digestd/lib/digest"
	"github.com/bureau-foundation/digestd/lib/engine"
	"github.com/bureau-foundation/digestd/lib/process"
	"github.com/bureau-foundation/digestd/lib/service"
	"github.com/bureau-foundation/digestd/lib/staging"
	"github.com/bureau-foundation/digestd/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("digestd", pflag.ContinueOnError)
	var (
		configPath  string
		policy      string
		workers     int
		showVersion bool
	)
	flags.StringVar(&configPath, "config", "", "path to the digestd config file (default: $"+config.EnvironmentVariable+")")
	flags.StringVar(&policy, "policy", "", "scheduling policy, fcfs or sjf (overrides scheduler.policy)")
	flags.IntVar(&workers, "workers", 0, "initial worker pool size (overrides scheduler.workers)")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		version.Print("digestd")
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if flags.Changed("policy") {
		cfg.Scheduler.Policy = policy
	}
	if flags.Changed("workers") {
		cfg.Scheduler.Workers = workers
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	logger, err := service.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

// loadConfig reads the file named by --config, then DIGESTD_CONFIG,
// and falls back to the defaults when neither is set.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv(config.EnvironmentVariable) != "" {
		return config.Load()
	}
	cfg := config.Default()
	cfg.ExpandDefaults()
	return cfg, nil
}

// serve runs the engine, the socket server and the optional metrics
// endpoint until ctx ends, then tears them down in order.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}
	slotSize, err := cfg.SlotBytes()
	if err != nil {
		return err
	}
	algorithm, err := digest.ParseAlgorithm(cfg.Digest.Algorithm)
	if err != nil {
		return err
	}
	executor, err := digest.NewExecutor(algorithm)
	if err != nil {
		return err
	}

	area, err := staging.OpenMapped(cfg.Staging.Path, cfg.StagingSlots(), slotSize)
	if err != nil {
		return err
	}
	defer func() {
		if err := area.Close(); err != nil {
			logger.Error("closing staging area", "error", err)
		}
		if err := area.RemoveFiles(); err != nil {
			logger.Error("removing staging files", "error", err)
		}
	}()

	eng, err := engine.New(engine.Config{
		Policy:       policy,
		Workers:      cfg.Scheduler.Workers,
		Area:         area,
		StagingPath:  area.Path(),
		Mode:         engine.Mode(cfg.Staging.Mode),
		LeaseTTL:     cfg.Staging.LeaseTTL,
		Executor:     executor,
		DrainTimeout: cfg.Shutdown.DrainTimeout,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	engineDone := make(chan error, 1)
	go func() {
		engineDone <- eng.Run(ctx)
	}()
	select {
	case <-eng.Ready():
	case err := <-engineDone:
		return fmt.Errorf("starting engine: %w", err)
	}

	server := service.NewSocketServer(cfg.SocketPath, logger)
	newHandlers(eng, logger).register(server)
	socketDone := make(chan error, 1)
	go func() {
		socketDone <- server.Serve(ctx)
	}()

	metricsDone := make(chan error, 1)
	if cfg.Metrics.Address != "" {
		httpServer := service.NewHTTPServer(service.HTTPServerConfig{
			Address: cfg.Metrics.Address,
			Handler: service.MetricsMux(eng.Metrics().Handler()),
			Logger:  logger,
		})
		go func() {
			metricsDone <- httpServer.Serve(ctx)
		}()
	} else {
		metricsDone <- nil
	}

	logger.Info("digestd running",
		"version", version.Info(),
		"socket", cfg.SocketPath,
		"staging", area.Path(),
		"staging_mode", cfg.Staging.Mode,
		"metrics", cfg.Metrics.Address,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	var errs []error
	if err := <-engineDone; err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	if err := <-socketDone; err != nil {
		errs = append(errs, fmt.Errorf("socket server: %w", err))
	}
	if err := <-metricsDone; err != nil {
		errs = append(errs, fmt.Errorf("metrics server: %w", err))
	}
	return errors.Join(errs...)
}
