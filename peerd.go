package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/peerd-dev/peerd/api"
	"github.com/peerd-dev/peerd/handles"
	"github.com/peerd-dev/peerd/journal"
	"github.com/peerd-dev/peerd/monitor"
	"github.com/peerd-dev/peerd/sysinfo"
)

var (
	version = "v0.0.0"
)

func main() {
	if err := run(); err != nil {
		if _, errErr := fmt.Fprintf(os.Stderr, "Error: %v\n", err); errErr != nil {
			return
		}
		os.Exit(1)
	}
	os.Exit(0)
}

func run() error {
	p, err := newParameters()
	if err != nil {
		return err
	}

	logger := setupLogger(p.logLevel)
	defer func() {
		_ = logger.Sync()
	}()

	ctx, done := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer done()

	zap.S().Infof("Peer Handle Daemon %s", version)
	p.log()

	registry := handles.NewRegistry(p.capacity)
	defer registry.Close()

	jrn, err := journal.NewJournal(p.dbPath)
	if err != nil {
		zap.S().Errorf("Failed to open samples journal: %v", err)
		return err
	}
	defer func(jrn *journal.Journal) {
		if clErr := jrn.Close(); clErr != nil {
			zap.S().Errorf("Failed to close samples journal: %v", clErr)
		}
	}(jrn)

	collector, err := sysinfo.NewCollector()
	if err != nil {
		zap.S().Errorf("Failed to create system info collector: %v", err)
		return err
	}

	mon := monitor.NewMonitor(collector, jrn, p.interval, p.retention)
	mon.Run(ctx)

	a, err := api.NewAPI(registry, jrn, p.apiBind)
	if err != nil {
		zap.S().Errorf("Failed to create API server: %v", err)
		return err
	}
	a.Run(ctx)

	<-ctx.Done()
	zap.S().Info("User termination in progress...")

	a.Shutdown()
	mon.Shutdown()

	zap.S().Info("Terminated")

	return nil
}

func setupLogger(level zapcore.Level) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logging subsystem: %v", err))
	}
	zap.ReplaceGlobals(logger)
	return logger
}
