// Package main is the entry point for the reliefmesh HTTP daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/reliefmesh/internal/config"
	"github.com/Faultbox/reliefmesh/internal/logger"
	"github.com/Faultbox/reliefmesh/internal/relief"
	"github.com/Faultbox/reliefmesh/internal/server"
	"github.com/Faultbox/reliefmesh/internal/store"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.InitWithOptions(logger.NewOptions(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.LogFile)); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== reliefmesh daemon ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("daemon error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("daemon stopped")
}

func run(cfg *config.Config) error {
	var (
		st  *store.Store
		rec relief.Recorder
	)
	if cfg.Store.Path != "" {
		var err error
		if st, err = store.Open(cfg.Store.Path); err != nil {
			return fmt.Errorf("opening records: %w", err)
		}
		defer st.Close()
		rec = st
		logger.Info("conversion records enabled", zap.String("path", cfg.Store.Path))
	}

	conv, err := relief.FromConfig(cfg, rec)
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		Mode:      cfg.Server.Mode,
		OutputDir: cfg.Output.Dir,
		UploadDir: cfg.Output.UploadDir,
		Defaults:  relief.RequestDefaults(cfg),
	}, conv, st)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx, cfg.Server.Addr)
}
