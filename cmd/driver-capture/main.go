// Package main is the entry point for the driver-capture device daemon.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oscarchatwin1/microsearch-driver-capture/internal/config"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/connectivity"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/lookup"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/remote"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/server"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/store"
	syncer "github.com/oscarchatwin1/microsearch-driver-capture/internal/sync"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	configPath := os.Getenv("CAPTURE_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.DevMode {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "driver-capture").Str("version", version).Logger()
	}

	logger := log.With().Str("component", "main").Logger()
	logger.Info().Str("version", version).Str("commit", commit).Str("build_date", buildDate).Msg("starting driver-capture")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg.DBPath, store.Defaults{
		Supplier: cfg.Defaults.Supplier,
		Code:     cfg.Defaults.Code,
		DeviceID: cfg.DeviceID,
		DriverID: cfg.DriverID,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open local sample store")
	}
	defer st.Close()
	logger.Info().Str("path", cfg.DBPath).Msg("local sample store ready")

	remoteDB, err := remote.Connect(cfg.Remote)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare remote store handle")
	}
	defer remoteDB.Close()

	upserter := remote.NewPostgresUpserter(remoteDB, cfg.Sync.RemoteTimeout)
	if cfg.Remote.EnsureSchema {
		// Best effort: the device usually starts disconnected and the schema
		// is checked again on the first reachable sync.
		schemaCtx, schemaCancel := context.WithTimeout(ctx, 10*time.Second)
		if schemaErr := upserter.EnsureSchema(schemaCtx); schemaErr != nil {
			logger.Warn().Err(schemaErr).Msg("remote schema check skipped, remote unreachable")
		}
		schemaCancel()
	}

	gate := connectivity.NewGate(cfg.AllowedSSIDs, cfg.AllowEthernet)
	provider := connectivity.NewLinuxProvider()

	sy := syncer.New(st, upserter, gate, provider, syncer.Config{
		BatchLimit: cfg.Sync.BatchLimit,
		Interval:   cfg.Sync.Interval,
	}, log.With().Str("component", "syncer").Logger())
	if cfg.Sync.Interval > 0 {
		go sy.Run(ctx)
		logger.Info().Dur("interval", cfg.Sync.Interval).Msg("periodic sync enabled")
	}

	lk := lookup.NewProvider(cfg.Lookup, remoteDB, log.With().Str("component", "lookup").Logger())

	srv := server.New(st, sy, gate, provider, lk, cfg, log.With().Str("component", "http").Logger(), version)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			errCh <- serveErr
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case serveErr := <-errCh:
		logger.Error().Err(serveErr).Msg("HTTP server error")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error().Err(shutdownErr).Msg("HTTP server shutdown error")
	}
	logger.Info().Msg("server stopped gracefully")
}
