// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/wolftrace/wolftrace/cmd/wolftrace/config"
	"github.com/wolftrace/wolftrace/pkg/logging"
	"github.com/wolftrace/wolftrace/services/wolftrace"
	"github.com/wolftrace/wolftrace/services/wolftrace/collector"
	"github.com/wolftrace/wolftrace/services/wolftrace/storage/badger"
	"github.com/wolftrace/wolftrace/services/wolftrace/templates"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		port      int
		debug     bool
		inMemory  bool
		rateLimit float64
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Server.Port = port
			}
			if flags.Changed("debug") {
				cfg.Server.Debug = debug
			}
			if flags.Changed("in-memory") {
				cfg.Sessions.InMemory = inMemory
			}
			if flags.Changed("rate-limit") {
				cfg.Server.RateLimit = rateLimit
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 5000, "port to listen on")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging and gin debug mode")
	cmd.Flags().BoolVar(&inMemory, "in-memory", false, "keep sessions in memory only")
	cmd.Flags().Float64Var(&rateLimit, "rate-limit", 0, "mutating requests per second (0 disables)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	if cfg.Server.Debug {
		level = logging.LevelDebug
	}
	format := logging.FormatAuto
	if cfg.Logging.JSON {
		format = logging.FormatJSON
	}
	logs := logging.New(logging.Config{
		Level:   level,
		Format:  format,
		LogDir:  cfg.Logging.Dir,
		Service: "wolftrace",
	})
	defer logs.Close()
	logger := logs.Slog()
	slog.SetDefault(logger)

	var traceOut io.Writer
	if cfg.Telemetry.TraceStdout {
		traceOut = os.Stdout
	}
	telemetryShutdown, err := initTelemetry(telemetryConfig{TraceWriter: traceOut})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := telemetryShutdown(sctx); err != nil {
			logger.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	// Sessions
	dbCfg := badger.DefaultConfig(cfg.Sessions.Path)
	dbCfg.InMemory = cfg.Sessions.InMemory
	dbCfg.Logger = logger
	db, err := badger.Open(dbCfg)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer db.Close()
	sessions, err := badger.NewSessionStore(db)
	if err != nil {
		return err
	}
	defer sessions.Close()

	// Templates
	registry, err := templates.NewRegistry(cfg.Templates.Dir, logger)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	if cfg.Templates.Watch && cfg.Templates.Dir != "" {
		if err := registry.Watch(ctx); err != nil {
			logger.Warn("Template watch disabled", "dir", cfg.Templates.Dir, "error", err)
		}
	}

	events := wolftrace.NewEventHub(logger).AllowOrigins(cfg.Server.AllowedOrigins...)
	defer events.Close()

	svc := wolftrace.NewService(wolftrace.ServiceConfig{HistoryDepth: cfg.History.MaxDepth}, wolftrace.Dependencies{
		Sessions:   sessions,
		Templates:  registry,
		Collectors: collector.DefaultRegistry(),
		Events:     events,
		Logger:     logger,
	})
	handlers := wolftrace.NewHandlers(svc).WithRateLimit(cfg.Server.RateLimit, cfg.Server.Burst)

	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("wolftrace"))
	router.Use(wolftrace.RequestID())
	if cfg.Server.Debug {
		router.Use(gin.Logger())
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	wolftrace.RegisterRoutes(&router.RouterGroup, handlers)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting WolfTrace server", "address", srv.Addr,
			"sessions_in_memory", cfg.Sessions.InMemory, "templates", len(registry.List()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down WolfTrace server")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
