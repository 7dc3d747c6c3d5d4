package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/congo-pay/wallet_engine/internal/config"
	"github.com/congo-pay/wallet_engine/internal/infra"
	"github.com/congo-pay/wallet_engine/internal/logging"
	"github.com/congo-pay/wallet_engine/internal/notification"
	"github.com/congo-pay/wallet_engine/internal/routes"
	"github.com/congo-pay/wallet_engine/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	handler := logging.NewHandler(logging.Options{
		Level: cfg.LogLevel,
		Text:  cfg.IsDev(),
		Attrs: []slog.Attr{slog.String("app", cfg.AppName), slog.String("env", cfg.AppEnv)},
	})
	logger := slog.New(handler)
	logger.Info("starting", "config", cfg)

	ctx := context.Background()
	deps := routes.Deps{Cfg: cfg, Logger: logger}

	if cfg.DatabaseURL != "" {
		db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, infra.PoolOptions{MaxConns: cfg.DBMaxConns})
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		deps.DB = db

		orm, err := infra.NewGorm(cfg.DatabaseURL, handler)
		if err != nil {
			logger.Error("connect gorm", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := infra.CloseGorm(orm); err != nil {
				logger.Warn("close gorm", "error", err)
			}
		}()
		deps.Gorm = orm
	}

	if cfg.RedisURL != "" {
		cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
		deps.Cache = cache
	}

	if len(cfg.KafkaBrokers) > 0 {
		writer := notification.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Warn("close kafka writer", "error", err)
			}
		}()
		deps.Events = writer
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps.Registry = reg

	srv, err := server.New(deps)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
