// Command migrate applies the wallet engine schema to DATABASE_URL.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/congo-pay/wallet_engine/internal/config"
	"github.com/congo-pay/wallet_engine/internal/infra"
	"github.com/congo-pay/wallet_engine/internal/logging"
	"github.com/congo-pay/wallet_engine/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Text: true})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, infra.PoolOptions{MaxConns: 2})
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := store.Migrate(ctx, db); err != nil {
		logger.Error("migrate", "error", err)
		os.Exit(1)
	}
	logger.Info("schema applied")
}
