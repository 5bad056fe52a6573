package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"hotelwizard/internal/config"
	"hotelwizard/internal/database"
	"hotelwizard/internal/logging"
	"hotelwizard/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-cfg.LedgerRetention)
	deleted, err := repository.NewPaymentAttemptRepository(db).DeleteAbandoned(ctx, cutoff)
	if err != nil {
		logger.Fatal("cleanup payment_attempts failed", zap.Error(err))
	}

	logger.Info("ledger cleanup completed",
		zap.Int64("payment_attempts", deleted),
		zap.Time("cutoff", cutoff),
	)
}
