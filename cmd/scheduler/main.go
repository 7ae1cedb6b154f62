package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"sjsage522/pricetracker/config"
	"sjsage522/pricetracker/logger"
	"sjsage522/pricetracker/services/worker"
)

func main() {
	godotenv.Load()

	logger.Init()
	log := logger.ForScheduler()

	cfg := config.LoadSchedulerConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid scheduler configuration")
	}

	log.Info().
		Int("slots", cfg.Slots).
		Int("batch_size", cfg.BatchSize).
		Dur("interval", cfg.Interval).
		Msg("Starting scheduler")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := worker.NewWorker(*cfg, nil)
	if err := w.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduler exited with error")
	}
	log.Info().Msg("Scheduler stopped")
}
