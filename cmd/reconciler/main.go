package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/morningroast/brewpass/internal/config"
	kafkax "github.com/morningroast/brewpass/internal/kafka"
	"github.com/morningroast/brewpass/internal/orders"
	"github.com/morningroast/brewpass/internal/postgres"
	"github.com/morningroast/brewpass/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.ServiceName+"-reconciler").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderSettled, 1024)
	prod.Start(context.Background())

	svc := &orders.Reconciler{
		Orders:   &orders.Repo{DB: db, Threshold: cfg.FreeDrinkThreshold},
		Redis:    rdb,
		Producer: prod,
		Service:  cfg.ServiceName + "-reconciler",
		Log:      log,
	}

	group := getenv("RECONCILER_GROUP", "payment-reconciler")
	workers := mustAtoi(os.Getenv("RECONCILER_WORKERS"), 8)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicPaymentEvents, workers, log)

	go func() {
		log.Info().
			Str("group", group).
			Str("topic", orders.TopicPaymentEvents).
			Int("workers", workers).
			Msg("payment event consumer started")
		if err := cons.Start(ctx, svc.HandleKafkaMessage); err != nil {
			log.Error().Err(err).Msg("consumer exited")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	cancel()
	time.Sleep(500 * time.Millisecond)
	prod.Close()
	prod.WaitClosed()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
