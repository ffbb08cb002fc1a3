// Worker consumes change events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, CHANGES_KAFKA_TOPIC, KAFKA_GROUP_ID and LOKI_URL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"sessionguard/internal/config"
	"sessionguard/internal/events/loki"
	"sessionguard/internal/logging"
	"sessionguard/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("config")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		logging.Fatal().Msg("worker: KAFKA_BROKERS is required")
	}
	client, err := loki.NewClient(cfg.LokiURL, nil)
	if err != nil {
		logging.Fatal().Err(err).Msg("worker: LOKI_URL is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    cfg.ChangesKafkaTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  time.Second,
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("topic", cfg.ChangesKafkaTopic).
		Str("group", cfg.KafkaGroupID).
		Str("loki", cfg.LokiURL).
		Msg("worker: forwarding change events")

	tree := supervisor.NewTree("sessionguard-worker", logging.WithComponent("supervisor"), supervisor.TreeConfig{})
	tree.AddBackground(loki.NewForwarder(reader, client))
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("worker: supervisor stopped")
	}
	logging.Info().Msg("worker: stopped")
}
