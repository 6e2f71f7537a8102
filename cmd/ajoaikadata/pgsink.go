package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/HSLdevcom/ajoaikadata/internal/broker"
	"github.com/HSLdevcom/ajoaikadata/internal/config"
	"github.com/HSLdevcom/ajoaikadata/internal/database"
)

// runPgSink consumes the final topic of the chain — everything an
// eventcreator published, messages and events and station events alike —
// and demultiplexes each record by kind into its own staging-backed Sink.
// It uses one fixed worker id for the whole process, since staging tables
// are keyed by (target, workerID), not by vehicle.
func runPgSink(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	psLog := log.With().Str("component", "pgsink").Logger()

	db, err := database.Connect(ctx, cfg.PostgresConnStr, psLog)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	workerID := cfg.PulsarClientName

	messagesSink, err := database.NewMessagesSink(ctx, db, workerID, cfg.BytewaxBatchSize, sinkFlushInterval, psLog)
	if err != nil {
		return fmt.Errorf("creating messages sink: %w", err)
	}
	defer messagesSink.Shutdown(context.Background())

	eventsSink, err := database.NewEventsSink(ctx, db, workerID, cfg.BytewaxBatchSize, sinkFlushInterval, psLog)
	if err != nil {
		return fmt.Errorf("creating events sink: %w", err)
	}
	defer eventsSink.Shutdown(context.Background())

	stationEventsSink, err := database.NewStationEventsSink(ctx, db, workerID, cfg.BytewaxBatchSize, sinkFlushInterval, psLog)
	if err != nil {
		return fmt.Errorf("creating station events sink: %w", err)
	}
	defer stationEventsSink.Shutdown(context.Background())

	registerRuntimeCollector(db.Pool, nil)

	consumer, err := broker.Connect(broker.Options{
		BrokerURL: cfg.MQTTBrokerURL(),
		ClientID:  cfg.PulsarClientName + "-pgsink",
		Topic:     cfg.PulsarInputTopic,
		Subscribe: true,
		Log:       log.With().Str("component", "broker").Logger(),
	})
	if err != nil {
		return fmt.Errorf("connecting consumer: %w", err)
	}
	defer consumer.Close()

	for {
		select {
		case <-ctx.Done():
			psLog.Info().Msg("pgsink shutting down, flushing sinks")
			messagesSink.Flush()
			eventsSink.Flush()
			stationEventsSink.Flush()
			return nil
		case msg, ok := <-consumer.Messages():
			if !ok {
				psLog.Warn().Msg("broker consumer channel closed")
				return nil
			}
			var rec wireRecord
			if err := json.Unmarshal(msg.Payload, &rec); err != nil {
				psLog.Error().Err(err).Msg("decoding wire record failed")
				msg.Ack()
				continue
			}
			switch rec.Kind {
			case kindMessage:
				if rec.Message != nil {
					messagesSink.Add(rec.Message)
				}
			case kindEvent:
				if rec.Event != nil {
					eventsSink.Add(rec.Event)
				}
			case kindStationEvent:
				if rec.StationEvent != nil {
					stationEventsSink.Add(rec.StationEvent)
				}
			default:
				psLog.Warn().Str("kind", rec.Kind).Msg("unknown wire record kind")
			}
			msg.Ack()
		}
	}
}
