package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/HSLdevcom/ajoaikadata/internal/broker"
	"github.com/HSLdevcom/ajoaikadata/internal/config"
	"github.com/HSLdevcom/ajoaikadata/internal/keyed"
	"github.com/HSLdevcom/ajoaikadata/internal/registry"
)

// runEventCreator runs the pipeline's back half — event detection and
// station aggregation — against already content-parsed messages from
// PULSAR_INPUT_TOPIC, republishing every message it receives plus
// anything it detects onto PULSAR_OUTPUT_TOPIC, so pgsink sees a single
// input stream carrying all three record kinds.
func runEventCreator(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	ecLog := log.With().Str("component", "eventcreator").Logger()

	reg, err := registry.LoadCSV(cfg.BaliseDataFile)
	if err != nil {
		return fmt.Errorf("loading balise registry: %w", err)
	}
	ecLog.Info().Int("entries", reg.Len()).Msg("balise registry loaded")

	consumer, err := broker.Connect(broker.Options{
		BrokerURL: cfg.MQTTBrokerURL(),
		ClientID:  cfg.PulsarClientName + "-eventcreator-in",
		Topic:     cfg.PulsarInputTopic,
		Subscribe: true,
		Log:       log.With().Str("component", "broker-in").Logger(),
	})
	if err != nil {
		return fmt.Errorf("connecting consumer: %w", err)
	}
	defer consumer.Close()

	producer, err := broker.Connect(broker.Options{
		BrokerURL: cfg.MQTTBrokerURL(),
		ClientID:  cfg.PulsarClientName + "-eventcreator-out",
		Topic:     cfg.PulsarOutputTopic,
		Subscribe: false,
		Log:       log.With().Str("component", "broker-out").Logger(),
	})
	if err != nil {
		return fmt.Errorf("connecting producer: %w", err)
	}
	defer producer.Close()

	sinks := keyed.Sinks{
		Messages:      &messagePublisher{producer: producer, log: ecLog},
		Events:        &eventPublisher{producer: producer, log: ecLog},
		StationEvents: &stationEventPublisher{producer: producer, log: ecLog},
	}
	rt := keyed.NewEventRuntime(reg, sinks, ecLog)
	registerRuntimeCollector(nil, rt)
	defer rt.Shutdown()

	for {
		select {
		case <-ctx.Done():
			ecLog.Info().Msg("eventcreator shutting down")
			return nil
		case msg, ok := <-consumer.Messages():
			if !ok {
				ecLog.Warn().Msg("broker consumer channel closed")
				return nil
			}
			var rec wireRecord
			if err := json.Unmarshal(msg.Payload, &rec); err != nil {
				ecLog.Error().Err(err).Msg("decoding wire record failed")
				msg.Ack()
				continue
			}
			if rec.Kind != kindMessage || rec.Message == nil {
				msg.Ack()
				continue
			}
			if err := rt.Submit(rec.Message); err != nil {
				ecLog.Error().Err(err).Msg("submitting message to event runtime failed")
				continue
			}
			msg.Ack()
		}
	}
}
