package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/HSLdevcom/ajoaikadata/internal/broker"
	"github.com/HSLdevcom/ajoaikadata/internal/config"
	"github.com/HSLdevcom/ajoaikadata/internal/eke"
	"github.com/HSLdevcom/ajoaikadata/internal/keyed"
	"github.com/HSLdevcom/ajoaikadata/internal/registry"
)

// runContentParser runs the pipeline's front half — decode through
// balise direction resolution — against raw rows from PULSAR_INPUT_TOPIC,
// republishing every resolved message onto PULSAR_OUTPUT_TOPIC for an
// eventcreator to pick up. It wires no Events/StationEvents sink, so
// keyed.worker's detector never runs here (see internal/keyed/worker.go).
func runContentParser(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	cpLog := log.With().Str("component", "contentparser").Logger()

	reg, err := registry.LoadCSV(cfg.BaliseDataFile)
	if err != nil {
		return fmt.Errorf("loading balise registry: %w", err)
	}
	cpLog.Info().Int("entries", reg.Len()).Msg("balise registry loaded")

	// A single MQTTBroker's topic field doubles as its subscribe topic and
	// its publish-base topic, so a role that consumes one topic and
	// produces another needs two connections.
	consumer, err := broker.Connect(broker.Options{
		BrokerURL: cfg.MQTTBrokerURL(),
		ClientID:  cfg.PulsarClientName + "-contentparser-in",
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
		ClientID:  cfg.PulsarClientName + "-contentparser-out",
		Topic:     cfg.PulsarOutputTopic,
		Subscribe: false,
		Log:       log.With().Str("component", "broker-out").Logger(),
	})
	if err != nil {
		return fmt.Errorf("connecting producer: %w", err)
	}
	defer producer.Close()

	sinks := keyed.Sinks{
		Messages: &messagePublisher{producer: producer, log: cpLog},
	}
	rt := keyed.NewRuntime(reg, sinks, cpLog)
	registerRuntimeCollector(nil, rt)
	defer rt.Shutdown()

	for {
		select {
		case <-ctx.Done():
			cpLog.Info().Msg("contentparser shutting down")
			return nil
		case msg, ok := <-consumer.Messages():
			if !ok {
				cpLog.Warn().Msg("broker consumer channel closed")
				return nil
			}
			var row eke.RawRow
			if err := json.Unmarshal(msg.Payload, &row); err != nil {
				cpLog.Error().Err(err).Msg("decoding raw row failed")
				msg.Ack()
				continue
			}
			if err := rt.Submit(row); err != nil {
				cpLog.Error().Err(err).Msg("submitting row to runtime failed")
				continue
			}
			msg.Ack()
		}
	}
}
