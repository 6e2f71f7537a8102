package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/HSLdevcom/ajoaikadata/internal/broker"
	"github.com/HSLdevcom/ajoaikadata/internal/config"
)

// runReader tails the historical/live blob source and republishes every
// raw row onto PULSAR_OUTPUT_TOPIC for a contentparser to pick up.
func runReader(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	readerLog := log.With().Str("component", "reader").Logger()

	rdr, err := buildReader(ctx, cfg, readerLog)
	if err != nil {
		return fmt.Errorf("building source reader: %w", err)
	}

	b, err := broker.Connect(broker.Options{
		BrokerURL: cfg.MQTTBrokerURL(),
		ClientID:  cfg.PulsarClientName + "-reader",
		Topic:     cfg.PulsarOutputTopic,
		Subscribe: false,
		Log:       log.With().Str("component", "broker").Logger(),
	})
	if err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer b.Close()

	rows, err := rdr.Read(ctx)
	if err != nil {
		return fmt.Errorf("starting reader: %w", err)
	}

	published := 0
	for {
		select {
		case <-ctx.Done():
			readerLog.Info().Int("published", published).Msg("reader shutting down")
			return nil
		case row, ok := <-rows:
			if !ok {
				readerLog.Info().Int("published", published).Msg("source exhausted")
				return nil
			}
			payload, err := json.Marshal(row)
			if err != nil {
				readerLog.Error().Err(err).Msg("encoding raw row failed")
				continue
			}
			if err := b.Publish(ctx, row.Vehicle, payload); err != nil {
				readerLog.Error().Err(err).Str("vehicle", row.Vehicle).Msg("publishing raw row failed")
				continue
			}
			published++
		}
	}
}
