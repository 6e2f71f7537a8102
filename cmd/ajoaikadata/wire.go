package main

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/HSLdevcom/ajoaikadata/internal/broker"
	"github.com/HSLdevcom/ajoaikadata/internal/eke"
	"github.com/HSLdevcom/ajoaikadata/internal/events"
	"github.com/HSLdevcom/ajoaikadata/internal/station"
)

// wireRecord is the envelope that carries pipeline output across a broker
// topic hop. Exactly one of Message, Event, or StationEvent is set,
// selected by Kind — contentparser's output topic only ever carries
// kindMessage; eventcreator's output topic carries all three, since it
// republishes every message it receives in addition to anything it
// detects, giving pgsink one input stream for all three sink tables.
type wireRecord struct {
	Kind         string                `json:"kind"`
	Message      *eke.Msg              `json:"message,omitempty"`
	Event        *events.Event         `json:"event,omitempty"`
	StationEvent *station.StationEvent `json:"station_event,omitempty"`
}

const (
	kindMessage      = "message"
	kindEvent        = "event"
	kindStationEvent = "station_event"
)

// messagePublisher implements keyed.MessageSink by publishing to a broker
// topic instead of a database sink — the contentparser and eventcreator
// roles' stand-in for persistence, since only pgsink writes Postgres.
type messagePublisher struct {
	producer broker.Producer
	log      zerolog.Logger
}

func (p *messagePublisher) Add(msg *eke.Msg) {
	publish(p.producer, msg.Vehicle, wireRecord{Kind: kindMessage, Message: msg}, p.log)
}

type eventPublisher struct {
	producer broker.Producer
	log      zerolog.Logger
}

func (p *eventPublisher) Add(evt *events.Event) {
	publish(p.producer, evt.Vehicle, wireRecord{Kind: kindEvent, Event: evt}, p.log)
}

type stationEventPublisher struct {
	producer broker.Producer
	log      zerolog.Logger
}

func (p *stationEventPublisher) Add(se *station.StationEvent) {
	publish(p.producer, se.Vehicle, wireRecord{Kind: kindStationEvent, StationEvent: se}, p.log)
}

func publish(producer broker.Producer, vehicle string, rec wireRecord, log zerolog.Logger) {
	payload, err := json.Marshal(rec)
	if err != nil {
		log.Error().Err(err).Str("kind", rec.Kind).Msg("encoding wire record failed")
		return
	}
	if err := producer.Publish(context.Background(), vehicle, payload); err != nil {
		log.Error().Err(err).Str("kind", rec.Kind).Str("vehicle", vehicle).Msg("publishing wire record failed")
	}
}
