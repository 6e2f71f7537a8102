package broker

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// vehicleTopicSegment is the topic segment index that carries the
// vehicle id, per spec.md §3 ("Vehicle key = topic segment index 3").
const vehicleTopicSegment = 3

// MQTTBroker implements Consumer and Producer over an MQTT connection.
// It stands in for the KeyShared-subscription broker named in spec.md
// §6: QoS 1 delivery plus manual acknowledgement approximate KeyShared's
// per-key-ordered, explicitly-acked semantics for a single-process
// deployment. It does not give per-key ordering across multiple
// consumer processes the way a real KeyShared broker would — see
// DESIGN.md for why that's an accepted simplification here.
type MQTTBroker struct {
	conn      mqtt.Client
	topic     string
	subscribe bool
	connected atomic.Bool
	log       zerolog.Logger
	messages  chan Message
}

// Options configures an MQTT connection. Topic serves double duty: it is
// both the subscribe topic (when Subscribe is true) and the base prefix
// Publish appends a vehicle id to. A publish-only connection (the reader
// role) sets Topic without Subscribe, so it never receives its own
// published traffic back.
type Options struct {
	BrokerURL string
	ClientID  string
	Topic     string
	Subscribe bool
	Username  string
	Password  string
	Log       zerolog.Logger
}

// Connect dials the broker and, if opts.Subscribe is set, subscribes to
// opts.Topic with QoS 1 and manual acknowledgement.
func Connect(opts Options) (*MQTTBroker, error) {
	b := &MQTTBroker{
		topic:     opts.Topic,
		subscribe: opts.Subscribe,
		log:       opts.Log,
		messages:  make(chan Message, 1000),
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(true).
		SetAutoAckDisabled(true).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(b.onConnectionLost)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	b.conn = mqtt.NewClient(clientOpts)
	token := b.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to mqtt broker: %w", err)
	}
	return b, nil
}

func (b *MQTTBroker) onConnect(client mqtt.Client) {
	b.connected.Store(true)
	if !b.subscribe || b.topic == "" {
		return
	}
	b.log.Info().Str("topic", b.topic).Msg("mqtt connected, subscribing")
	token := client.Subscribe(b.topic, 1, b.onMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		b.log.Error().Err(err).Str("topic", b.topic).Msg("mqtt subscribe failed")
	}
}

func (b *MQTTBroker) onConnectionLost(_ mqtt.Client, err error) {
	b.connected.Store(false)
	b.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
}

func (b *MQTTBroker) onMessage(_ mqtt.Client, msg mqtt.Message) {
	vehicle := vehicleFromTopic(msg.Topic())
	b.messages <- Message{
		Vehicle: vehicle,
		Topic:   msg.Topic(),
		Payload: msg.Payload(),
		Ack:     msg.Ack,
	}
}

// Messages returns the channel of incoming keyed messages.
func (b *MQTTBroker) Messages() <-chan Message { return b.messages }

// Publish publishes payload to a vehicle-keyed topic derived from the
// subscribed base topic, at QoS 1.
func (b *MQTTBroker) Publish(ctx context.Context, vehicle string, payload []byte) error {
	topic := fmt.Sprintf("%s/%s", strings.TrimRight(b.topic, "/#"), vehicle)
	token := b.conn.Publish(topic, 1, false, payload)
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	token.Wait()
	return token.Error()
}

// IsConnected reports the broker's current connection state.
func (b *MQTTBroker) IsConnected() bool { return b.connected.Load() }

// Close disconnects the underlying client and closes the message
// channel.
func (b *MQTTBroker) Close() error {
	b.log.Info().Msg("disconnecting mqtt client")
	b.conn.Disconnect(1000)
	close(b.messages)
	return nil
}

func vehicleFromTopic(topic string) string {
	segments := strings.Split(topic, "/")
	if len(segments) > vehicleTopicSegment {
		return segments[vehicleTopicSegment]
	}
	return ""
}
