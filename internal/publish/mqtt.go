package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"eve-counter/internal/display"
)

const DefaultTopic = "eve_counter/custom/eve_counter"

// MQTT publishes payloads to a broker topic with QoS 0. It connects lazily and
// reconnects on the next Publish after the connection drops, so a frame is
// never reported as sent while the broker is away.
type MQTT struct {
	client mqtt.Client
	topic  string
	log    *slog.Logger

	mu sync.Mutex
}

func NewMQTT(host string, port int, topic string, logger *slog.Logger) *MQTT {
	opts := mqtt.NewClientOptions().
		AddBroker(BrokerURL(host, port)).
		SetClientID(fmt.Sprintf("eve-counter-%d", rand.Intn(1001))).
		SetAutoReconnect(false).
		SetConnectTimeout(10 * time.Second).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", slog.String("err", err.Error()))
		})
	return &MQTT{
		client: mqtt.NewClient(opts),
		topic:  topic,
		log:    logger,
	}
}

func BrokerURL(host string, port int) string {
	return fmt.Sprintf("tcp://%s:%d", host, port)
}

func (m *MQTT) Publish(ctx context.Context, p display.Payload) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := m.connect(ctx); err != nil {
		return err
	}
	if err := wait(ctx, m.client.Publish(m.topic, 0, false, b)); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", m.topic, err)
	}
	m.log.Debug("payload published", slog.String("topic", m.topic), slog.Int("bytes", len(b)))
	return nil
}

func (m *MQTT) connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client.IsConnectionOpen() {
		return nil
	}
	if err := wait(ctx, m.client.Connect()); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	m.log.Info("connected to mqtt broker", slog.String("topic", m.topic))
	return nil
}

func (m *MQTT) Close() {
	if m.client.IsConnectionOpen() {
		m.client.Disconnect(250)
	}
}

func wait(ctx context.Context, tok mqtt.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
