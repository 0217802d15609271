// Package mqtt bridges the clock engine to an MQTT broker. Inbound time and
// settings signals arrive on <prefix>/time and <prefix>/settings; display
// snapshots are published retained on <prefix>/display.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/couchcryptid/clock-sync-engine/internal/config"
	"github.com/couchcryptid/clock-sync-engine/internal/domain"
	"github.com/couchcryptid/clock-sync-engine/internal/observability"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 250
	qosAtLeastOnce    = 1
)

// Dispatcher applies a decoded inbound event.
type Dispatcher interface {
	Dispatch(ctx context.Context, env domain.Envelope) error
}

// Client wraps a paho client with the engine's topic layout.
type Client struct {
	client  paho.Client
	prefix  string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewClient configures an auto-reconnecting paho client for cfg.MQTTBroker.
// The connection is not opened until Connect.
func NewClient(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	c := &Client{prefix: strings.TrimSuffix(cfg.MQTTTopicPrefix, "/"), logger: logger, metrics: metrics}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.MQTTBroker)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetOrderMatters(true)
	opts.OnConnect = func(_ paho.Client) {
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker)
		metrics.MQTTConnected.Set(1)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
		metrics.MQTTConnected.Set(0)
	}

	c.client = paho.NewClient(opts)
	return c
}

func newWithClient(client paho.Client, prefix string, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{client: client, prefix: strings.TrimSuffix(prefix, "/"), logger: logger, metrics: metrics}
}

// Topic returns the full topic for a suffix under the configured prefix.
func (c *Client) Topic(suffix string) string {
	if c.prefix == "" {
		return suffix
	}
	return c.prefix + "/" + suffix
}

// Connect opens the broker connection, giving up when ctx is done.
func (c *Client) Connect(ctx context.Context) error {
	return wait(ctx, c.client.Connect(), "connect", connectTimeout)
}

// Subscribe routes inbound time and settings messages to d. Handlers run on
// paho's delivery goroutine with ctx as their context.
func (c *Client) Subscribe(ctx context.Context, d Dispatcher) error {
	filters := map[string]byte{
		c.Topic(domain.EventTime):     qosAtLeastOnce,
		c.Topic(domain.EventSettings): qosAtLeastOnce,
	}
	handler := func(_ paho.Client, msg paho.Message) {
		c.handle(ctx, d, msg)
	}
	return wait(ctx, c.client.SubscribeMultiple(filters, handler), "subscribe", publishTimeout)
}

func (c *Client) handle(ctx context.Context, d Dispatcher, msg paho.Message) {
	c.metrics.MessagesConsumed.Inc()
	env, err := c.envelopeFromMessage(msg)
	if err == nil {
		err = d.Dispatch(ctx, env)
	}
	if err != nil {
		c.logger.Warn("mqtt message rejected", "topic", msg.Topic(), "error", err)
		c.metrics.DecodeErrors.Inc()
	}
}

// envelopeFromMessage derives the event type from the topic's last segment.
// A message whose payload is already an envelope of that type is unwrapped.
func (c *Client) envelopeFromMessage(msg paho.Message) (domain.Envelope, error) {
	topic := msg.Topic()
	kind := topic[strings.LastIndex(topic, "/")+1:]
	if kind != domain.EventTime && kind != domain.EventSettings {
		return domain.Envelope{}, fmt.Errorf("%w: topic %q", domain.ErrUnknownEvent, topic)
	}
	payload := msg.Payload()
	if env, err := domain.ParseEnvelope(payload); err == nil && env.Type == kind {
		return env, nil
	}
	return domain.Envelope{Type: kind, Payload: json.RawMessage(payload)}, nil
}

// LoadBatch publishes the newest snapshot of the batch, retained, so late
// subscribers immediately receive the current display.
func (c *Client) LoadBatch(ctx context.Context, states []domain.DisplayState) error {
	if len(states) == 0 {
		return nil
	}
	data, err := json.Marshal(states[len(states)-1])
	if err != nil {
		return fmt.Errorf("serialize display state: %w", err)
	}
	return wait(ctx, c.client.Publish(c.Topic("display"), qosAtLeastOnce, true, data), "publish", publishTimeout)
}

// Close disconnects after letting in-flight work settle.
func (c *Client) Close() error {
	if c.client.IsConnected() {
		c.client.Disconnect(disconnectQuiesce)
	}
	c.metrics.MQTTConnected.Set(0)
	return nil
}

func wait(ctx context.Context, tok paho.Token, op string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
	case <-ctx.Done():
		return fmt.Errorf("mqtt %s: %w", op, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("mqtt %s: %w", op, errTimeout)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt %s: %w", op, err)
	}
	return nil
}

var errTimeout = errors.New("timed out")
