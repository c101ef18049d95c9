// Package bus wraps the MQTT connection shared by the subscriber loop and
// the notification publisher.
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/ricirt/video-download-worker/internal/domain"
)

// CONNACK return codes (MQTT 3.1.1, section 3.2.2.3).
const (
	codeAccepted       byte = 0x00
	codeBadCredentials byte = 0x04
	codeNotAuthorized  byte = 0x05
)

// Config describes the broker connection.
type Config struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	ConnectTimeout time.Duration

	// Connect retry policy.
	ConnectAttempts int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
}

// Message is an inbound broker message.
type Message struct {
	Topic     string
	Payload   []byte
	MessageID uint16
	Duplicate bool
}

// MessageHandler is invoked for every message on a subscribed topic.
type MessageHandler func(Message)

// Hooks carries optional metric callbacks injected by main.
type Hooks struct {
	OnConnectionChange func(connected bool)
	OnConnectAttempt   func(err error)
}

// Client owns one paho connection. Subscriptions are remembered and replayed
// whenever paho re-establishes the connection.
type Client struct {
	cfg    Config
	client mqtt.Client
	logger *zap.Logger
	hooks  Hooks

	mu     sync.Mutex
	routes map[string]MessageHandler
}

// New builds a Client backed by a real paho connection. It does not connect.
func New(cfg Config, logger *zap.Logger, hooks Hooks) *Client {
	c := newClient(cfg, logger, hooks)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetAutoReconnect(true).
		SetConnectRetry(false).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost).
		SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
			c.logger.Info("reconnecting to broker")
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	c.client = mqtt.NewClient(opts)
	return c
}

// NewWithClient builds a Client around an existing paho client (tests).
func NewWithClient(mc mqtt.Client, cfg Config, logger *zap.Logger, hooks Hooks) *Client {
	c := newClient(cfg, logger, hooks)
	c.client = mc
	return c
}

func newClient(cfg Config, logger *zap.Logger, hooks Hooks) *Client {
	if hooks.OnConnectionChange == nil {
		hooks.OnConnectionChange = func(bool) {}
	}
	if hooks.OnConnectAttempt == nil {
		hooks.OnConnectAttempt = func(error) {}
	}
	if cfg.ConnectAttempts < 1 {
		cfg.ConnectAttempts = 1
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		logger: logger.With(zap.String("broker", cfg.BrokerURL), zap.String("client_id", cfg.ClientID)),
		hooks:  hooks,
		routes: make(map[string]MessageHandler),
	}
}

// Connect establishes the broker connection, retrying with exponential
// backoff up to ConnectAttempts times. Credential rejections are not retried.
// The returned error wraps domain.ErrConnection.
func (c *Client) Connect(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	if c.cfg.InitialBackoff > 0 {
		policy.InitialInterval = c.cfg.InitialBackoff
	}
	if c.cfg.MaxBackoff > 0 {
		policy.MaxInterval = c.cfg.MaxBackoff
	}
	policy.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.cfg.ConnectAttempts-1)), ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := c.connectOnce()
		c.hooks.OnConnectAttempt(err)
		return err
	}, b, func(err error, next time.Duration) {
		c.logger.Warn("broker connection failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.cfg.ConnectAttempts),
			zap.Duration("next_attempt_in", next),
			zap.Error(err),
		)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %v", domain.ErrConnection, ctxErr)
		}
		return fmt.Errorf("%w after %d attempt(s): %v", domain.ErrConnection, attempt, err)
	}
	return nil
}

func (c *Client) connectOnce() error {
	tok := c.client.Connect()
	if !tok.WaitTimeout(c.cfg.ConnectTimeout) {
		return fmt.Errorf("connect timed out after %s", c.cfg.ConnectTimeout)
	}

	if rc, ok := returnCode(tok); ok && rc != codeAccepted {
		c.logger.Error("broker refused connection",
			zap.Uint8("return_code", rc),
			zap.Error(tok.Error()),
		)
		err := fmt.Errorf("broker refused connection with return code %d: %v", rc, tok.Error())
		if rc == codeBadCredentials || rc == codeNotAuthorized {
			return backoff.Permanent(err)
		}
		return err
	}

	return tok.Error()
}

func returnCode(tok mqtt.Token) (byte, bool) {
	rc, ok := tok.(interface{ ReturnCode() byte })
	if !ok {
		return 0, false
	}
	return rc.ReturnCode(), true
}

// onConnect runs on the first connect and after every automatic reconnect.
func (c *Client) onConnect(_ mqtt.Client) {
	c.logger.Info("connected to broker")
	c.hooks.OnConnectionChange(true)

	c.mu.Lock()
	routes := make(map[string]MessageHandler, len(c.routes))
	for topic, h := range c.routes {
		routes[topic] = h
	}
	c.mu.Unlock()

	for topic, h := range routes {
		if err := c.subscribe(topic, h); err != nil {
			c.logger.Error("failed to restore subscription", zap.String("topic", topic), zap.Error(err))
		}
	}
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.logger.Warn("broker connection lost", zap.Error(err))
	c.hooks.OnConnectionChange(false)
}

// Subscribe registers h for topic and subscribes immediately.
func (c *Client) Subscribe(topic string, h MessageHandler) error {
	c.mu.Lock()
	c.routes[topic] = h
	c.mu.Unlock()

	return c.subscribe(topic, h)
}

func (c *Client) subscribe(topic string, h MessageHandler) error {
	tok := c.client.Subscribe(topic, c.cfg.QoS, func(_ mqtt.Client, m mqtt.Message) {
		h(Message{
			Topic:     m.Topic(),
			Payload:   m.Payload(),
			MessageID: m.MessageID(),
			Duplicate: m.Duplicate(),
		})
	})
	if !tok.WaitTimeout(c.cfg.ConnectTimeout) {
		return fmt.Errorf("subscribe %s: timed out", topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// Unsubscribe forgets topic and unsubscribes if connected.
func (c *Client) Unsubscribe(topic string) error {
	c.mu.Lock()
	delete(c.routes, topic)
	c.mu.Unlock()

	if !c.client.IsConnectionOpen() {
		return nil
	}

	tok := c.client.Unsubscribe(topic)
	if !tok.WaitTimeout(c.cfg.ConnectTimeout) {
		return fmt.Errorf("unsubscribe %s: timed out", topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", topic, err)
	}
	return nil
}

// Publish sends payload to topic and waits for the broker acknowledgement
// (for QoS 0, until the packet is written). The error wraps domain.ErrPublish.
func (c *Client) Publish(ctx context.Context, topic, payload string) error {
	tok := c.client.Publish(topic, c.cfg.QoS, false, payload)

	select {
	case <-tok.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %v", domain.ErrPublish, topic, ctx.Err())
	}

	if err := tok.Error(); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrPublish, topic, err)
	}
	return nil
}

// IsConnected reports whether the connection is currently up.
func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Disconnect closes the connection, allowing in-flight work quiesce
// milliseconds to complete.
func (c *Client) Disconnect(quiesce uint) {
	if c.client.IsConnected() {
		c.client.Disconnect(quiesce)
	}
	c.hooks.OnConnectionChange(false)
	c.logger.Info("disconnected from broker")
}
