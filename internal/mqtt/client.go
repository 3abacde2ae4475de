// Package mqtt wraps the paho client: the subscribe loop for the command
// topic and the publisher side used by the error reporter.
package mqtt

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config addresses the broker and the command topic.
type Config struct {
	Host         string
	Port         int
	CommandTopic string
	QoS          byte
	ClientID     string
}

// MessageHandler consumes one raw inbound payload. Handlers run on the paho
// callback goroutine; paho preserves per-topic ordering, so batches arrive
// strictly one after another.
type MessageHandler func(payload []byte)

// Client maintains the broker connection, resubscribes after reconnects and
// publishes error events.
type Client struct {
	cfg     Config
	client  mqtt.Client
	handler MessageHandler
	logger  *zap.Logger
}

func NewClient(cfg Config, handler MessageHandler, logger *zap.Logger) *Client {
	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("commandbridge-%s", uuid.NewString()[:8])
	}

	c := &Client{cfg: cfg, handler: handler, logger: logger}

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(5 * time.Second).
		SetConnectTimeout(30 * time.Second).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetResumeSubs(true)

	opts.OnConnect = func(client mqtt.Client) {
		c.logger.Info("connected to MQTT broker",
			zap.String("client_id", cfg.ClientID))
		c.subscribe(client)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		c.logger.Error("MQTT connection lost", zap.Error(err))
	}
	opts.OnReconnecting = func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		c.logger.Info("reconnecting to MQTT broker")
	}

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect dials the broker. The command topic subscription is established
// by the connect handler, on first connect and after every reconnect.
func (c *Client) Connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return fmt.Errorf("connection to MQTT broker at %s:%d timed out", c.cfg.Host, c.cfg.Port)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("cannot connect to MQTT broker at %s:%d: %w", c.cfg.Host, c.cfg.Port, err)
	}
	return nil
}

// Publish sends one payload to a topic. Implements the reporter's sink.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, c.cfg.QoS, false, payload)
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s failed: %w", topic, err)
	}
	return nil
}

// Disconnect flushes in-flight work and drops the connection.
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

func (c *Client) subscribe(client mqtt.Client) {
	token := client.Subscribe(c.cfg.CommandTopic, c.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		c.handler(msg.Payload())
	})
	if !token.WaitTimeout(10 * time.Second) || token.Error() != nil {
		c.logger.Error("failed to subscribe to command topic",
			zap.String("topic", c.cfg.CommandTopic), zap.Error(token.Error()))
		return
	}
	c.logger.Info("subscribed to command topic",
		zap.String("topic", c.cfg.CommandTopic))
}
