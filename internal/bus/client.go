// Package bus is the MQTT side of the bridge: the outbound command channel
// and the inbound subscription queues.
package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"bms_bridge/internal/config"
	"bms_bridge/internal/logger"
)

var (
	ErrNotConnected   = errors.New("mqtt client not connected")
	ErrPublishTimeout = errors.New("mqtt publish timed out")
	ErrConnectTimeout = errors.New("mqtt connect timed out")
)

// Client publishes to the broker and keeps the inbox subscribed across reconnects.
type Client struct {
	cli            mqtt.Client
	qos            byte
	connectTimeout time.Duration
	publishTimeout time.Duration
	log            *logger.Logger
}

// NewClient configures a paho client. inbox may be nil for a publish-only client.
func NewClient(cfg config.MQTTConfig, inbox *Inbox, log *logger.Logger) *Client {
	c := &Client{
		qos:            byte(cfg.QoS),
		connectTimeout: cfg.ConnectTimeout,
		publishTimeout: cfg.PublishTimeout,
		log:            log.Named("mqtt"),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(m mqtt.Client) {
			c.log.Infow("mqtt_connected", "broker", cfg.Broker)
			if inbox != nil {
				c.subscribe(m, inbox)
			}
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			c.log.Warnw("mqtt_connection_lost", "err", err)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	c.cli = mqtt.NewClient(opts)
	return c
}

// subscribe runs on every (re)connect, since paho does not restore
// subscriptions after AutoReconnect.
func (c *Client) subscribe(m mqtt.Client, inbox *Inbox) {
	for _, filter := range inbox.Filters() {
		tok := m.Subscribe(filter, c.qos, inbox.Callback(filter))
		if ok := tok.WaitTimeout(c.connectTimeout); !ok {
			c.log.Warnw("mqtt_subscribe_timeout", "filter", filter)
			continue
		}
		if err := tok.Error(); err != nil {
			c.log.Errorw("mqtt_subscribe_failed", "filter", filter, "err", err)
			continue
		}
		c.log.Infow("mqtt_subscribed", "filter", filter, "qos", c.qos)
	}
}

// Connect waits up to the connect timeout for the first connection. On
// timeout paho keeps retrying in the background.
func (c *Client) Connect() error {
	tok := c.cli.Connect()
	if ok := tok.WaitTimeout(c.connectTimeout); !ok {
		return ErrConnectTimeout
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Publish sends payload and waits for the broker to accept it.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if !c.cli.IsConnectionOpen() {
		return fmt.Errorf("publish %s: %w", topic, ErrNotConnected)
	}
	tok := c.cli.Publish(topic, c.qos, false, payload)

	timeout := c.publishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		c.log.Debugw("mqtt_published", "topic", topic, "bytes", len(payload))
		return nil
	case <-timer.C:
		return fmt.Errorf("publish %s: %w", topic, ErrPublishTimeout)
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", topic, ctx.Err())
	}
}

// Close disconnects, giving in-flight work 250ms to complete.
func (c *Client) Close() {
	c.cli.Disconnect(250)
}
