package mqtt

import (
	"context"
	"fmt"
	"time"

	"parking-jobs/internal/common/config"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Publisher is the narrow broker interface jobs depend on.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close()
}

// Client wraps a connected paho client. Commands are fire-and-forget: QoS 0,
// not retained.
type Client struct {
	client  paho.Client
	timeout time.Duration
}

// Connect opens a broker connection and waits for the CONNACK.
func Connect(ctx context.Context, cfg config.MQTTConfig) (*Client, error) {
	timeout := config.GetDuration(cfg.ConnectTimeout)

	opts := paho.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectTimeout(timeout)

	c := paho.NewClient(opts)
	if err := wait(ctx, c.Connect(), timeout); err != nil {
		return nil, fmt.Errorf("mqtt connect %s:%d: %w", cfg.Broker, cfg.Port, err)
	}

	return &Client{client: c, timeout: timeout}, nil
}

func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := wait(ctx, c.client.Publish(topic, 0, false, payload), c.timeout); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

func (c *Client) Close() {
	c.client.Disconnect(250)
}

func wait(ctx context.Context, token paho.Token, timeout time.Duration) error {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("timed out after %s", timeout)
	}
	return token.Error()
}

// Topic builds the per-device command topic.
func Topic(root, device string) string {
	return fmt.Sprintf("mqtt/%s/%s", root, device)
}
