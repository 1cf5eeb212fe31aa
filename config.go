package livefeed

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dratasich/livefeed-go-client/aggregate"
)

const (
	TransportWebsocket = "websocket"
	TransportMQTT      = "mqtt"

	DefaultServerURL  = "ws://192.168.1.100:3000"
	DefaultRetryDelay = 3 * time.Second
)

var ErrUnknownTransport = errors.New("unknown transport")

// Live feed configuration
type Config struct {
	ServerURL string `env:"SERVER_URL,default=ws://192.168.1.100:3000"` // telemetry source
	Transport string `env:"TRANSPORT,default=websocket"`                // websocket or mqtt

	// mqtt only
	Topic     string `env:"TOPIC,default=temperature"` // topic the readings are published on
	Username  string `env:"USERNAME"`
	Password  string `env:"PASSWORD"`
	KeepAlive uint16 `env:"KEEP_ALIVE,default=60"` // seconds between keepalive packets

	RetryDelay  time.Duration  `env:"RETRY_DELAY,default=3s"` // constant wait before reconnecting
	Mode        aggregate.Mode `env:"MODE,default=latest"`    // latest or history
	HistorySize int            `env:"HISTORY_SIZE,default=50"`
}

func DefaultConfig() Config {
	return Config{
		ServerURL:   DefaultServerURL,
		Transport:   TransportWebsocket,
		Topic:       "temperature",
		KeepAlive:   60,
		RetryDelay:  DefaultRetryDelay,
		Mode:        aggregate.ModeLatest,
		HistorySize: aggregate.DefaultHistorySize,
	}
}

func (c Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("server url %q: %w", c.ServerURL, err)
	}
	if u.Host == "" {
		return fmt.Errorf("server url %q: missing host", c.ServerURL)
	}

	switch c.Transport {
	case TransportWebsocket:
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("server url %q: websocket needs ws:// or wss://", c.ServerURL)
		}
	case TransportMQTT:
		if _, err := brokerAddress(u); err != nil {
			return err
		}
		if c.Topic == "" {
			return errors.New("mqtt needs a topic")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransport, c.Transport)
	}

	if c.RetryDelay <= 0 {
		return fmt.Errorf("retry delay must be positive, got %s", c.RetryDelay)
	}
	if c.Mode != aggregate.ModeLatest && c.Mode != aggregate.ModeHistory {
		return fmt.Errorf("%w: %q", aggregate.ErrUnknownMode, c.Mode)
	}
	if c.Mode == aggregate.ModeHistory && c.HistorySize < 1 {
		return fmt.Errorf("history size must be at least 1, got %d", c.HistorySize)
	}
	return nil
}

// NewDialer returns the dialer for the configured transport
func (c Config) NewDialer() (Dialer, error) {
	switch c.Transport {
	case TransportWebsocket:
		return NewWebsocketDialer(c.ServerURL), nil
	case TransportMQTT:
		return NewMQTTDialer(c), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, c.Transport)
	}
}
