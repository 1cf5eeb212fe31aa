package livefeed

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"sync"

	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	qos = byte(1) // qos to subscribe with

	// messages buffered between the router and the reader
	mqttQueueSize = 100
)

// MQTTDialer subscribes to a broker topic carrying the same JSON readings
// as the websocket feed. Reconnecting is left to the caller, every Dial
// is a fresh session.
type MQTTDialer struct {
	ServerURL string
	Topic     string
	// set username = access token (and leave password empty) for TB style brokers
	Username  string
	Password  string
	KeepAlive uint16
}

func NewMQTTDialer(cfg Config) *MQTTDialer {
	return &MQTTDialer{
		ServerURL: cfg.ServerURL,
		Topic:     cfg.Topic,
		Username:  cfg.Username,
		Password:  cfg.Password,
		KeepAlive: cfg.KeepAlive,
	}
}

// brokerAddress returns host:port of the broker, defaulting the port by scheme
func brokerAddress(u *url.URL) (string, error) {
	port := u.Port()
	switch u.Scheme {
	case "mqtt", "tcp":
		if port == "" {
			port = "1883"
		}
	case "mqtts", "ssl", "tls":
		if port == "" {
			port = "8883"
		}
	default:
		return "", fmt.Errorf("server url %q: unsupported mqtt scheme %q", u.String(), u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("server url %q: missing host", u.String())
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

func (d *MQTTDialer) Dial(ctx context.Context) (Conn, error) {
	parsedURL, err := url.Parse(d.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url (%s): %w", d.ServerURL, err)
	}
	addr, err := brokerAddress(parsedURL)
	if err != nil {
		return nil, err
	}

	var netConn net.Conn
	switch parsedURL.Scheme {
	case "mqtt", "tcp":
		var dialer net.Dialer
		netConn, err = dialer.DialContext(ctx, "tcp", addr)
	default:
		dialer := tls.Dialer{Config: &tls.Config{ServerName: parsedURL.Hostname()}}
		netConn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	conn := &mqttConn{
		netConn:  netConn,
		messages: make(chan []byte, mqttQueueSize),
		done:     make(chan struct{}),
	}

	handler := func(msg *paho.Publish) {
		log.Debug().Msgf("Received message on %s", msg.Topic)
		select {
		case conn.messages <- msg.Payload:
		case <-conn.done:
		}
	}

	clientID := "livefeed-" + uuid.NewString()
	conn.client = paho.NewClient(paho.ClientConfig{
		ClientID: clientID,
		Conn:     netConn,
		Router:   paho.NewStandardRouterWithDefault(handler),
		OnClientError: func(err error) {
			log.Error().Msgf("Client error: %s", err)
			conn.fail(fmt.Errorf("mqtt client: %w", err))
		},
		OnServerDisconnect: func(disconnect *paho.Disconnect) {
			if disconnect.Properties != nil {
				log.Error().Msgf("Server requested disconnect: %s", disconnect.Properties.ReasonString)
			} else {
				log.Error().Msgf("Server requested disconnect with reason code: %d", disconnect.ReasonCode)
			}
			conn.fail(fmt.Errorf("server disconnect, reason code %d", disconnect.ReasonCode))
		},
	})

	connect := &paho.Connect{
		ClientID:   clientID,
		KeepAlive:  d.KeepAlive,
		CleanStart: true,
	}
	if d.Username != "" {
		connect.Username = d.Username
		connect.UsernameFlag = true
		connect.Password = []byte(d.Password)
		connect.PasswordFlag = d.Password != ""
	}

	log.Info().Msgf("Connect to MQTT broker %s as %s...", addr, clientID)
	if _, err := conn.client.Connect(ctx, connect); err != nil {
		_ = netConn.Close()
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	if _, err := conn.client.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{
			{Topic: d.Topic, QoS: qos},
		},
	}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("subscribe %s: %w", d.Topic, err)
	}
	log.Info().Msgf("MQTT subscription made on %s", d.Topic)

	return conn, nil
}

type mqttConn struct {
	client   *paho.Client
	netConn  net.Conn
	messages chan []byte

	once      sync.Once
	done      chan struct{}
	err       error
	closeOnce sync.Once
}

// fail ends the connection; the first error wins
func (c *mqttConn) fail(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

func (c *mqttConn) ReadMessage() ([]byte, error) {
	// drain what was received before the connection ended
	select {
	case payload := <-c.messages:
		return payload, nil
	default:
	}
	select {
	case payload := <-c.messages:
		return payload, nil
	case <-c.done:
		return nil, c.err
	}
}

func (c *mqttConn) Close() error {
	c.fail(net.ErrClosed)

	var err error
	c.closeOnce.Do(func() {
		if dErr := c.client.Disconnect(&paho.Disconnect{ReasonCode: 0}); dErr != nil {
			log.Debug().Msgf("Failed to disconnect: %s", dErr)
		}
		err = c.netConn.Close()
		log.Info().Msg("Disconnected from MQTT broker")
	})
	return err
}
