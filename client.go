package livefeed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dratasich/livefeed-go-client/aggregate"
	"github.com/dratasich/livefeed-go-client/events"
	"github.com/rs/zerolog/log"
)

// Connection state
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	default:
		return "Disconnected"
	}
}

var ErrAlreadyRunning = errors.New("client is already running")

// Snapshot of the client handed to listeners
type Snapshot struct {
	State    State
	Readings []events.Reading
}

// Listener is called synchronously after every state change and every
// accepted reading
type Listener func(Snapshot)

type Client struct {
	dialer     Dialer
	retryDelay time.Duration
	listener   Listener

	// clock and timer, replaced in tests
	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu        sync.Mutex
	state     State
	aggregate aggregate.Aggregate
	running   bool
}

type Option func(*Client)

func WithListener(l Listener) Option {
	return func(c *Client) { c.listener = l }
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithTimer(after func(time.Duration) <-chan time.Time) Option {
	return func(c *Client) { c.after = after }
}

func NewClient(dialer Dialer, agg aggregate.Aggregate, opts ...Option) *Client {
	c := &Client{
		dialer:     dialer,
		retryDelay: DefaultRetryDelay,
		listener:   func(Snapshot) {},
		now:        time.Now,
		after:      time.After,
		state:      Disconnected,
		aggregate:  agg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig wires dialer and aggregate as configured
func NewClientFromConfig(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dialer, err := cfg.NewDialer()
	if err != nil {
		return nil, err
	}
	agg, err := aggregate.New(cfg.Mode, cfg.HistorySize)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithRetryDelay(cfg.RetryDelay)}, opts...)
	return NewClient(dialer, agg, opts...), nil
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// caller holds c.mu
func (c *Client) snapshot() Snapshot {
	return Snapshot{State: c.state, Readings: c.aggregate.Readings()}
}

// Run connects and keeps reconnecting until ctx is cancelled. Cancelling
// ctx closes the open connection; no reconnect is attempted afterwards.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	for {
		c.connect(ctx)
		if ctx.Err() != nil {
			log.Info().Msg("Live feed stopped")
			return nil
		}

		log.Info().Msgf("Reconnecting in %s", c.retryDelay)
		select {
		case <-ctx.Done():
			log.Info().Msg("Live feed stopped")
			return nil
		case <-c.after(c.retryDelay):
		}
	}
}

// connect runs a single connection attempt until the connection ends
func (c *Client) connect(ctx context.Context) {
	c.setState(Connecting)
	conn, err := c.dialer.Dial(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Msgf("Failed to connect: %s", err)
		}
		c.setState(Disconnected)
		return
	}
	log.Info().Msg("Live feed connection up")
	c.setState(Connected)

	stop := context.AfterFunc(ctx, func() {
		if err := conn.Close(); err != nil {
			log.Debug().Msgf("Failed to close connection: %s", err)
		}
	})

	for {
		payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Msgf("Live feed connection closed: %s", err)
			}
			break
		}
		_ = c.HandleMessage(payload)
	}

	if stop() {
		_ = conn.Close()
	}
	c.setState(Disconnected)
}

// HandleMessage decodes one message and adds it to the aggregate. Messages
// that fail to decode are logged and dropped.
func (c *Client) HandleMessage(payload []byte) error {
	reading, err := events.DecodeReading(payload, c.now())
	if err != nil {
		log.Error().Msgf("Dropping message: %s. Payload: %s", err, payload)
		return err
	}
	log.Debug().Msgf("Received temperature update: %+v", reading)

	c.mu.Lock()
	c.aggregate.Add(reading)
	snap := c.snapshot()
	c.mu.Unlock()

	c.listener(snap)
	return nil
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	snap := c.snapshot()
	c.mu.Unlock()

	log.Debug().Msgf("Connection state: %s", s)
	c.listener(snap)
}
