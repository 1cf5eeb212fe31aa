package livefeed

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dratasich/livefeed-go-client/aggregate"
	"github.com/dratasich/livefeed-go-client/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

type fakeConn struct {
	messages chan []byte
	closed   chan struct{}
	once     sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{messages: make(chan []byte), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case payload := <-c.messages:
		return payload, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// fakeDialer hands out the connections pushed to conns, a nil entry fails the dial
type fakeDialer struct {
	conns chan *fakeConn
	dials atomic.Int32
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{conns: make(chan *fakeConn, 1)}
}

func (d *fakeDialer) Dial(ctx context.Context) (Conn, error) {
	d.dials.Add(1)
	select {
	case conn := <-d.conns:
		if conn == nil {
			return nil, errors.New("connection refused")
		}
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fakeTimer records requested delays and fires only when told to
type fakeTimer struct {
	delays chan time.Duration
	fire   chan time.Time
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{delays: make(chan time.Duration, 10), fire: make(chan time.Time)}
}

func (f *fakeTimer) after(d time.Duration) <-chan time.Time {
	f.delays <- d
	return f.fire
}

type harness struct {
	client *Client
	dialer *fakeDialer
	timer  *fakeTimer
	snaps  chan Snapshot
	now    time.Time
	cancel context.CancelFunc
	done   chan error
}

func fixture(t *testing.T, agg aggregate.Aggregate, opts ...Option) *harness {
	h := &harness{
		dialer: newFakeDialer(),
		timer:  newFakeTimer(),
		snaps:  make(chan Snapshot, 100),
		now:    time.Date(2025, time.September, 1, 16, 3, 22, 0, time.UTC),
		done:   make(chan error, 1),
	}
	opts = append([]Option{
		WithListener(func(s Snapshot) { h.snaps <- s }),
		WithClock(func() time.Time { return h.now }),
		WithTimer(h.timer.after),
	}, opts...)
	h.client = NewClient(h.dialer, agg, opts...)
	t.Cleanup(func() {
		if h.cancel != nil {
			h.cancel()
		}
	})
	return h
}

func (h *harness) start() {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.client.Run(ctx) }()
}

func (h *harness) next(t *testing.T) Snapshot {
	t.Helper()
	select {
	case s := <-h.snaps:
		return s
	case <-time.After(waitTimeout):
		t.Fatal("no snapshot received")
		return Snapshot{}
	}
}

func (h *harness) nextDelay(t *testing.T) time.Duration {
	t.Helper()
	select {
	case d := <-h.timer.delays:
		return d
	case <-time.After(waitTimeout):
		t.Fatal("no reconnect scheduled")
		return 0
	}
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.done:
		assert.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("client did not stop")
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Disconnected", Disconnected.String())
	assert.Equal(t, "Connecting", Connecting.String())
	assert.Equal(t, "Connected", Connected.String())
}

func TestEndToEnd(t *testing.T) {
	h := fixture(t, aggregate.NewLatest())
	assert.Equal(t, Disconnected, h.client.State())

	h.start()
	assert.Equal(t, Connecting, h.next(t).State)

	conn := newFakeConn()
	h.dialer.conns <- conn
	assert.Equal(t, Connected, h.next(t).State)

	conn.messages <- []byte(`{"groupName":"A","temperature":21.5}`)
	snap := h.next(t)
	assert.Equal(t, Connected, snap.State)
	require.Len(t, snap.Readings, 1)
	assert.Equal(t, events.Reading{Group: "A", Temperature: 21.5, ObservedAt: h.now}, snap.Readings[0])

	conn.Close()
	snap = h.next(t)
	assert.Equal(t, Disconnected, snap.State)
	assert.Len(t, snap.Readings, 1)
	assert.Equal(t, 3*time.Second, h.nextDelay(t))
	assert.Equal(t, Disconnected, h.client.State())

	// retry delay passes
	h.timer.fire <- time.Now()
	assert.Equal(t, Connecting, h.next(t).State)

	h.stop(t)
	assert.Equal(t, Disconnected, h.next(t).State)
	assert.Equal(t, int32(2), h.dialer.dials.Load())
}

func TestLatestPerGroup(t *testing.T) {
	h := fixture(t, aggregate.NewLatest())
	h.start()
	h.next(t)
	conn := newFakeConn()
	h.dialer.conns <- conn
	h.next(t)

	conn.messages <- []byte(`{"groupName":"A","temperature":21.5}`)
	h.next(t)
	conn.messages <- []byte(`{"groupName":"B","temperature":5}`)
	h.next(t)
	conn.messages <- []byte(`{"groupName":"A","temperature":19,"timestamp":"2025-09-01T15:00:00Z"}`)
	snap := h.next(t)

	require.Len(t, snap.Readings, 2)
	assert.Equal(t, "A", snap.Readings[0].Group)
	assert.Equal(t, 19.0, snap.Readings[0].Temperature)
	assert.True(t, snap.Readings[0].ObservedAt.Equal(time.Date(2025, time.September, 1, 15, 0, 0, 0, time.UTC)))
	assert.Equal(t, "B", snap.Readings[1].Group)

	h.stop(t)
}

func TestMalformedMessageIsDropped(t *testing.T) {
	h := fixture(t, aggregate.NewHistory(aggregate.DefaultHistorySize))
	h.start()
	h.next(t)
	conn := newFakeConn()
	h.dialer.conns <- conn
	h.next(t)

	conn.messages <- []byte(`{"groupName": "A", temperature}`)
	conn.messages <- []byte(`{"temperature": 4}`)
	conn.messages <- []byte(`{"groupName":"B","temperature":4}`)

	// only the valid message produces a snapshot
	snap := h.next(t)
	assert.Equal(t, Connected, snap.State)
	require.Len(t, snap.Readings, 1)
	assert.Equal(t, "B", snap.Readings[0].Group)
	assert.Equal(t, Connected, h.client.State())

	h.stop(t)
}

func TestHandleMessage(t *testing.T) {
	h := fixture(t, aggregate.NewLatest())

	err := h.client.HandleMessage([]byte(`not json`))
	assert.ErrorIs(t, err, events.ErrMalformed)
	assert.Empty(t, h.client.Snapshot().Readings)
	assert.Empty(t, h.snaps)

	require.NoError(t, h.client.HandleMessage([]byte(`{"groupName":"A","temperature":-3}`)))
	assert.Len(t, h.client.Snapshot().Readings, 1)
	assert.Equal(t, Disconnected, h.client.State())
}

func TestDialFailureSchedulesRetry(t *testing.T) {
	h := fixture(t, aggregate.NewLatest(), WithRetryDelay(1500*time.Millisecond))
	h.start()

	assert.Equal(t, Connecting, h.next(t).State)
	h.dialer.conns <- nil
	assert.Equal(t, Disconnected, h.next(t).State)
	assert.Equal(t, 1500*time.Millisecond, h.nextDelay(t))

	h.timer.fire <- time.Now()
	assert.Equal(t, Connecting, h.next(t).State)
	h.dialer.conns <- nil
	assert.Equal(t, Disconnected, h.next(t).State)
	assert.Equal(t, 1500*time.Millisecond, h.nextDelay(t))

	h.stop(t)
	assert.Equal(t, int32(2), h.dialer.dials.Load())
}

func TestTeardownClosesConnection(t *testing.T) {
	h := fixture(t, aggregate.NewLatest())
	h.start()
	h.next(t)
	conn := newFakeConn()
	h.dialer.conns <- conn
	assert.Equal(t, Connected, h.next(t).State)

	h.stop(t)

	select {
	case <-conn.closed:
	case <-time.After(waitTimeout):
		t.Fatal("connection not closed")
	}
	assert.Equal(t, Disconnected, h.next(t).State)
	assert.Empty(t, h.timer.delays, "no reconnect after teardown")
	assert.Equal(t, int32(1), h.dialer.dials.Load())
}

func TestRunTwice(t *testing.T) {
	h := fixture(t, aggregate.NewLatest())
	h.start()
	h.next(t)

	err := h.client.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	h.stop(t)
}

func TestNewClientFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = aggregate.ModeHistory
	cfg.HistorySize = 10
	cfg.RetryDelay = time.Second

	c, err := NewClientFromConfig(cfg)
	require.NoError(t, err)
	assert.IsType(t, &WebsocketDialer{}, c.dialer)
	assert.Equal(t, time.Second, c.retryDelay)
	require.IsType(t, &aggregate.History{}, c.aggregate)
	assert.Equal(t, 10, c.aggregate.(*aggregate.History).Capacity())

	cfg.Transport = "carrier-pigeon"
	_, err = NewClientFromConfig(cfg)
	assert.ErrorIs(t, err, ErrUnknownTransport)
}
