package livefeed

import "context"

// Conn is one open connection to the telemetry source
type Conn interface {
	// ReadMessage blocks until the next message arrives. Any error ends
	// the connection.
	ReadMessage() ([]byte, error)
	// Close may be called concurrently with ReadMessage and more than once
	Close() error
}

type Dialer interface {
	// Dial opens a connection; there is no timeout apart from ctx
	Dial(ctx context.Context) (Conn, error)
}
