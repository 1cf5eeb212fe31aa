// Package aggregate keeps the readings a live feed shows.
//
// Implementations are not safe for concurrent use; the owner serializes
// access.
package aggregate

import (
	"errors"
	"fmt"

	"github.com/dratasich/livefeed-go-client/events"
)

// Aggregation policy
type Mode string

const (
	// newest reading per group
	ModeLatest Mode = "latest"
	// most recent readings across all groups, newest first
	ModeHistory Mode = "history"

	DefaultHistorySize = 50
)

var ErrUnknownMode = errors.New("unknown aggregation mode")

type Aggregate interface {
	Add(r events.Reading)
	// Readings in render order
	Readings() []events.Reading
	Len() int
}

// New returns an empty aggregate for the given mode. historySize is only
// used by ModeHistory; values below 1 fall back to DefaultHistorySize.
func New(mode Mode, historySize int) (Aggregate, error) {
	switch mode {
	case ModeLatest:
		return NewLatest(), nil
	case ModeHistory:
		return NewHistory(historySize), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}
