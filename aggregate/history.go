package aggregate

import "github.com/dratasich/livefeed-go-client/events"

// History keeps the last readings regardless of group, newest first
type History struct {
	capacity int
	readings []events.Reading
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultHistorySize
	}
	return &History{
		capacity: capacity,
		readings: make([]events.Reading, 0, capacity),
	}
}

// Add prepends r and drops the oldest readings beyond capacity
func (h *History) Add(r events.Reading) {
	if len(h.readings) < h.capacity {
		h.readings = append(h.readings, events.Reading{})
	}
	copy(h.readings[1:], h.readings)
	h.readings[0] = r
}

func (h *History) Readings() []events.Reading {
	readings := make([]events.Reading, len(h.readings))
	copy(readings, h.readings)
	return readings
}

func (h *History) Len() int {
	return len(h.readings)
}

func (h *History) Capacity() int {
	return h.capacity
}
