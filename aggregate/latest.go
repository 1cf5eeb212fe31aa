package aggregate

import "github.com/dratasich/livefeed-go-client/events"

// Latest keeps the most recently processed reading of each group.
// Groups are listed in the order they were first seen.
type Latest struct {
	byGroup map[string]events.Reading
	order   []string
}

func NewLatest() *Latest {
	return &Latest{byGroup: make(map[string]events.Reading)}
}

func (l *Latest) Add(r events.Reading) {
	if _, seen := l.byGroup[r.Group]; !seen {
		l.order = append(l.order, r.Group)
	}
	l.byGroup[r.Group] = r
}

func (l *Latest) Get(group string) (events.Reading, bool) {
	r, ok := l.byGroup[group]
	return r, ok
}

func (l *Latest) Readings() []events.Reading {
	readings := make([]events.Reading, 0, len(l.order))
	for _, group := range l.order {
		readings = append(readings, l.byGroup[group])
	}
	return readings
}

func (l *Latest) Len() int {
	return len(l.order)
}
