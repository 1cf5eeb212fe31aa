// Package view renders a snapshot of the feed. Render is pure; the writers
// turn its result into HTML or terminal text.
package view

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dratasich/livefeed-go-client/events"
)

const (
	TimestampLayout = "Jan 2, 03:04:05 PM"

	placeholderTitle = "Waiting for temperature data..."
)

type Status struct {
	Connected bool
}

func (s Status) Text() string {
	if s.Connected {
		return "Connected"
	}
	return "Disconnected"
}

// CSS class of the status indicator
func (s Status) Class() string {
	if s.Connected {
		return "connected"
	}
	return "disconnected"
}

type Card struct {
	Group       string
	Color       string
	Timestamp   string
	Temperature string
	// width of the temperature bar in percent, 0..100
	Bar float64
}

type Placeholder struct {
	Title    string
	Subtitle string
}

// Page is everything a dashboard shows at one point in time
type Page struct {
	Title       string
	Status      Status
	Cards       []Card
	Placeholder *Placeholder
}

type Options struct {
	// section heading
	Title string
	// shown in the placeholder hint
	Endpoint string
	// timestamps are shown in this zone, time.Local if nil
	Location *time.Location
}

// Render builds a page from the connection status and the current readings.
// Calling it twice with the same input gives the same page.
func Render(connected bool, readings []events.Reading, opts Options) Page {
	page := Page{
		Title:  opts.Title,
		Status: Status{Connected: connected},
	}
	if len(readings) == 0 {
		page.Placeholder = &Placeholder{
			Title:    placeholderTitle,
			Subtitle: "Make sure your WebSocket server is running at " + opts.Endpoint,
		}
		return page
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	page.Cards = make([]Card, 0, len(readings))
	for _, r := range readings {
		page.Cards = append(page.Cards, Card{
			Group:       r.Group,
			Color:       GroupColor(r.Group),
			Timestamp:   FormatTimestamp(r.ObservedAt, loc),
			Temperature: FormatTemperature(r.Temperature),
			Bar:         BarWidth(r.Temperature),
		})
	}
	return page
}

func FormatTimestamp(ts time.Time, loc *time.Location) string {
	return ts.In(loc).Format(TimestampLayout)
}

// FormatTemperature prints the shortest form of the value, switching to
// exponent notation (1e+21, 1e-7) outside 1e-6 <= |v| < 1e21 as browsers do
func FormatTemperature(celsius float64) string {
	abs := math.Abs(celsius)
	if math.IsNaN(abs) || math.IsInf(abs, 0) || (abs < 1e21 && (abs >= 1e-6 || celsius == 0)) {
		return strconv.FormatFloat(celsius, 'f', -1, 64) + "°C"
	}
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(celsius, 'e', -1, 64), "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + digits + "°C"
}

// BarWidth maps -20°C..30°C linearly onto 0..100 percent
func BarWidth(celsius float64) float64 {
	return math.Min(100, math.Max(0, (celsius+20)*2))
}
