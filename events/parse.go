package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mitchellh/mapstructure"
)

var (
	ErrMalformed    = errors.New("malformed message")
	ErrMissingField = errors.New("missing field")
	ErrInvalidField = errors.New("invalid field")
)

// required keys of a temperature update
var requiredFields = []string{"groupName", "temperature"}

// accepted ISO-8601 forms; a nil location means local time, date-only
// values are midnight UTC like browsers read them
var timestampLayouts = []struct {
	layout string
	loc    *time.Location
}{
	{time.RFC3339Nano, nil},
	{"2006-01-02T15:04:05.999999999Z0700", nil},
	{"2006-01-02T15:04Z07:00", nil},
	{"2006-01-02T15:04Z0700", nil},
	{"2006-01-02T15:04:05.999999999", nil},
	{"2006-01-02T15:04", nil},
	{"2006-01-02 15:04:05", nil},
	{"2006-01-02", time.UTC},
}

// Parse a raw message into a temperature update
//
// The payload has to be a JSON object carrying `groupName` (string) and
// `temperature` (number). Values of the wrong type are not coerced.
func ParseTemperatureUpdate(payload []byte) (*TemperatureUpdate, error) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformed)
	}
	for _, key := range requiredFields {
		if v, ok := raw[key]; !ok || v == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, key)
		}
	}

	var update TemperatureUpdate
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &update,
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidField, err)
	}
	return &update, nil
}

// Convert the update into a reading, stamping it with receivedAt if the
// sender did not provide a timestamp
func (u TemperatureUpdate) Reading(receivedAt time.Time) (Reading, error) {
	if u.GroupName == "" {
		return Reading{}, fmt.Errorf("%w: groupName is empty", ErrInvalidField)
	}
	if math.IsNaN(u.Temperature) || math.IsInf(u.Temperature, 0) {
		return Reading{}, fmt.Errorf("%w: temperature %v", ErrInvalidField, u.Temperature)
	}

	observedAt := receivedAt
	if u.Timestamp != "" {
		ts, err := parseTimestamp(u.Timestamp)
		if err != nil {
			return Reading{}, err
		}
		observedAt = ts
	}

	return Reading{
		Group:       u.GroupName,
		Temperature: u.Temperature,
		ObservedAt:  observedAt,
	}, nil
}

// Decode a raw message straight into a reading
func DecodeReading(payload []byte, receivedAt time.Time) (Reading, error) {
	update, err := ParseTemperatureUpdate(payload)
	if err != nil {
		return Reading{}, err
	}
	return update.Reading(receivedAt)
}

func parseTimestamp(value string) (time.Time, error) {
	for _, l := range timestampLayouts {
		loc := l.loc
		if loc == nil {
			loc = time.Local
		}
		if ts, err := time.ParseInLocation(l.layout, value, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q is not ISO-8601", ErrInvalidField, value)
}
