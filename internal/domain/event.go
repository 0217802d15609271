package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Event types carried in an Envelope.
const (
	EventTime     = "time"
	EventSettings = "settings"
)

// HeaderEventType names the transport header that may carry the event type
// when the message value is a bare payload.
const HeaderEventType = "event_type"

var (
	// ErrMalformedSignal is returned for time signals that are neither a
	// display string nor a structured payload with a numeric utcTime.
	ErrMalformedSignal = errors.New("malformed time signal")

	// ErrUnknownEvent is returned for envelopes with an unrecognised type.
	ErrUnknownEvent = errors.New("unknown event type")
)

// RawEvent represents an unprocessed message from a source transport.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Envelope is the wire shape shared by every inbound event.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// TimeSignal is an authoritative time event. Exactly one of Display or the
// structured fields is meaningful, as reported by IsLegacy.
type TimeSignal struct {
	Display        string
	UTCTime        int64 // epoch milliseconds
	TimezoneOffset int   // minutes west of UTC
	legacy         bool
}

// LegacySignal builds a pre-formatted display signal.
func LegacySignal(display string) TimeSignal {
	return TimeSignal{Display: display, legacy: true}
}

// StructuredSignal builds a structured signal.
func StructuredSignal(utcMillis int64, timezoneOffset int) TimeSignal {
	return TimeSignal{UTCTime: utcMillis, TimezoneOffset: timezoneOffset}
}

// IsLegacy reports whether the signal is a pre-formatted display string.
func (s TimeSignal) IsLegacy() bool { return s.legacy }

// WallMillis returns the authoritative instant in wall milliseconds.
func (s TimeSignal) WallMillis() int64 {
	return s.UTCTime - int64(s.TimezoneOffset)*60_000
}

// ParseEnvelope decodes a JSON envelope.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("parse envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, errors.New("parse envelope: missing type")
	}
	return env, nil
}

// DecodeRawEvent extracts the envelope from a transport message. An
// event_type header marks the value as a bare payload; otherwise the value
// must be a full envelope.
func DecodeRawEvent(raw RawEvent) (Envelope, error) {
	if t := raw.Headers[HeaderEventType]; t != "" {
		return Envelope{Type: t, Payload: raw.Value}, nil
	}
	return ParseEnvelope(raw.Value)
}

type structuredPayload struct {
	UTCTime        *float64 `json:"utcTime"`
	TimezoneOffset *float64 `json:"timezoneOffset"`
}

// ParseTimeSignal decodes a time payload: a JSON string (legacy) or an object
// with a numeric utcTime and optional timezoneOffset.
func ParseTimeSignal(payload json.RawMessage) (TimeSignal, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return TimeSignal{}, fmt.Errorf("%w: empty payload", ErrMalformedSignal)
	}

	if payload[0] == '"' {
		var display string
		if err := json.Unmarshal(payload, &display); err != nil {
			return TimeSignal{}, fmt.Errorf("%w: %v", ErrMalformedSignal, err)
		}
		if display == "" {
			return TimeSignal{}, fmt.Errorf("%w: empty display string", ErrMalformedSignal)
		}
		return LegacySignal(display), nil
	}

	var p structuredPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return TimeSignal{}, fmt.Errorf("%w: %v", ErrMalformedSignal, err)
	}
	if p.UTCTime == nil || !finite(*p.UTCTime) {
		return TimeSignal{}, fmt.Errorf("%w: missing utcTime", ErrMalformedSignal)
	}
	offset := 0
	if p.TimezoneOffset != nil {
		if !finite(*p.TimezoneOffset) || math.Abs(*p.TimezoneOffset) > 24*60 {
			return TimeSignal{}, fmt.Errorf("%w: timezoneOffset out of range", ErrMalformedSignal)
		}
		offset = int(*p.TimezoneOffset)
	}
	return StructuredSignal(int64(*p.UTCTime), offset), nil
}

// ParseSettings decodes a settings payload into a flat id → value mapping.
// Both condensed maps and full setting objects ({"value": ...}) are accepted.
func ParseSettings(payload json.RawMessage) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	if raw == nil {
		return nil, errors.New("parse settings: empty payload")
	}
	return CondenseSettings(raw), nil
}

// CondenseSettings unwraps full setting objects to their values.
func CondenseSettings(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for id, v := range raw {
		if obj, ok := v.(map[string]any); ok {
			if inner, ok := obj["value"]; ok {
				out[id] = inner
				continue
			}
		}
		out[id] = v
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
