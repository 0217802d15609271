// Command genmock generates a reproducible stream of clock events from a
// simulated authoritative server whose clock is skewed from the device, along
// with the display each event should converge to. It uses the engine's
// domain package so the expectations match real behaviour.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -events-out data/mock/clock_events.json \
//	  -expect-out data/mock/clock_expected.json \
//	  [-skew 45m] [-count 20] [-brokers localhost:9092 -topic clock-events]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/clock-sync-engine/internal/domain"
)

var deviceStart = time.Date(2025, time.December, 21, 23, 58, 30, 0, time.UTC)

// expectation is the display an engine settles on after an event.
type expectation struct {
	Index          int    `json:"index"`
	Type           string `json:"type"`
	TargetOffsetMs int64  `json:"targetOffsetMs"`
	Time           string `json:"time"`
	Date           string `json:"date"`
	Constellation  string `json:"constellation"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	eventsOut := flag.String("events-out", "", "output path for the event envelope fixture")
	expectOut := flag.String("expect-out", "", "output path for the expected display fixture")
	skew := flag.Duration("skew", 45*time.Minute, "server clock minus device clock")
	count := flag.Int("count", 20, "number of time signals")
	interval := flag.Duration("interval", 30*time.Second, "device time between signals")
	tolerance := flag.Int("tolerance", domain.DefaultSkewToleranceMinutes, "skew tolerance in minutes")
	brokers := flag.String("brokers", "", "optional comma-separated Kafka brokers to produce the events to")
	topic := flag.String("topic", "clock-events", "Kafka topic used with -brokers")
	flag.Parse()

	if *eventsOut == "" || *expectOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -events-out, -expect-out")
	}

	device := clockwork.NewFakeClockAt(deviceStart)
	envs, expected, err := generate(device, *skew, *count, *interval, int64(*tolerance))
	if err != nil {
		return err
	}
	log.Printf("generated %d events across %s of device time", len(envs), device.Since(deviceStart))

	if err := writeJSON(*eventsOut, envs); err != nil {
		return fmt.Errorf("writing events fixture: %w", err)
	}
	log.Printf("wrote events fixture: %s", *eventsOut)

	if err := writeJSON(*expectOut, expected); err != nil {
		return fmt.Errorf("writing expected fixture: %w", err)
	}
	log.Printf("wrote expected fixture: %s", *expectOut)

	if *brokers != "" {
		if err := produce(strings.Split(*brokers, ","), *topic, envs); err != nil {
			return fmt.Errorf("producing to kafka: %w", err)
		}
		log.Printf("produced %d events to %s", len(envs), *topic)
	}
	return nil
}

// generate emits a structured signal every interval plus one settings change
// halfway through, advancing the device clock between events.
func generate(device *clockwork.FakeClock, skew time.Duration, count int, interval time.Duration, tolerance int64) ([]domain.Envelope, []expectation, error) {
	cfg := domain.DefaultClockConfig()
	envs := make([]domain.Envelope, 0, count+1)
	expected := make([]expectation, 0, count+1)
	var offset int64

	for i := range count {
		if i == count/2 {
			settings := map[string]any{
				domain.SettingMilitaryTime: true,
				domain.SettingDateFormat:   domain.DateLongMonthOrd,
			}
			env, err := envelope(domain.EventSettings, settings)
			if err != nil {
				return nil, nil, err
			}
			cfg = domain.ApplySettings(cfg, settings).Config
			envs = append(envs, env)
			expected = append(expected, expect(len(envs)-1, env.Type, device.Now(), offset, cfg))
		}

		local := domain.WallMillis(device.Now())
		server := local + skew.Milliseconds()
		env, err := envelope(domain.EventTime, map[string]any{"utcTime": server, "timezoneOffset": 0})
		if err != nil {
			return nil, nil, err
		}
		offset = domain.Reconcile(server, local, tolerance)
		envs = append(envs, env)
		expected = append(expected, expect(len(envs)-1, env.Type, device.Now(), offset, cfg))

		device.Advance(interval)
	}
	return envs, expected, nil
}

func envelope(kind string, payload any) (domain.Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return domain.Envelope{Type: kind, Payload: data}, nil
}

func expect(i int, kind string, now time.Time, offset int64, cfg domain.ClockConfig) expectation {
	shown := domain.WallTime(domain.WallMillis(now) + offset)
	td, dd, sign := domain.Render(shown, cfg)
	return expectation{
		Index:          i,
		Type:           kind,
		TargetOffsetMs: offset,
		Time:           td.Formatted,
		Date:           dd.Formatted,
		Constellation:  sign.Name,
	}
}

func produce(brokers []string, topic string, envs []domain.Envelope) error {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		AllowAutoTopicCreation: true,
	}
	defer w.Close()

	msgs := make([]kafkago.Message, len(envs))
	for i, env := range envs {
		data, err := json.Marshal(env)
		if err != nil {
			return err
		}
		msgs[i] = kafkago.Message{Key: []byte("genmock"), Value: data}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return w.WriteMessages(ctx, msgs...)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
