package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/clock-sync-engine/internal/domain"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("desk-1"),
		Value:     []byte(`{"utcTime":1766757900000}`),
		Topic:     "clock-events",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: domain.HeaderEventType, Value: []byte(domain.EventTime)},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("desk-1"), raw.Key)
	assert.JSONEq(t, `{"utcTime":1766757900000}`, string(raw.Value))
	assert.Equal(t, "clock-events", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, domain.EventTime, raw.Headers[domain.HeaderEventType])
	assert.Nil(t, raw.Commit, "commit is attached by the reader")

	env, err := domain.DecodeRawEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.EventTime, env.Type)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2025, 12, 26, 14, 5, 0, 0, time.UTC)
	state := domain.DisplayState{
		Seq:       9,
		Time:      domain.TimeData{Hours: "2", Minutes: "05", AmPm: "PM", Formatted: "2:05 PM"},
		Date:      domain.DateData{Formatted: "December 26 2025", DayName: "Friday"},
		Settings:  domain.DefaultClockConfig(),
		UpdatedAt: now,
	}

	msg, err := serializeToMessage("instance-1", state)
	require.NoError(t, err)

	assert.Equal(t, []byte("instance-1"), msg.Key)
	assert.Equal(t, now, msg.Time)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, domain.HeaderEventType, msg.Headers[0].Key)
	assert.Equal(t, []byte(EventDisplay), msg.Headers[0].Value)
	assert.Equal(t, "published_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2025-12-26T14:05:00Z"), msg.Headers[1].Value)
	assert.Equal(t, []byte("9"), msg.Headers[2].Value)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "2:05 PM", body["timeData"].(map[string]any)["formatted"])
	assert.Equal(t, "Friday", body["dateData"].(map[string]any)["dayName"])
}

type fakeFetcher struct {
	msgs      []kafkago.Message
	err       error
	committed []kafkago.Message
}

func (f *fakeFetcher) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	if len(f.msgs) > 0 {
		msg := f.msgs[0]
		f.msgs = f.msgs[1:]
		return msg, nil
	}
	if f.err != nil {
		err := f.err
		f.err = nil
		return kafkago.Message{}, err
	}
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (f *fakeFetcher) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeFetcher) Close() error { return nil }

func newTestReader(f *fakeFetcher) *Reader {
	return &Reader{
		reader:        f,
		flushInterval: 20 * time.Millisecond,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestExtractBatch_FlushIntervalReturnsPartialBatch(t *testing.T) {
	f := &fakeFetcher{msgs: []kafkago.Message{{Offset: 1}, {Offset: 2}}}
	r := newTestReader(f)

	batch, err := r.ExtractBatch(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	require.NoError(t, batch[1].Commit(context.Background()))
	require.Len(t, f.committed, 1)
	assert.Equal(t, int64(2), f.committed[0].Offset)
}

func TestExtractBatch_FetchErrorAfterPartialBatch(t *testing.T) {
	brokerDown := errors.New("broker down")
	f := &fakeFetcher{msgs: []kafkago.Message{{Offset: 7}}, err: brokerDown}
	r := newTestReader(f)

	batch, err := r.ExtractBatch(context.Background(), 5)
	require.NoError(t, err, "fetched messages are handed over first")
	require.Len(t, batch, 1)
	assert.Equal(t, int64(7), batch[0].Offset)

	batch, err = r.ExtractBatch(context.Background(), 5)
	require.ErrorIs(t, err, brokerDown)
	assert.Empty(t, batch)

	batch, err = r.ExtractBatch(context.Background(), 5)
	require.NoError(t, err, "the error is reported once")
	assert.Empty(t, batch)
}

func TestExtractBatch_FetchErrorOnEmptyBatch(t *testing.T) {
	brokerDown := errors.New("broker down")
	r := newTestReader(&fakeFetcher{err: brokerDown})

	batch, err := r.ExtractBatch(context.Background(), 5)
	require.ErrorIs(t, err, brokerDown)
	assert.Nil(t, batch)
}
