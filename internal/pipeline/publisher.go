package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/clock-sync-engine/internal/domain"
	"github.com/couchcryptid/clock-sync-engine/internal/observability"
)

const drainTimeout = 2 * time.Second

// BatchLoader writes display snapshots to a sink. Implementations must not
// retain the slice after returning.
type BatchLoader interface {
	LoadBatch(ctx context.Context, states []domain.DisplayState) error
}

// Publisher batches display snapshots and flushes them to every loader when
// the batch is full or the flush interval elapses.
type Publisher struct {
	loaders       []BatchLoader
	clock         clockwork.Clock
	logger        *slog.Logger
	metrics       *observability.Metrics
	batchSize     int
	flushInterval time.Duration
	queue         chan domain.DisplayState
}

// NewPublisher creates a Publisher. A nil clock uses real time.
func NewPublisher(clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, batchSize int, flushInterval time.Duration, loaders ...BatchLoader) *Publisher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &Publisher{
		loaders:       loaders,
		clock:         clock,
		logger:        logger,
		metrics:       metrics,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		queue:         make(chan domain.DisplayState, batchSize*4),
	}
}

// Enqueue queues a snapshot without blocking. When the queue is full the
// oldest queued snapshot is dropped, since newer snapshots supersede it.
func (p *Publisher) Enqueue(state domain.DisplayState) {
	for {
		select {
		case p.queue <- state:
			return
		default:
		}
		select {
		case <-p.queue:
			p.logger.Debug("display queue full, dropped oldest snapshot")
		default:
		}
	}
}

// Run flushes queued snapshots until ctx is cancelled, then drains what is
// left within a short deadline.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info("display publisher started",
		"batch_size", p.batchSize,
		"flush_interval", p.flushInterval,
		"sinks", len(p.loaders),
	)

	ticker := p.clock.NewTicker(p.flushInterval)
	defer ticker.Stop()

	batch := make([]domain.DisplayState, 0, p.batchSize)
	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
			defer cancel()
			p.flush(drainCtx, p.drain(batch))
			p.logger.Info("display publisher stopped")
			return nil
		case s := <-p.queue:
			batch = append(batch, s)
			if len(batch) >= p.batchSize {
				p.flush(ctx, batch)
				batch = make([]domain.DisplayState, 0, p.batchSize)
			}
		case <-ticker.Chan():
			if len(batch) > 0 {
				p.flush(ctx, batch)
				batch = make([]domain.DisplayState, 0, p.batchSize)
			}
		}
	}
}

func (p *Publisher) drain(batch []domain.DisplayState) []domain.DisplayState {
	for {
		select {
		case s := <-p.queue:
			batch = append(batch, s)
		default:
			return batch
		}
	}
}

func (p *Publisher) flush(ctx context.Context, batch []domain.DisplayState) {
	if len(batch) == 0 {
		return
	}
	for _, l := range p.loaders {
		if err := l.LoadBatch(ctx, batch); err != nil {
			p.logger.Error("publish display batch failed", "error", err, "batch_size", len(batch))
			continue
		}
		p.metrics.MessagesProduced.Add(float64(len(batch)))
	}
}
