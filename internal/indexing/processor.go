// Package indexing moves tick events from Kafka into the dynamic stores:
// batched inserts into ClickHouse and a refresh of the Redis quote cache.
package indexing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shubhsaxena/stock-search-assistant/internal/config"
	"github.com/shubhsaxena/stock-search-assistant/internal/models"
	"github.com/shubhsaxena/stock-search-assistant/internal/observability"
)

const (
	// Hard cap on buffered ticks while ClickHouse is unavailable.
	maxBufferSize = 50000
	// Bound on concurrent best-effort cache refreshes.
	maxAsyncWorkers = 128
)

type TickStore interface {
	InsertTicks(ctx context.Context, ticks []models.TickEvent) error
}

type QuoteCache interface {
	SetQuote(ctx context.Context, q *models.Quote) error
}

type StreamProcessor struct {
	store  TickStore
	cache  QuoteCache
	cfg    config.KafkaConfig
	logger *zap.Logger

	// Bulk buffer
	mu     sync.Mutex
	buffer []models.TickEvent
	ticker *time.Ticker
	done   chan struct{}

	workers chan struct{}
}

func NewStreamProcessor(
	store TickStore,
	cache QuoteCache,
	cfg config.KafkaConfig,
	logger *zap.Logger,
) *StreamProcessor {
	sp := &StreamProcessor{
		store:   store,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
		buffer:  make([]models.TickEvent, 0, cfg.BatchSize),
		ticker:  time.NewTicker(cfg.BatchTimeout),
		done:    make(chan struct{}),
		workers: make(chan struct{}, maxAsyncWorkers),
	}

	go sp.flushLoop()

	return sp
}

func (sp *StreamProcessor) HandleEvent(ctx context.Context, event *models.TickEvent) error {
	if event.Symbol == "" {
		return fmt.Errorf("tick event missing symbol")
	}

	sp.mu.Lock()
	if len(sp.buffer) >= maxBufferSize {
		sp.mu.Unlock()
		observability.TickEventsTotal.WithLabelValues("tick", "dropped").Inc()
		return fmt.Errorf("tick buffer full (%d events)", maxBufferSize)
	}
	sp.buffer = append(sp.buffer, *event)
	shouldFlush := len(sp.buffer) >= sp.cfg.BatchSize
	sp.mu.Unlock()

	if shouldFlush {
		if err := sp.flush(ctx); err != nil {
			sp.logger.Error("flush on buffer full failed", zap.Error(err))
		}
	}

	// Refresh the quote cache so single-stock price reads see the new
	// tick before the ClickHouse batch lands. Best effort.
	if sp.cache != nil {
		select {
		case sp.workers <- struct{}{}:
			go func(q models.Quote) {
				defer func() { <-sp.workers }()
				cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := sp.cache.SetQuote(cacheCtx, &q); err != nil {
					sp.logger.Warn("quote cache refresh failed",
						zap.String("symbol", q.Symbol),
						zap.Error(err),
					)
				}
			}(quoteFromTick(event))
		default:
			// Worker pool saturated; the periodic flush still lands
			// the tick in ClickHouse.
		}
	}

	return nil
}

func quoteFromTick(event *models.TickEvent) models.Quote {
	return models.Quote{
		Symbol:        event.Symbol,
		Timestamp:     event.Timestamp,
		Price:         event.Price,
		Change:        event.Change,
		ChangePercent: event.ChangePercent,
	}
}

func (sp *StreamProcessor) flushLoop() {
	for {
		select {
		case <-sp.ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := sp.flush(ctx); err != nil {
				sp.logger.Error("periodic flush failed", zap.Error(err))
			}
			cancel()
		case <-sp.done:
			return
		}
	}
}

func (sp *StreamProcessor) flush(ctx context.Context) error {
	sp.mu.Lock()
	if len(sp.buffer) == 0 {
		sp.mu.Unlock()
		return nil
	}
	batch := make([]models.TickEvent, len(sp.buffer))
	copy(batch, sp.buffer)
	sp.buffer = sp.buffer[:0]
	sp.mu.Unlock()

	start := time.Now()
	if err := sp.store.InsertTicks(ctx, batch); err != nil {
		// Put failed items back into buffer for retry
		sp.mu.Lock()
		sp.buffer = append(batch, sp.buffer...)
		if len(sp.buffer) > maxBufferSize {
			dropped := len(sp.buffer) - maxBufferSize
			sp.buffer = sp.buffer[:maxBufferSize]
			observability.TickEventsTotal.WithLabelValues("tick", "dropped").Add(float64(dropped))
		}
		sp.mu.Unlock()

		observability.TickEventsTotal.WithLabelValues("bulk", "error").Inc()
		return fmt.Errorf("tick batch flush: %w", err)
	}

	observability.TickEventsTotal.WithLabelValues("bulk", "success").Add(float64(len(batch)))
	sp.logger.Info("tick batch flushed",
		zap.Int("count", len(batch)),
		zap.Duration("duration", time.Since(start)),
	)

	return nil
}

func (sp *StreamProcessor) Stop() error {
	sp.ticker.Stop()
	close(sp.done)

	// Final flush
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return sp.flush(ctx)
}
