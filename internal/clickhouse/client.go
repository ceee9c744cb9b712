// Package clickhouse backs the dynamic side of the catalog: tick-level
// price history and query performance analytics.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/shubhsaxena/stock-search-assistant/internal/config"
	"github.com/shubhsaxena/stock-search-assistant/internal/models"
	"github.com/shubhsaxena/stock-search-assistant/internal/observability"
)

type Client struct {
	conn   driver.Conn
	logger *zap.Logger
}

func NewClient(cfg config.ClickHouseConfig, logger *zap.Logger) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addresses,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": int(cfg.QueryTimeout.Seconds()),
		},
		DialTimeout:  cfg.DialTimeout,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("opening clickhouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging clickhouse: %w", err)
	}

	logger.Info("clickhouse client connected", zap.Strings("addresses", cfg.Addresses))

	return &Client{
		conn:   conn,
		logger: logger,
	}, nil
}

// tickColumns maps API-level quote field names to table columns. Only
// fields named here are queryable, which also keeps identifiers out of
// user-controlled input.
var tickColumns = map[string]string{
	"price":          "price",
	"change":         "change",
	"change_percent": "change_percent",
}

// LatestQuote returns the most recent tick for a symbol.
func (c *Client) LatestQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	ctx, span := observability.StartSpan(ctx, "ch.latest_quote",
		attribute.String("symbol", symbol),
	)
	defer span.End()

	start := time.Now()

	query := `
		SELECT symbol, timestamp, price, change, change_percent
		FROM stock_ticks
		WHERE symbol = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`

	row := c.conn.QueryRow(ctx, query, symbol)

	var q models.Quote
	if err := row.Scan(&q.Symbol, &q.Timestamp, &q.Price, &q.Change, &q.ChangePercent); err != nil {
		observability.CHQueryDuration.WithLabelValues("latest_quote", "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("ch latest quote (symbol=%s): %w", symbol, err)
	}

	observability.CHQueryDuration.WithLabelValues("latest_quote", "success").Observe(time.Since(start).Seconds())
	return &q, nil
}

// AggregateQuote computes min or max of one tick field over a symbol's
// full history.
func (c *Client) AggregateQuote(ctx context.Context, symbol, field, agg string) (float64, error) {
	column, ok := tickColumns[field]
	if !ok {
		return 0, fmt.Errorf("unknown quote field %q", field)
	}
	if agg != "min" && agg != "max" {
		return 0, fmt.Errorf("unsupported aggregation %q", agg)
	}

	ctx, span := observability.StartSpan(ctx, "ch.aggregate_quote",
		attribute.String("symbol", symbol),
		attribute.String("agg", agg),
	)
	defer span.End()

	start := time.Now()

	query := fmt.Sprintf(`
		SELECT %s(%s)
		FROM stock_ticks
		WHERE symbol = ?
	`, agg, column)

	row := c.conn.QueryRow(ctx, query, symbol)

	var value float64
	if err := row.Scan(&value); err != nil {
		observability.CHQueryDuration.WithLabelValues("aggregate_quote", "error").Observe(time.Since(start).Seconds())
		return 0, fmt.Errorf("ch aggregate quote (symbol=%s %s %s): %w", symbol, agg, field, err)
	}

	observability.CHQueryDuration.WithLabelValues("aggregate_quote", "success").Observe(time.Since(start).Seconds())
	return value, nil
}

// InsertTicks writes a batch of tick events in one round trip.
func (c *Client) InsertTicks(ctx context.Context, ticks []models.TickEvent) error {
	if len(ticks) == 0 {
		return nil
	}

	ctx, span := observability.StartSpan(ctx, "ch.insert_ticks",
		attribute.Int("batch_size", len(ticks)),
	)
	defer span.End()

	start := time.Now()

	batch, err := c.conn.PrepareBatch(ctx, `
		INSERT INTO stock_ticks (symbol, timestamp, price, change, change_percent)
	`)
	if err != nil {
		observability.CHQueryDuration.WithLabelValues("insert_ticks", "error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("preparing tick batch: %w", err)
	}

	for _, t := range ticks {
		if err := batch.Append(t.Symbol, t.Timestamp, t.Price, t.Change, t.ChangePercent); err != nil {
			observability.CHQueryDuration.WithLabelValues("insert_ticks", "error").Observe(time.Since(start).Seconds())
			return fmt.Errorf("appending tick (symbol=%s): %w", t.Symbol, err)
		}
	}

	if err := batch.Send(); err != nil {
		observability.CHQueryDuration.WithLabelValues("insert_ticks", "error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("sending tick batch: %w", err)
	}

	observability.CHQueryDuration.WithLabelValues("insert_ticks", "success").Observe(time.Since(start).Seconds())
	return nil
}

func (c *Client) WriteQueryPerformance(ctx context.Context, event *models.AnalyticsEvent) error {
	query := `
		INSERT INTO query_performance (
			event_type, query_hash, query_mode, duration_ms,
			total_hits, timestamp, trace_id, source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	return c.conn.Exec(ctx, query,
		event.EventType,
		event.QueryHash,
		event.QueryMode,
		event.DurationMs,
		event.TotalHits,
		event.Timestamp,
		event.TraceID,
		event.Source,
	)
}

func (c *Client) HealthCheck(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) EnsureTables(ctx context.Context) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS stock_ticks (
			symbol String,
			timestamp DateTime64(3),
			price Float64,
			change Float64,
			change_percent Float64
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMMDD(timestamp)
		ORDER BY (symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS query_performance (
			event_type String,
			query_hash String,
			query_mode String,
			duration_ms Float64,
			total_hits Int64,
			timestamp DateTime,
			trace_id String,
			source String
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(timestamp)
		ORDER BY (timestamp, query_hash)`,
	}

	for _, ddl := range tables {
		if err := c.conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}
	}

	c.logger.Info("clickhouse tables ensured")
	return nil
}
