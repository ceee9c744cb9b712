// Command tickloader replays a CSV of price ticks into the ingest topic.
// Intended for backfills and local development seeding.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/shubhsaxena/stock-search-assistant/internal/config"
	"github.com/shubhsaxena/stock-search-assistant/internal/kafka"
	"github.com/shubhsaxena/stock-search-assistant/internal/models"
	"github.com/shubhsaxena/stock-search-assistant/internal/observability"
)

const publishChunkSize = 500

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	csvPath := flag.String("file", "", "CSV file with columns: symbol,timestamp,price,change,change_percent")
	flag.Parse()

	if err := run(*configPath, *csvPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, csvPath string) error {
	if csvPath == "" {
		return fmt.Errorf("-file is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", csvPath, err)
	}
	defer f.Close()

	producer := kafka.NewProducer(cfg.Kafka, logger)
	defer producer.Close()

	ctx := context.Background()
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 5

	var batch []*models.TickEvent
	var total, skipped int
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading csv line %d: %w", line+1, err)
		}
		line++

		// Skip a header row if present
		if line == 1 && record[0] == "symbol" {
			continue
		}

		event, err := parseTick(record)
		if err != nil {
			logger.Warn("skipping malformed row",
				zap.Int("line", line),
				zap.Error(err),
			)
			skipped++
			continue
		}

		batch = append(batch, event)
		if len(batch) >= publishChunkSize {
			if err := producer.PublishBatch(ctx, batch); err != nil {
				return fmt.Errorf("publishing batch at line %d: %w", line, err)
			}
			total += len(batch)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := producer.PublishBatch(ctx, batch); err != nil {
			return fmt.Errorf("publishing final batch: %w", err)
		}
		total += len(batch)
	}

	logger.Info("tick load complete",
		zap.Int("published", total),
		zap.Int("skipped", skipped),
	)
	return nil
}

func parseTick(record []string) (*models.TickEvent, error) {
	if record[0] == "" {
		return nil, fmt.Errorf("empty symbol")
	}

	ts, err := time.Parse(time.RFC3339, record[1])
	if err != nil {
		return nil, fmt.Errorf("timestamp %q: %w", record[1], err)
	}

	price, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return nil, fmt.Errorf("price %q: %w", record[2], err)
	}

	change, err := strconv.ParseFloat(record[3], 64)
	if err != nil {
		return nil, fmt.Errorf("change %q: %w", record[3], err)
	}

	changePct, err := strconv.ParseFloat(record[4], 64)
	if err != nil {
		return nil, fmt.Errorf("change_percent %q: %w", record[4], err)
	}

	return &models.TickEvent{
		Symbol:        record[0],
		Timestamp:     ts,
		Price:         price,
		Change:        change,
		ChangePercent: changePct,
	}, nil
}
