// Package firestore reads company profile documents used to enrich
// search hits with fields the static index does not carry.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/shubhsaxena/stock-search-assistant/internal/config"
	"github.com/shubhsaxena/stock-search-assistant/internal/models"
	"github.com/shubhsaxena/stock-search-assistant/internal/observability"
)

type Client struct {
	client *firestore.Client
	cfg    config.FirestoreConfig
	logger *zap.Logger
}

func NewClient(ctx context.Context, cfg config.FirestoreConfig, logger *zap.Logger) (*Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	logger.Info("firestore client connected", zap.String("project", cfg.ProjectID))

	return &Client{
		client: client,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// GetProfile fetches one company profile document keyed by symbol.
func (c *Client) GetProfile(ctx context.Context, symbol string) (map[string]any, error) {
	ctx, span := observability.StartSpan(ctx, "firestore.get_profile",
		attribute.String("symbol", symbol),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	doc, err := c.client.Collection(c.cfg.Collection).Doc(symbol).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore get profile %s: %w", symbol, err)
	}

	return doc.Data(), nil
}

func (c *Client) GetProfiles(ctx context.Context, symbols []string) (map[string]map[string]any, error) {
	ctx, span := observability.StartSpan(ctx, "firestore.get_profiles",
		attribute.Int("count", len(symbols)),
	)
	defer span.End()

	result := make(map[string]map[string]any, len(symbols))

	batchSize := c.cfg.MaxBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	for i := 0; i < len(symbols); i += batchSize {
		end := i + batchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batch := symbols[i:end]

		// Each batch gets its own timeout so sequential batches don't starve.
		batchCtx, batchCancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)

		refs := make([]*firestore.DocumentRef, len(batch))
		for j, symbol := range batch {
			refs[j] = c.client.Collection(c.cfg.Collection).Doc(symbol)
		}

		docs, err := c.client.GetAll(batchCtx, refs)
		batchCancel()
		if err != nil {
			return nil, fmt.Errorf("firestore get_all batch %d: %w", i/batchSize, err)
		}

		for _, doc := range docs {
			if doc.Exists() {
				result[doc.Ref.ID] = doc.Data()
			}
		}
	}

	return result, nil
}

// HydrateResults merges profile fields into search hits. Hydration is
// best effort: a profile store outage never fails the search.
func (c *Client) HydrateResults(ctx context.Context, results []models.StockResult) ([]models.StockResult, error) {
	if len(results) == 0 {
		return results, nil
	}

	symbols := make([]string, 0, len(results))
	for _, r := range results {
		if r.Symbol != "" {
			symbols = append(symbols, r.Symbol)
		}
	}
	if len(symbols) == 0 {
		return results, nil
	}

	profiles, err := c.GetProfiles(ctx, symbols)
	if err != nil {
		c.logger.Warn("hydration failed, returning unhydrated results", zap.Error(err))
		return results, nil
	}

	for i, r := range results {
		if profile, ok := profiles[r.Symbol]; ok {
			if results[i].Fields == nil {
				results[i].Fields = make(map[string]any)
			}
			for k, v := range profile {
				results[i].Fields[k] = v
			}
		}
	}

	return results, nil
}

type ProfileListener struct {
	client     *firestore.Client
	collection string
	logger     *zap.Logger
	handler    func(context.Context, *models.ProfileEvent) error
}

// NewProfileListener watches the profile collection so callers can react
// to profile edits, e.g. by dropping cached search responses.
func (c *Client) NewProfileListener(handler func(context.Context, *models.ProfileEvent) error) *ProfileListener {
	return &ProfileListener{
		client:     c.client,
		collection: c.cfg.Collection,
		logger:     c.logger,
		handler:    handler,
	}
}

func (pl *ProfileListener) Listen(ctx context.Context) error {
	snapIter := pl.client.Collection(pl.collection).Snapshots(ctx)
	defer snapIter.Stop()

	for {
		snap, err := snapIter.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			pl.logger.Error("snapshot iterator error", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		for _, change := range snap.Changes {
			var eventType string
			switch change.Kind {
			case firestore.DocumentAdded:
				eventType = "CREATE"
			case firestore.DocumentModified:
				eventType = "UPDATE"
			case firestore.DocumentRemoved:
				eventType = "DELETE"
			}

			event := &models.ProfileEvent{
				Type:      eventType,
				Symbol:    change.Doc.Ref.ID,
				Data:      change.Doc.Data(),
				Timestamp: time.Now().UTC(),
			}

			if err := pl.handler(ctx, event); err != nil {
				pl.logger.Error("profile event handler error",
					zap.String("symbol", event.Symbol),
					zap.String("type", eventType),
					zap.Error(err),
				)
			}
		}
	}
}

func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	iter := c.client.Collection("_health_check").Limit(1).Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	// iterator.Done means the collection is empty, Firestore is reachable.
	if err != nil && err != iterator.Done {
		return fmt.Errorf("firestore health check: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
