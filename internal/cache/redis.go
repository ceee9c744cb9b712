package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shubhsaxena/stock-search-assistant/internal/config"
	"github.com/shubhsaxena/stock-search-assistant/internal/models"
	"github.com/shubhsaxena/stock-search-assistant/internal/observability"
)

type RedisCache struct {
	client redis.UniversalClient
	ttl    config.CacheTTLConfig
	logger *zap.Logger
}

func NewRedisCache(cfg config.RedisConfig, logger *zap.Logger) (*RedisCache, error) {
	var client redis.UniversalClient

	if len(cfg.Addresses) > 1 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.Addresses,
			Password:     cfg.Password,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:         cfg.Addresses[0],
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("redis cache connected", zap.Strings("addresses", cfg.Addresses))

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

func (rc *RedisCache) GetSearchResults(ctx context.Context, query string) (*models.SearchResponse, error) {
	return rc.getResponse(ctx, rc.buildSearchKey(query))
}

func (rc *RedisCache) SetSearchResults(ctx context.Context, query string, resp *models.SearchResponse) error {
	ttl := rc.ttlForMode(resp.Metadata.Mode)
	if err := rc.setResponse(ctx, rc.buildSearchKey(query), resp, ttl); err != nil {
		return err
	}
	// A long-lived copy survives past the fresh TTL so the orchestrator
	// can degrade to stale data when the search backend is down.
	return rc.setResponse(ctx, rc.buildStaleKey(query), resp, rc.ttl.StaleFallback)
}

func (rc *RedisCache) GetStaleResults(ctx context.Context, query string) (*models.SearchResponse, error) {
	return rc.getResponse(ctx, rc.buildStaleKey(query))
}

func (rc *RedisCache) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	val, err := rc.client.Get(ctx, quoteKey(symbol)).Result()
	if err == redis.Nil {
		observability.CacheMisses.Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get quote: %w", err)
	}
	observability.CacheHits.Inc()
	var q models.Quote
	if err := json.Unmarshal([]byte(val), &q); err != nil {
		return nil, fmt.Errorf("cache unmarshal quote: %w", err)
	}
	return &q, nil
}

func (rc *RedisCache) SetQuote(ctx context.Context, q *models.Quote) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("cache marshal quote: %w", err)
	}
	return rc.client.Set(ctx, quoteKey(q.Symbol), data, rc.ttl.Quotes).Err()
}

func (rc *RedisCache) InvalidatePattern(ctx context.Context, patterns []string) error {
	for _, pattern := range patterns {
		iter := rc.client.Scan(ctx, 0, pattern, 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			rc.logger.Warn("cache scan error", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		if len(keys) > 0 {
			if err := rc.client.Del(ctx, keys...).Err(); err != nil {
				rc.logger.Warn("cache delete error", zap.Strings("keys", keys), zap.Error(err))
			}
		}
	}
	return nil
}

func (rc *RedisCache) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

func (rc *RedisCache) getResponse(ctx context.Context, key string) (*models.SearchResponse, error) {
	val, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		observability.CacheMisses.Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	observability.CacheHits.Inc()
	var resp models.SearchResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return nil, fmt.Errorf("cache unmarshal: %w", err)
	}
	return &resp, nil
}

func (rc *RedisCache) setResponse(ctx context.Context, key string, resp *models.SearchResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	return rc.client.Set(ctx, key, data, ttl).Err()
}

// Cache keys hash the canonical query text so equivalent inputs that
// differ only in case or whitespace share an entry.
func (rc *RedisCache) buildSearchKey(query string) string {
	return fmt.Sprintf("sr:%s", hashString(canonicalQuery(query)))
}

func (rc *RedisCache) buildStaleKey(query string) string {
	return fmt.Sprintf("sr:stale:%s", hashString(canonicalQuery(query)))
}

func quoteKey(symbol string) string {
	return fmt.Sprintf("qt:%s", strings.ToUpper(symbol))
}

func (rc *RedisCache) ttlForMode(mode string) time.Duration {
	switch mode {
	case "list_by_index", "list_by_sector", "list_by_sector_with_filter", "list_by_metric_filter":
		return rc.ttl.Listings
	default:
		return rc.ttl.SearchResults
	}
}

func canonicalQuery(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:8])
}
