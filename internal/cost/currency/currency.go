// Package currency provides the cached daily USD->EUR rate collaborator
// client the optimizer's final conversion pass reads from: a cached
// daily rate from an external rate source, falling back to USD with a
// warning (never an error) if the lookup fails. Grounded on the
// teacher's L1/L2 cache pattern in
// internal/infrastructure/persistence/cache/redis_cache.go: an
// in-memory TTL cache in front of an optional Redis-backed one, so a
// rate fetched once a day isn't re-requested on every optimizer call.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/twin2multicloud/deployer/internal/logging"
)

// RateSource fetches the current USD->EUR rate from an external
// service. Swappable for tests; production wiring uses HTTPRateSource.
type RateSource interface {
	USDToEUR(ctx context.Context) (float64, error)
}

// HTTPRateSource fetches the rate from a JSON HTTP endpoint returning
// {"usd_to_eur_rate": <float>}.
type HTTPRateSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPRateSource builds a source pointed at url, defaulting to a
// 5-second-timeout client if none is given.
func NewHTTPRateSource(url string, client *http.Client) *HTTPRateSource {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPRateSource{URL: url, Client: client}
}

func (h *HTTPRateSource) USDToEUR(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return 0, fmt.Errorf("currency: rate source returned %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		USDToEURRate float64 `json:"usd_to_eur_rate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("currency: decoding rate response: %w", err)
	}
	if payload.USDToEURRate <= 0 {
		return 0, fmt.Errorf("currency: rate source returned non-positive rate %v", payload.USDToEURRate)
	}
	return payload.USDToEURRate, nil
}

const (
	rateCacheKey = "currency:usd_to_eur_rate"
	rateTTL      = 24 * time.Hour
)

// CachedClient wraps a RateSource with an in-memory TTL cache and an
// optional Redis L2 cache, so a day's worth of optimizer calls share
// one upstream fetch.
type CachedClient struct {
	source RateSource
	redis  redis.UniversalClient
	log    *logging.Logger

	mu        sync.Mutex
	localRate float64
	localAt   time.Time
}

// NewCachedClient builds a client around source. redisClient may be
// nil, in which case only the in-memory cache is used.
func NewCachedClient(source RateSource, redisClient redis.UniversalClient, log *logging.Logger) *CachedClient {
	if log == nil {
		log = logging.NewNop()
	}
	return &CachedClient{source: source, redis: redisClient, log: log}
}

// USDToEUR returns the cached rate, refreshing from Redis then the
// upstream source as each cache layer misses or expires.
func (c *CachedClient) USDToEUR(ctx context.Context) (float64, error) {
	c.mu.Lock()
	if c.localRate > 0 && time.Since(c.localAt) < rateTTL {
		rate := c.localRate
		c.mu.Unlock()
		return rate, nil
	}
	c.mu.Unlock()

	if c.redis != nil {
		if rate, err := c.getRedis(ctx); err == nil {
			c.setLocal(rate)
			return rate, nil
		}
	}

	rate, err := c.source.USDToEUR(ctx)
	if err != nil {
		return 0, err
	}
	c.setLocal(rate)
	if c.redis != nil {
		if err := c.redis.Set(ctx, rateCacheKey, rate, rateTTL).Err(); err != nil {
			c.log.Warn("currency: failed to populate redis cache", "error", err)
		}
	}
	return rate, nil
}

func (c *CachedClient) getRedis(ctx context.Context) (float64, error) {
	val, err := c.redis.Get(ctx, rateCacheKey).Float64()
	if err != nil {
		return 0, err
	}
	return val, nil
}

func (c *CachedClient) setLocal(rate float64) {
	c.mu.Lock()
	c.localRate = rate
	c.localAt = time.Now()
	c.mu.Unlock()
}

// Convert applies rate to amount without rounding; callers quantize at
// the formula.Round12 boundary, never mid-calculation.
func Convert(amountUSD, usdToEURRate float64) float64 {
	return amountUSD * usdToEURRate
}
