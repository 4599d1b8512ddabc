package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"bytron/internal/logger"
	"bytron/internal/metrics"

	"go.uber.org/zap"
)

// Source reports where a rate value came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// Oracle returns the USD value of one TRX. It never fails: a fresh cached
// value is served without a network call, a stale cached value is served when
// every upstream is down, and the configured fallback constant is served when
// no rate has ever been fetched.
type Oracle struct {
	CoinGeckoURL     string
	CryptoCompareURL string
	Fallback         float64
	TTL              time.Duration
	Client           *http.Client

	mu        sync.Mutex
	cached    float64
	fetchedAt time.Time
}

func NewOracle(coinGeckoURL, cryptoCompareURL string, fallback float64, ttl time.Duration) *Oracle {
	return &Oracle{
		CoinGeckoURL:     coinGeckoURL,
		CryptoCompareURL: cryptoCompareURL,
		Fallback:         fallback,
		TTL:              ttl,
		Client:           &http.Client{Timeout: 10 * time.Second},
	}
}

func (o *Oracle) Rate(ctx context.Context) (float64, Source) {
	o.mu.Lock()
	if o.cached > 0 && time.Since(o.fetchedAt) < o.TTL {
		rate := o.cached
		o.mu.Unlock()
		metrics.OracleRateSource.WithLabelValues(string(SourceCache)).Inc()
		return rate, SourceCache
	}
	o.mu.Unlock()

	rate, err := o.fetch(ctx)
	if err == nil && rate > 0 {
		o.mu.Lock()
		o.cached = rate
		o.fetchedAt = time.Now()
		o.mu.Unlock()
		metrics.OracleRateSource.WithLabelValues(string(SourceLive)).Inc()
		return rate, SourceLive
	}
	if err != nil {
		logger.L.Warn("rate fetch failed", zap.Error(err))
	}

	o.mu.Lock()
	cached := o.cached
	o.mu.Unlock()
	if cached > 0 {
		metrics.OracleRateSource.WithLabelValues(string(SourceCache)).Inc()
		return cached, SourceCache
	}
	metrics.OracleRateSource.WithLabelValues(string(SourceFallback)).Inc()
	return o.Fallback, SourceFallback
}

func (o *Oracle) fetch(ctx context.Context) (float64, error) {
	rate, err := o.fetchCoinGecko(ctx)
	if err == nil && rate > 0 {
		return rate, nil
	}
	return o.fetchCryptoCompare(ctx)
}

func (o *Oracle) fetchCoinGecko(ctx context.Context) (float64, error) {
	var body struct {
		Tron struct {
			USD float64 `json:"usd"`
		} `json:"tron"`
	}
	if err := o.getJSON(ctx, o.CoinGeckoURL, &body); err != nil {
		return 0, err
	}
	if body.Tron.USD <= 0 {
		return 0, fmt.Errorf("coingecko returned rate %v", body.Tron.USD)
	}
	return body.Tron.USD, nil
}

func (o *Oracle) fetchCryptoCompare(ctx context.Context) (float64, error) {
	var body struct {
		USD float64 `json:"USD"`
	}
	if err := o.getJSON(ctx, o.CryptoCompareURL, &body); err != nil {
		return 0, err
	}
	if body.USD <= 0 {
		return 0, fmt.Errorf("cryptocompare returned rate %v", body.USD)
	}
	return body.USD, nil
}

func (o *Oracle) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("rate http status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
