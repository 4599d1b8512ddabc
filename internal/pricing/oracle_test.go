package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonServer(status int, body string, calls *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestOracleLiveFetch(t *testing.T) {
	cg := jsonServer(http.StatusOK, `{"tron":{"usd":0.25}}`, nil)
	defer cg.Close()

	o := NewOracle(cg.URL, "http://127.0.0.1:0", 0.12, 5*time.Minute)
	rate, source := o.Rate(context.Background())
	assert.Equal(t, 0.25, rate)
	assert.Equal(t, SourceLive, source)
}

func TestOracleCachesWithinWindow(t *testing.T) {
	var calls atomic.Int32
	cg := jsonServer(http.StatusOK, `{"tron":{"usd":0.25}}`, &calls)
	defer cg.Close()

	o := NewOracle(cg.URL, "http://127.0.0.1:0", 0.12, 5*time.Minute)
	for i := 0; i < 5; i++ {
		rate, _ := o.Rate(context.Background())
		assert.Equal(t, 0.25, rate)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestOracleSecondarySource(t *testing.T) {
	cg := jsonServer(http.StatusInternalServerError, `boom`, nil)
	defer cg.Close()
	cc := jsonServer(http.StatusOK, `{"USD":0.30}`, nil)
	defer cc.Close()

	o := NewOracle(cg.URL, cc.URL, 0.12, 5*time.Minute)
	rate, source := o.Rate(context.Background())
	assert.Equal(t, 0.30, rate)
	assert.Equal(t, SourceLive, source)
}

func TestOracleStaleCacheOnOutage(t *testing.T) {
	var up atomic.Bool
	up.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !up.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"tron":{"usd":0.25}}`))
	}))
	defer srv.Close()

	o := NewOracle(srv.URL, "http://127.0.0.1:0", 0.12, time.Nanosecond)
	rate, source := o.Rate(context.Background())
	require.Equal(t, 0.25, rate)
	require.Equal(t, SourceLive, source)

	// Cache is already stale, every upstream is down: serve the last value.
	up.Store(false)
	rate, source = o.Rate(context.Background())
	assert.Equal(t, 0.25, rate)
	assert.Equal(t, SourceCache, source)
}

func TestOracleFallbackConstant(t *testing.T) {
	cg := jsonServer(http.StatusInternalServerError, `boom`, nil)
	defer cg.Close()

	o := NewOracle(cg.URL, "http://127.0.0.1:0", 0.12, 5*time.Minute)
	rate, source := o.Rate(context.Background())
	assert.Equal(t, 0.12, rate)
	assert.Equal(t, SourceFallback, source)
	assert.Greater(t, rate, 0.0)
}

func TestOracleRejectsMalformedPayload(t *testing.T) {
	cg := jsonServer(http.StatusOK, `{"tron":{"usd":0}}`, nil)
	defer cg.Close()
	cc := jsonServer(http.StatusOK, `not json`, nil)
	defer cc.Close()

	o := NewOracle(cg.URL, cc.URL, 0.12, 5*time.Minute)
	rate, source := o.Rate(context.Background())
	assert.Equal(t, 0.12, rate)
	assert.Equal(t, SourceFallback, source)
}
