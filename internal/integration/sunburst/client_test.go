package sunburst

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sundown-service/internal/config"
)

// memoryTokenCache is an in-process TokenCache for tests.
type memoryTokenCache struct {
	mu    sync.Mutex
	token string
}

func (c *memoryTokenCache) Get(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, nil
}

func (c *memoryTokenCache) Put(ctx context.Context, token string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	return nil
}

func (c *memoryTokenCache) Delete(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	return nil
}

type providerStub struct {
	mu          sync.Mutex
	logins      int
	quality     string
	failToken   string
	qualityCode int
}

func (p *providerStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "forecast@example.com", r.PostFormValue("email"))

		p.mu.Lock()
		p.logins++
		logins := p.logins
		p.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if logins == 1 {
			_, _ = w.Write([]byte(`{"token":"token-1"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"token-2"}`))
	})
	mux.HandleFunc("/quality", func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if p.failToken != "" && auth == "Bearer "+p.failToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if p.qualityCode != 0 {
			w.WriteHeader(p.qualityCode)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(p.quality))
	})
	return mux
}

func newTestQualityClient(t *testing.T, stub *providerStub) (*Client, *memoryTokenCache, *httptest.Server) {
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)

	cache := &memoryTokenCache{}
	client := NewClient(config.SunburstConfig{
		BaseURL:        server.URL,
		Email:          "forecast@example.com",
		Password:       "secret",
		TimeoutSeconds: 5,
	}, cache, zap.NewNop())
	return client, cache, server
}

func TestQualityLogsInOnceAcrossCalls(t *testing.T) {
	stub := &providerStub{
		quality: `{"features":[{"properties":{"quality_percent":72.5}}]}`,
	}
	client, _, _ := newTestQualityClient(t, stub)

	for i := 0; i < 3; i++ {
		percent, err := client.Quality(context.Background(), 40.74, -74.38)
		require.NoError(t, err)
		assert.InDelta(t, 72.5, percent, 0.001)
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, 1, stub.logins, "token should be cached between calls")
}

func TestQualityReloginsOnceOnStaleToken(t *testing.T) {
	stub := &providerStub{
		quality:   `{"features":[{"properties":{"quality_percent":40}}]}`,
		failToken: "token-1",
	}
	client, cache, _ := newTestQualityClient(t, stub)

	percent, err := client.Quality(context.Background(), 40.74, -74.38)
	require.NoError(t, err)
	assert.InDelta(t, 40, percent, 0.001)

	stub.mu.Lock()
	logins := stub.logins
	stub.mu.Unlock()
	assert.Equal(t, 2, logins, "a 401 triggers exactly one re-login")

	token, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)
}

func TestQualityProviderDown(t *testing.T) {
	stub := &providerStub{qualityCode: http.StatusServiceUnavailable}
	client, _, _ := newTestQualityClient(t, stub)

	_, err := client.Quality(context.Background(), 40.74, -74.38)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, IsUnavailable(err))
}

func TestQualityRejectsOutOfRange(t *testing.T) {
	stub := &providerStub{
		quality: `{"features":[{"properties":{"quality_percent":120}}]}`,
	}
	client, _, _ := newTestQualityClient(t, stub)

	_, err := client.Quality(context.Background(), 40.74, -74.38)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTokenTTLFallsBackOnOpaqueToken(t *testing.T) {
	assert.Equal(t, tokenMinTTL, tokenTTL("not-a-jwt"))
}
