package sunburst

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/sundown-service/internal/config"
)

const (
	tokenCacheKey = "sunburst:session_token"
	tokenMargin   = time.Minute
	tokenMinTTL   = 30 * time.Second
)

// TokenCache stores the provider session token between engine calls.
type TokenCache interface {
	Get(ctx context.Context) (string, error)
	Put(ctx context.Context, token string, ttl time.Duration) error
	Delete(ctx context.Context) error
}

// session owns the Sunburst login lifecycle. The engine and the dispatch
// batch never see credentials, only Quality calls.
type session struct {
	cfg   config.SunburstConfig
	http  *http.Client
	cache TokenCache

	mu sync.Mutex
}

func newSession(cfg config.SunburstConfig, httpClient *http.Client, cache TokenCache) *session {
	return &session{cfg: cfg, http: httpClient, cache: cache}
}

// Token returns a valid bearer token, logging in when the cache is empty.
func (s *session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token, err := s.cache.Get(ctx); err == nil && token != "" {
		return token, nil
	}

	token, err := s.login(ctx)
	if err != nil {
		return "", err
	}

	if err := s.cache.Put(ctx, token, tokenTTL(token)); err != nil {
		// A cache write failure only costs an extra login next time.
		return token, nil
	}
	return token, nil
}

// Invalidate drops the cached token after a 401.
func (s *session) Invalidate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.cache.Delete(ctx)
}

func (s *session) login(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("email", s.cfg.Email)
	form.Set("password", s.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/login",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("sunburst login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sunburst login status %d", resp.StatusCode)
	}

	var payload loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("sunburst login decode: %w", err)
	}
	if payload.Token == "" {
		return "", errors.New("sunburst login: empty token")
	}
	return payload.Token, nil
}

// tokenTTL reads the exp claim from the session JWT without verifying the
// signature; we only need to know when to re-login.
func tokenTTL(token string) time.Duration {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return tokenMinTTL
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return tokenMinTTL
	}
	ttl := time.Until(exp.Time) - tokenMargin
	if ttl < tokenMinTTL {
		return tokenMinTTL
	}
	return ttl
}

// RedisTokenCache implements TokenCache on go-redis.
type RedisTokenCache struct {
	client *redis.Client
}

// NewRedisTokenCache wraps a redis client as a token cache.
func NewRedisTokenCache(client *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{client: client}
}

func (c *RedisTokenCache) Get(ctx context.Context) (string, error) {
	token, err := c.client.Get(ctx, tokenCacheKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

func (c *RedisTokenCache) Put(ctx context.Context, token string, ttl time.Duration) error {
	return c.client.Set(ctx, tokenCacheKey, token, ttl).Err()
}

func (c *RedisTokenCache) Delete(ctx context.Context) error {
	return c.client.Del(ctx, tokenCacheKey).Err()
}
