package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"zoom-meetings-api/internal/metrics"
	"zoom-meetings-api/internal/tokencache"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSessions struct{ uid string }

func (f fakeSessions) UserID(*http.Request) (string, bool) { return f.uid, f.uid != "" }

type brokenCache struct{ tokencache.Cache }

func (brokenCache) Get(context.Context, string) (*oauth2.Token, error) {
	return nil, errors.New("connection refused")
}

func guarded(t *testing.T, sess Sessions, cache tokencache.Cache) (http.Handler, *bool) {
	t.Helper()
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, "u1", UserID(r.Context()))
		assert.Equal(t, "a1", Token(r.Context()).AccessToken)
	})
	return RequireZoomToken(sess, cache, discard)(next), &called
}

func TestRequireZoomTokenRedirects(t *testing.T) {
	withToken := tokencache.NewMemory(nil)
	require.NoError(t, withToken.Set(context.Background(), "u1", &oauth2.Token{AccessToken: "a1"}))

	tests := []struct {
		name  string
		sess  Sessions
		cache tokencache.Cache
	}{
		{"no session", fakeSessions{}, withToken},
		{"no token", fakeSessions{uid: "u1"}, tokencache.NewMemory(nil)},
		{"cache error", fakeSessions{uid: "u1"}, brokenCache{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, called := guarded(t, tt.sess, tt.cache)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/meetings", nil))

			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, LoginPath, rec.Header().Get("Location"))
			assert.False(t, *called)
		})
	}
}

func TestRequireZoomTokenPasses(t *testing.T) {
	cache := tokencache.NewMemory(nil)
	require.NoError(t, cache.Set(context.Background(), "u1", &oauth2.Token{AccessToken: "a1"}))

	h, called := guarded(t, fakeSessions{uid: "u1"}, cache)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/meetings", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *called)
}

func TestRequireZoomTokenExpired(t *testing.T) {
	cache := tokencache.NewMemory(nil)
	require.NoError(t, cache.Set(context.Background(), "u1",
		&oauth2.Token{AccessToken: "a1", Expiry: time.Now().Add(-time.Minute)}))

	h, called := guarded(t, fakeSessions{uid: "u1"}, cache)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.False(t, *called)
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	h := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(addr string) int {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:1002"))
	// separate budget per ip
	assert.Equal(t, http.StatusOK, do("10.0.0.2:1000"))
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	rl.get("a")
	clock = clock.Add(2 * time.Minute)
	rl.get("b")
	clock = clock.Add(2 * time.Minute)

	assert.Equal(t, 1, rl.cleanup())
	_, ok := rl.clients["b"]
	assert.True(t, ok)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", clientIP(r, false))
	assert.Equal(t, "192.0.2.1", clientIP(r, true))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "192.0.2.1", clientIP(r, false))
	assert.Equal(t, "203.0.113.9", clientIP(r, true))
}

func TestRateLimitIgnoresForwardedFor(t *testing.T) {
	h := RateLimit(NewRateLimiter(0.001, 2))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := map[int]int{}
	for i := 0; i < 10; i++ {
		r := httptest.NewRequest(http.MethodGet, "/zoom/login", nil)
		r.RemoteAddr = "192.0.2.1:5555"
		r.Header.Set("X-Forwarded-For", fmt.Sprintf("10.9.9.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		codes[rec.Code]++
	}
	assert.Equal(t, map[int]int{http.StatusOK: 2, http.StatusTooManyRequests: 8}, codes)
}

func TestRateLimitTrustedProxy(t *testing.T) {
	h := RateLimit(NewRateLimiter(0.001, 1).TrustProxyHeaders(true))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(xff string) int {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.254:443"
		r.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("203.0.113.9"))
	assert.Equal(t, http.StatusTooManyRequests, do("203.0.113.9, 10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("203.0.113.10"))
}

func TestObserve(t *testing.T) {
	m := metrics.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /meetings/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := Chain(mux, Observe(discard, m))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/meetings/abc", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	scrape := httptest.NewRecorder()
	m.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := scrape.Body.String()
	assert.Contains(t, body, `route="GET /meetings/{id}"`)
	assert.Contains(t, body, `code="404"`)
	assert.NotContains(t, body, `route="/meetings/abc"`)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "h") }),
		mw("a"), mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "h"}, order)
}
