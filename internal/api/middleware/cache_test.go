package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/facetedsearch/internal/adapters/cache"
	"github.com/zatekoja/facetedsearch/internal/api/middleware"
)

func newCacheMiddleware(t *testing.T) (*middleware.CacheMiddleware, *cache.MemoryAdapter) {
	t.Helper()
	store, err := cache.NewMemoryAdapter(16)
	require.NoError(t, err)
	return middleware.NewCacheMiddleware(store, nil, 60), store
}

func countingHandler(calls *int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{"total_count":3}`))
	})
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestCacheMiddleware_MissThenHit(t *testing.T) {
	m, _ := newCacheMiddleware(t)
	var calls int32
	h := m.Middleware(countingHandler(&calls, http.StatusOK))

	first := get(h, "/api/search?region=Africa&q=safari")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, `{"total_count":3}`, first.Body.String())

	// Same parameters in another order share the entry
	second := get(h, "/api/search?q=safari&region=Africa")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, `{"total_count":3}`, second.Body.String())

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCacheMiddleware_FacetPrefix(t *testing.T) {
	m, _ := newCacheMiddleware(t)
	var calls int32
	h := m.Middleware(countingHandler(&calls, http.StatusOK))

	get(h, "/api/facets/region")
	rec := get(h, "/api/facets/region")

	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCacheMiddleware_Bypass(t *testing.T) {
	m, _ := newCacheMiddleware(t)
	var calls int32
	h := m.Middleware(countingHandler(&calls, http.StatusOK))

	get(h, "/health")
	rec := get(h, "/health")
	assert.Empty(t, rec.Header().Get("X-Cache"))

	post := httptest.NewRecorder()
	h.ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/api/search", nil))
	assert.Empty(t, post.Header().Get("X-Cache"))

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCacheMiddleware_ErrorsNotCached(t *testing.T) {
	m, _ := newCacheMiddleware(t)
	var calls int32
	h := m.Middleware(countingHandler(&calls, http.StatusBadGateway))

	first := get(h, "/api/search?q=safari")
	second := get(h, "/api/search?q=safari")

	assert.Equal(t, http.StatusBadGateway, first.Code)
	assert.Equal(t, "MISS", second.Header().Get("X-Cache"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCacheMiddleware_ConcurrentMissesShareHandler(t *testing.T) {
	m, _ := newCacheMiddleware(t)
	var calls int32
	release := make(chan struct{})
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		w.Write([]byte(`{}`))
	}))

	var wg sync.WaitGroup
	codes := make([]int, 5)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = get(h, "/api/search?q=trek").Code
		}(i)
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
}

func TestCacheMiddleware_InvalidateCache(t *testing.T) {
	m, store := newCacheMiddleware(t)
	var calls int32
	h := m.Middleware(countingHandler(&calls, http.StatusOK))

	get(h, "/api/search?q=a")
	get(h, "/api/search?q=b")
	require.NoError(t, store.Set(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "other:key", []byte("x"), 0))

	removed, err := m.InvalidateCache(httptest.NewRequest(http.MethodPost, "/api/cache/flush", nil))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	rec := get(h, "/api/search?q=a")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
}

func TestCacheMiddleware_DisabledTTL(t *testing.T) {
	store, err := cache.NewMemoryAdapter(4)
	require.NoError(t, err)
	m := middleware.NewCacheMiddleware(store, nil, 0)
	var calls int32
	h := m.Middleware(countingHandler(&calls, http.StatusOK))

	get(h, "/api/search")
	get(h, "/api/search")

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
