package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/clinsim/clinsim/internal/guard"
	"github.com/clinsim/clinsim/internal/principal"
)

func newTestStore(t *testing.T) (*RedisCounterStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCounterStore(client), mr
}

func TestIncrementCountsWithinWindow(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, err := store.Increment(ctx, "subject:u1", time.Minute)
		require.NoError(t, err)
		require.Equal(t, i, count)
	}

	// Window expiry resets the counter.
	mr.FastForward(time.Minute + time.Second)
	count, err := store.Increment(ctx, "subject:u1", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestIncrementIsAtomicUnderConcurrency(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	const workers = 20
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Increment(ctx, "subject:u1", time.Minute)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	count, err := store.Increment(ctx, "subject:u1", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(workers+1), count)
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	store, _ := newTestStore(t)
	limiter := NewLimiter(store, 2, time.Minute, nil)

	handler := limiter.Middleware(KeyBySubject)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	subject := principal.Subject{ID: "u1", Active: true}
	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/cases", nil)
		req = req.WithContext(guard.ContextWithSubject(req.Context(), subject))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, do())
	require.Equal(t, http.StatusOK, do())
	require.Equal(t, http.StatusTooManyRequests, do())
}

func TestMiddlewareFailsOpenOnStoreError(t *testing.T) {
	store, mr := newTestStore(t)
	limiter := NewLimiter(store, 1, time.Minute, nil)
	mr.Close()

	handler := limiter.Middleware(KeyBySubject)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cases", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestKeyBySubjectFallsBackToIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Equal(t, "ip:"+req.RemoteAddr, KeyBySubject(req))

	req = req.WithContext(guard.ContextWithSubject(req.Context(), principal.Subject{ID: "u1"}))
	require.Equal(t, "subject:u1", KeyBySubject(req))
}
