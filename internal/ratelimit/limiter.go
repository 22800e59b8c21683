package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinsim/clinsim/internal/guard"
	"github.com/clinsim/clinsim/internal/shared"
)

// CounterStore counts requests per key inside a rolling window. Increment
// must be atomic under concurrent access; a check-then-insert implementation
// would let the limit be exceeded.
type CounterStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// incrScript bumps the counter and arms the window expiry in one atomic step.
var incrScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n`)

// RedisCounterStore is the shared-cache implementation, usable across
// processes in a multi-instance deployment.
type RedisCounterStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCounterStore returns a counter store over the given client.
func NewRedisCounterStore(client redis.UniversalClient) *RedisCounterStore {
	return &RedisCounterStore{client: client, prefix: "ratelimit:"}
}

// Increment atomically bumps and returns the counter for key.
func (s *RedisCounterStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	return incrScript.Run(ctx, s.client, []string{s.prefix + key}, window.Milliseconds()).Int64()
}

// Limiter rejects requests once a key exceeds the configured count per
// window.
type Limiter struct {
	store  CounterStore
	limit  int64
	window time.Duration
	logger *slog.Logger
}

// NewLimiter constructs a Limiter.
func NewLimiter(store CounterStore, limit int64, window time.Duration, logger *slog.Logger) *Limiter {
	return &Limiter{store: store, limit: limit, window: window, logger: logger}
}

// KeyFunc derives the counter key for a request.
type KeyFunc func(r *http.Request) string

// KeyBySubject keys on the resolved subject id, falling back to the remote
// address for anonymous callers.
func KeyBySubject(r *http.Request) string {
	if sub, ok := guard.SubjectFromContext(r.Context()); ok && !sub.IsAnonymous() {
		return "subject:" + sub.ID
	}
	return "ip:" + r.RemoteAddr
}

// Middleware enforces the limit. A counter-store failure fails open with a
// logged warning rather than rejecting traffic.
func (l *Limiter) Middleware(keyFn KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count, err := l.store.Increment(r.Context(), keyFn(r), l.window)
			if err != nil {
				if l.logger != nil {
					l.logger.Warn("rate limit increment", slog.Any("error", err))
				}
				next.ServeHTTP(w, r)
				return
			}
			if count > l.limit {
				shared.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
