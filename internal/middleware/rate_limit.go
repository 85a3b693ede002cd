package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/baharkarakas/imagegen-backend/internal/api/httpx"
)

const rateLimitPrefix = "imagegen:ratelimit"

// RateLimit limits requests per client IP. rate uses the limiter format
// ("100-M", "10-S"); an empty rate disables limiting. Counters live in
// Redis when client is set so every replica shares them.
func RateLimit(rate string, client *redis.Client) (func(http.Handler) http.Handler, error) {
	if rate == "" {
		return func(next http.Handler) http.Handler { return next }, nil
	}
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate limit %q: %w", rate, err)
	}

	var store limiter.Store
	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: rateLimitPrefix})
		if err != nil {
			return nil, fmt.Errorf("create redis rate limit store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: rateLimitPrefix})
	}

	mw := stdlib.NewMiddleware(limiter.New(store, r),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, _ *http.Request) {
			httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests", nil)
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			slog.ErrorContext(r.Context(), "rate limit store error", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
		}),
	)
	return mw.Handler, nil
}
