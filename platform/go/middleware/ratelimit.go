package middleware

import (
	"net/http"

	"github.com/ulule/limiter/v3"
	stdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/zenGate-Global/worklane/platform/go/httpx"
)

// NewIPRateLimiter returns middleware that limits by client IP (in-memory store).
// rateFormatted: "20-M", "1000-H", "50-S". Empty disables limiting.
func NewIPRateLimiter(rateFormatted string) (func(next http.Handler) http.Handler, error) {
	if rateFormatted == "" {
		return noopMiddleware, nil
	}
	rate, err := limiter.NewRateFromFormatted(rateFormatted)
	if err != nil {
		return nil, err
	}
	instance := limiter.New(memory.NewStore(), rate)
	mw := stdlib.NewMiddleware(instance, stdlib.WithLimitReachedHandler(limitReached))
	return mw.Handler, nil
}

func limitReached(w http.ResponseWriter, r *http.Request) {
	httpx.Fail(w, http.StatusTooManyRequests, "Too many requests", nil)
}

func noopMiddleware(next http.Handler) http.Handler {
	return next
}
