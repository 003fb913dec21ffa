package web

import (
	"net/http"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// chatLimiter limits the chat requests of each client ip, formatted like "30-M".
// An empty or bad rate disables the limit.
func chatLimiter(formatted string) func(next http.Handler) http.Handler {
	if len(formatted) == 0 {
		return passThrough
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		logger().Infow("invalid chat rate limit", "rate", formatted, "err", err)
		return passThrough
	}
	mw := stdlib.NewMiddleware(limiter.New(memory.NewStore(), rate),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			logger().Infow("chat rate limited", "ip", r.RemoteAddr, "path", r.URL.Path)
			apiFail(w, r, http.StatusTooManyRequests, "too many requests")
		}))
	return mw.Handler
}

func passThrough(next http.Handler) http.Handler {
	return next
}
