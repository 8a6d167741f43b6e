package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"

	"github.com/terraproof/service/internal/response"
)

const limiterTTL = time.Minute

// RateLimiter keeps one token bucket per client. Idle buckets expire after a
// minute.
type RateLimiter struct {
	limiters *ttlcache.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
	logger   *log.Logger
}

// NewRateLimiter allows limit requests per second with the given burst per
// client. Call Stop when done.
func NewRateLimiter(limit float64, burst int, logger *log.Logger) *RateLimiter {
	if logger == nil {
		logger = log.Default()
	}
	cache := ttlcache.New[string, *rate.Limiter](
		ttlcache.WithTTL[string, *rate.Limiter](limiterTTL),
		ttlcache.WithDisableTouchOnHit[string, *rate.Limiter](),
	)
	go cache.Start()

	return &RateLimiter{
		limiters: cache,
		limit:    rate.Limit(limit),
		burst:    burst,
		logger:   logger.With("component", "rate-limiter"),
	}
}

// Stop ends the expiry loop.
func (rl *RateLimiter) Stop() {
	rl.limiters.Stop()
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	item, _ := rl.limiters.GetOrSet(key, rate.NewLimiter(rl.limit, rl.burst))
	return item.Value()
}

// Handler rejects requests over the client's budget with 429 and Retry-After.
// Clients are keyed by token subject when RequireToken ran first, else by IP.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		limiter := rl.limiter(key)

		res := limiter.Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			rl.logger.Warn("rate limit exceeded", "client", key, "path", r.URL.Path)

			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", math.Ceil(delay.Seconds())))
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%v", limiter.Limit()))
			w.Header().Set("X-RateLimit-Burst", fmt.Sprintf("%d", limiter.Burst()))
			response.TooManyRequests(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if id := ClientID(r.Context()); id != "" {
		return "sub:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}
