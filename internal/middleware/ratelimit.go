package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// RateLimitWindow is 120 seconds
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the maximum number of requests allowed in the window
	RateLimitMaxRequests = 100
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked
	BlockedIPDuration = time.Hour
)

// RedisRateLimiter is a fixed-window limiter shared by all instances. IPs
// that exceed the window are blocked for BlockedIPDuration.
type RedisRateLimiter struct {
	client   redis.UniversalClient
	clientIP func(*http.Request) string
	window   time.Duration
	max      int64
}

func NewRedisRateLimiter(client redis.UniversalClient, clientIP func(*http.Request) string) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:   client,
		clientIP: clientIP,
		window:   RateLimitWindow,
		max:      RateLimitMaxRequests,
	}
}

// Middleware fails open: when Redis is unreachable requests go through.
func (l *RedisRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		ip := l.clientIP(r)

		blocked, err := l.IsIPBlocked(ctx, ip)
		if err == nil && blocked {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"success":false,"message":"Your IP has been temporarily blocked due to excessive requests. Please try again later."}`))
			return
		}

		count, err := l.hit(ctx, ip)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		if count > l.max {
			l.client.Set(ctx, BlockedIPKeyPrefix+ip, "1", BlockedIPDuration)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(fmt.Sprintf(`{"success":false,"message":"Rate limit exceeded. Please try again later.","retry_after":%d}`, int(l.window.Seconds()))))
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(l.max, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(l.max-count, 10))
		next.ServeHTTP(w, r)
	})
}

// hit counts one request in the current window. The expiry is only set by
// the first request so the window does not slide.
func (l *RedisRateLimiter) hit(ctx context.Context, ip string) (int64, error) {
	key := RateLimitKeyPrefix + ip
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// UnblockIP removes an IP from the blocked list (admin function)
func (l *RedisRateLimiter) UnblockIP(ctx context.Context, ip string) error {
	return l.client.Del(ctx, BlockedIPKeyPrefix+ip, RateLimitKeyPrefix+ip).Err()
}

// IsIPBlocked checks if an IP is currently blocked
func (l *RedisRateLimiter) IsIPBlocked(ctx context.Context, ip string) (bool, error) {
	count, err := l.client.Exists(ctx, BlockedIPKeyPrefix+ip).Result()
	return count > 0, err
}

// BlockedIPs lists the currently blocked addresses.
func (l *RedisRateLimiter) BlockedIPs(ctx context.Context) ([]string, error) {
	var ips []string
	iter := l.client.Scan(ctx, 0, BlockedIPKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ips = append(ips, strings.TrimPrefix(iter.Val(), BlockedIPKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ips, nil
}
