package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	headerXContentTypeOptions     = "X-Content-Type-Options"
	headerXFrameOptions           = "X-Frame-Options"
	headerXXSSProtection          = "X-XSS-Protection"
	headerContentSecurityPolicy   = "Content-Security-Policy"
	headerStrictTransportSecurity = "Strict-Transport-Security"
)

// SecurityHeaders sets security-related response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerXContentTypeOptions, "nosniff")
		w.Header().Set(headerXFrameOptions, "DENY")
		w.Header().Set(headerXXSSProtection, "1; mode=block")
		w.Header().Set(headerContentSecurityPolicy, "default-src 'self'")
		w.Header().Set(headerStrictTransportSecurity, "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// limiterPool hands out one token bucket per key and forgets keys that have
// been idle for ttl.
type limiterPool struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	once    sync.Once
}

func newLimiterPool(limit rate.Limit, burst int, ttl time.Duration) *limiterPool {
	return &limiterPool{
		entries: make(map[string]*limiterEntry),
		limit:   limit,
		burst:   burst,
		ttl:     ttl,
	}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.once.Do(p.startCleanup)

	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.entries[key] = e
	}
	e.lastUse = time.Now()
	return e.limiter
}

func (p *limiterPool) startCleanup() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			p.sweep(time.Now())
		}
	}()
}

func (p *limiterPool) sweep(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, e := range p.entries {
		if now.Sub(e.lastUse) > p.ttl {
			delete(p.entries, key)
		}
	}
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

func tooManyRequests(w http.ResponseWriter, burst int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(burst))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}

// Limits groups the per-IP limiters of one server.
type Limits struct {
	clientIP func(*http.Request) string
	global   *limiterPool
	login    *limiterPool
	booking  *limiterPool
}

// NewLimits builds the limiters. clientIP decides which address a request
// is charged to.
func NewLimits(clientIP func(*http.Request) string) *Limits {
	return &Limits{
		clientIP: clientIP,
		// 1 req/s, burst 10
		global: newLimiterPool(rate.Limit(1), 10, 30*time.Minute),
		// 1 req/5s, burst 2
		login: newLimiterPool(rate.Every(5*time.Second), 2, 30*time.Minute),
		// 1 req/3s, burst 5
		booking: newLimiterPool(rate.Every(3*time.Second), 5, 30*time.Minute),
	}
}

var loginPaths = map[string]bool{
	"/api/user/login":    true,
	"/api/user/register": true,
	"/api/doctor/login":  true,
	"/api/admin/login":   true,
}

var bookingPaths = map[string]bool{
	"/api/user/book-appointment":   true,
	"/api/user/cancel-appointment": true,
	"/api/user/payment-razorpay":   true,
	"/api/user/verify-razorpay":    true,
}

// Global limits every IP to 1 req/s with a burst of 10.
func (l *Limits) Global(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.global.get(l.clientIP(r)).Allow() {
			tooManyRequests(w, l.global.burst, "Too many requests. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Login applies a stricter limit to sign-in and registration routes only.
func (l *Limits) Login(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !loginPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		if !l.login.get(l.clientIP(r)).Allow() {
			tooManyRequests(w, l.login.burst, "Too many login attempts. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Booking limits the routes that touch the slot ledger, so a single client
// cannot hammer one doctor's slots.
func (l *Limits) Booking(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !bookingPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		if !l.booking.get(l.clientIP(r)).Allow() {
			tooManyRequests(w, l.booking.burst, "Too many booking requests. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ProductionSecurity returns middlewares for production: SecurityHeaders → Global → Login → Booking.
func (l *Limits) ProductionSecurity() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		SecurityHeaders,
		l.Global,
		l.Login,
		l.Booking,
	}
}
