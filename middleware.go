package main

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// recoverPanic logs a recovered panic instead of crashing the process
func recoverPanic(logger *slog.Logger, operation string) {
	if r := recover(); r != nil {
		logger.Error("Panic recovered",
			"operation", operation,
			"panic", r,
			"stack", string(debug.Stack()))
	}
}

// RateLimiter allows each client IP a burst of rate requests, refilled evenly over interval
type RateLimiter struct {
	rate     int
	interval time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	stopCh    chan struct{}
	closeOnce sync.Once
}

// NewRateLimiter creates a limiter and starts its idle-entry cleanup
func NewRateLimiter(requests int, interval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		rate:     requests,
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether ip may make another request now
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	lim, ok := rl.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(rate.Every(rl.interval/time.Duration(rl.rate)), rl.rate)
		rl.limiters[ip] = lim
	}
	rl.mu.Unlock()
	return lim.Allow()
}

// cleanup drops limiters that have refilled completely
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(max(rl.interval, time.Minute))
	defer ticker.Stop()
	for {
		select {
		case <-rl.stopCh:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for ip, lim := range rl.limiters {
				if lim.TokensAt(now) >= float64(rl.rate) {
					delete(rl.limiters, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() {
		close(rl.stopCh)
	})
}

// SecurityConfig configures the HTTP transport's request checks
type SecurityConfig struct {
	// AuthToken, if set, must be presented as a bearer token
	AuthToken string

	// RateLimit is the number of requests per minute per client IP; 0 disables it
	RateLimit int

	// MaxBodySize caps request bodies in bytes
	MaxBodySize int64
}

// SecurityMiddleware applies authentication, rate limiting and body limits in front of the MCP handler
type SecurityMiddleware struct {
	next    http.Handler
	logger  *slog.Logger
	config  SecurityConfig
	limiter *RateLimiter
}

// NewSecurityMiddleware wraps next
func NewSecurityMiddleware(next http.Handler, logger *slog.Logger, config SecurityConfig) *SecurityMiddleware {
	sm := &SecurityMiddleware{next: next, logger: logger, config: config}
	if config.RateLimit > 0 {
		sm.limiter = NewRateLimiter(config.RateLimit, time.Minute)
	}
	return sm
}

func (sm *SecurityMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer recoverPanic(sm.logger, "http request")

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")

	ip := clientIP(r)
	if sm.config.AuthToken != "" && !validToken(r.Header.Get("Authorization"), sm.config.AuthToken) {
		sm.logger.Warn("Rejected unauthenticated request", "remote", ip)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if sm.limiter != nil && !sm.limiter.Allow(ip) {
		sm.logger.Warn("Rate limit exceeded", "remote", ip)
		w.Header().Set("Retry-After", "60")
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}
	if sm.config.MaxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, sm.config.MaxBodySize)
	}
	sm.next.ServeHTTP(w, r)
}

// Close releases the rate limiter
func (sm *SecurityMiddleware) Close() {
	if sm.limiter != nil {
		sm.limiter.Close()
	}
}

func validToken(header, token string) bool {
	got, ok := strings.CutPrefix(header, "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
