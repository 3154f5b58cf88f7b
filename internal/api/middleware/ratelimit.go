package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/counselcms/server/internal/api/problem"
	"github.com/counselcms/server/internal/config"
	"golang.org/x/time/rate"
)

type RateLimitTier string

const (
	TierPublic RateLimitTier = "public"
	TierAdmin  RateLimitTier = "admin"
	// TierLogin allows a burst of LoginPer15Minutes, refilling over 15 minutes.
	TierLogin RateLimitTier = "login"
	// TierForm covers contact and application submissions, counted per hour.
	TierForm RateLimitTier = "form"
)

type rateLimitKey string

const rateLimitTierKey rateLimitKey = "rateLimitTier"

const (
	limiterTTL      = 15 * time.Minute
	cleanupInterval = 5 * time.Minute
)

func WithRateLimitTier(ctx context.Context, tier RateLimitTier) context.Context {
	return context.WithValue(ctx, rateLimitTierKey, tier)
}

// WithRateLimitTierHandler overrides the tier for the wrapped routes. The
// innermost tier wins.
func WithRateLimitTierHandler(tier RateLimitTier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithRateLimitTier(r.Context(), tier)))
		})
	}
}

type tierPolicy struct {
	every      time.Duration
	burst      int
	retryAfter time.Duration
}

// RateLimiter keeps one token bucket per tier and client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	policies map[RateLimitTier]tierPolicy
	trusted  []*net.IPNet
	stop     chan struct{}
	stopOnce sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter starts a background sweep of idle buckets; call Stop to end it.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	l := &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		policies: make(map[RateLimitTier]tierPolicy),
		trusted:  parseCIDRs(cfg.TrustedProxyCIDRs),
		stop:     make(chan struct{}),
	}
	l.setPolicy(TierPublic, cfg.PublicPerMinute, time.Minute)
	l.setPolicy(TierAdmin, cfg.AdminPerMinute, time.Minute)
	l.setPolicy(TierLogin, cfg.LoginPer15Minutes, 15*time.Minute)
	l.setPolicy(TierForm, cfg.FormPerHour, time.Hour)

	go l.cleanupLoop()
	return l
}

func (l *RateLimiter) setPolicy(tier RateLimitTier, limit int, window time.Duration) {
	if limit <= 0 {
		return
	}
	every := window / time.Duration(limit)
	l.policies[tier] = tierPolicy{every: every, burst: limit, retryAfter: every}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz", "/readyz", "/metrics":
			next.ServeHTTP(w, r)
			return
		}

		tier := TierPublic
		if value, ok := r.Context().Value(rateLimitTierKey).(RateLimitTier); ok {
			tier = value
		}

		limiter, policy := l.limiter(tier, l.ClientIP(r))
		if limiter != nil && !limiter.Allow() {
			seconds := int(policy.retryAfter.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			problem.Write(w, r, http.StatusTooManyRequests, problem.TypeRateLimited, "Too many requests", nil, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) limiter(tier RateLimitTier, key string) (*rate.Limiter, tierPolicy) {
	policy, ok := l.policies[tier]
	if !ok {
		return nil, policy
	}
	lookup := string(tier) + ":" + key

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if entry, ok := l.limiters[lookup]; ok {
		entry.lastSeen = now
		return entry.limiter, policy
	}
	limiter := rate.NewLimiter(rate.Every(policy.every), policy.burst)
	l.limiters[lookup] = &limiterEntry{limiter: limiter, lastSeen: now}
	return limiter, policy
}

func (l *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now())
		case <-l.stop:
			return
		}
	}
}

func (l *RateLimiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > limiterTTL {
			delete(l.limiters, key)
		}
	}
}

func (l *RateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// ClientIP returns the caller address. Forwarding headers are honoured only
// when the connection comes from a trusted proxy.
func (l *RateLimiter) ClientIP(r *http.Request) string {
	return clientIP(r, l.trusted)
}

func clientIP(r *http.Request, trusted []*net.IPNet) string {
	if r == nil {
		return ""
	}
	remoteIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remoteIP = host
	}

	if isTrustedProxy(remoteIP, trusted) {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}
	return remoteIP
}

func isTrustedProxy(ip string, trusted []*net.IPNet) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, cidr := range trusted {
		if cidr.Contains(parsed) {
			return true
		}
	}
	return false
}

func parseCIDRs(values []string) []*net.IPNet {
	var out []*net.IPNet
	for _, value := range values {
		if _, cidr, err := net.ParseCIDR(strings.TrimSpace(value)); err == nil {
			out = append(out, cidr)
		}
	}
	return out
}
