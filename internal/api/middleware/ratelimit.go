package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Togather-Foundation/social-events/internal/api/problem"
	"github.com/Togather-Foundation/social-events/internal/auth"
	"github.com/Togather-Foundation/social-events/internal/config"
	"golang.org/x/time/rate"
)

type RateLimitTier string

const (
	TierPublic        RateLimitTier = "public"
	TierAuthenticated RateLimitTier = "authenticated"
)

// RateLimiter hands out per-route limit middleware sharing one limiter store.
type RateLimiter struct {
	store   *limiterStore
	proxies []netip.Prefix
	env     string
}

func NewRateLimiter(cfg config.RateLimitConfig, env string) *RateLimiter {
	return &RateLimiter{
		store:   newLimiterStore(cfg),
		proxies: parseProxies(cfg.TrustedProxyCIDRs),
		env:     env,
	}
}

// Handler limits requests for one tier. Authenticated routes are keyed by
// the verified caller when the identity is already on the context, and by
// client address otherwise.
func (l *RateLimiter) Handler(tier RateLimitTier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r, l.proxies)
			if identity, ok := auth.IdentityFromContext(r.Context()); ok && tier == TierAuthenticated {
				key = "user:" + identity.Email
			}

			limiter := l.store.limiter(tier, key)
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow() {
				retry := retryAfterSeconds(l.store.interval(tier))
				w.Header().Set("Retry-After", retry)
				problem.Write(w, r, http.StatusTooManyRequests, "Too many requests", nil, l.env,
					problem.WithDetail("retry in "+retry+"s"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Stop ends the background cleanup of idle limiters.
func (l *RateLimiter) Stop() {
	l.store.Stop()
}

// retryAfterSeconds rounds the token refill interval up to whole seconds.
func retryAfterSeconds(interval time.Duration) string {
	seconds := int((interval + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

type limiterStore struct {
	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	perMinute   map[RateLimitTier]int
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(cfg config.RateLimitConfig) *limiterStore {
	store := &limiterStore{
		limiters: make(map[string]*limiterEntry),
		perMinute: map[RateLimitTier]int{
			TierPublic:        cfg.PublicPerMinute,
			TierAuthenticated: cfg.AuthenticatedPerMinute,
		},
		stopCleanup: make(chan struct{}),
	}

	// Removes entries not accessed in 15 minutes to bound memory
	go store.cleanupLoop()

	return store
}

// interval is the time to refill one token for tier.
func (s *limiterStore) interval(tier RateLimitTier) time.Duration {
	limit := s.perMinute[tier]
	if limit <= 0 {
		return 0
	}
	return time.Minute / time.Duration(limit)
}

func (s *limiterStore) limiter(tier RateLimitTier, key string) *rate.Limiter {
	limit := s.perMinute[tier]
	if limit <= 0 {
		return nil
	}

	lookup := string(tier) + ":" + key
	if key == "" {
		lookup = string(tier)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.limiters[lookup]; ok {
		entry.lastSeen = time.Now()
		return entry.limiter
	}

	limiter := rate.NewLimiter(rate.Every(s.interval(tier)), limit)

	s.limiters[lookup] = &limiterEntry{
		limiter:  limiter,
		lastSeen: time.Now(),
	}
	return limiter
}

func (s *limiterStore) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

// cleanup removes limiter entries that haven't been accessed in 15 minutes
func (s *limiterStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	ttl := 15 * time.Minute

	for key, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > ttl {
			delete(s.limiters, key)
		}
	}
}

func (s *limiterStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
}

// parseProxies keeps the valid trusted proxy prefixes. Config validation
// already rejects malformed CIDRs.
func parseProxies(cidrs []string) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, cidr := range cidrs {
		if prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr)); err == nil {
			prefixes = append(prefixes, prefix.Masked())
		}
	}
	return prefixes
}

// clientKey identifies the client for rate limiting. X-Forwarded-For and
// X-Real-IP are only honoured when the peer is a trusted proxy.
func clientKey(r *http.Request, proxies []netip.Prefix) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}

	if !fromTrustedProxy(remote, proxies) {
		return remote
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return remote
}

func fromTrustedProxy(ip string, proxies []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range proxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
