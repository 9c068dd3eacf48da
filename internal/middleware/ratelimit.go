package middleware

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiters hands out one token bucket per client.
type Limiters struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

func NewLimiters(limit rate.Limit, burst int) *Limiters {
	return &Limiters{
		entries: make(map[string]*limiterEntry),
		limit:   limit,
		burst:   burst,
		now:     time.Now,
	}
}

func (l *Limiters) Get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = entry
	}
	entry.lastAccess = l.now()
	return entry.limiter
}

func (l *Limiters) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Cleanup forgets clients idle for longer than ttl.
func (l *Limiters) Cleanup(ttl time.Duration) int {
	cutoff := l.now().Add(-ttl)

	l.mu.Lock()
	defer l.mu.Unlock()
	stale := lo.Keys(lo.PickBy(l.entries, func(_ string, e *limiterEntry) bool {
		return e.lastAccess.Before(cutoff)
	}))
	for _, key := range stale {
		delete(l.entries, key)
	}
	return len(stale)
}

// Run calls Cleanup every interval until ctx is done.
func (l *Limiters) Run(ctx context.Context, interval, ttl time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Cleanup(ttl)
		}
	}
}

// ClientIP is the peer address of r. X-Forwarded-For is only honoured when
// the peer is one of trustedProxies, and then the rightmost hop that is not
// a trusted proxy is the client.
func ClientIP(r *http.Request, trustedProxies []netip.Prefix) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !trusted(host, trustedProxies) {
		return host
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if _, err := netip.ParseAddr(hop); err != nil {
			break
		}
		if !trusted(hop, trustedProxies) {
			return hop
		}
	}
	return host
}

func trusted(ip string, proxies []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return lo.ContainsBy(proxies, func(p netip.Prefix) bool {
		return p.Contains(addr)
	})
}

// RateLimit answers 429 once the client has used up its bucket. Clients are
// told apart with [ClientIP].
func RateLimit(limiters *Limiters, trustedProxies ...netip.Prefix) Middleware {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.Get(ClientIP(r, trustedProxies)).Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"too many requests"}`))
				return
			}
			h.ServeHTTP(w, r)
		})
	}
}
