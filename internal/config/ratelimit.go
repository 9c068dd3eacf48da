package config

import (
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type RateLimit struct {
	Limit rate.Limit
	Burst int
	// TTL is how long an idle client keeps its limiter.
	TTL time.Duration
	// TrustedProxies may set X-Forwarded-For for the clients behind them.
	TrustedProxies []netip.Prefix
}

// parseTrustedProxies reads a comma separated list of addresses and CIDR
// ranges.
func parseTrustedProxies(s string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			prefix, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES env variable: %w", err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES env variable: %w", err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func NewRateLimit() (*RateLimit, error) {
	rps, err := envFloat("RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, err
	}
	burst, err := envInt("RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, err
	}
	ttl, err := envDuration("RATE_LIMITER_TTL", time.Hour)
	if err != nil {
		return nil, err
	}
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rate limit must be positive (rps = %v, burst = %d)", rps, burst)
	}
	trusted, err := parseTrustedProxies(os.Getenv("TRUSTED_PROXIES"))
	if err != nil {
		return nil, err
	}
	return &RateLimit{
		Limit:          rate.Limit(rps),
		Burst:          burst,
		TTL:            ttl,
		TrustedProxies: trusted,
	}, nil
}
