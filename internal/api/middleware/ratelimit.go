package middleware

import (
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/zatekoja/facetedsearch/internal/infrastructure/observability"
)

// maxTrackedClients bounds the number of per-client limiters kept in memory
const maxTrackedClients = 10000

// RateLimiter throttles requests per client IP with a token bucket
type RateLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
	proxies  []netip.Prefix
}

// NewRateLimiter allows rps requests per second per client with the given
// burst. A non-positive rps disables limiting. Forwarding headers are only
// read when the peer matches trustedProxies (IPs or CIDRs).
func NewRateLimiter(rps float64, burst int, trustedProxies []string) *RateLimiter {
	limiters, _ := lru.New[string, *rate.Limiter](maxTrackedClients)
	if burst <= 0 {
		burst = int(math.Ceil(rps))
	}
	return &RateLimiter{
		limiters: limiters,
		limit:    rate.Limit(rps),
		burst:    burst,
		proxies:  parseProxies(trustedProxies),
	}
}

func parseProxies(entries []string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			addr = addr.Unmap()
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		log.Warn().Str("entry", entry).Msg("ignoring invalid trusted proxy")
	}
	return prefixes
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.limiters.Add(key, lim)
	return lim
}

// Middleware rejects requests over the limit with 429 and a Retry-After header
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	if l.limit <= 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := l.clientIP(r)
		reservation := l.limiter(ip).Reserve()
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			observability.LoggerFromContext(r.Context()).Warn().
				Str("client_ip", ip).
				Str("path", r.URL.Path).
				Msg("rate limit exceeded")

			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP keys the limiter on the peer address. Behind a trusted proxy it
// walks X-Forwarded-For from the right and takes the first untrusted hop.
func (l *RateLimiter) clientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if !l.trusted(peer) {
		return peer
	}

	var hops []string
	for _, hop := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if hop = strings.TrimSpace(hop); hop != "" {
			hops = append(hops, hop)
		}
	}
	if len(hops) == 0 {
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
		return peer
	}

	for i := len(hops) - 1; i >= 0; i-- {
		if !l.trusted(hops[i]) {
			return hops[i]
		}
	}
	return hops[0]
}

func (l *RateLimiter) trusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range l.proxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
