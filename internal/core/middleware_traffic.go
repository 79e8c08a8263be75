package core

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"weathernow/internal/types"
)

// idleClientTTL is how long a client's bucket survives without requests.
const idleClientTTL = 10 * time.Minute

// RateLimitStore decides whether one more request from key may proceed.
type RateLimitStore interface {
	Allow(ctx context.Context, key string) (RateLimitResult, error)
}

// RateLimitResult contains the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed bool
	// Limit is the bucket size, Remaining the whole tokens left after this
	// request.
	Limit     int
	Remaining int
	// ResetAt is when the next token becomes available.
	ResetAt time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryRateLimitStore keeps one token bucket per client in process memory.
// Idle buckets are swept lazily on access.
type MemoryRateLimitStore struct {
	mu        sync.Mutex
	buckets   map[string]*clientBucket
	limit     rate.Limit
	burst     int
	clock     types.Clock
	lastSweep time.Time
}

// NewMemoryRateLimitStore allows perMinute requests per client with bursts
// up to burst.
func NewMemoryRateLimitStore(perMinute, burst int, clock types.Clock) *MemoryRateLimitStore {
	if clock == nil {
		clock = types.RealClock{}
	}
	if burst < 1 {
		burst = 1
	}
	return &MemoryRateLimitStore{
		buckets: make(map[string]*clientBucket),
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		clock:   clock,
	}
}

// Allow takes one token from key's bucket if one is available.
func (m *MemoryRateLimitStore) Allow(_ context.Context, key string) (RateLimitResult, error) {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) > idleClientTTL {
		for k, b := range m.buckets {
			if now.Sub(b.lastSeen) > idleClientTTL {
				delete(m.buckets, k)
			}
		}
		m.lastSweep = now
	}

	b, ok := m.buckets[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)

	res := RateLimitResult{
		Allowed:   allowed,
		Limit:     m.burst,
		Remaining: max(0, int(math.Floor(tokens))),
		ResetAt:   now,
	}
	if tokens < 1 && m.limit > 0 {
		wait := time.Duration((1 - tokens) / float64(m.limit) * float64(time.Second))
		res.ResetAt = now.Add(wait)
	}
	return res, nil
}

// RateLimit enforces the per-client budget on the /v1 routes, keyed by
// client IP. X-Forwarded-For is only consulted when TrustProxyHeaders is set. With no store configured it passes everything through. Store
// errors fail open.
//
// Every checked response carries X-RateLimit-Limit, X-RateLimit-Remaining
// and X-RateLimit-Reset; a 429 also carries Retry-After.
func (s *Server) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.RateLimitStore == nil {
			next.ServeHTTP(w, r)
			return
		}

		ip := extractClientIP(r, s.TrustProxyHeaders)
		result, err := s.RateLimitStore.Allow(r.Context(), ip)
		if err != nil {
			s.Logger.Error("rate limit store error",
				slog.String("client_ip", ip),
				slog.String("error", err.Error()),
			)
			next.ServeHTTP(w, r)
			return
		}

		setRateLimitHeaders(w, result)

		if !result.Allowed {
			s.Logger.Warn("rate limit exceeded",
				slog.String("client_ip", ip),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)

			retryAfter := int(math.Ceil(time.Until(result.ResetAt).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			Error(w, r, types.NewAppError(
				types.ErrCodeRateLimited,
				"Too many requests. Please slow down.",
				nil,
			))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func setRateLimitHeaders(w http.ResponseWriter, result RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// extractClientIP returns RemoteAddr without its port. With trustProxy it
// prefers the first X-Forwarded-For entry.
func extractClientIP(r *http.Request, trustProxy bool) string {
	if xff := r.Header.Get("X-Forwarded-For"); trustProxy && xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
