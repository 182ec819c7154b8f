package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/MrSnakeDoc/shelf/internal/utils"
)

type RateLimitConfig struct {
	Burst         int
	RefillPerMin  int
	MaxEntries    int
	SweepInterval time.Duration
	IdleTTL       time.Duration
	TrustProxy    bool // resolve IP from proxy headers when true
}

type bucket struct {
	mu       sync.Mutex
	tokens   float64
	lastRef  time.Time
	lastSeen time.Time
}

type limiter struct {
	cfg       RateLimitConfig
	rate      float64
	capacity  float64
	buckets   *xsync.MapOf[string, *bucket]
	lastSweep atomic.Int64 // unix nanos
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.RefillPerMin < 1 {
		cfg.RefillPerMin = 1
	}
	l := &limiter{
		cfg:      cfg,
		rate:     float64(cfg.RefillPerMin) / 60.0,
		capacity: float64(cfg.Burst),
		buckets:  xsync.NewMapOf[string, *bucket](),
	}
	l.lastSweep.Store(time.Now().UnixNano())
	return l
}

func (l *limiter) getBucket(key string, now time.Time) *bucket {
	if l.cfg.MaxEntries > 0 && l.buckets.Size() >= l.cfg.MaxEntries {
		l.sweep(now)
	}
	b, _ := l.buckets.LoadOrCompute(key, func() *bucket {
		return &bucket{tokens: l.capacity, lastRef: now, lastSeen: now}
	})
	return b
}

func (l *limiter) allow(key string, now time.Time) (ok bool, remaining int, retryAfterSec int) {
	b := l.getBucket(key, now)

	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now.Sub(b.lastRef).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(l.capacity, b.tokens+elapsed*l.rate)
		b.lastRef = now
	}

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		b.lastSeen = now
		return true, int(math.Floor(b.tokens)), 0
	}

	needed := 1.0 - b.tokens
	sec := int(math.Ceil(needed / l.rate))
	if sec < 1 {
		sec = 1
	}
	return false, int(math.Floor(b.tokens)), sec
}

func (l *limiter) sweep(now time.Time) {
	ttl := l.cfg.IdleTTL
	l.buckets.Range(func(key string, b *bucket) bool {
		b.mu.Lock()
		idle := now.Sub(b.lastSeen) > ttl
		b.mu.Unlock()
		if idle {
			l.buckets.Delete(key)
		}
		return true
	})
	l.lastSweep.Store(now.UnixNano())
}

func (l *limiter) sweepMaybe(now time.Time) {
	last := l.lastSweep.Load()
	if now.UnixNano()-last < int64(l.cfg.SweepInterval) {
		return
	}
	// One caller wins the sweep, the others move on.
	if l.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		l.sweep(now)
	}
}

// key buckets authenticated callers by principal and anonymous ones by IP.
func (l *limiter) key(r *http.Request) string {
	if p := PrincipalFrom(r.Context()); p != nil {
		return p.Key()
	}
	return "ip:" + utils.ClientIP(r, l.cfg.TrustProxy)
}

func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := newLimiter(cfg)
	limitStr := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			l.sweepMaybe(now)

			ok, remaining, retry := l.allow(l.key(r), now)
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("X-RateLimit-Limit", limitStr)
				w.Header().Set("X-RateLimit-Remaining", "0")
				reject(w, http.StatusTooManyRequests, CodeRateLimited, "too many requests, retry in "+strconv.Itoa(retry)+"s")
				return
			}

			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", limitStr)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			next.ServeHTTP(w, r)
		})
	}
}
