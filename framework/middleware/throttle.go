package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	gohttp "github.com/km-arc/arc/framework/http"
)

// Throttle applies per-key token-bucket rate limiting and short-circuits
// with 429 when a bucket is empty, so the destination never runs for a
// throttled request. Keys default to the client IP.
//
//	// Laravel: ->middleware('throttle:60,1')
//	k.AliasMiddleware("throttle", middleware.NewThrottle(rate.Limit(1), 60))
type Throttle struct {
	limit rate.Limit
	burst int

	// KeyFunc derives the bucket key from a request. Defaults to client IP.
	KeyFunc func(req *gohttp.Request) string

	mu          sync.Mutex
	buckets     map[string]*bucket
	lastCleanup time.Time

	// idle buckets older than maxIdle are pruned every cleanupInterval
	cleanupInterval time.Duration
	maxIdle         time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewThrottle builds a throttle allowing limit requests per second with the
// given burst, per key.
func NewThrottle(limit rate.Limit, burst int) *Throttle {
	return &Throttle{
		limit:           limit,
		burst:           burst,
		KeyFunc:         clientIP,
		buckets:         make(map[string]*bucket),
		cleanupInterval: time.Minute,
		maxIdle:         5 * time.Minute,
	}
}

func clientIP(req *gohttp.Request) string {
	host, _, err := net.SplitHostPort(req.IP())
	if err != nil {
		return req.IP()
	}
	return host
}

func (m *Throttle) Handle(req *gohttp.Request, next gohttp.Next) (*gohttp.Response, error) {
	key := m.KeyFunc(req)

	m.mu.Lock()
	now := time.Now()
	if now.Sub(m.lastCleanup) >= m.cleanupInterval {
		for k, b := range m.buckets {
			if now.Sub(b.lastSeen) > m.maxIdle {
				delete(m.buckets, k)
			}
		}
		m.lastCleanup = now
	}
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.buckets[key] = b
	}
	b.lastSeen = now
	m.mu.Unlock()

	if !b.limiter.Allow() {
		retryAfter := strconv.FormatFloat(float64(1/m.limit), 'f', 0, 64)
		return gohttp.Error(http.StatusTooManyRequests, "Too many requests.").
			SetHeader("Retry-After", retryAfter), nil
	}
	return next(req)
}
