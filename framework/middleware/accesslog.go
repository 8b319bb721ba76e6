// Package middleware ships the framework's built-in HTTP middleware:
// structured access logging, per-key rate limiting, and small request and
// response mutators. Each one is an ordinary http.Middleware and can be
// pushed globally on the kernel or attached per route.
package middleware

import (
	"log/slog"
	"sync"
	"time"

	gohttp "github.com/km-arc/arc/framework/http"
)

// AccessLog records one structured log line per request. Entries are
// buffered during Handle and flushed by the terminate hook, so logging I/O
// happens after the response — register it shared so Handle and Terminate
// see the same buffer.
//
//	c.Singleton("accesslog", func(c *container.Container) (any, error) {
//	    return middleware.NewAccessLog(slog.Default()), nil
//	})
//	k.PushMiddleware("accesslog")
type AccessLog struct {
	logger *slog.Logger

	mu      sync.Mutex
	pending []accessEntry
}

type accessEntry struct {
	method   string
	path     string
	status   int
	duration time.Duration
	ip       string
}

// NewAccessLog builds the middleware. A nil logger uses slog.Default.
func NewAccessLog(logger *slog.Logger) *AccessLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessLog{logger: logger}
}

func (m *AccessLog) Handle(req *gohttp.Request, next gohttp.Next) (*gohttp.Response, error) {
	start := time.Now()
	res, err := next(req)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.pending = append(m.pending, accessEntry{
		method:   req.Method(),
		path:     req.Path(),
		status:   res.Status(),
		duration: time.Since(start),
		ip:       req.IP(),
	})
	m.mu.Unlock()
	return res, nil
}

// Terminate flushes the buffered entries after the response has gone out.
func (m *AccessLog) Terminate(req *gohttp.Request, res *gohttp.Response) {
	m.mu.Lock()
	entries := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, e := range entries {
		m.logger.Info("request handled",
			"method", e.method,
			"path", e.path,
			"status", e.status,
			"duration", e.duration,
			"ip", e.ip,
		)
	}
}
