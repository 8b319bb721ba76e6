// Package app holds the demo application built on the framework: the
// middleware configuration, controllers and route definitions main.go wires
// together.
package app

import (
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/km-arc/arc/framework/app"
	"github.com/km-arc/arc/framework/container"
	"github.com/km-arc/arc/framework/kernel"
	"github.com/km-arc/arc/framework/middleware"
)

// ConfigureKernel sets up the HTTP middleware stack: the global middleware,
// the route middleware aliases, and the execution priorities — the Go
// counterpart of Laravel's app/Http/Kernel.php.
func ConfigureKernel(a *app.Application, k *kernel.Kernel) {
	// Shared so the terminate hook flushes the same buffer Handle filled.
	a.Singleton("accesslog", func(c *container.Container) (any, error) {
		return middleware.NewAccessLog(slog.Default()), nil
	})

	k.PushMiddleware(
		middleware.TrimSlashes{},
		"accesslog",
		middleware.SetHeaders{Headers: map[string]string{
			"X-Frame-Options": "DENY",
		}},
	)

	// Path normalization must run before anything that inspects the path.
	k.PrioritizeMiddleware(middleware.TrimSlashes{}, 0)
	k.PrioritizeMiddleware("accesslog", 10)

	// 60 requests/minute per client IP, attachable per route.
	k.AliasMiddleware("throttle", middleware.NewThrottle(rate.Limit(1), 60))

	k.MiddlewareGroup("api", []any{"throttle"})
}
