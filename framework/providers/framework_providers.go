// Package providers ships the framework's core service providers: the
// bindings for configuration, routing and the HTTP kernel that every
// application starts from.
package providers

import (
	"log/slog"

	"github.com/km-arc/arc/framework/config"
	"github.com/km-arc/arc/framework/container"
	"github.com/km-arc/arc/framework/kernel"
	"github.com/km-arc/arc/framework/routing"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider loads the application configuration from .env and
// binds it into the container.
//
// Bound abstracts:
//   - "config" → *config.Config
//
// Laravel equivalent:
//
//	// Illuminate\Foundation\Bootstrap\LoadConfiguration
//	$app->singleton('config', fn() => new Repository($items));
type ConfigServiceProvider struct {
	container.BaseProvider
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(app *container.Container) {
	envFiles := p.EnvFiles
	app.Singleton("config", func(c *container.Container) (any, error) {
		return config.Load(envFiles...), nil
	})
	app.Alias("config", "configuration")
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router.
//
// Bound abstracts:
//   - "router" → *routing.Router
//
// Laravel equivalent:
//
//	// Illuminate\Routing\RoutingServiceProvider
//	$app->singleton('router', fn($app) => new Router($app['events'], $app));
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(app *container.Container) {
	app.Singleton("router", func(c *container.Container) (any, error) {
		return routing.New(c), nil
	})
}

// ── KernelServiceProvider ─────────────────────────────────────────────────────

// KernelServiceProvider registers the HTTP kernel over the router, wired
// with the default exception handler in the configured debug mode.
//
// Bound abstracts:
//   - "kernel" → *kernel.Kernel
//
// Laravel equivalent:
//
//	// App\Http\Kernel bound against HttpKernelContract
type KernelServiceProvider struct {
	container.BaseProvider
}

func (p *KernelServiceProvider) Register(app *container.Container) {
	app.Singleton("kernel", func(c *container.Container) (any, error) {
		router, err := container.Resolve[*routing.Router](c, "router")
		if err != nil {
			return nil, err
		}
		cfg, err := container.Resolve[*config.Config](c, "config")
		if err != nil {
			return nil, err
		}
		k := kernel.New(c, router)
		k.SetExceptionHandler(kernel.NewExceptionHandler(slog.Default(), cfg.IsDebug()))
		return k, nil
	})
}
