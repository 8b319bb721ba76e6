// Package app bootstraps an application: container, core service providers,
// and the net/http serving seam around the kernel.
package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/km-arc/arc/framework/config"
	"github.com/km-arc/arc/framework/container"
	gohttp "github.com/km-arc/arc/framework/http"
	"github.com/km-arc/arc/framework/kernel"
	"github.com/km-arc/arc/framework/providers"
	"github.com/km-arc/arc/framework/routing"
)

// Application is the top-level application context: the IoC container plus
// the provider registry, constructed explicitly and threaded through the
// kernel, router and pipeline — never retrieved from ambient global state.
// User code calls app.Bind(), app.Singleton(), app.Register() directly,
// like $app in Laravel's bootstrap/app.php.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry
}

// New creates an application and registers the framework core providers.
func New(envFiles ...string) *Application {
	c := container.New()
	registry := container.NewProviderRegistry(c)

	app := &Application{
		Container: c,
		Providers: registry,
	}

	registry.Register(&providers.ConfigServiceProvider{EnvFiles: envFiles})
	registry.Register(&providers.RoutingServiceProvider{})
	registry.Register(&providers.KernelServiceProvider{})

	return app
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) {
	a.Providers.Register(provider)
}

// Boot runs the Boot phase on all providers.
func (a *Application) Boot() {
	a.Providers.Boot()
}

// Config resolves *config.Config from the container.
func (a *Application) Config() *config.Config {
	return container.MustResolve[*config.Config](a.Container, "config")
}

// Router resolves *routing.Router from the container.
func (a *Application) Router() *routing.Router {
	return container.MustResolve[*routing.Router](a.Container, "router")
}

// Kernel resolves *kernel.Kernel from the container.
func (a *Application) Kernel() *kernel.Kernel {
	return container.MustResolve[*kernel.Kernel](a.Container, "kernel")
}

// Handler adapts the kernel to net/http: each incoming request is wrapped,
// handed to Kernel.Handle (which always produces a response), flushed, and
// terminated. Chi's RequestID and RealIP middleware run outside the kernel
// so every layer inside sees the final values.
func (a *Application) Handler() http.Handler {
	if !a.Providers.Booted() {
		a.Boot()
	}
	k := a.Kernel()

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := gohttp.FromHTTP(r)
		res := k.Handle(req)
		if err := res.Write(w); err != nil {
			slog.Error("writing response", "error", err, "path", r.URL.Path)
		}
		k.Terminate(req, res)
	}))
	return mux
}

// Run boots the application (if needed) and serves HTTP on the configured
// address until the server stops.
func (a *Application) Run() error {
	handler := a.Handler()
	cfg := a.Config()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	slog.Info("server starting",
		"app", cfg.App.Name,
		"addr", srv.Addr,
		"env", cfg.App.Env,
	)
	return srv.ListenAndServe()
}

// Environment returns the APP_ENV value.
func (a *Application) Environment() string { return a.Config().App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config().App.Debug }
