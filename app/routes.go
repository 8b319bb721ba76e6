package app

import (
	"github.com/km-arc/arc/framework/app"
	"github.com/km-arc/arc/framework/container"
	gohttp "github.com/km-arc/arc/framework/http"
	"github.com/km-arc/arc/framework/routing"
)

// RegisterRoutes binds the demo's controllers and declares the route table —
// the counterpart of routes/api.php.
func RegisterRoutes(a *app.Application, r *routing.Router) {
	a.Singleton("UserController", func(c *container.Container) (any, error) {
		return NewUserController(newUserStore()), nil
	})

	r.Get("/", func() *gohttp.Response {
		return gohttp.Success(map[string]any{"message": "Welcome to arc."})
	}).Name("home")

	r.Group(routing.Group{Prefix: "/api/v1", Middleware: []any{"api"}, As: "users."}, func(r *routing.Router) {
		r.Get("/users", "UserController@Index").Name("index")
		r.Post("/users", "UserController@Store").Name("store")
		r.Get("/users/{id}", "UserController@Show").WhereNumber("id").Name("show")
		r.Delete("/users/{id}", "UserController@Destroy").WhereNumber("id").Name("destroy")
	})

	// The optional month reaches the handler through the variadic tail.
	r.Get("/archive/{year}/{month?}", func(year int, month ...int) *gohttp.Response {
		out := map[string]any{"year": year}
		if len(month) > 0 {
			out["month"] = month[0]
		}
		return gohttp.Success(out)
	}).WhereNumber("year", "month")
}
