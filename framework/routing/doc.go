// Package routing provides the route table and matcher: Laravel-style URI
// templates compiled to regular expressions, per-parameter constraints,
// route groups, named routes with reverse URL generation, and dispatch
// through the IoC container.
//
// # Registering routes
//
//	r := routing.New(c)
//
//	// Laravel: Route::get('/users/{id}', fn($id) => ...)->whereNumber('id')
//	r.Get("/users/{id}", func(id int) *http.Response {
//	    return http.Success(map[string]any{"id": id})
//	}).WhereNumber("id").Name("users.show")
//
// Handlers are ordinary functions. Scalar parameters consume the extracted
// route parameters in template order, coerced to their declared types;
// a *http.Request parameter receives the request; anything else is resolved
// from the container.
//
// # Templates and constraints
//
// {name} captures one path segment; {name?} as the whole final segment makes
// that segment optional. Patterns come from an explicit Where clause, else
// the router's default-pattern table (seeded with id → digits, overridable
// via SetDefaultPattern), else any non-slash text. Where clauses recompile
// the matcher immediately, so constraints added after registration apply to
// every later match.
//
// # Dispatch
//
// Dispatch finds the first registered route whose matcher accepts the path
// (no specificity ranking), attaches the extracted parameters to the
// request, runs the route's middleware as an onion around the action, and
// returns the response with the originating request attached. A path that
// only matches under other methods yields *MethodNotAllowedError; otherwise
// *NotFoundError.
//
// # Route cache
//
// DumpCache and LoadCache serialize controller-action routes to a YAML
// manifest, the offline optimization artifact. Loaded routes pass through
// the same (method, URI, action kind) dedup discipline as live
// registration.
package routing
