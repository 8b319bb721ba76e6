package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/km-arc/arc/framework/container"
	gohttp "github.com/km-arc/arc/framework/http"
)

// methodsAll is the method list Any registers.
var methodsAll = []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}

// routeKey identifies a table entry for deduplication. The action kind is
// part of the key so re-running a route file skips true duplicates while a
// closure route and a controller route on the same method+URI stay distinct.
type routeKey struct {
	method string
	uri    string
	kind   string
}

// Group holds the attributes a route group applies to the routes registered
// inside it. Groups nest: prefixes and middleware accumulate outermost-first,
// while Namespace is taken from the innermost group that sets one.
//
//	// Laravel: Route::prefix('admin')->middleware('auth')->group(fn() => ...)
//	r.Group(routing.Group{Prefix: "/admin", Middleware: []any{"auth"}}, func(r *routing.Router) {
//	    r.Get("/users", listUsers)
//	})
type Group struct {
	Prefix     string
	Middleware []any
	Namespace  string
	As         string // name prefix for routes registered inside
}

// MiddlewareResolver turns raw route middleware entries (values, funcs,
// string aliases) into runnable middleware. The kernel installs one that
// expands aliases and groups and applies the priority order; without a
// kernel the router falls back to direct resolution.
type MiddlewareResolver func(entries []any) ([]gohttp.Middleware, error)

// ── Router ────────────────────────────────────────────────────────────────────

// Router is the route table and matcher: it stores routes per HTTP method in
// registration order, matches a concrete path against their compiled
// templates (first match wins), and dispatches to the winning route's action
// through the container.
type Router struct {
	container *container.Container

	routes map[string][]*Route
	dedup  map[routeKey]*Route
	named  map[string]*Route

	groupStack []Group

	// defaults supplies a pattern for conventionally named parameters that
	// carry no explicit constraint. Explicit, documented, overridable — see
	// SetDefaultPattern.
	defaults map[string]string

	resolver MiddlewareResolver
}

// New creates a router resolving controllers and middleware from c. The
// default-pattern table starts with "id" → digits.
func New(c *container.Container) *Router {
	return &Router{
		container: c,
		routes:    make(map[string][]*Route),
		dedup:     make(map[routeKey]*Route),
		named:     make(map[string]*Route),
		defaults:  map[string]string{"id": patternNumber},
	}
}

// SetDefaultPattern sets the pattern applied to any parameter named param
// that has no explicit Where constraint. An empty pattern removes the entry.
// Existing routes recompile on their next constraint change only; set
// defaults before registering routes.
//
//	// Laravel: Route::pattern('id', '[0-9]+')
func (r *Router) SetDefaultPattern(param, pattern string) {
	if pattern == "" {
		delete(r.defaults, param)
		return
	}
	r.defaults[param] = pattern
}

func (r *Router) defaultPattern(param string) (string, bool) {
	p, ok := r.defaults[param]
	return p, ok
}

// SetMiddlewareResolver installs the hook that expands and orders route
// middleware at dispatch time. The kernel calls this during boot.
func (r *Router) SetMiddlewareResolver(resolver MiddlewareResolver) {
	r.resolver = resolver
}

// ── Registration ──────────────────────────────────────────────────────────────

// AddRoute registers one route for each method, honoring the active group
// stack (prefix, middleware, namespace, name prefix). Registering the same
// (method, URI, action kind) again is a no-op on the table; when every
// method is a duplicate the already-registered route is returned so chained
// calls mutate the entry that matches.
//
// GET implicitly registers HEAD, like Laravel.
func (r *Router) AddRoute(methods []string, uri string, act any) *Route {
	prefix, groupMW, namespace, namePrefix := r.groupAttributes()

	uri = normalizeURI(prefix + "/" + strings.Trim(uri, "/"))

	if len(methods) == 0 {
		panic(fmt.Errorf("routing: route %q registered with no methods", uri))
	}
	classified, err := classifyAction(act, namespace)
	if err != nil {
		panic(err) // malformed registration is a programmer error
	}

	expanded := make([]string, 0, len(methods)+1)
	hasHead := false
	hasGet := false
	for _, m := range methods {
		m = strings.ToUpper(m)
		expanded = append(expanded, m)
		hasGet = hasGet || m == "GET"
		hasHead = hasHead || m == "HEAD"
	}
	if hasGet && !hasHead {
		expanded = append(expanded, "HEAD")
	}

	accepted := make([]string, 0, len(expanded))
	var existing *Route
	for _, m := range expanded {
		key := routeKey{method: m, uri: uri, kind: classified.kind}
		if prior, dup := r.dedup[key]; dup {
			existing = prior
			continue
		}
		accepted = append(accepted, m)
	}
	if len(accepted) == 0 {
		// Every method was already registered. Hand back the live table
		// entry so chained Name/Where calls land on the route that will
		// actually match, not on a detached duplicate.
		return existing
	}

	rt := newRoute(r, accepted, uri, classified)
	rt.middleware = append(rt.middleware, groupMW...)
	rt.name = namePrefix

	for _, m := range accepted {
		r.dedup[routeKey{method: m, uri: uri, kind: classified.kind}] = rt
		r.routes[m] = append(r.routes[m], rt)
	}
	return rt
}

// Get registers a GET (and HEAD) route.
//
//	// Laravel: Route::get('/users/{id}', fn($id) => ...)
func (r *Router) Get(uri string, action any) *Route {
	return r.AddRoute([]string{"GET"}, uri, action)
}

// Post registers a POST route.
func (r *Router) Post(uri string, action any) *Route {
	return r.AddRoute([]string{"POST"}, uri, action)
}

// Put registers a PUT route.
func (r *Router) Put(uri string, action any) *Route {
	return r.AddRoute([]string{"PUT"}, uri, action)
}

// Patch registers a PATCH route.
func (r *Router) Patch(uri string, action any) *Route {
	return r.AddRoute([]string{"PATCH"}, uri, action)
}

// Delete registers a DELETE route.
func (r *Router) Delete(uri string, action any) *Route {
	return r.AddRoute([]string{"DELETE"}, uri, action)
}

// Options registers an OPTIONS route.
func (r *Router) Options(uri string, action any) *Route {
	return r.AddRoute([]string{"OPTIONS"}, uri, action)
}

// Match registers a route for an explicit method list.
//
//	// Laravel: Route::match(['get', 'post'], '/form', ...)
func (r *Router) Match(methods []string, uri string, action any) *Route {
	return r.AddRoute(methods, uri, action)
}

// Any registers a route for every common HTTP method.
func (r *Router) Any(uri string, action any) *Route {
	return r.AddRoute(methodsAll, uri, action)
}

// Group pushes attributes onto the group stack, runs fn (which may register
// routes and nest further groups), and pops.
func (r *Router) Group(attrs Group, fn func(r *Router)) {
	r.groupStack = append(r.groupStack, attrs)
	defer func() {
		r.groupStack = r.groupStack[:len(r.groupStack)-1]
	}()
	fn(r)
}

// groupAttributes folds the active group stack: prefixes concatenate and
// middleware accumulate outermost-first; namespace comes from the innermost
// group that sets one.
func (r *Router) groupAttributes() (prefix string, mw []any, namespace, namePrefix string) {
	for _, g := range r.groupStack {
		if g.Prefix != "" {
			prefix += "/" + strings.Trim(g.Prefix, "/")
		}
		mw = append(mw, g.Middleware...)
		if g.Namespace != "" {
			namespace = g.Namespace
		}
		namePrefix += g.As
	}
	return prefix, mw, namespace, namePrefix
}

// nameRoute indexes a named route, last registration winning.
func (r *Router) nameRoute(rt *Route) {
	if rt.name != "" {
		r.named[rt.name] = rt
	}
}

// ── Dispatch ──────────────────────────────────────────────────────────────────

// Dispatch matches the request against the route table and runs the winning
// route's action. Matching is first-registered-wins within the request's
// method; when no route matches but another method would accept the path, a
// *MethodNotAllowedError carries the allowed set, otherwise *NotFoundError.
//
// On a match the extracted parameters are attached to the request, the
// route's middleware run as an onion around the action, and the response
// carries the originating request.
func (r *Router) Dispatch(req *gohttp.Request) (*gohttp.Response, error) {
	method := strings.ToUpper(req.Method())
	path := normalizeURI(req.Path())

	for _, rt := range r.routes[method] {
		if rt.Matches(path) {
			return r.run(rt, req, path)
		}
	}

	if allowed := r.allowedMethods(method, path); len(allowed) > 0 {
		return nil, &MethodNotAllowedError{Method: method, Path: path, Allowed: allowed}
	}
	return nil, &NotFoundError{Method: method, Path: path}
}

// allowedMethods scans the other method tables for one that accepts path.
func (r *Router) allowedMethods(method, path string) []string {
	var allowed []string
	for m, routes := range r.routes {
		if m == method {
			continue
		}
		for _, rt := range routes {
			if rt.Matches(path) {
				allowed = append(allowed, m)
				break
			}
		}
	}
	sort.Strings(allowed)
	return allowed
}

// run executes one matched route: parameters, route middleware, action.
func (r *Router) run(rt *Route, req *gohttp.Request, path string) (*gohttp.Response, error) {
	params, _ := rt.Parameters(path)
	req.SetRouteParams(params)
	req.SetRoute(rt)

	mws, err := r.resolveMiddleware(rt.middleware)
	if err != nil {
		return nil, err
	}

	next := func(q *gohttp.Request) (*gohttp.Response, error) {
		out, err := rt.action.invoke(r.container, q, params)
		if err != nil {
			return nil, err
		}
		return toResponse(out), nil
	}
	for i := len(mws) - 1; i >= 0; i-- {
		mw, inner := mws[i], next
		next = func(q *gohttp.Request) (*gohttp.Response, error) {
			return mw.Handle(q, inner)
		}
	}

	res, err := next(req)
	if err != nil {
		return nil, err
	}
	return res.SetRequest(req), nil
}

// resolveMiddleware turns the route's raw middleware entries into runnable
// middleware, through the kernel's resolver when one is installed.
func (r *Router) resolveMiddleware(entries []any) ([]gohttp.Middleware, error) {
	if r.resolver != nil {
		return r.resolver(entries)
	}
	out := make([]gohttp.Middleware, 0, len(entries))
	for _, e := range entries {
		switch v := e.(type) {
		case gohttp.Middleware:
			out = append(out, v)
		case func(*gohttp.Request, gohttp.Next) (*gohttp.Response, error):
			out = append(out, gohttp.MiddlewareFunc(v))
		case string:
			resolved, err := container.Resolve[gohttp.Middleware](r.container, v)
			if err != nil {
				return nil, err
			}
			out = append(out, resolved)
		default:
			return nil, fmt.Errorf("routing: unsupported middleware type %T", e)
		}
	}
	return out, nil
}

// toResponse converts an action result into a response: a *Response passes
// through, nil becomes an empty 200, a string becomes plain text, anything
// else is JSON-encoded — Laravel's implicit response conversion.
func toResponse(out any) *gohttp.Response {
	switch v := out.(type) {
	case *gohttp.Response:
		// A typed nil slips past the untyped-nil case below.
		if v == nil {
			return gohttp.NewResponse()
		}
		return v
	case nil:
		return gohttp.NewResponse()
	case string:
		return gohttp.Text(200, v)
	default:
		return gohttp.JSON(200, v)
	}
}

// ── Reverse URL generation ────────────────────────────────────────────────────

// URL generates the path for a named route, substituting params into the
// template. Unknown names and missing required parameters error.
//
//	// Laravel: route('users.show', ['id' => 42])
//	path, err := r.URL("users.show", map[string]string{"id": "42"})
func (r *Router) URL(name string, params map[string]string) (string, error) {
	rt, ok := r.named[name]
	if !ok {
		return "", fmt.Errorf("routing: no route named [%s]", name)
	}
	return rt.url(params)
}

// Routes returns the table's routes for one method, in registration order.
func (r *Router) Routes(method string) []*Route {
	list := r.routes[strings.ToUpper(method)]
	out := make([]*Route, len(list))
	copy(out, list)
	return out
}

// normalizeURI collapses a path to the canonical "/segment/segment" form:
// leading slash, no trailing slash, no doubled slashes.
func normalizeURI(uri string) string {
	segs := strings.Split(uri, "/")
	kept := segs[:0]
	for _, s := range segs {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return "/" + strings.Join(kept, "/")
}
