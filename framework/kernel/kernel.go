package kernel

import (
	"fmt"
	"sort"

	"github.com/km-arc/arc/framework/container"
	gohttp "github.com/km-arc/arc/framework/http"
	"github.com/km-arc/arc/framework/pipeline"
	"github.com/km-arc/arc/framework/routing"
)

// ── Kernel ────────────────────────────────────────────────────────────────────

// Kernel composes the container, router and pipeline into the single
// request→response cycle: Handle wraps router dispatch in the sorted global
// middleware stack, and any error escaping the pipeline is converted to a
// response by the exception handler. One kernel serves one request at a
// time; the registration surface is for bootstrap, not concurrent mutation.
//
//	// Laravel: Illuminate\Foundation\Http\Kernel
type Kernel struct {
	container *container.Container
	router    *routing.Router

	middleware []any            // global stack, in push order
	aliases    map[string]any   // short name → middleware entry
	groups     map[string][]any // group name → middleware entries
	priority   map[string]int   // middleware key → priority (lower runs earlier)

	exceptions ExceptionHandler
}

// New builds a kernel over a container and router, installing the kernel's
// middleware resolver (alias/group expansion + priority order) on the router
// so route middleware follow the same discipline as the global stack.
func New(c *container.Container, r *routing.Router) *Kernel {
	k := &Kernel{
		container:  c,
		router:     r,
		aliases:    make(map[string]any),
		groups:     make(map[string][]any),
		priority:   make(map[string]int),
		exceptions: NewExceptionHandler(nil, false),
	}
	r.SetMiddlewareResolver(k.resolveEntries)
	return k
}

// Router returns the kernel's router.
func (k *Kernel) Router() *routing.Router { return k.router }

// SetExceptionHandler replaces the exception handler collaborator.
func (k *Kernel) SetExceptionHandler(h ExceptionHandler) {
	k.exceptions = h
}

// ── Middleware registration ───────────────────────────────────────────────────

// PushMiddleware appends middleware to the global stack.
//
//	// Laravel: $kernel->pushMiddleware(TrustProxies::class)
func (k *Kernel) PushMiddleware(mw ...any) *Kernel {
	k.middleware = append(k.middleware, mw...)
	return k
}

// PrependMiddleware puts middleware at the front of the global stack.
func (k *Kernel) PrependMiddleware(mw ...any) *Kernel {
	k.middleware = append(append([]any{}, mw...), k.middleware...)
	return k
}

// AliasMiddleware registers a short name for a middleware entry, usable in
// route middleware lists.
//
//	// Laravel: protected $middlewareAliases = ['throttle' => ThrottleRequests::class]
func (k *Kernel) AliasMiddleware(name string, mw any) *Kernel {
	k.aliases[name] = mw
	return k
}

// MiddlewareGroup names an ordered list of middleware entries; a group name
// in a middleware list expands in place.
//
//	// Laravel: protected $middlewareGroups = ['api' => [...]]
func (k *Kernel) MiddlewareGroup(name string, mw []any) *Kernel {
	k.groups[name] = mw
	return k
}

// PrioritizeMiddleware assigns a sort priority to a middleware. Lower values
// run earlier. Target is a string alias/abstract or a middleware value (keyed
// by its type). Middleware without a priority keep their registration order,
// after all prioritized entries.
//
//	// Laravel: protected $middlewarePriority = [...]
func (k *Kernel) PrioritizeMiddleware(target any, priority int) *Kernel {
	k.priority[middlewareKey(target)] = priority
	return k
}

// middlewareKey normalizes a middleware entry for priority lookup: strings
// key by name, everything else by dynamic type.
func middlewareKey(entry any) string {
	if s, ok := entry.(string); ok {
		return s
	}
	return container.TypeKey(entry)
}

// ── Expansion & ordering ──────────────────────────────────────────────────────

// expand flattens group names and aliases into concrete middleware entries.
// Groups may nest aliases but not other groups.
func (k *Kernel) expand(entries []any) []any {
	out := make([]any, 0, len(entries))
	for _, e := range entries {
		if name, ok := e.(string); ok {
			if group, isGroup := k.groups[name]; isGroup {
				for _, ge := range group {
					out = append(out, k.unalias(ge))
				}
				continue
			}
			out = append(out, k.unalias(name))
			continue
		}
		out = append(out, e)
	}
	return out
}

func (k *Kernel) unalias(e any) any {
	if name, ok := e.(string); ok {
		if target, isAlias := k.aliases[name]; isAlias {
			return target
		}
	}
	return e
}

// sortByPriority orders middleware entries by the priority table: entries
// with a priority sort ascending (stable among equals); entries without one
// keep their original relative order, after all prioritized entries.
func (k *Kernel) sortByPriority(entries []any) []any {
	type ranked struct {
		entry    any
		priority int
	}
	var prioritized []ranked
	var rest []any
	for _, e := range entries {
		if p, ok := k.priority[middlewareKey(e)]; ok {
			prioritized = append(prioritized, ranked{entry: e, priority: p})
		} else {
			rest = append(rest, e)
		}
	}
	sort.SliceStable(prioritized, func(i, j int) bool {
		return prioritized[i].priority < prioritized[j].priority
	})

	out := make([]any, 0, len(entries))
	for _, r := range prioritized {
		out = append(out, r.entry)
	}
	return append(out, rest...)
}

// resolveEntries expands, orders and resolves middleware entries into
// runnable middleware. Installed on the router for route middleware.
func (k *Kernel) resolveEntries(entries []any) ([]gohttp.Middleware, error) {
	ordered := k.sortByPriority(k.expand(entries))
	out := make([]gohttp.Middleware, 0, len(ordered))
	for _, e := range ordered {
		mw, err := k.resolveOne(e)
		if err != nil {
			return nil, err
		}
		out = append(out, mw)
	}
	return out, nil
}

// resolveOne turns one expanded entry into middleware: values pass through,
// bare funcs adapt, leftover strings resolve from the container.
func (k *Kernel) resolveOne(e any) (gohttp.Middleware, error) {
	switch v := e.(type) {
	case gohttp.Middleware:
		return v, nil
	case func(*gohttp.Request, gohttp.Next) (*gohttp.Response, error):
		return gohttp.MiddlewareFunc(v), nil
	case string:
		return container.Resolve[gohttp.Middleware](k.container, v)
	default:
		return nil, fmt.Errorf("kernel: unsupported middleware type %T", e)
	}
}

// ── Handle ────────────────────────────────────────────────────────────────────

// Handle runs one request through the global middleware pipeline into router
// dispatch and always produces a response: errors and panics escaping the
// pipeline are handed to the exception handler.
//
//	// Laravel: $response = $kernel->handle($request)
func (k *Kernel) Handle(req *gohttp.Request) *gohttp.Response {
	res, err := k.tryHandle(req)
	if err != nil {
		res = k.exceptions.Handle(err, req)
	}
	if res == nil {
		res = gohttp.ServerError()
	}
	if res.Request() == nil {
		res.SetRequest(req)
	}
	return res
}

func (k *Kernel) tryHandle(req *gohttp.Request) (res *gohttp.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("kernel: panic while handling %s %s: %v", req.Method(), req.Path(), r)
		}
	}()

	mws, err := k.resolveEntries(k.middleware)
	if err != nil {
		return nil, err
	}

	pipes := make([]any, len(mws))
	for i, mw := range mws {
		pipes[i] = pipe(mw)
	}

	out, err := pipeline.New(k.container).
		Send(req).
		Through(pipes...).
		Then(func(passable any) (any, error) {
			return k.router.Dispatch(passable.(*gohttp.Request))
		})
	if err != nil {
		return nil, err
	}

	typed, ok := out.(*gohttp.Response)
	if !ok {
		return nil, fmt.Errorf("kernel: middleware produced %T, want *http.Response", out)
	}
	return typed, nil
}

// pipe adapts typed HTTP middleware to a generic pipeline layer.
func pipe(mw gohttp.Middleware) pipeline.Handler {
	return func(passable any, next pipeline.Destination) (any, error) {
		return mw.Handle(passable.(*gohttp.Request), func(q *gohttp.Request) (*gohttp.Response, error) {
			out, err := next(q)
			if err != nil {
				return nil, err
			}
			res, _ := out.(*gohttp.Response)
			return res, nil
		})
	}
}

// ── Terminate ─────────────────────────────────────────────────────────────────

// Terminate runs the terminate hook on every global and matched-route
// middleware that defines one, synchronously, after the response has been
// handled. Middleware are re-resolved through the container, so stateful
// terminating middleware should be registered shared.
//
//	// Laravel: $kernel->terminate($request, $response)
func (k *Kernel) Terminate(req *gohttp.Request, res *gohttp.Response) {
	entries := append([]any{}, k.middleware...)
	if rt, ok := req.Route().(*routing.Route); ok {
		entries = append(entries, rt.MiddlewareEntries()...)
	}

	for _, e := range k.sortByPriority(k.expand(entries)) {
		mw, err := k.resolveOne(e)
		if err != nil {
			continue // a middleware that no longer resolves has nothing to terminate
		}
		if tm, ok := mw.(gohttp.TerminatingMiddleware); ok {
			tm.Terminate(req, res)
		}
	}
}
