package routing

import (
	"fmt"
	"regexp"
	"strings"

	gohttp "github.com/km-arc/arc/framework/http"
)

// placeholder matches one URI template parameter: {name} or {name?}.
var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(\?)?\}`)

// Pattern shorthands used by the Where* convenience methods.
const (
	patternNumber       = `[0-9]+`
	patternAlpha        = `[A-Za-z]+`
	patternAlphaNumeric = `[A-Za-z0-9]+`
	patternUuid         = `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`
	patternSegment      = `[^/]+` // fallback when no constraint applies
)

// ── Route ─────────────────────────────────────────────────────────────────────

// Route is one registered route: a method set, a URI template, the compiled
// matcher, and the action to run. The method set and template are fixed at
// registration; the matcher is recompiled whenever a constraint changes, so
// Where clauses added after registration affect all subsequent matching.
//
//	// Laravel: Route::get('/users/{id}', ...)->whereNumber('id')->name('users.show')
//	r.Get("/users/{id}", showUser).WhereNumber("id").Name("users.show")
type Route struct {
	router *Router

	methods     []string
	uri         string
	action      *action
	constraints map[string]string
	middleware  []any
	name        string

	// rebuilt by compile()
	matcher    *regexp.Regexp
	paramNames []string
	optional   map[string]bool
}

// newRoute builds a route and compiles its matcher.
func newRoute(router *Router, methods []string, uri string, act *action) *Route {
	rt := &Route{
		router:      router,
		methods:     methods,
		uri:         uri,
		action:      act,
		constraints: make(map[string]string),
	}
	rt.compile()
	return rt
}

// compile translates the URI template into an anchored regexp. Literal text
// is quoted; {name} becomes a capture group using the resolved pattern
// (explicit constraint, else the router's default-pattern table, else a
// generic non-slash pattern); a {name?} standing alone as the final form of
// a segment makes that whole segment optional. Constraint patterns must not
// contain capture groups of their own — WhereIn and the other helpers emit
// non-capturing forms.
//
// Compilation is idempotent: every Where call simply compiles again.
func (rt *Route) compile() {
	trimmed := strings.Trim(rt.uri, "/")

	var b strings.Builder
	b.WriteString("^")
	names := rt.paramNames[:0]
	optional := make(map[string]bool)

	if trimmed == "" {
		b.WriteString("/")
	}

	for _, seg := range strings.Split(trimmed, "/") {
		if seg == "" {
			continue
		}

		// A segment that is exactly one optional placeholder is optional
		// together with its leading slash.
		if m := placeholder.FindStringSubmatch(seg); m != nil && m[0] == seg && m[2] == "?" {
			names = append(names, m[1])
			optional[m[1]] = true
			b.WriteString("(?:/(" + rt.patternFor(m[1]) + "))?")
			continue
		}

		b.WriteString("/")
		rest := seg
		for {
			loc := placeholder.FindStringSubmatchIndex(rest)
			if loc == nil {
				b.WriteString(regexp.QuoteMeta(rest))
				break
			}
			b.WriteString(regexp.QuoteMeta(rest[:loc[0]]))
			name := rest[loc[2]:loc[3]]
			names = append(names, name)
			b.WriteString("(" + rt.patternFor(name) + ")")
			rest = rest[loc[1]:]
		}
	}

	b.WriteString("$")
	rt.matcher = regexp.MustCompile(b.String())
	rt.paramNames = names
	rt.optional = optional
}

// patternFor resolves the matching pattern for one parameter.
func (rt *Route) patternFor(name string) string {
	if p, ok := rt.constraints[name]; ok {
		return p
	}
	if p, ok := rt.router.defaultPattern(name); ok {
		return p
	}
	return patternSegment
}

// ── Matching ──────────────────────────────────────────────────────────────────

// Matches reports whether the route's compiled matcher accepts the path.
func (rt *Route) Matches(path string) bool {
	return rt.matcher.MatchString(path)
}

// Parameters extracts the route parameters from a path, in template
// declaration order. The bool is false — and the slice nil — when the path
// does not match. Optional parameters absent from the path are omitted.
func (rt *Route) Parameters(path string) ([]gohttp.Param, bool) {
	m := rt.matcher.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	out := make([]gohttp.Param, 0, len(rt.paramNames))
	for i, name := range rt.paramNames {
		v := m[i+1]
		if v == "" && rt.optional[name] {
			continue
		}
		out = append(out, gohttp.Param{Name: name, Value: v})
	}
	return out, true
}

// ── Constraint DSL ────────────────────────────────────────────────────────────

// Where constrains a parameter to a regular expression and recompiles the
// matcher immediately. The pattern must not contain capture groups; use
// (?:...) for grouping.
//
//	// Laravel: ->where('slug', '[a-z-]+')
func (rt *Route) Where(param, pattern string) *Route {
	rt.constraints[param] = pattern
	rt.compile()
	return rt
}

// WhereMap applies several constraints at once.
//
//	// Laravel: ->where(['id' => '[0-9]+', 'slug' => '[a-z-]+'])
func (rt *Route) WhereMap(constraints map[string]string) *Route {
	for param, pattern := range constraints {
		rt.constraints[param] = pattern
	}
	rt.compile()
	return rt
}

// WhereNumber constrains parameters to digits.
func (rt *Route) WhereNumber(params ...string) *Route {
	return rt.whereAll(patternNumber, params)
}

// WhereAlpha constrains parameters to ASCII letters.
func (rt *Route) WhereAlpha(params ...string) *Route {
	return rt.whereAll(patternAlpha, params)
}

// WhereAlphaNumeric constrains parameters to ASCII letters and digits.
func (rt *Route) WhereAlphaNumeric(params ...string) *Route {
	return rt.whereAll(patternAlphaNumeric, params)
}

// WhereUuid constrains parameters to the RFC 4122 textual form, any version.
func (rt *Route) WhereUuid(params ...string) *Route {
	return rt.whereAll(patternUuid, params)
}

// WhereIn constrains a parameter to an alternation of literal values.
//
//	// Laravel: ->whereIn('category', ['movie', 'song'])
func (rt *Route) WhereIn(param string, values ...string) *Route {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = regexp.QuoteMeta(v)
	}
	return rt.Where(param, "(?:"+strings.Join(quoted, "|")+")")
}

func (rt *Route) whereAll(pattern string, params []string) *Route {
	for _, p := range params {
		rt.constraints[p] = pattern
	}
	rt.compile()
	return rt
}

// ── Metadata ──────────────────────────────────────────────────────────────────

// Name registers the route in the router's named index for reverse URL
// generation. An active group name prefix was already folded in at
// registration time by AddRoute.
//
//	// Laravel: ->name('users.show')
func (rt *Route) Name(name string) *Route {
	rt.name = rt.name + name
	rt.router.nameRoute(rt)
	return rt
}

// Middleware appends middleware entries to the route. Entries are the same
// forms the kernel accepts: an http.Middleware value, a bare handler func,
// or a string alias/abstract resolved at dispatch time.
//
//	// Laravel: ->middleware('throttle')
func (rt *Route) Middleware(mw ...any) *Route {
	rt.middleware = append(rt.middleware, mw...)
	return rt
}

// Methods returns the HTTP methods the route answers.
func (rt *Route) Methods() []string {
	out := make([]string, len(rt.methods))
	copy(out, rt.methods)
	return out
}

// URI returns the URI template the route was registered with.
func (rt *Route) URI() string { return rt.uri }

// GetName returns the route's name ("" when unnamed).
func (rt *Route) GetName() string { return rt.name }

// Constraints returns a copy of the active parameter constraints.
func (rt *Route) Constraints() map[string]string {
	out := make(map[string]string, len(rt.constraints))
	for k, v := range rt.constraints {
		out[k] = v
	}
	return out
}

// MiddlewareEntries returns the route's middleware list as registered.
func (rt *Route) MiddlewareEntries() []any {
	out := make([]any, len(rt.middleware))
	copy(out, rt.middleware)
	return out
}

// url substitutes params into the URI template. Required parameters must all
// be present; optional parameters are dropped (with their segment) when
// absent.
func (rt *Route) url(params map[string]string) (string, error) {
	trimmed := strings.Trim(rt.uri, "/")
	if trimmed == "" {
		return "/", nil
	}

	var b strings.Builder
	for _, seg := range strings.Split(trimmed, "/") {
		if m := placeholder.FindStringSubmatch(seg); m != nil && m[0] == seg {
			v, ok := params[m[1]]
			if !ok {
				if m[2] == "?" {
					continue
				}
				return "", fmt.Errorf("routing: missing parameter [%s] for route %s", m[1], rt.uri)
			}
			b.WriteString("/" + v)
			continue
		}

		out := placeholder.ReplaceAllStringFunc(seg, func(ph string) string {
			name := placeholder.FindStringSubmatch(ph)[1]
			return params[name]
		})
		b.WriteString("/" + out)
	}
	return b.String(), nil
}
