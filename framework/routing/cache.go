package routing

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ── Precompiled route cache ───────────────────────────────────────────────────

// CachedRoute is one entry of the offline route manifest. Only controller
// references are cacheable: a closure has no serializable identity.
type CachedRoute struct {
	Methods     []string          `yaml:"methods"`
	URI         string            `yaml:"uri"`
	Action      string            `yaml:"action"` // "Controller@Method"
	Constraints map[string]string `yaml:"constraints,omitempty"`
	Middleware  []string          `yaml:"middleware,omitempty"`
	Name        string            `yaml:"name,omitempty"`
}

// routeManifest is the YAML document an offline optimization step emits.
type routeManifest struct {
	Routes []CachedRoute `yaml:"routes"`
}

// SetCachedRoutes bulk-loads precompiled routes, appending them to the table
// under the same (method, URI, action kind) dedup discipline as live
// registration — cached and runtime routes never collide or silently shadow
// each other.
//
//	// Laravel: `php artisan route:cache` + Router::setCompiledRoutes()
func (r *Router) SetCachedRoutes(table []CachedRoute) error {
	for _, cr := range table {
		if len(cr.Methods) == 0 || cr.URI == "" || cr.Action == "" {
			return fmt.Errorf("routing: cached route for %q is incomplete", cr.URI)
		}
		rt := r.AddRoute(cr.Methods, cr.URI, cr.Action)
		if len(cr.Constraints) > 0 {
			rt.WhereMap(cr.Constraints)
		}
		for _, mw := range cr.Middleware {
			rt.Middleware(mw)
		}
		if cr.Name != "" {
			rt.Name(cr.Name)
		}
	}
	return nil
}

// LoadCache reads a YAML route manifest and registers its routes via
// SetCachedRoutes.
func (r *Router) LoadCache(src io.Reader) error {
	raw, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("routing: reading route cache: %w", err)
	}
	var manifest routeManifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return fmt.Errorf("routing: parsing route cache: %w", err)
	}
	return r.SetCachedRoutes(manifest.Routes)
}

// DumpCache writes the current route table as a YAML manifest suitable for
// LoadCache. Routes with closure actions cannot be serialized and fail the
// dump, naming the offending route.
func (r *Router) DumpCache(dst io.Writer) error {
	seen := make(map[*Route]bool)
	var routes []*Route
	for _, list := range r.routes {
		for _, rt := range list {
			if !seen[rt] {
				seen[rt] = true
				routes = append(routes, rt)
			}
		}
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].uri != routes[j].uri {
			return routes[i].uri < routes[j].uri
		}
		return routes[i].action.kind < routes[j].action.kind
	})

	manifest := routeManifest{Routes: make([]CachedRoute, 0, len(routes))}
	for _, rt := range routes {
		if rt.action.controller == "" {
			return fmt.Errorf("routing: route %s %s uses a closure action and cannot be cached",
				strings.Join(rt.methods, "|"), rt.uri)
		}
		middleware := make([]string, 0, len(rt.middleware))
		for _, mw := range rt.middleware {
			name, ok := mw.(string)
			if !ok {
				return fmt.Errorf("routing: route %s carries non-string middleware %T and cannot be cached",
					rt.uri, mw)
			}
			middleware = append(middleware, name)
		}
		manifest.Routes = append(manifest.Routes, CachedRoute{
			Methods:     rt.Methods(),
			URI:         rt.uri,
			Action:      rt.action.controller + "@" + rt.action.method,
			Constraints: rt.Constraints(),
			Middleware:  middleware,
			Name:        rt.name,
		})
	}

	out, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("routing: encoding route cache: %w", err)
	}
	_, err = dst.Write(out)
	return err
}
