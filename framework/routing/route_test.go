package routing_test

import (
	"reflect"
	"testing"

	"github.com/km-arc/arc/framework/container"
	gohttp "github.com/km-arc/arc/framework/http"
	"github.com/km-arc/arc/framework/routing"
)

func newRouter() *routing.Router {
	return routing.New(container.New())
}

func noop() *gohttp.Response { return gohttp.NewResponse() }

func TestRoute_MatchesLiteralAndParams(t *testing.T) {
	r := newRouter()
	rt := r.Get("/users/{id}/posts/{slug}", noop)

	if !rt.Matches("/users/42/posts/hello-world") {
		t.Error("expected match for a well-formed path")
	}
	if rt.Matches("/users/42") {
		t.Error("matched a truncated path")
	}
	if rt.Matches("/users/42/posts/a/b") {
		t.Error("matched a path with extra segments")
	}
}

func TestRoute_ParametersPreserveDeclarationOrder(t *testing.T) {
	r := newRouter()
	rt := r.Get("/posts/{year}/{month}/{slug}", noop)

	params, ok := rt.Parameters("/posts/2026/08/hello")
	if !ok {
		t.Fatal("expected a match")
	}
	want := []gohttp.Param{
		{Name: "year", Value: "2026"},
		{Name: "month", Value: "08"},
		{Name: "slug", Value: "hello"},
	}
	if !reflect.DeepEqual(params, want) {
		t.Errorf("params:\n got %v\nwant %v", params, want)
	}
}

func TestRoute_ParametersEmptyWhenNoMatch(t *testing.T) {
	r := newRouter()
	rt := r.Get("/users/{id}", noop).WhereNumber("id")

	params, ok := rt.Parameters("/users/abc")
	if ok || params != nil {
		t.Errorf("got (%v, %v), want (nil, false) on a non-match", params, ok)
	}
}

func TestRoute_WhereNumberConstraint(t *testing.T) {
	r := newRouter()
	rt := r.Get("/users/{name}", noop).WhereNumber("name")

	if !rt.Matches("/users/123") {
		t.Error("digits should match whereNumber")
	}
	if rt.Matches("/users/abc") {
		t.Error("letters should not match whereNumber")
	}
}

func TestRoute_WhereRecompilesExistingRoute(t *testing.T) {
	r := newRouter()
	rt := r.Get("/files/{name}", noop)

	if !rt.Matches("/files/archive") {
		t.Fatal("unconstrained param should match any segment")
	}

	// Constraint added after registration takes effect immediately.
	rt.Where("name", "[a-z]+\\.txt")
	if rt.Matches("/files/archive") {
		t.Error("old pattern still matching after Where")
	}
	if !rt.Matches("/files/notes.txt") {
		t.Error("new pattern not matching after Where")
	}
}

func TestRoute_WhereConvenienceHelpers(t *testing.T) {
	cases := map[string]struct {
		build func(rt *routing.Route) *routing.Route
		ok    []string
		bad   []string
	}{
		"alpha": {
			build: func(rt *routing.Route) *routing.Route { return rt.WhereAlpha("v") },
			ok:    []string{"/x/abc", "/x/ABC"},
			bad:   []string{"/x/a1", "/x/a-b"},
		},
		"alphanumeric": {
			build: func(rt *routing.Route) *routing.Route { return rt.WhereAlphaNumeric("v") },
			ok:    []string{"/x/abc123"},
			bad:   []string{"/x/a_b", "/x/a-b"},
		},
		"uuid": {
			build: func(rt *routing.Route) *routing.Route { return rt.WhereUuid("v") },
			ok:    []string{"/x/550e8400-e29b-41d4-a716-446655440000"},
			bad:   []string{"/x/550e8400", "/x/zzze8400-e29b-41d4-a716-446655440000"},
		},
		"in": {
			build: func(rt *routing.Route) *routing.Route { return rt.WhereIn("v", "movie", "song") },
			ok:    []string{"/x/movie", "/x/song"},
			bad:   []string{"/x/book", "/x/movies"},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rt := tc.build(newRouter().Get("/x/{v}", noop))
			for _, p := range tc.ok {
				if !rt.Matches(p) {
					t.Errorf("%s should match", p)
				}
			}
			for _, p := range tc.bad {
				if rt.Matches(p) {
					t.Errorf("%s should not match", p)
				}
			}
		})
	}
}

func TestRoute_OptionalParameter(t *testing.T) {
	r := newRouter()
	rt := r.Get("/archive/{year}/{month?}", noop).WhereNumber("year", "month")

	if !rt.Matches("/archive/2026") {
		t.Error("path without the optional segment should match")
	}
	if !rt.Matches("/archive/2026/08") {
		t.Error("path with the optional segment should match")
	}

	params, _ := rt.Parameters("/archive/2026")
	want := []gohttp.Param{{Name: "year", Value: "2026"}}
	if !reflect.DeepEqual(params, want) {
		t.Errorf("absent optional param should be omitted: got %v", params)
	}

	params, _ = rt.Parameters("/archive/2026/08")
	want = []gohttp.Param{{Name: "year", Value: "2026"}, {Name: "month", Value: "08"}}
	if !reflect.DeepEqual(params, want) {
		t.Errorf("present optional param: got %v, want %v", params, want)
	}
}

func TestRoute_DefaultPatternForId(t *testing.T) {
	r := newRouter()
	rt := r.Get("/users/{id}", noop) // no explicit constraint

	if !rt.Matches("/users/42") {
		t.Error("numeric id should match the default pattern")
	}
	if rt.Matches("/users/abc") {
		t.Error("the default-pattern table should constrain {id} to digits")
	}
}

func TestRouter_SetDefaultPatternOverride(t *testing.T) {
	r := newRouter()
	r.SetDefaultPattern("id", "") // remove the convention
	rt := r.Get("/users/{id}", noop)

	if !rt.Matches("/users/abc") {
		t.Error("with the default removed, {id} should match any segment")
	}

	r.SetDefaultPattern("slug", "[a-z-]+")
	rt2 := r.Get("/posts/{slug}", noop)
	if rt2.Matches("/posts/UPPER") {
		t.Error("custom default pattern should apply to {slug}")
	}
}

func TestRoute_LiteralSegmentsAreEscaped(t *testing.T) {
	r := newRouter()
	rt := r.Get("/v1.0/ping", noop)

	if !rt.Matches("/v1.0/ping") {
		t.Error("literal path should match itself")
	}
	if rt.Matches("/v1x0/ping") {
		t.Error("dot in a literal segment must not act as a regex wildcard")
	}
}

func TestRoute_NameRegistersForURLGeneration(t *testing.T) {
	r := newRouter()
	r.Get("/users/{id}", noop).Name("users.show")

	url, err := r.URL("users.show", map[string]string{"id": "42"})
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if url != "/users/42" {
		t.Errorf("got %q, want /users/42", url)
	}
}
