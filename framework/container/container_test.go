package container_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/km-arc/arc/framework/container"
)

// ── Bind / Singleton / Instance ───────────────────────────────────────────────

type widget struct{ id int }

func TestContainer_Bind_TransientReturnsFreshInstances(t *testing.T) {
	c := container.New()
	n := 0
	c.Bind("widget", func(c *container.Container) (any, error) {
		n++
		return &widget{id: n}, nil
	})

	a := c.MustMake("widget").(*widget)
	b := c.MustMake("widget").(*widget)

	if a == b {
		t.Error("transient binding should build a new instance per Make")
	}
	if n != 2 {
		t.Errorf("factory should run twice, ran %d times", n)
	}
}

func TestContainer_Singleton_FactoryRunsOnce(t *testing.T) {
	c := container.New()
	n := 0
	c.Singleton("widget", func(c *container.Container) (any, error) {
		n++
		return &widget{id: n}, nil
	})

	a := c.MustMake("widget").(*widget)
	b := c.MustMake("widget").(*widget)

	if a != b {
		t.Error("singleton should return the cached instance")
	}
	if n != 1 {
		t.Errorf("singleton factory should run once, ran %d times", n)
	}
}

func TestContainer_Singleton_FailedFactoryIsNotCached(t *testing.T) {
	c := container.New()
	n := 0
	c.Singleton("flaky", func(c *container.Container) (any, error) {
		n++
		if n == 1 {
			return nil, errors.New("boom")
		}
		return "ok", nil
	})

	if _, err := c.Make("flaky"); err == nil {
		t.Fatal("first Make should fail")
	}
	got, err := c.Make("flaky")
	if err != nil {
		t.Fatalf("second Make: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %v, want 'ok'", got)
	}
}

func TestContainer_Instance_ReturnsSameValue(t *testing.T) {
	c := container.New()
	w := &widget{id: 7}
	c.Instance("widget", w)

	if got := c.MustMake("widget"); got != w {
		t.Errorf("got %v, want the registered instance", got)
	}
}

func TestContainer_Rebind_DropsCachedSingleton(t *testing.T) {
	c := container.New()
	c.Singleton("svc", func(c *container.Container) (any, error) { return "first", nil })
	if got := c.MustMake("svc"); got != "first" {
		t.Fatalf("got %v, want 'first'", got)
	}

	// Last write wins: the cached instance is discarded
	c.Singleton("svc", func(c *container.Container) (any, error) { return "second", nil })
	if got := c.MustMake("svc"); got != "second" {
		t.Errorf("got %v, want 'second' after re-bind", got)
	}
}

func TestContainer_SelfBinding_ResolvesContainer(t *testing.T) {
	c := container.New()
	if got := c.MustMake("container"); got != c {
		t.Error("'container' should resolve to the container itself")
	}
}

// ── Aliases ───────────────────────────────────────────────────────────────────

func TestContainer_Alias_ResolvesThroughAlias(t *testing.T) {
	c := container.New()
	c.Singleton("cache", func(c *container.Container) (any, error) { return "redis", nil })
	c.Alias("cache", "cacheManager")

	if got := c.MustMake("cacheManager"); got != "redis" {
		t.Errorf("alias: got %v, want 'redis'", got)
	}
}

func TestContainer_Alias_SelfAliasPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("aliasing an abstract to itself should panic")
		}
	}()
	container.New().Alias("cache", "cache")
}

// ── Resolution errors ─────────────────────────────────────────────────────────

func TestContainer_Make_UnknownAbstractFails(t *testing.T) {
	c := container.New()

	_, err := c.Make("missing")

	var bre *container.BindingResolutionError
	if !errors.As(err, &bre) {
		t.Fatalf("want *BindingResolutionError, got %v", err)
	}
	if bre.Abstract != "missing" {
		t.Errorf("Abstract: got %q, want 'missing'", bre.Abstract)
	}
}

func TestContainer_Make_FactoryErrorIsWrapped(t *testing.T) {
	c := container.New()
	sentinel := errors.New("db unreachable")
	c.Bind("db", func(c *container.Container) (any, error) { return nil, sentinel })

	_, err := c.Make("db")

	var bre *container.BindingResolutionError
	if !errors.As(err, &bre) {
		t.Fatalf("want *BindingResolutionError, got %v", err)
	}
	if !errors.Is(err, sentinel) {
		t.Error("factory error should be reachable via errors.Is")
	}
}

func TestContainer_Make_NestedFailureNamesInnerAbstract(t *testing.T) {
	c := container.New()
	c.Bind("outer", func(c *container.Container) (any, error) {
		return c.Make("inner-missing")
	})

	_, err := c.Make("outer")

	var bre *container.BindingResolutionError
	if !errors.As(err, &bre) {
		t.Fatalf("want *BindingResolutionError, got %v", err)
	}
	if bre.Abstract != "inner-missing" {
		t.Errorf("Abstract: got %q, want the inner abstract", bre.Abstract)
	}
}

func TestContainer_MustMake_PanicsOnFailure(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustMake should panic when resolution fails")
		}
	}()
	container.New().MustMake("missing")
}

// ── Circular dependencies ─────────────────────────────────────────────────────

func TestContainer_Make_CycleIsDetected(t *testing.T) {
	c := container.New()
	c.Bind("A", func(c *container.Container) (any, error) { return c.Make("B") })
	c.Bind("B", func(c *container.Container) (any, error) { return c.Make("A") })

	_, err := c.Make("A")

	var cde *container.CircularDependencyError
	if !errors.As(err, &cde) {
		t.Fatalf("want *CircularDependencyError, got %v", err)
	}
	want := []string{"A", "B", "A"}
	if !reflect.DeepEqual(cde.Stack, want) {
		t.Errorf("Stack: got %v, want %v", cde.Stack, want)
	}
}

func TestContainer_Make_SelfCycleIsDetected(t *testing.T) {
	c := container.New()
	c.Bind("A", func(c *container.Container) (any, error) { return c.Make("A") })

	_, err := c.Make("A")

	var cde *container.CircularDependencyError
	if !errors.As(err, &cde) {
		t.Fatalf("want *CircularDependencyError, got %v", err)
	}
	want := []string{"A", "A"}
	if !reflect.DeepEqual(cde.Stack, want) {
		t.Errorf("Stack: got %v, want %v", cde.Stack, want)
	}
}

func TestContainer_Make_StackRestoredAfterFailure(t *testing.T) {
	c := container.New()
	c.Bind("A", func(c *container.Container) (any, error) { return c.Make("B") })
	c.Bind("B", func(c *container.Container) (any, error) { return c.Make("A") })
	c.Bind("clean", func(c *container.Container) (any, error) { return "ok", nil })

	if _, err := c.Make("A"); err == nil {
		t.Fatal("cycle should fail")
	}
	if depth := container.ResolutionDepth(c); depth != 0 {
		t.Fatalf("resolution stack depth after failure: got %d, want 0", depth)
	}

	// The next resolution starts from a clean stack
	if got := c.MustMake("clean"); got != "ok" {
		t.Errorf("got %v, want 'ok'", got)
	}
	_, err := c.Make("A")
	var cde *container.CircularDependencyError
	if !errors.As(err, &cde) || len(cde.Stack) != 3 {
		t.Errorf("repeat cycle should report the same path, got %v", err)
	}
}

func TestContainer_Make_StackRestoredAfterFactoryPanic(t *testing.T) {
	c := container.New()
	c.Bind("boom", func(c *container.Container) (any, error) { panic("kaput") })
	c.Bind("clean", func(c *container.Container) (any, error) { return "ok", nil })

	func() {
		defer func() { recover() }()
		_, _ = c.Make("boom")
	}()

	if depth := container.ResolutionDepth(c); depth != 0 {
		t.Fatalf("resolution stack depth after panic: got %d, want 0", depth)
	}
	if got := c.MustMake("clean"); got != "ok" {
		t.Errorf("got %v, want 'ok'", got)
	}
}

// ── Extend ────────────────────────────────────────────────────────────────────

func TestContainer_Extend_DecoratesTransient(t *testing.T) {
	c := container.New()
	c.Bind("greeting", func(c *container.Container) (any, error) { return "hello", nil })
	c.Extend("greeting", func(instance any, c *container.Container) any {
		return instance.(string) + ", world"
	})

	if got := c.MustMake("greeting"); got != "hello, world" {
		t.Errorf("got %v, want 'hello, world'", got)
	}
}

func TestContainer_Extend_AppliesToResolvedSingletonImmediately(t *testing.T) {
	c := container.New()
	c.Singleton("greeting", func(c *container.Container) (any, error) { return "hello", nil })
	_ = c.MustMake("greeting")

	c.Extend("greeting", func(instance any, c *container.Container) any {
		return instance.(string) + "!"
	})

	if got := c.MustMake("greeting"); got != "hello!" {
		t.Errorf("got %v, want 'hello!'", got)
	}
}

// ── Tags ──────────────────────────────────────────────────────────────────────

func TestContainer_Tagged_ResolvesInTaggingOrder(t *testing.T) {
	c := container.New()
	c.Bind("cpu", func(c *container.Container) (any, error) { return "cpu-report", nil })
	c.Bind("mem", func(c *container.Container) (any, error) { return "mem-report", nil })
	c.Tag([]string{"cpu", "mem"}, "reports")

	reports, err := c.Tagged("reports")
	if err != nil {
		t.Fatalf("Tagged: %v", err)
	}
	want := []any{"cpu-report", "mem-report"}
	if !reflect.DeepEqual(reports, want) {
		t.Errorf("got %v, want %v", reports, want)
	}
}

func TestContainer_Tagged_PropagatesResolutionError(t *testing.T) {
	c := container.New()
	c.Bind("ok", func(c *container.Container) (any, error) { return "fine", nil })
	c.Tag([]string{"ok", "missing"}, "mixed")

	if _, err := c.Tagged("mixed"); err == nil {
		t.Error("Tagged should fail when any member fails to resolve")
	}
}

// ── Contextual binding ────────────────────────────────────────────────────────

func TestContainer_Contextual_GivesSpecificDependency(t *testing.T) {
	c := container.New()
	c.Bind("filesystem", func(c *container.Container) (any, error) { return "local", nil })
	c.Bind("PhotoController", func(c *container.Container) (any, error) {
		return c.Make("filesystem")
	})
	c.Bind("VideoController", func(c *container.Container) (any, error) {
		return c.Make("filesystem")
	})
	c.When("PhotoController").Needs("filesystem").GiveValue("s3")

	if got := c.MustMake("PhotoController"); got != "s3" {
		t.Errorf("PhotoController filesystem: got %v, want 's3'", got)
	}
	if got := c.MustMake("VideoController"); got != "local" {
		t.Errorf("VideoController filesystem: got %v, want 'local'", got)
	}
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

func TestContainer_Rebinding_FiresOnInstanceReplace(t *testing.T) {
	c := container.New()
	var seen []any
	c.Rebinding("svc", func(instance any) { seen = append(seen, instance) })

	c.Instance("svc", "v1")
	c.Instance("svc", "v2")

	want := []any{"v1", "v2"}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("rebound callback saw %v, want %v", seen, want)
	}
}

func TestContainer_AfterResolving_FiresPerResolution(t *testing.T) {
	c := container.New()
	var resolved []string
	c.AfterResolving(func(abstract string, instance any) {
		resolved = append(resolved, abstract)
	})
	c.Bind("a", func(c *container.Container) (any, error) { return 1, nil })

	_ = c.MustMake("a")
	_ = c.MustMake("a")

	if len(resolved) != 2 {
		t.Errorf("callback should fire per resolution, fired %d times", len(resolved))
	}
}

// ── Bound / Resolved / Forget / Flush ─────────────────────────────────────────

func TestContainer_Bound_SeesAllRegistrationKinds(t *testing.T) {
	c := container.New()
	c.Bind("binding", func(c *container.Container) (any, error) { return 1, nil })
	c.Instance("instance", 2)
	c.SetCompiled(map[string]container.CompiledBinding{
		"compiled": {Build: func(c *container.Container) (any, error) { return 3, nil }},
	})

	for _, abstract := range []string{"binding", "instance", "compiled"} {
		if !c.Bound(abstract) {
			t.Errorf("Bound(%q) should be true", abstract)
		}
	}
	if c.Bound("nope") {
		t.Error("Bound('nope') should be false")
	}
}

func TestContainer_Resolved_TracksSharedInstances(t *testing.T) {
	c := container.New()
	c.Singleton("svc", func(c *container.Container) (any, error) { return 1, nil })

	if c.Resolved("svc") {
		t.Error("Resolved should be false before first Make")
	}
	_ = c.MustMake("svc")
	if !c.Resolved("svc") {
		t.Error("Resolved should be true after Make")
	}
}

func TestContainer_Forget_RemovesRegistration(t *testing.T) {
	c := container.New()
	c.Singleton("svc", func(c *container.Container) (any, error) { return 1, nil })
	_ = c.MustMake("svc")

	c.Forget("svc")

	if c.Bound("svc") {
		t.Error("Forget should remove the binding and instance")
	}
}

func TestContainer_Flush_ResetsEverything(t *testing.T) {
	c := container.New()
	c.Singleton("svc", func(c *container.Container) (any, error) { return 1, nil })
	c.Alias("svc", "service")
	_ = c.MustMake("svc")

	c.Flush()

	if c.Bound("svc") || c.Bound("service") {
		t.Error("Flush should remove all registrations")
	}
}

// ── Compiled bindings ─────────────────────────────────────────────────────────

func TestContainer_Compiled_ShadowsLiveBinding(t *testing.T) {
	c := container.New()
	c.Bind("svc", func(c *container.Container) (any, error) { return "live", nil })
	c.SetCompiled(map[string]container.CompiledBinding{
		"svc": {Build: func(c *container.Container) (any, error) { return "compiled", nil }},
	})

	if got := c.MustMake("svc"); got != "compiled" {
		t.Errorf("got %v, want the compiled fast path result", got)
	}
}

func TestContainer_Compiled_TypeMismatchFails(t *testing.T) {
	c := container.New()
	c.SetCompiled(map[string]container.CompiledBinding{
		"widget": {
			Build: func(c *container.Container) (any, error) { return "not a widget", nil },
			Type:  reflect.TypeOf(&widget{}),
		},
	})

	_, err := c.Make("widget")

	var bre *container.BindingResolutionError
	if !errors.As(err, &bre) {
		t.Fatalf("want *BindingResolutionError on type mismatch, got %v", err)
	}
}

func TestContainer_Compiled_MatchingTypePasses(t *testing.T) {
	c := container.New()
	c.SetCompiled(map[string]container.CompiledBinding{
		"widget": {
			Build: func(c *container.Container) (any, error) { return &widget{id: 1}, nil },
			Type:  reflect.TypeOf(&widget{}),
		},
	})

	got, err := c.Make("widget")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if got.(*widget).id != 1 {
		t.Error("compiled binding should hand back the built value")
	}
}

func TestContainer_Compiled_SharedEntryIsCached(t *testing.T) {
	c := container.New()
	n := 0
	c.SetCompiled(map[string]container.CompiledBinding{
		"svc": {
			Build:  func(c *container.Container) (any, error) { n++; return n, nil },
			Shared: true,
		},
	})

	_ = c.MustMake("svc")
	_ = c.MustMake("svc")

	if n != 1 {
		t.Errorf("shared compiled binding should build once, built %d times", n)
	}
}

// ── Type-keyed bindings ───────────────────────────────────────────────────────

type greeter interface{ Greet() string }

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

func TestContainer_BindType_ResolvableByTypeKey(t *testing.T) {
	c := container.New()
	c.BindType((*greeter)(nil), func(c *container.Container) (any, error) {
		return englishGreeter{}, nil
	})

	got, err := container.Resolve[greeter](c, container.TypeKey((*greeter)(nil)))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Greet() != "hello" {
		t.Errorf("got %q, want 'hello'", got.Greet())
	}
}

func TestContainer_SingletonType_SharesInstance(t *testing.T) {
	c := container.New()
	n := 0
	c.SingletonType(&widget{}, func(c *container.Container) (any, error) {
		n++
		return &widget{id: n}, nil
	})

	key := container.TypeKey(&widget{})
	a := c.MustMake(key).(*widget)
	b := c.MustMake(key).(*widget)

	if a != b || n != 1 {
		t.Error("SingletonType should cache the built value")
	}
}

// ── Auto-wiring (nil factory) ─────────────────────────────────────────────────

type photoService struct {
	Greeter greeter
	Scratch *widget `inject:"-"`
	Quota   int
}

func TestContainer_BindType_NilFactoryFillsDependencyFields(t *testing.T) {
	c := container.New()
	c.BindType((*greeter)(nil), func(c *container.Container) (any, error) {
		return englishGreeter{}, nil
	})
	c.BindType(&photoService{}, nil)

	got, err := container.Resolve[*photoService](c, container.TypeKey(&photoService{}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Greeter == nil || got.Greeter.Greet() != "hello" {
		t.Error("dependency field should be filled from the container")
	}
	if got.Scratch != nil {
		t.Error("field tagged inject:\"-\" should stay zero")
	}
	if got.Quota != 0 {
		t.Error("scalar field should stay zero")
	}
}

func TestContainer_BindType_NilFactoryFailsOnMissingDependency(t *testing.T) {
	c := container.New()
	c.BindType(&photoService{}, nil) // greeter never registered

	_, err := c.Make(container.TypeKey(&photoService{}))

	var bre *container.BindingResolutionError
	if !errors.As(err, &bre) {
		t.Fatalf("want *BindingResolutionError for unfillable field, got %v", err)
	}
}

// ── DeferLoad ─────────────────────────────────────────────────────────────────

func TestContainer_DeferLoad_RunsLoaderOnceAcrossAbstracts(t *testing.T) {
	c := container.New()
	loads := 0
	c.DeferLoad([]string{"a", "b"}, func() {
		loads++
		c.Instance("a", 1)
		c.Instance("b", 2)
	})

	if got := c.MustMake("a"); got != 1 {
		t.Errorf("a: got %v, want 1", got)
	}
	if got := c.MustMake("b"); got != 2 {
		t.Errorf("b: got %v, want 2", got)
	}
	if loads != 1 {
		t.Errorf("loader should run once, ran %d times", loads)
	}
}

// ── Generic helpers ───────────────────────────────────────────────────────────

func TestResolve_TypeMismatchFails(t *testing.T) {
	c := container.New()
	c.Instance("svc", "a string")

	_, err := container.Resolve[*widget](c, "svc")

	var bre *container.BindingResolutionError
	if !errors.As(err, &bre) {
		t.Fatalf("want *BindingResolutionError on type mismatch, got %v", err)
	}
}

func TestMustResolve_PanicsOnMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustResolve should panic on type mismatch")
		}
	}()
	c := container.New()
	c.Instance("svc", "a string")
	_ = container.MustResolve[int](c, "svc")
}

// ── Error strings ─────────────────────────────────────────────────────────────

func TestErrors_MessagesNameTheAbstract(t *testing.T) {
	c := container.New()
	c.Bind("A", func(c *container.Container) (any, error) { return c.Make("B") })
	c.Bind("B", func(c *container.Container) (any, error) { return c.Make("A") })

	_, err := c.Make("A")
	if want := "container: circular dependency [A -> B -> A]"; err.Error() != want {
		t.Errorf("cycle message:\n got %q\nwant %q", err.Error(), want)
	}

	_, err = c.Make("missing")
	if want := "container: unable to resolve [missing]: no binding registered"; err.Error() != want {
		t.Errorf("missing message:\n got %q\nwant %q", err.Error(), want)
	}
}

// Example-style smoke check for the fmt verbs used in error paths.
func TestErrors_WrappedFactoryErrorMentionsCause(t *testing.T) {
	c := container.New()
	c.Bind("db", func(c *container.Container) (any, error) {
		return nil, fmt.Errorf("dial tcp: connection refused")
	})

	_, err := c.Make("db")
	want := "container: unable to resolve [db]: factory returned an error: dial tcp: connection refused"
	if err.Error() != want {
		t.Errorf("got %q\nwant %q", err.Error(), want)
	}
}
