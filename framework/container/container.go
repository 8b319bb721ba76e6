package container

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/muir/reflectutils"
)

// ── Binding types ─────────────────────────────────────────────────────────────

// Factory is a function that builds a concrete value from the container.
// Returning an error marks the whole resolution attempt as failed; the error
// surfaces to the caller wrapped in a *BindingResolutionError.
type Factory func(c *Container) (any, error)

// binding holds a registered factory and whether its result is shared.
type binding struct {
	factory Factory
	shared  bool
}

// CompiledBinding is one entry of an ahead-of-time compiled binding map, the
// artifact an offline optimization step emits. Build is invoked directly,
// skipping the normal binding lookup; Type, when non-nil, is checked against
// the dynamic type of the built value so a stale artifact fails loudly
// instead of handing out the wrong service.
type CompiledBinding struct {
	Build  Factory
	Type   reflect.Type
	Shared bool
}

// extender wraps an already-resolved instance with decorator logic.
type extender func(instance any, c *Container) any

// deferredGroup is a one-shot loader shared by all abstracts a deferred
// provider supplies. The done flag stops a loader that binds one of its own
// abstracts from re-triggering itself.
type deferredGroup struct {
	abstracts []string
	load      func()
	done      bool
}

// typeEntry maps a Go type to the abstract it was registered under, in
// registration order. Used by Call to auto-wire typed parameters.
type typeEntry struct {
	t        reflect.Type
	abstract string
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the IoC container — mirrors Laravel's
// Illuminate\Container\Container, with resolution failures surfaced as error
// values rather than exceptions.
//
// It supports:
//   - Bind / Singleton / Instance / Alias (string abstracts)
//   - BindType / SingletonType (type-keyed abstracts for auto-wiring)
//   - Make / MustMake / Resolve (generic)
//   - Call (invoke a function, filling parameters from args + bindings)
//   - Compiled binding maps (offline optimization artifact, read-only)
//   - Tags, Extend (decorate resolved instances), contextual binding
//   - Rebound and resolved event callbacks
//
// One container serves one request-handling execution at a time: the
// resolution stack is deliberately unsynchronized and is restored on every
// exit path, success or failure.
type Container struct {
	mu sync.RWMutex

	// abstract → binding
	bindings map[string]*binding

	// abstract → resolved shared instance
	instances map[string]any

	// abstract → compiled fast-path entry (read-only after SetCompiled)
	compiled map[string]CompiledBinding

	// alias → abstract (canonical key)
	aliases map[string]string

	// abstract → extender funcs
	extenders map[string][]extender

	// tag → []abstract
	tags map[string][]string

	// contextual: when[concrete][abstract] = factory
	contextual map[string]map[string]Factory

	// deferred provider loaders: abstract → group (see DeferLoad)
	deferredLoaders map[string]*deferredGroup

	// rebound callbacks: abstract → []func(any)
	reboundCallbacks map[string][]func(any)

	// resolved callbacks: []func(abstract, instance)
	afterResolving []func(string, any)

	// types registered via BindType/SingletonType/Instance, in order
	typeIndex []typeEntry

	// stack of abstracts currently being resolved. Detects circular
	// dependencies and scopes contextual bindings to their concrete.
	stack []string
}

// New creates an empty container.
func New() *Container {
	c := &Container{
		bindings:         make(map[string]*binding),
		instances:        make(map[string]any),
		compiled:         make(map[string]CompiledBinding),
		aliases:          make(map[string]string),
		extenders:        make(map[string][]extender),
		tags:             make(map[string][]string),
		contextual:       make(map[string]map[string]Factory),
		deferredLoaders:  make(map[string]*deferredGroup),
		reboundCallbacks: make(map[string][]func(any)),
	}
	// Bind the container to itself — like Laravel's $app->instance()
	c.Instance("container", c)
	return c
}

// ── Registration ──────────────────────────────────────────────────────────────

// Bind registers a transient (new instance each Make) factory. Re-binding the
// same abstract overwrites the previous registration and drops any cached
// shared instance — last write wins.
//
//	// Laravel: $app->bind(UserRepository::class, fn($app) => new EloquentUserRepository($app))
//	c.Bind("UserRepository", func(c *container.Container) (any, error) {
//	    db, err := container.Resolve[*store.DB](c, "db")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &SQLUserRepository{DB: db}, nil
//	})
func (c *Container) Bind(abstract string, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bind(abstract, factory, false)
}

// Singleton registers a factory whose result is cached after the first
// successful resolution.
//
//	// Laravel: $app->singleton(Cache::class, fn($app) => new RedisCache($app))
func (c *Container) Singleton(abstract string, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bind(abstract, factory, true)
}

// Instance registers a pre-built value as an immediately-cached shared
// instance, and indexes its dynamic type for auto-wiring.
//
//	// Laravel: $app->instance(Config::class, $config)
//	c.Instance("config", myConfig)
func (c *Container) Instance(abstract string, instance any) {
	c.mu.Lock()
	key := c.canonical(abstract)
	delete(c.bindings, key)
	c.instances[key] = instance
	if t := reflect.TypeOf(instance); t != nil {
		c.indexType(t, key)
	}
	c.mu.Unlock()
	c.fireRebound(abstract, instance)
}

// BindType registers a transient factory under the type key of proto and
// records the type for auto-wiring, so Call can fill parameters of that type
// without an explicit abstract name.
//
// proto is a value of (or nil pointer to) the concrete type the factory
// builds; a nil pointer-to-interface registers the interface itself:
//
//	c.BindType((*UserRepository)(nil), factory) // binds the interface
//	c.BindType(&Mailer{}, factory)              // binds *Mailer
//
// A nil factory asks the container to construct the value itself: proto must
// then name a struct (or pointer to struct), and every exported dependency-
// typed field is resolved recursively — see AutoFactory.
func (c *Container) BindType(proto any, factory Factory) {
	c.bindType(proto, factory, false)
}

// SingletonType is BindType with a shared result.
func (c *Container) SingletonType(proto any, factory Factory) {
	c.bindType(proto, factory, true)
}

func (c *Container) bindType(proto any, factory Factory, shared bool) {
	t := protoType(proto)
	if factory == nil {
		factory = AutoFactory(proto)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key := TypeKey(proto)
	c.bind(key, factory, shared)
	c.indexType(t, key)
}

// bind is the internal registration helper (must hold mu.Lock).
func (c *Container) bind(abstract string, factory Factory, shared bool) {
	key := c.canonical(abstract)

	// Drop any existing shared instance so it is rebuilt with the new factory
	_, wasResolved := c.instances[key]
	delete(c.instances, key)

	c.bindings[key] = &binding{factory: factory, shared: shared}

	if wasResolved && len(c.reboundCallbacks[abstract]) > 0 {
		c.mu.Unlock()
		if instance, err := c.Make(abstract); err == nil {
			c.fireRebound(abstract, instance)
		}
		c.mu.Lock()
	}
}

// indexType records t → abstract, replacing any earlier entry for the same
// abstract (must hold mu.Lock).
func (c *Container) indexType(t reflect.Type, abstract string) {
	for i, e := range c.typeIndex {
		if e.abstract == abstract {
			c.typeIndex[i] = typeEntry{t: t, abstract: abstract}
			return
		}
	}
	c.typeIndex = append(c.typeIndex, typeEntry{t: t, abstract: abstract})
}

// Alias registers an alternative name for an abstract.
//
//	// Laravel: $app->alias(Cache::class, 'cache')
func (c *Container) Alias(abstract, alias string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if abstract == alias {
		panic(fmt.Sprintf("container: [%s] is aliased to itself", abstract))
	}
	c.aliases[alias] = c.canonical(abstract)
}

// SetCompiled installs an ahead-of-time compiled binding map. Entries form a
// read-only fast path consulted before the live bindings; the container never
// mutates the map. Passing nil clears the fast path.
func (c *Container) SetCompiled(compiled map[string]CompiledBinding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if compiled == nil {
		c.compiled = make(map[string]CompiledBinding)
		return
	}
	c.compiled = compiled
}

// DeferLoad arranges for loader to run the first time any of the given
// abstracts is resolved, before the normal binding lookup. The loader runs
// at most once and is expected to register real bindings for all of them —
// how deferred service providers hook into resolution.
//
//	// Laravel: Application::loadDeferredProviderIfNeeded
func (c *Container) DeferLoad(abstracts []string, loader func()) {
	keys := make([]string, len(abstracts))
	g := &deferredGroup{load: loader}

	c.mu.Lock()
	for i, a := range abstracts {
		keys[i] = c.canonical(a)
		c.deferredLoaders[keys[i]] = g
	}
	g.abstracts = keys
	c.mu.Unlock()
}

// loadDeferred runs a deferred group exactly once, clearing its triggers
// before the loader executes so re-entrant Makes see live bindings.
func (c *Container) loadDeferred(g *deferredGroup) {
	c.mu.Lock()
	if g.done {
		c.mu.Unlock()
		return
	}
	g.done = true
	for _, a := range g.abstracts {
		delete(c.deferredLoaders, a)
	}
	c.mu.Unlock()

	g.load()
}

// ── Contextual Binding ────────────────────────────────────────────────────────

// When starts a contextual binding chain.
//
//	// Laravel: $app->when(PhotoController::class)->needs(Filesystem::class)->give(fn() => new S3)
//	c.When("PhotoController").Needs("Filesystem").Give(func(c *container.Container) (any, error) {
//	    return NewS3(), nil
//	})
func (c *Container) When(concrete string) *ContextualBuilder {
	return &ContextualBuilder{container: c, concrete: concrete}
}

// getContextual returns the contextual factory for (concrete, abstract), or nil.
func (c *Container) getContextual(concrete, abstract string) Factory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if m, ok := c.contextual[concrete]; ok {
		if f, ok := m[abstract]; ok {
			return f
		}
	}
	return nil
}

// ── Extend ────────────────────────────────────────────────────────────────────

// Extend decorates the resolved instance of an abstract. If the abstract has
// already been resolved as a shared instance, the decoration applies
// immediately and rebound callbacks fire with the wrapped value.
//
//	// Laravel: $app->extend(Logger::class, fn($logger, $app) => new TimestampLogger($logger))
func (c *Container) Extend(abstract string, fn extender) {
	c.mu.Lock()
	key := c.canonical(abstract)
	c.extenders[key] = append(c.extenders[key], fn)

	if inst, ok := c.instances[key]; ok {
		extended := fn(inst, c)
		c.instances[key] = extended
		c.mu.Unlock()
		c.fireRebound(abstract, extended)
		return
	}
	c.mu.Unlock()
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag associates multiple abstracts under a named group.
//
//	// Laravel: $app->tag([CpuReport::class, MemoryReport::class], 'reports')
func (c *Container) Tag(abstracts []string, tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[tag] = append(c.tags[tag], abstracts...)
}

// Tagged resolves all abstracts registered under a tag, in tagging order.
// The first resolution failure aborts the whole lookup.
//
//	// Laravel: $app->tagged('reports')
func (c *Container) Tagged(tag string) ([]any, error) {
	c.mu.RLock()
	abstracts := c.tags[tag]
	c.mu.RUnlock()

	result := make([]any, 0, len(abstracts))
	for _, abs := range abstracts {
		instance, err := c.Make(abs)
		if err != nil {
			return nil, err
		}
		result = append(result, instance)
	}
	return result, nil
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Make resolves an abstract from the container.
//
// Resolution order: circular-dependency check against the active resolution
// stack, shared-instance cache, compiled fast path, contextual binding for
// the concrete currently being built, then the live binding's factory. The
// resolution stack is restored on every exit path.
//
//	// Laravel: $app->make(UserRepository::class)
//	repo, err := c.Make("UserRepository")
func (c *Container) Make(abstract string) (any, error) {
	key := c.canonical(abstract)

	// Cycle check: the same abstract mid-construction means a loop.
	for i, active := range c.stack {
		if active == key {
			cycle := make([]string, 0, len(c.stack)-i+1)
			cycle = append(cycle, c.stack[i:]...)
			cycle = append(cycle, key)
			return nil, &CircularDependencyError{Stack: cycle}
		}
	}

	// Shared-instance cache.
	c.mu.RLock()
	if inst, ok := c.instances[key]; ok {
		c.mu.RUnlock()
		return inst, nil
	}

	// Deferred provider trigger: first use registers the real bindings.
	g := c.deferredLoaders[key]

	// Compiled fast path — skips the live binding lookup entirely.
	if cb, ok := c.compiled[key]; g == nil && ok {
		c.mu.RUnlock()
		return c.runCompiled(key, cb)
	}
	c.mu.RUnlock()

	if g != nil {
		c.loadDeferred(g)
	}

	// Contextual binding for the concrete currently being built.
	if len(c.stack) > 0 {
		caller := c.stack[len(c.stack)-1]
		if f := c.getContextual(caller, key); f != nil {
			return c.runFactory(key, f, false)
		}
	}

	// Live binding.
	c.mu.RLock()
	b, ok := c.bindings[key]
	c.mu.RUnlock()
	if !ok {
		return nil, unresolvable(abstract, "no binding registered")
	}

	return c.runFactory(key, b.factory, b.shared)
}

// MustMake resolves an abstract and panics on failure. Intended for bootstrap
// code where a missing binding is a programmer error.
func (c *Container) MustMake(abstract string) any {
	instance, err := c.Make(abstract)
	if err != nil {
		panic(err)
	}
	return instance
}

// runFactory executes a factory inside a resolution-stack frame, applying
// extenders and caching shared results. The deferred pop keeps the stack
// balanced even when the factory fails or panics.
func (c *Container) runFactory(key string, f Factory, shared bool) (any, error) {
	c.stack = append(c.stack, key)
	defer func() {
		c.stack = c.stack[:len(c.stack)-1]
	}()

	instance, err := f(c)
	if err != nil {
		return nil, factoryFailed(key, err)
	}

	c.mu.RLock()
	exts := c.extenders[key]
	c.mu.RUnlock()
	for _, ext := range exts {
		instance = ext(instance, c)
	}

	if shared {
		c.mu.Lock()
		c.instances[key] = instance
		c.mu.Unlock()
	}

	c.fireAfterResolving(key, instance)
	return instance, nil
}

// runCompiled invokes a compiled binding and validates the dynamic type of
// its result against the entry's declared type.
func (c *Container) runCompiled(key string, cb CompiledBinding) (any, error) {
	c.stack = append(c.stack, key)
	defer func() {
		c.stack = c.stack[:len(c.stack)-1]
	}()

	instance, err := cb.Build(c)
	if err != nil {
		return nil, factoryFailed(key, err)
	}

	if cb.Type != nil {
		got := reflect.TypeOf(instance)
		if got == nil || !got.AssignableTo(cb.Type) {
			return nil, unresolvable(key, fmt.Sprintf(
				"compiled binding produced %s, want %s",
				describeType(got), reflectutils.TypeName(cb.Type)))
		}
	}

	if cb.Shared {
		c.mu.Lock()
		c.instances[key] = instance
		c.mu.Unlock()
	}

	c.fireAfterResolving(key, instance)
	return instance, nil
}

// makeByType resolves a value whose registered type satisfies want. Entries
// are scanned in registration order so resolution is deterministic: the
// earliest compatible registration wins.
func (c *Container) makeByType(want reflect.Type) (any, bool, error) {
	c.mu.RLock()
	var abstract string
	found := false
	for _, e := range c.typeIndex {
		if e.t == want || e.t.AssignableTo(want) {
			abstract = e.abstract
			found = true
			break
		}
	}
	c.mu.RUnlock()

	if !found {
		return nil, false, nil
	}
	instance, err := c.Make(abstract)
	return instance, true, err
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Bound reports whether an abstract has been registered (binding, instance,
// or compiled entry).
//
//	// Laravel: $app->bound(UserRepository::class)
func (c *Container) Bound(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := c.canonical(abstract)
	_, hasBinding := c.bindings[key]
	_, hasInstance := c.instances[key]
	_, hasCompiled := c.compiled[key]
	_, hasDeferred := c.deferredLoaders[key]
	return hasBinding || hasInstance || hasCompiled || hasDeferred
}

// Resolved reports whether the abstract has a cached shared instance.
//
//	// Laravel: $app->resolved(Cache::class)
func (c *Container) Resolved(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.instances[c.canonical(abstract)]
	return ok
}

// Forget removes all registrations for an abstract (binding, instance, and
// type-index entry).
//
//	// Laravel: $app->forgetInstance(Cache::class)
func (c *Container) Forget(abstract string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonical(abstract)
	delete(c.bindings, key)
	delete(c.instances, key)
	delete(c.deferredLoaders, key)
	for i, e := range c.typeIndex {
		if e.abstract == key {
			c.typeIndex = append(c.typeIndex[:i], c.typeIndex[i+1:]...)
			break
		}
	}
}

// Flush resets the entire container. Used for test isolation.
func (c *Container) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings = make(map[string]*binding)
	c.instances = make(map[string]any)
	c.compiled = make(map[string]CompiledBinding)
	c.aliases = make(map[string]string)
	c.extenders = make(map[string][]extender)
	c.tags = make(map[string][]string)
	c.contextual = make(map[string]map[string]Factory)
	c.deferredLoaders = make(map[string]*deferredGroup)
	c.typeIndex = nil
	c.stack = nil
}

// Bindings returns a copy of all registered abstract keys (for debugging).
func (c *Container) Bindings() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.bindings)+len(c.instances))
	for k := range c.bindings {
		out = append(out, k)
	}
	for k := range c.instances {
		if _, already := c.bindings[k]; !already {
			out = append(out, k)
		}
	}
	return out
}

// canonical resolves an alias to its canonical key.
func (c *Container) canonical(abstract string) string {
	if target, ok := c.aliases[abstract]; ok {
		return target
	}
	return abstract
}

// resolutionDepth reports the current size of the resolution stack. Exposed
// for tests asserting the stack is restored around every Make.
func (c *Container) resolutionDepth() int { return len(c.stack) }

// ── Callbacks ─────────────────────────────────────────────────────────────────

// Rebinding registers a callback to be called whenever an abstract is
// re-bound or replaced via Instance.
//
//	// Laravel: $app->rebinding(UserRepository::class, fn($app, $repo) => ...)
func (c *Container) Rebinding(abstract string, cb func(any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reboundCallbacks[abstract] = append(c.reboundCallbacks[abstract], cb)
}

// AfterResolving registers a callback fired after any abstract is resolved.
//
//	// Laravel: $app->afterResolving(fn($object, $app) => ...)
func (c *Container) AfterResolving(cb func(abstract string, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

func (c *Container) fireRebound(abstract string, instance any) {
	c.mu.RLock()
	cbs := c.reboundCallbacks[abstract]
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(instance)
	}
}

func (c *Container) fireAfterResolving(abstract string, instance any) {
	c.mu.RLock()
	cbs := c.afterResolving
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(abstract, instance)
	}
}

// ── Reflect helpers ───────────────────────────────────────────────────────────

// TypeKey returns a stable, package-qualified key for the type of v, useful
// as an abstract name. A nil pointer-to-interface keys the interface itself,
// so a value and the interface it satisfies can share registrations.
//
//	key := container.TypeKey((*UserRepository)(nil)) // "pkg.UserRepository"
//	c.Singleton(key, factory)
func TypeKey(v any) string {
	return reflectutils.TypeName(protoType(v))
}

// protoType extracts the registration type from a prototype value: the
// dynamic type of v, with the (*Iface)(nil) convention collapsing one level
// of pointer indirection onto the interface.
func protoType(v any) reflect.Type {
	t := reflect.TypeOf(v)
	if t == nil {
		panic("container: cannot derive a type key from untyped nil")
	}
	if t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Interface {
		return t.Elem()
	}
	return t
}

func describeType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return reflectutils.TypeName(t)
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve is a generic helper that calls Make and type-asserts the result.
//
//	// Instead of: db := c.MustMake("db").(*store.DB)
//	// Write:      db, err := container.Resolve[*store.DB](c, "db")
func Resolve[T any](c *Container, abstract string) (T, error) {
	var zero T
	instance, err := c.Make(abstract)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, unresolvable(abstract, fmt.Sprintf("resolved to %T, want %T", instance, zero))
	}
	return typed, nil
}

// MustResolve is Resolve with a panic on failure, for bootstrap code.
func MustResolve[T any](c *Container, abstract string) T {
	typed, err := Resolve[T](c, abstract)
	if err != nil {
		panic(err)
	}
	return typed
}
