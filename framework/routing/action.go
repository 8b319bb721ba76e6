package routing

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/km-arc/arc/framework/container"
	gohttp "github.com/km-arc/arc/framework/http"
)

// ── Actions ───────────────────────────────────────────────────────────────────

// ControllerAction references a controller registered in the container and
// one of its exported methods. The equivalent string shorthand
// "UserController@Show" is accepted anywhere an action is.
//
//	// Laravel: Route::get('/users/{id}', [UserController::class, 'show'])
//	r.Get("/users/{id}", routing.ControllerAction{Controller: "UserController", Method: "Show"})
type ControllerAction struct {
	Controller string
	Method     string
}

// action is a classified route action: either a bare closure or a controller
// reference resolved through the container at dispatch time.
type action struct {
	// kind feeds the route table's dedup key. Closures all share one kind —
	// two closures for the same method+URI are duplicates — while each
	// controller reference gets its own, so a closure route and a cached
	// controller route on the same URI never collide.
	kind string

	fn         any    // closure form
	controller string // container abstract of the controller
	method     string // exported method name
}

// classifyAction normalizes the action forms AddRoute accepts. A non-empty
// namespace prefixes controller abstracts ("admin" + "UserController" →
// "admin.UserController"), mirroring route-group namespacing.
func classifyAction(v any, namespace string) (*action, error) {
	switch a := v.(type) {
	case ControllerAction:
		return controllerAction(a.Controller, a.Method, namespace)
	case string:
		ref, method, ok := strings.Cut(a, "@")
		if !ok || ref == "" || method == "" {
			return nil, fmt.Errorf("routing: malformed action reference %q, want \"Controller@Method\"", a)
		}
		return controllerAction(ref, method, namespace)
	default:
		if reflect.ValueOf(v).Kind() != reflect.Func {
			return nil, fmt.Errorf("routing: unsupported action type %T", v)
		}
		return &action{kind: "closure", fn: v}, nil
	}
}

func controllerAction(ref, method, namespace string) (*action, error) {
	if namespace != "" {
		ref = namespace + "." + ref
	}
	return &action{
		kind:       "controller:" + ref + "@" + method,
		controller: ref,
		method:     method,
	}, nil
}

// invoke runs the action through Container.Call, feeding the extracted route
// parameters as raw args (consumed by scalar handler parameters, in order)
// and the request as a seed value.
func (a *action) invoke(c *container.Container, req *gohttp.Request, params []gohttp.Param) (any, error) {
	args := make([]container.Arg, len(params))
	for i, p := range params {
		args[i] = container.Arg{Name: p.Name, Value: p.Value}
	}

	target := a.fn
	if a.controller != "" {
		instance, err := c.Make(a.controller)
		if err != nil {
			return nil, err
		}
		m := reflect.ValueOf(instance).MethodByName(a.method)
		if !m.IsValid() {
			return nil, fmt.Errorf("routing: controller [%s] (%T) has no method %s",
				a.controller, instance, a.method)
		}
		target = m.Interface()
	}

	return c.Call(target, container.WithArgs(args...), container.WithValues(req))
}
