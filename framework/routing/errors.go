package routing

import (
	"fmt"
	"strings"
)

// ── Error types ───────────────────────────────────────────────────────────────

// NotFoundError is returned by Dispatch when no route matches the request
// path under any method.
//
//	// Laravel: Symfony\Component\HttpKernel\Exception\NotFoundHttpException
type NotFoundError struct {
	Method string
	Path   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("routing: no route matches %s %s", e.Method, e.Path)
}

// MethodNotAllowedError is returned by Dispatch when the path matches a
// route under a different HTTP method. Allowed lists the methods that would
// have matched, sorted, for the Allow response header.
//
//	// Laravel: MethodNotAllowedHttpException
type MethodNotAllowedError struct {
	Method  string
	Path    string
	Allowed []string
}

func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("routing: method %s not allowed for %s (allowed: %s)",
		e.Method, e.Path, strings.Join(e.Allowed, ", "))
}
