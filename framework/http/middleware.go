package http

// Next continues the middleware chain with the (possibly mutated) request
// and yields the response coming back out.
type Next func(*Request) (*Response, error)

// Middleware is one HTTP middleware layer.
//
//	// Laravel: public function handle($request, Closure $next)
//	func (m *Auth) Handle(req *http.Request, next http.Next) (*http.Response, error) {
//	    if req.BearerToken() == "" {
//	        return http.Unauthorized(), nil // short-circuit
//	    }
//	    return next(req)
//	}
type Middleware interface {
	Handle(req *Request, next Next) (*Response, error)
}

// MiddlewareFunc adapts a bare function to the Middleware interface.
type MiddlewareFunc func(req *Request, next Next) (*Response, error)

func (f MiddlewareFunc) Handle(req *Request, next Next) (*Response, error) {
	return f(req, next)
}

// TerminatingMiddleware is implemented by middleware that wants a hook after
// the response has been produced — billing, log flushing, session writes.
//
//	// Laravel: public function terminate($request, $response)
type TerminatingMiddleware interface {
	Terminate(req *Request, res *Response)
}
