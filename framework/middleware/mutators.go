package middleware

import (
	"strings"

	gohttp "github.com/km-arc/arc/framework/http"
)

// TrimSlashes normalizes the request path before matching: trailing slashes
// are dropped so "/users/" hits the "/users" route.
type TrimSlashes struct{}

func (TrimSlashes) Handle(req *gohttp.Request, next gohttp.Next) (*gohttp.Response, error) {
	if p := req.Path(); len(p) > 1 && strings.HasSuffix(p, "/") {
		req.SetPath(strings.TrimRight(p, "/"))
	}
	return next(req)
}

// SetHeaders stamps fixed headers onto every response on the way back out.
//
//	k.PushMiddleware(middleware.SetHeaders{Headers: map[string]string{
//	    "X-Frame-Options": "DENY",
//	}})
type SetHeaders struct {
	Headers map[string]string
}

func (m SetHeaders) Handle(req *gohttp.Request, next gohttp.Next) (*gohttp.Response, error) {
	res, err := next(req)
	if err != nil {
		return nil, err
	}
	for k, v := range m.Headers {
		res.SetHeader(k, v)
	}
	return res, nil
}
