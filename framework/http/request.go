package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/km-arc/arc/framework/http/validation"
)

const maxMemory = 32 << 20 // 32 MB

// Param is one extracted route parameter. Params keep the declaration order
// of the URI template, which is also the order scalar handler arguments
// consume them.
type Param struct {
	Name  string
	Value string
}

// Request wraps *http.Request with Laravel-style helpers and carries the
// route parameters the router extracted for it.
type Request struct {
	raw    *http.Request
	params []Param
	byName map[string]string
	route  any
}

// FromHTTP wraps a standard *http.Request.
func FromHTTP(r *http.Request) *Request {
	return &Request{raw: r}
}

// NewRequest builds a request programmatically — handy in tests and when
// replaying requests outside a server.
//
//	req := http.NewRequest("GET", "/users/42", nil)
func NewRequest(method, target string, body io.Reader) *Request {
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: target}
	}
	raw := &http.Request{
		Method:     method,
		URL:        u,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header),
		Host:       u.Host,
		RequestURI: target,
	}
	if body != nil {
		raw.Body = io.NopCloser(body)
	}
	return &Request{raw: raw.WithContext(context.Background())}
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// Context returns the request context.
func (req *Request) Context() context.Context { return req.raw.Context() }

// ── Route parameters ─────────────────────────────────────────────────────────

// SetRouteParams attaches the parameters extracted by the router. Order is
// preserved; a later call replaces the whole set.
func (req *Request) SetRouteParams(params []Param) {
	req.params = params
	req.byName = make(map[string]string, len(params))
	for _, p := range params {
		req.byName[p.Name] = p.Value
	}
}

// RouteParams returns the extracted route parameters in declaration order.
func (req *Request) RouteParams() []Param {
	out := make([]Param, len(req.params))
	copy(out, req.params)
	return out
}

// RouteParam returns a route parameter by name ("" when absent).
//
//	// Laravel: $request->route('id')
func (req *Request) RouteParam(name string) string {
	return req.byName[name]
}

// HasRouteParam reports whether the route bound a parameter under name.
func (req *Request) HasRouteParam(name string) bool {
	_, ok := req.byName[name]
	return ok
}

// SetRoute attaches the matched route. The router calls this on dispatch;
// the kernel reads it back during Terminate to reach the route's middleware.
// Typed any to keep this package free of a routing dependency.
func (req *Request) SetRoute(route any) {
	req.route = route
}

// Route returns the matched route attached by the router, or nil before
// dispatch.
//
//	// Laravel: $request->route()
func (req *Request) Route() any { return req.route }

// ── Binding ──────────────────────────────────────────────────────────────────

// Bind decodes the request body into v.
// Supports JSON and application/x-www-form-urlencoded / multipart.
// JSON fields map via `json:"name"`, form fields via `json` tags as well.
func (req *Request) Bind(v any) error {
	ct := req.ContentType()

	switch {
	case strings.Contains(ct, "application/json"):
		return req.bindJSON(v)
	case strings.Contains(ct, "multipart/form-data"):
		if err := req.raw.ParseMultipartForm(maxMemory); err != nil {
			return err
		}
		return bindForm(req.raw.MultipartForm.Value, v)
	default:
		if err := req.raw.ParseForm(); err != nil {
			return err
		}
		return bindForm(map[string][]string(req.raw.PostForm), v)
	}
}

func (req *Request) bindJSON(v any) error {
	defer req.raw.Body.Close()
	body, err := io.ReadAll(req.raw.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	return json.Unmarshal(body, v)
}

// bindForm maps form values onto a struct using json tags.
func bindForm(values map[string][]string, v any) error {
	// JSON round-trip: build map → marshal → unmarshal into struct.
	// Supports nested structs without a second tag namespace.
	m := make(map[string]any, len(values))
	for k, vals := range values {
		if len(vals) == 1 {
			m[k] = vals[0]
		} else {
			m[k] = vals
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// ── Validation ───────────────────────────────────────────────────────────────

// Validate runs the rule set against the flat input (query + body). It
// returns nil when everything passes, or a *validation.FailedError the
// exception handler maps to a 422 response.
//
//	// Laravel: $request->validate(['email' => 'required|email'])
//	if err := req.Validate(validation.Rules{"email": "required|email"}); err != nil {
//	    return nil, err
//	}
func (req *Request) Validate(rules validation.Rules) error {
	v := validation.Make(req.All(), rules)
	if v.Fails() {
		return &validation.FailedError{Errors: v.Errors()}
	}
	return nil
}

// ── Input helpers ────────────────────────────────────────────────────────────

// Input returns a single input value (query string OR post body).
func (req *Request) Input(key string, fallback ...string) string {
	_ = req.raw.ParseForm()
	v := req.raw.FormValue(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// Query returns a query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// All returns all input as a flat map (query + post).
func (req *Request) All() map[string]string {
	_ = req.raw.ParseForm()
	out := make(map[string]string)
	for k, v := range req.raw.Form {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// Has returns true if the key is present and non-empty.
func (req *Request) Has(key string) bool {
	return req.Input(key) != ""
}

// Header returns a request header value.
func (req *Request) Header(key string) string {
	return req.raw.Header.Get(key)
}

// SetHeader sets a request header (middleware use).
func (req *Request) SetHeader(key, value string) {
	req.raw.Header.Set(key, value)
}

// BearerToken extracts the token from Authorization: Bearer <token>.
func (req *Request) BearerToken() string {
	auth := req.raw.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// IP returns the client IP (respects RealIP middleware).
func (req *Request) IP() string {
	return req.raw.RemoteAddr
}

// Method returns the HTTP method.
func (req *Request) Method() string { return req.raw.Method }

// Path returns the URL path.
func (req *Request) Path() string { return req.raw.URL.Path }

// SetPath rewrites the URL path (middleware use, e.g. slash trimming).
func (req *Request) SetPath(path string) {
	req.raw.URL.Path = path
}

// URI returns the full request URI including the query string.
func (req *Request) URI() string {
	if req.raw.URL.RawQuery != "" {
		return req.raw.URL.Path + "?" + req.raw.URL.RawQuery
	}
	return req.raw.URL.Path
}

// ContentType returns the Content-Type header value.
func (req *Request) ContentType() string {
	return req.raw.Header.Get("Content-Type")
}

// WantsJSON returns true when the request expects a JSON response.
func (req *Request) WantsJSON() bool {
	return strings.Contains(req.raw.Header.Get("Accept"), "application/json") ||
		strings.Contains(req.ContentType(), "application/json")
}

// ── File uploads ─────────────────────────────────────────────────────────────

// File returns an uploaded file by field name.
func (req *Request) File(key string) (*multipart.FileHeader, error) {
	if err := req.raw.ParseMultipartForm(maxMemory); err != nil {
		return nil, err
	}
	_, fh, err := req.raw.FormFile(key)
	return fh, err
}

// Files returns all uploaded files for a field.
func (req *Request) Files(key string) ([]*multipart.FileHeader, error) {
	if err := req.raw.ParseMultipartForm(maxMemory); err != nil {
		return nil, err
	}
	if req.raw.MultipartForm == nil {
		return nil, errors.New("no multipart form")
	}
	return req.raw.MultipartForm.File[key], nil
}
