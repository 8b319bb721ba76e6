package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/km-arc/arc/framework/http/validation"
)

// ── Response ─────────────────────────────────────────────────────────────────

// Response is a buffered response value. It travels back out through the
// middleware chain, where any layer may inspect or rewrite it, and is only
// flushed to the wire by Write at the server boundary.
type Response struct {
	status  int
	headers http.Header
	body    []byte
	req     *Request
}

// NewResponse creates an empty 200 response.
func NewResponse() *Response {
	return &Response{status: http.StatusOK, headers: make(http.Header)}
}

// ── Constructors ─────────────────────────────────────────────────────────────

// JSON builds a JSON response.
//
//	res := http.JSON(http.StatusOK, map[string]any{"message": "ok"})
func JSON(status int, data any) *Response {
	body, err := json.Marshal(data)
	if err != nil {
		return Text(http.StatusInternalServerError, fmt.Sprintf("json encode: %v", err))
	}
	res := NewResponse()
	res.status = status
	res.headers.Set("Content-Type", "application/json")
	res.body = body
	return res
}

// Text builds a plain-text response.
func Text(status int, body string) *Response {
	res := NewResponse()
	res.status = status
	res.headers.Set("Content-Type", "text/plain; charset=utf-8")
	res.body = []byte(body)
	return res
}

// HTML builds an HTML response.
func HTML(status int, body string) *Response {
	res := NewResponse()
	res.status = status
	res.headers.Set("Content-Type", "text/html; charset=utf-8")
	res.body = []byte(body)
	return res
}

// Success builds 200 JSON: {"data": v}
func Success(v any) *Response {
	return JSON(http.StatusOK, envelope{"data": v})
}

// Created builds 201 JSON: {"data": v}
func Created(v any) *Response {
	return JSON(http.StatusCreated, envelope{"data": v})
}

// NoContent builds 204 with no body.
func NoContent() *Response {
	res := NewResponse()
	res.status = http.StatusNoContent
	return res
}

// Error builds a JSON error response.
//
//	res := http.Error(http.StatusNotFound, "Resource not found")
func Error(status int, message string) *Response {
	return JSON(status, envelope{"message": message})
}

// Unauthorized builds 401.
func Unauthorized(message ...string) *Response {
	return Error(http.StatusUnauthorized, first(message, "Unauthenticated."))
}

// Forbidden builds 403.
func Forbidden(message ...string) *Response {
	return Error(http.StatusForbidden, first(message, "This action is unauthorized."))
}

// NotFound builds 404.
func NotFound(message ...string) *Response {
	return Error(http.StatusNotFound, first(message, "Not found."))
}

// ServerError builds 500.
func ServerError(message ...string) *Response {
	return Error(http.StatusInternalServerError, first(message, "Server Error."))
}

// ValidationFailed builds 422 with the standard Laravel error bag:
// {"errors": {"field": ["msg"]}}.
func ValidationFailed(errs *validation.Errors) *Response {
	return JSON(http.StatusUnprocessableEntity, errs)
}

// Redirect builds an HTTP redirect.
//
//	res := http.Redirect(http.StatusFound, "/dashboard")
func Redirect(status int, url string) *Response {
	res := NewResponse()
	res.status = status
	res.headers.Set("Location", url)
	return res
}

// RedirectTo builds a 302 redirect.
func RedirectTo(url string) *Response {
	return Redirect(http.StatusFound, url)
}

// ── Accessors & mutators ─────────────────────────────────────────────────────

// Status returns the HTTP status code.
func (res *Response) Status() int { return res.status }

// SetStatus overwrites the status code.
func (res *Response) SetStatus(status int) *Response {
	res.status = status
	return res
}

// Header returns a response header value.
func (res *Response) Header(key string) string {
	return res.headers.Get(key)
}

// SetHeader sets a response header.
func (res *Response) SetHeader(key, value string) *Response {
	res.headers.Set(key, value)
	return res
}

// AddHeader appends a response header value.
func (res *Response) AddHeader(key, value string) *Response {
	res.headers.Add(key, value)
	return res
}

// Headers returns the live header map.
func (res *Response) Headers() http.Header { return res.headers }

// Body returns the buffered body.
func (res *Response) Body() []byte { return res.body }

// SetBody replaces the buffered body.
func (res *Response) SetBody(body []byte) *Response {
	res.body = body
	return res
}

// Request returns the request this response answers, when attached.
func (res *Response) Request() *Request { return res.req }

// SetRequest attaches the originating request. The router does this on
// dispatch so middleware and the terminate phase can correlate the pair.
func (res *Response) SetRequest(req *Request) *Response {
	res.req = req
	return res
}

// ── Flush ────────────────────────────────────────────────────────────────────

// Write flushes the buffered response to a ResponseWriter. For HEAD requests
// only the status and headers go out; the body is dropped but still counted
// in Content-Length, per RFC 9110.
func (res *Response) Write(w http.ResponseWriter) error {
	for key, values := range res.headers {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if len(res.body) > 0 && res.headers.Get("Content-Length") == "" {
		w.Header().Set("Content-Length", strconv.Itoa(len(res.body)))
	}
	w.WriteHeader(res.status)

	if res.req != nil && res.req.Method() == http.MethodHead {
		return nil
	}
	if len(res.body) == 0 {
		return nil
	}
	_, err := w.Write(res.body)
	return err
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
