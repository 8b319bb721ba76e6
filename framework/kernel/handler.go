package kernel

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/km-arc/arc/framework/container"
	gohttp "github.com/km-arc/arc/framework/http"
	"github.com/km-arc/arc/framework/http/validation"
	"github.com/km-arc/arc/framework/routing"
)

// ExceptionHandler converts any error escaping the pipeline into a response.
// Implementations must handle every error kind the core produces and never
// return nil.
//
//	// Laravel: Illuminate\Contracts\Debug\ExceptionHandler
type ExceptionHandler interface {
	Handle(err error, req *gohttp.Request) *gohttp.Response
}

// defaultExceptionHandler maps the core's error taxonomy onto HTTP statuses:
//
//	routing.NotFoundError          → 404
//	routing.MethodNotAllowedError  → 405 + Allow header
//	container.CoercionError        → 400
//	validation.FailedError         → 422 + error bag
//	anything else                  → 500 (message included in debug mode)
//
// Server errors are logged; client errors are not — request logging belongs
// to middleware.
type defaultExceptionHandler struct {
	logger *slog.Logger
	debug  bool
}

// NewExceptionHandler builds the default handler. A nil logger uses
// slog.Default. Debug mode exposes internal error strings on 500 responses
// and belongs in local environments only.
func NewExceptionHandler(logger *slog.Logger, debug bool) ExceptionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &defaultExceptionHandler{logger: logger, debug: debug}
}

func (h *defaultExceptionHandler) Handle(err error, req *gohttp.Request) *gohttp.Response {
	var (
		notFound   *routing.NotFoundError
		notAllowed *routing.MethodNotAllowedError
		coercion   *container.CoercionError
		invalid    *validation.FailedError
	)

	switch {
	case errors.As(err, &notFound):
		return gohttp.NotFound()

	case errors.As(err, &notAllowed):
		return gohttp.Error(http.StatusMethodNotAllowed, "Method not allowed.").
			SetHeader("Allow", strings.Join(notAllowed.Allowed, ", "))

	case errors.As(err, &coercion):
		return gohttp.Error(http.StatusBadRequest, coercion.Error())

	case errors.As(err, &invalid):
		return gohttp.ValidationFailed(invalid.Errors)

	default:
		h.logger.Error("unhandled error",
			"error", err,
			"method", req.Method(),
			"path", req.Path(),
		)
		if h.debug {
			return gohttp.Error(http.StatusInternalServerError, err.Error())
		}
		return gohttp.ServerError()
	}
}
