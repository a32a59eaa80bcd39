package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/zoransi/split-laundry-express/internal/domain"
)

func (app *application) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("internal error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusInternalServerError, "the server encountered a problem")
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("bad request", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusBadRequest, err.Error())
}

func (app *application) conflictResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("conflict response", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusConflict, err.Error())
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("not found error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusNotFound, err.Error())
}

func (app *application) unauthorizedErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	w.Header().Set("WWW-Authenticate", `Bearer realm="restricted"`)
	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) forbiddenResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("forbidden", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusForbidden, "forbidden")
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	app.logger.Warnw("rate limit exceeded", "method", r.Method, "path", r.URL.Path)

	seconds := int(retryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))

	writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded, retry after: "+strconv.Itoa(seconds)+"s")
}

func (app *application) paymentErrorResponse(w http.ResponseWriter, r *http.Request, err *domain.PaymentError) {
	app.logger.Infow("payment declined", "method", r.Method, "path", r.URL.Path, "order_id", err.OrderID, "code", err.Code)

	type envelope struct {
		Error string `json:"error"`
		Code  string `json:"code,omitempty"`
	}

	writeJson(w, http.StatusBadRequest, &envelope{Error: err.Message, Code: err.Code})
}

// errorResponse maps a service error onto its HTTP status.
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var payErr *domain.PaymentError

	switch {
	case errors.As(err, &payErr):
		app.paymentErrorResponse(w, r, payErr)
	case domain.IsValidation(err), domain.IsInvalidTransition(err):
		app.badRequestResponse(w, r, err)
	case domain.IsNotFound(err):
		app.notFoundResponse(w, r, err)
	case domain.IsUnauthorized(err):
		app.unauthorizedErrorResponse(w, r, err)
	case domain.IsForbidden(err):
		app.forbiddenResponse(w, r, err)
	case domain.IsConflict(err):
		app.conflictResponse(w, r, err)
	default:
		app.internalServerError(w, r, err)
	}
}
