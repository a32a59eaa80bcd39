package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/zoransi/split-laundry-express/internal/auth"
	"github.com/zoransi/split-laundry-express/internal/domain"
	"github.com/zoransi/split-laundry-express/internal/metrics"
)

// authenticate resolves the bearer token from the Authorization header or,
// for websocket clients that cannot set headers, the token query parameter.
func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")

		if header := r.Header.Get("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				app.unauthorizedErrorResponse(w, r, domain.UnauthorizedError("authorization header is malformed"))
				return
			}
			token = strings.TrimSpace(parts[1])
		}

		user, err := app.identity.Authenticate(r.Context(), token)
		if err != nil {
			app.unauthorizedErrorResponse(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
	})
}

func (app *application) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			app.unauthorizedErrorResponse(w, r, domain.UnauthorizedError("missing credentials"))
			return
		}
		if !user.IsAdmin() {
			app.forbiddenResponse(w, r, domain.ForbiddenError("user %s is not an admin", user.ID))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimit keys buckets by user when authenticated and by client address
// otherwise.
func (app *application) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !app.config.rateLimiter.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		key := r.RemoteAddr
		if user, ok := auth.UserFromContext(r.Context()); ok {
			key = "user:" + user.ID
		}

		if allow, retryAfter := app.rateLimiter.Allow(key); !allow {
			app.rateLimitExceededResponse(w, r, retryAfter)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (app *application) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
