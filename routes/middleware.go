package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"usermanagement/auth"
	"usermanagement/logging"
	"usermanagement/repository"
	"usermanagement/services"
)

const requestIDHeader = "X-Request-ID"

// statusWriter captures the status and size written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	n, err := sw.ResponseWriter.Write(b)
	sw.size += n
	return n, err
}

// RequestID tags each request with a correlation id. A well-formed
// incoming X-Request-ID is kept.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// Logging writes one line per request. Server errors log at warn level.
func Logging(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}
			fields := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
				"size", sw.size,
				"request_id", logging.RequestID(r.Context()),
			}
			if status >= http.StatusInternalServerError {
				log.Warnw("http request", fields...)
				return
			}
			log.Debugw("http request", fields...)
		})
	}
}

// NoCache marks every response uncacheable so pages behind a login are not
// replayed from the browser history after logout.
func NoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "same-origin")
		h.Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self'; form-action 'self';")
		if r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// Identity resolves the session's user id to an account and stores it in the
// request context. A session naming a deleted account is anonymous.
func Identity(sessions *auth.SessionManager, users *services.UserService, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := sessions.UserID(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			user, err := users.Lookup(r.Context(), id)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				next.ServeHTTP(w, r)
			case err != nil:
				log.Errorw("load session user", "user_id", id, "request_id", logging.RequestID(r.Context()), "err", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			default:
				next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), user)))
			}
		})
	}
}

// requireLogin sends anonymous callers to the login page.
func requireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.CurrentUser(r.Context()); !ok {
			http.Redirect(w, r, "/login_page", http.StatusFound)
			return
		}
		next(w, r)
	}
}

// requireStaff sends anonymous and non-staff callers to the admin login.
func requireStaff(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsStaff(r.Context()) {
			http.Redirect(w, r, "/admin_login", http.StatusFound)
			return
		}
		next(w, r)
	}
}
