package handlers

import (
	"net/http"
	"runtime"

	"go.uber.org/zap"

	"usermanagement/logging"
)

// RecoverWrapper turns a panic in next into a logged 500 response.
func RecoverWrapper(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					stack := make([]byte, 8*1024)
					stack = stack[:runtime.Stack(stack, false)]
					log.Errorw("panic recovered",
						"error", rec,
						"path", r.URL.Path,
						"request_id", logging.RequestID(r.Context()),
						"stack", string(stack),
					)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
