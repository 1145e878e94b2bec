package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/hugh/mevamscale/internal/apperr"
)

// Recovery turns a panicking handler into a 500 response.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic recovered",
						"method", r.Method,
						"path", r.URL.Path,
						"panic", rec,
						"stack", string(debug.Stack()),
					)
					writeError(w, apperr.New(apperr.Storage, "internal error"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
