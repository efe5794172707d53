package middleware

import (
	"net/http"

	"github.com/gilvint/headspace-agent/internal/api"
)

// MaxBodyBytes caps request body size at limit bytes. Requests that declare
// a larger Content-Length are rejected with 413 before any read; bodies
// without a declared length are wrapped in a MaxBytesReader so handler
// reads fail once the cap is crossed. A limit of zero or less disables
// the cap.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength != -1 && r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
