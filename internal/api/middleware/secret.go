package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gilvint/headspace-agent/internal/api"
)

// EmbedSecretHeader carries the pre-shared secret for privileged routes.
const EmbedSecretHeader = "X-Embed-Secret"

// RequireEmbedSecret guards routes meant for the scheduler and the CRUD
// frontend. An empty configured secret disables the routes outright rather
// than leaving them open.
func RequireEmbedSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(EmbedSecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
				api.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
