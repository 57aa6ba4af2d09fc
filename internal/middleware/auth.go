package middleware

import (
	"net/http"
	"strings"

	"github.com/PaaDream1999/inspect-drive/internal/auth"
	"github.com/PaaDream1999/inspect-drive/internal/httputil"
)

// Auth verifies the bearer token when one is present and stores the caller's
// principal in the request context. Requests without a token pass through as
// anonymous; each endpoint decides whether anonymous access is allowed.
// A token that is present but invalid is rejected outright.
func Auth(verifier auth.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "malformed authorization header")
				return
			}

			principal, err := verifier.VerifyToken(token)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, httputil.WithPrincipal(r, *principal))
		})
	}
}
