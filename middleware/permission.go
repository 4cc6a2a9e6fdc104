package middleware

import (
	"net/http"

	authcore "github.com/tidelock/authcore"
)

// RequirePermission enforces a permission for the already-verified
// principal. It must be mounted inside [RequireAccess]; a request with
// no claims in context answers 401, a denial answers 403.
func RequirePermission(engine *authcore.Engine, perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			err := engine.EnforcePermission(r.Context(),
				claims.Subject, claims.OrganizationID, perm, "", nil)
			if err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
