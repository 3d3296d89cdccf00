package middleware

import (
	"net/http"

	"github.com/frahmantamala/ai-helper/internal"
	"github.com/frahmantamala/ai-helper/pkg/logger"
)

// UserContext tags the request logger with the authenticated principal. It must run after
// the authentication middleware.
func UserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := internal.PrincipalFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := logger.With(r.Context(), "userID", p.UserID, "username", p.Username, "role", p.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
