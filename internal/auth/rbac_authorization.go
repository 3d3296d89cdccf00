package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/ai-helper/internal"
	"github.com/frahmantamala/ai-helper/internal/transport"
)

type PermissionAuthorizer interface {
	HasPermission(ctx context.Context, principal internal.Principal, permission string) (bool, error)
}

type RBACAuthorization struct {
	*transport.BaseHandler
	authorizer PermissionAuthorizer
}

func NewRBACAuthorization(authorizer PermissionAuthorizer, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		authorizer:  authorizer,
	}
}

func (ra *RBACAuthorization) Check(next http.HandlerFunc, permission string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := internal.PrincipalFromContext(r.Context())
		if !ok {
			ra.Logger.Warn("authorization check failed: principal not found in context")
			ra.HandleError(w, internal.ErrInvalidToken)
			return
		}

		hasAccess, err := ra.authorizer.HasPermission(r.Context(), principal, permission)
		if err != nil {
			ra.Logger.ErrorContext(r.Context(), "authorization check failed", "error", err, "user_id", principal.UserID, "permission", permission)
			ra.HandleServiceError(w, err)
			return
		}

		if !hasAccess {
			ra.Logger.WarnContext(r.Context(), "access denied: insufficient permissions",
				"user_id", principal.UserID,
				"role", principal.Role,
				"required_permission", permission)
			ra.HandleError(w, internal.ErrForbidden)
			return
		}

		next.ServeHTTP(w, r)
	}
}

func (ra *RBACAuthorization) Middleware(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.Check(next.ServeHTTP, permission)
	}
}
