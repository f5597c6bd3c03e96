package middleware

import (
	"net/http"

	"github.com/contractdesk/backend/internal/contextkeys"
	"github.com/contractdesk/backend/internal/domain"
	"github.com/contractdesk/backend/internal/handler"
)

// AdminOnly restricts a route to ADMIN-role tokens. Must run after Auth,
// which puts the verified claims in the context.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := contextkeys.UserRole(r.Context())
		if !ok || role != domain.RoleAdmin {
			handler.Error(w, domain.ErrForbidden("admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
