package middleware

import (
	"net/http"
	"strings"

	"github.com/contractdesk/backend/internal/contextkeys"
	"github.com/contractdesk/backend/internal/domain"
	"github.com/contractdesk/backend/internal/handler"
	"github.com/contractdesk/backend/internal/service"
)

// Auth verifies the bearer token on each request and stores the resulting
// claims in the request context for downstream handlers.
func Auth(authSvc *service.AuthService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				handler.Error(w, err)
				return
			}

			claims, err := authSvc.VerifyToken(token)
			if err != nil {
				handler.Error(w, domain.ErrUnauthorized("invalid or expired token"))
				return
			}

			ctx := contextkeys.WithUser(r.Context(), claims.Sub, claims.Email, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", domain.ErrUnauthorized("no token provided")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", domain.ErrUnauthorized("invalid authorization header")
	}
	return parts[1], nil
}
