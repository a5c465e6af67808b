package middleware

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/therapease/booking-server-go/internal/errors"
	"github.com/therapease/booking-server-go/internal/httputil"
	"github.com/therapease/booking-server-go/internal/model"
	"github.com/therapease/booking-server-go/internal/token"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	roleKey   contextKey = "role"
)

// AccessTokenCookie carries the access token for browser clients; API
// clients use the Authorization header instead.
const AccessTokenCookie = "accessToken"

// AuthMiddleware verifies the login access token and puts the caller's
// identity on the request context.
type AuthMiddleware struct {
	auth *token.AuthIssuer
}

func NewAuthMiddleware(auth *token.AuthIssuer) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
				raw = cookie.Value
			}
		}
		if raw == "" {
			httputil.WriteError(w, apperrors.Unauthorized("Missing access token"))
			return
		}

		claims, err := m.auth.VerifyAccess(raw)
		if err != nil {
			httputil.WriteError(w, apperrors.Unauthorized("Invalid or expired access token"))
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
		ctx = context.WithValue(ctx, roleKey, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects callers without the admin role. It must run after
// Handler.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if RoleFromContext(r.Context()) != model.UserRoleAdmin {
			httputil.WriteError(w, apperrors.Forbidden("Admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// UserIDFromContext returns the authenticated user id, or "" when the
// request was not authenticated.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func RoleFromContext(ctx context.Context) model.UserRole {
	role, _ := ctx.Value(roleKey).(model.UserRole)
	return role
}
