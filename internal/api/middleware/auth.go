package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/mevamscale/internal/apperr"
	"github.com/hugh/mevamscale/internal/auth"
	"github.com/hugh/mevamscale/internal/database/models"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
)

// Auth validates the bearer token and stores the caller's identity in the
// request context. Project roles are not resolved here.
func Auth(jwtService auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := jwtService.ValidateToken(tokenFromRequest(r))
			if err != nil {
				writeError(w, err)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth identifies the caller when a token is sent and lets anonymous
// requests through. A token that is present but invalid is still rejected.
func OptionalAuth(jwtService auth.TokenService) func(http.Handler) http.Handler {
	required := Auth(jwtService)
	return func(next http.Handler) http.Handler {
		withToken := required(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenFromRequest(r) == "" {
				next.ServeHTTP(w, r)
				return
			}
			withToken.ServeHTTP(w, r)
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	// 1. Authorization header (API clients)
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}

	// 2. Cookie set by login
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	// 3. X-Auth-Token header (localStorage fallback for the SPA)
	return r.Header.Get("X-Auth-Token")
}

// Helper functions to extract values from context
func GetUserID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

func GetUserRole(ctx context.Context) models.GlobalRole {
	if role, ok := ctx.Value(UserRoleKey).(models.GlobalRole); ok {
		return role
	}
	return ""
}

// GetPrincipal returns the authenticated caller, or nil outside Auth.
func GetPrincipal(ctx context.Context) *auth.Principal {
	id := GetUserID(ctx)
	if id == uuid.Nil {
		return nil
	}
	return &auth.Principal{UserID: id, Role: GetUserRole(ctx)}
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(apperr.KindOf(err)))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": apperr.Message(err),
		"kind":  string(apperr.KindOf(err)),
	})
}
