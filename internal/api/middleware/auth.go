package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/designwheel/engine/internal/api/types"
	"github.com/designwheel/engine/internal/services"
	appErr "github.com/designwheel/engine/pkg/errors"
)

type claimsKeyType string

const ClaimsKey claimsKeyType = "claims"

// TokenParser is the part of the auth service the middleware needs.
type TokenParser interface {
	ParseToken(token string) (*services.Claims, error)
}

// Auth validates a Bearer JWT and adds its claims to the context.
func Auth(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := r.Header.Get("Authorization")
			if !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				deny(w, appErr.New(appErr.CodeUnauthorized, "missing bearer token"))
				return
			}
			claims, err := parser.ParseToken(strings.TrimSpace(ah[len("Bearer "):]))
			if err != nil {
				deny(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole rejects callers whose token carries none of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := GetClaims(r.Context())
			if c == nil {
				deny(w, appErr.New(appErr.CodeUnauthorized, "not authenticated"))
				return
			}
			for _, role := range roles {
				if c.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			deny(w, appErr.New(appErr.CodeForbidden, "role not allowed").WithMeta("role", c.Role))
		})
	}
}

func WithClaims(ctx context.Context, c *services.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, c)
}

func GetClaims(ctx context.Context) *services.Claims {
	if c, ok := ctx.Value(ClaimsKey).(*services.Claims); ok {
		return c
	}
	return nil
}

// IsInstructor reports whether the caller holds an instructor token.
func IsInstructor(ctx context.Context) bool {
	c := GetClaims(ctx)
	return c != nil && c.Role == services.RoleInstructor
}

func deny(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus(appErr.CodeOf(err)))
	_ = json.NewEncoder(w).Encode(types.APIResponse{Success: false, Error: types.FromAppError(err)})
}
