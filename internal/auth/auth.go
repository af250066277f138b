package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/devwebtn/facturation/internal/core"
	"github.com/devwebtn/facturation/internal/httpx"
)

type ctxKey string

const identityCtxKey = ctxKey("identity")

// Claims carried by access tokens. Role and ClientID are verified here,
// once, and travel further only as a core.Identity.
type Claims struct {
	Role     string `json:"role"`
	ClientID uint   `json:"client_id,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs an access token for the given identity.
func Issue(secret string, identity core.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:     identity.Role,
		ClientID: identity.ClientID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Verify parses and validates a token, returning the typed identity.
func Verify(secret, tokenString string) (core.Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return core.Identity{}, core.Forbidden("token invalide")
	}
	if claims.Role != core.RoleAdmin && claims.Role != core.RoleClient {
		return core.Identity{}, core.Forbidden("rôle inconnu")
	}
	return core.Identity{Role: claims.Role, ClientID: claims.ClientID}, nil
}

// Middleware extracts a Bearer token when present and stores the verified
// identity in the request context. Requests without a token pass through
// anonymous; route-level Require* guards decide what is mandatory.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			raw := strings.TrimPrefix(header, "Bearer ")
			identity, err := Verify(secret, raw)
			if err != nil {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFrom(r.Context()); !ok {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects requests whose identity does not carry the role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			if identity.Role != role {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity attaches an identity to ctx (also used by tests).
func WithIdentity(ctx context.Context, identity core.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFrom returns the verified identity stored in ctx.
func IdentityFrom(ctx context.Context) (core.Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey).(core.Identity)
	return identity, ok
}
