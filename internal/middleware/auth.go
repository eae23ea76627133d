package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"staybook/internal/domain"
)

type actorKey struct{}

// WithActor stores actor in ctx.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller placed by JWTAuth.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}

// JWTAuth validates an HS256 Bearer token and turns its sub and role claims
// into an Actor. Tokens are issued elsewhere; only verification happens here.
func JWTAuth(secret string) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeAuthError(w, "missing bearer token")
				return
			}

			claims := jwt.MapClaims{}
			tok, err := parser.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), claims, keyFunc)
			if err != nil || !tok.Valid {
				writeAuthError(w, "invalid token")
				return
			}

			actor, ok := actorFromClaims(claims)
			if !ok {
				writeAuthError(w, "invalid claims")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func actorFromClaims(claims jwt.MapClaims) (domain.Actor, bool) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, false
	}
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return domain.Actor{}, false
	}

	roleClaim, _ := claims["role"].(string)
	role, ok := domain.ParseRole(roleClaim)
	// The system role is reserved for internal callbacks.
	if !ok || role == domain.RoleSystem {
		return domain.Actor{}, false
	}

	return domain.Actor{ID: id, Role: role}, true
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "UNAUTHENTICATED",
		"message": message,
	})
}
