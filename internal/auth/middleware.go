package auth

import (
	"context"
	"net/http"
	"strings"

	"quizgate/internal/apperr"
	"quizgate/internal/httpx"

	"github.com/dgrijalva/jwt-go"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	roleKey   contextKey = "role"
)

// WithIdentity stores the authenticated caller on the context.
func WithIdentity(ctx context.Context, userID uint, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}

func UserID(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDKey).(uint)
	return id, ok
}

func Role(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}

// JWTMiddleware accepts the token from the Authorization header, or from the
// token query parameter for websocket upgrades where browsers cannot set headers.
func JWTMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				httpx.WriteError(w, r, apperr.Unauthorized("authorization header required"))
				return
			}

			userID, role, err := ParseToken(tokenString, jwtSecret)
			if err != nil {
				httpx.WriteError(w, r, apperr.Unauthorized("invalid token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), userID, role)))
		})
	}
}

// RequireRole rejects callers whose role is not in roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := Role(r.Context())
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.WriteError(w, r, apperr.Forbidden("role %q may not access this resource", role))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, true
		}
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

func ParseToken(tokenString, jwtSecret string) (uint, string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return 0, "", err
	}

	claims, ok := token.Claims.(*jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, "", errInvalidToken
	}

	userID, ok := (*claims)["user_id"].(float64)
	if !ok {
		return 0, "", errInvalidToken
	}
	role, _ := (*claims)["role"].(string)
	return uint(userID), role, nil
}
