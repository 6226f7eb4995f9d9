package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const operatorClaimsKey contextKey = "operatorClaims"

// OperatorRole is the role claim required on admin tokens.
const OperatorRole = "operator"

// OperatorClaims are the claims carried by an operator's admin token.
type OperatorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminJWT guards the /admin routes with an HS256 token whose role claim is
// "operator". An empty secret locks the routes entirely.
func AdminJWT(secret string) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "admin auth disabled", http.StatusUnauthorized)
				return
			}
			tokenString, ok := bearerToken(r)
			if !ok {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			claims := &OperatorClaims{}
			token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			if claims.Role != OperatorRole {
				http.Error(w, "operator role required", http.StatusForbidden)
				return
			}
			ctx := context.WithValue(r.Context(), operatorClaimsKey, *claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OperatorFromContext returns the operator claims set by AdminJWT.
func OperatorFromContext(ctx context.Context) (OperatorClaims, bool) {
	claims, ok := ctx.Value(operatorClaimsKey).(OperatorClaims)
	return claims, ok
}

func bearerToken(r *http.Request) (string, bool) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(auth[7:])
	return token, token != ""
}
