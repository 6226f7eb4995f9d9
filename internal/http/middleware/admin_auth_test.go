package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedOperatorToken(t *testing.T, secret, role string, expires time.Time) string {
	t.Helper()
	claims := OperatorClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops@example.com",
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func serveAdmin(mw func(http.Handler) http.Handler, authorization string) (*httptest.ResponseRecorder, *OperatorClaims) {
	var seen *OperatorClaims
	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := OperatorFromContext(r.Context()); ok {
			seen = &claims
		}
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	return rec, seen
}

func TestAdminJWT(t *testing.T) {
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"missing secret", "", "Bearer x", http.StatusUnauthorized},
		{"missing header", "secret", "", http.StatusUnauthorized},
		{"not bearer", "secret", "Basic abc", http.StatusUnauthorized},
		{"wrong key", "secret", "Bearer " + signedOperatorToken(t, "wrong", OperatorRole, future), http.StatusUnauthorized},
		{"expired", "secret", "Bearer " + signedOperatorToken(t, "secret", OperatorRole, time.Now().Add(-time.Minute)), http.StatusUnauthorized},
		{"wrong role", "secret", "Bearer " + signedOperatorToken(t, "secret", "viewer", future), http.StatusForbidden},
		{"valid", "secret", "Bearer " + signedOperatorToken(t, "secret", OperatorRole, future), http.StatusOK},
		{"lowercase scheme", "secret", "bearer " + signedOperatorToken(t, "secret", OperatorRole, future), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, claims := serveAdmin(AdminJWT(tt.secret), tt.header)
			if rec.Code != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusOK && (claims == nil || claims.Subject != "ops@example.com") {
				t.Fatalf("expected operator claims in context, got %+v", claims)
			}
		})
	}
}

func TestAdminJWTRejectsNoneAlgorithm(t *testing.T) {
	claims := OperatorClaims{Role: OperatorRole, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	rec, _ := serveAdmin(AdminJWT("secret"), "Bearer "+unsigned)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}
