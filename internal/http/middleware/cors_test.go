package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveCORS(origins []string, method, origin string, preflight bool) (*httptest.ResponseRecorder, bool) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(method, "/chat", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	rec := httptest.NewRecorder()
	CORS(origins)(handler).ServeHTTP(rec, req)
	return rec, called
}

func TestCORSAllowsListedOrigin(t *testing.T) {
	rec, called := serveCORS([]string{"https://widget.example.com/"}, http.MethodPost, "https://widget.example.com", false)

	if !called {
		t.Fatalf("expected handler to be called")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://widget.example.com" {
		t.Fatalf("expected allow origin header, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != corsAllowedMethods {
		t.Fatalf("unexpected allow methods %q", got)
	}
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	rec, called := serveCORS([]string{"https://widget.example.com"}, http.MethodPost, "https://evil.example.com", false)

	if !called {
		t.Fatalf("expected handler to be called")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow origin header, got %q", got)
	}
}

func TestCORSWildcard(t *testing.T) {
	rec, _ := serveCORS([]string{"*"}, http.MethodGet, "https://anywhere.test", false)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://anywhere.test" {
		t.Fatalf("expected echoed origin, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	rec, called := serveCORS([]string{"https://widget.example.com"}, http.MethodOptions, "https://widget.example.com", true)
	if called {
		t.Fatalf("preflight should not reach handler")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	rec, called = serveCORS([]string{"https://widget.example.com"}, http.MethodOptions, "https://evil.example.com", true)
	if called {
		t.Fatalf("preflight should not reach handler")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
}
