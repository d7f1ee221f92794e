package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCORS(t *testing.T) {
	cases := []struct {
		name        string
		allowed     []string
		origin      string
		wantAllowed string
	}{
		{"listed origin", []string{"https://app.gymguard.test"}, "https://app.gymguard.test", "https://app.gymguard.test"},
		{"listed with trailing slash", []string{"https://app.gymguard.test/"}, "https://app.gymguard.test", "https://app.gymguard.test"},
		{"unknown origin", []string{"https://app.gymguard.test"}, "https://evil.test", ""},
		{"wildcard", []string{"*"}, "http://localhost:3000", "http://localhost:3000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			req := httptest.NewRequest(http.MethodGet, "/watchlist", nil)
			req.Header.Set("Origin", tc.origin)
			rec := httptest.NewRecorder()
			CORS(tc.allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})).ServeHTTP(rec, req)

			if !called {
				t.Fatalf("expected handler to be called")
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantAllowed {
				t.Fatalf("allow origin = %q want %q", got, tc.wantAllowed)
			}
		})
	}
}

func TestCORSAllowsTargetGymHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/watchlist/mass/confirm", nil)
	req.Header.Set("Origin", "https://app.gymguard.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()

	called := false
	CORS([]string{"https://app.gymguard.test"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rec, req)

	if called {
		t.Fatalf("expected handler to not be called on preflight")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "X-Target-Gym-ID") {
		t.Fatalf("expected X-Target-Gym-ID in allowed headers, got %q", rec.Header().Get("Access-Control-Allow-Headers"))
	}
}
