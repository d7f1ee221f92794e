package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/gymguard-dashboard/internal/tenancy"
)

func signedSessionToken(t *testing.T, secret, subject string) string {
	t.Helper()
	claims := SessionClaims{
		Email: "owner@gym.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func runSessionAuth(secret string, req *http.Request) (*httptest.ResponseRecorder, *tenancy.Session) {
	var got *tenancy.Session
	rec := httptest.NewRecorder()
	SessionAuth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, ok := tenancy.SessionFromContext(r.Context()); ok {
			got = &s
		}
	})).ServeHTTP(rec, req)
	return rec, got
}

func TestSessionAuthMissingSecret(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/watchlist", nil)
	rec, _ := runSessionAuth("", req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestSessionAuthMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/watchlist", nil)
	rec, got := runSessionAuth("secret", req)
	if rec.Code != http.StatusUnauthorized || got != nil {
		t.Fatalf("expected 401 without session, got %d", rec.Code)
	}
}

func TestSessionAuthInvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/watchlist", nil)
	req.Header.Set("Authorization", "Bearer "+signedSessionToken(t, "wrong", "user-1"))
	rec, _ := runSessionAuth("secret", req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestSessionAuthRequiresSubject(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/watchlist", nil)
	req.Header.Set("Authorization", "Bearer "+signedSessionToken(t, "secret", ""))
	rec, _ := runSessionAuth("secret", req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestSessionAuthValidToken(t *testing.T) {
	token := signedSessionToken(t, "secret", "user-1")
	req := httptest.NewRequest(http.MethodGet, "/watchlist", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Target-Gym-ID", "gym-2")
	rec, got := runSessionAuth("secret", req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if got == nil {
		t.Fatal("expected session in context")
	}
	if got.UserID != "user-1" || got.Email != "owner@gym.test" || got.AccessToken != token || got.TargetGymID != "gym-2" {
		t.Fatalf("unexpected session %#v", got)
	}
}

func TestSessionAuthWebSocketQueryToken(t *testing.T) {
	token := signedSessionToken(t, "secret", "user-1")
	req := httptest.NewRequest(http.MethodGet, "/campaigns/c-1/progress/ws?access_token="+token+"&target_gym_id=gym-3", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	rec, got := runSessionAuth("secret", req)

	if rec.Code != http.StatusOK || got == nil {
		t.Fatalf("expected session from query token, got %d", rec.Code)
	}
	if got.UserID != "user-1" || got.AccessToken != token || got.TargetGymID != "gym-3" {
		t.Fatalf("unexpected session %#v", got)
	}
}

func TestSessionAuthQueryTokenOnlyForUpgrades(t *testing.T) {
	token := signedSessionToken(t, "secret", "user-1")
	req := httptest.NewRequest(http.MethodGet, "/campaigns/c-1/progress?access_token="+token, nil)
	rec, got := runSessionAuth("secret", req)
	if rec.Code != http.StatusUnauthorized || got != nil {
		t.Fatalf("expected 401 for query token on plain request, got %d", rec.Code)
	}
}
