package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/gymguard-dashboard/internal/outreach"
	"github.com/wolfman30/gymguard-dashboard/internal/tenancy"
)

// SessionClaims are the fields read from the auth provider's access token.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// SessionAuth verifies the auth provider's HS256 access token and stores a
// tenancy.Session in the request context. The raw token is kept so
// outreach calls can be made on the user's behalf.
func SessionAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeDetail(w, http.StatusUnauthorized, "session auth disabled")
				return
			}
			tokenString, ok := bearerToken(r)
			if !ok {
				writeDetail(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			claims := SessionClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid || strings.TrimSpace(claims.Subject) == "" {
				writeDetail(w, http.StatusUnauthorized, "invalid token")
				return
			}
			session := tenancy.Session{
				UserID:      claims.Subject,
				Email:       claims.Email,
				AccessToken: tokenString,
				TargetGymID: targetGym(r),
			}
			next.ServeHTTP(w, r.WithContext(tenancy.WithSession(r.Context(), session)))
		})
	}
}

// Browsers cannot set headers on a websocket handshake, so upgrade requests
// may carry the token and gym target as query parameters instead.
const (
	tokenQueryParam     = "access_token"
	targetGymQueryParam = "target_gym_id"
)

func bearerToken(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		return token, token != ""
	}
	if isWebSocketUpgrade(r) {
		token := strings.TrimSpace(r.URL.Query().Get(tokenQueryParam))
		return token, token != ""
	}
	return "", false
}

func targetGym(r *http.Request) string {
	if target := strings.TrimSpace(r.Header.Get(outreach.TargetGymHeader)); target != "" {
		return target
	}
	if isWebSocketUpgrade(r) {
		return strings.TrimSpace(r.URL.Query().Get(targetGymQueryParam))
	}
	return ""
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
