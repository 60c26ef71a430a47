package apiapp

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	authsvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/auth"
)

const testJWTSecret = "mw-test-secret"

func mintMWToken(t *testing.T, secret string, subject string, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": "user",
		"exp":  expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAuthMiddlewareSetsIdentity(t *testing.T) {
	verifier := authsvc.NewVerifier(testJWTSecret)
	mw := AuthMiddleware(verifier, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/matches", nil)
	req.Header.Set("Authorization", "Bearer "+mintMWToken(t, testJWTSecret, "42", time.Now().Add(time.Hour)))
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("identity missing in context")
		}
		if identity.UserID != 42 {
			t.Fatalf("unexpected user id: got %d want 42", identity.UserID)
		}
		if identity.Role != "user" {
			t.Fatalf("unexpected role: got %q", identity.Role)
		}
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	verifier := authsvc.NewVerifier(testJWTSecret)
	mw := AuthMiddleware(verifier, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/matches", nil)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not be called without a token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareRejectsWrongSecret(t *testing.T) {
	verifier := authsvc.NewVerifier(testJWTSecret)
	mw := AuthMiddleware(verifier, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/matches", nil)
	req.Header.Set("Authorization", "Bearer "+mintMWToken(t, "other-secret", "42", time.Now().Add(time.Hour)))
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not be called on invalid token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	verifier := authsvc.NewVerifier(testJWTSecret)
	mw := AuthMiddleware(verifier, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/matches", nil)
	req.Header.Set("Authorization", "Bearer "+mintMWToken(t, testJWTSecret, "42", time.Now().Add(-time.Minute)))
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not be called on expired token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}
