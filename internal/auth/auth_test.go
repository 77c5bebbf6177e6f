package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// TestTokenTypes проверяет, что refresh-токен нельзя использовать как access.
func TestTokenTypes(t *testing.T) {
	manager := NewTokenManager("secret", "budpal", time.Minute, time.Hour)
	userID := uuid.New()

	pair, err := manager.NewTokenPair(userID, uuid.New())
	if err != nil {
		t.Fatalf("new pair: %v", err)
	}

	claims, err := manager.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.Subject != userID.String() {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}

	if _, err := manager.ParseAccessToken(pair.RefreshToken); !errors.Is(err, ErrTokenType) {
		t.Fatalf("expected type mismatch, got %v", err)
	}

	other := NewTokenManager("other-secret", "budpal", time.Minute, time.Hour)
	if _, err := other.ParseAccessToken(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

// TestPasswordAndTokenHash проверяет bcrypt и хэш refresh-токена.
func TestPasswordAndTokenHash(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hash, "secret1"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := ComparePassword(hash, "secret2"); err == nil {
		t.Fatal("expected mismatch")
	}

	if !CompareTokenHash(HashToken("token"), "token") || CompareTokenHash(HashToken("token"), "other") {
		t.Fatal("unexpected token hash comparison")
	}
}

// TestJWTMiddleware проверяет заголовок Authorization и токен в query для потока.
func TestJWTMiddleware(t *testing.T) {
	manager := NewTokenManager("secret", "budpal", time.Minute, time.Hour)
	userID := uuid.New()
	pair, err := manager.NewTokenPair(userID, uuid.New())
	if err != nil {
		t.Fatalf("new pair: %v", err)
	}

	e := echo.New()
	handler := JWTMiddleware(manager)(func(c echo.Context) error {
		got, ok := UserIDFromContext(c)
		if !ok || got != userID {
			return c.NoContent(http.StatusTeapot)
		}
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/overview", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", rec.Code, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/overview?access_token="+pair.AccessToken, nil)
	rec = httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err == nil {
		t.Fatal("expected query token to be rejected outside of stream")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stream?access_token="+pair.AccessToken, nil)
	req.Header.Set(echo.HeaderAccept, "text/event-stream")
	rec = httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for stream, got %d (%v)", rec.Code, err)
	}
}
