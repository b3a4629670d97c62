package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func serveWithAuth(t *testing.T, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_ShortHeaderRejectedWithoutPanic(t *testing.T) {
	// Headers shorter than the "Bearer " prefix used to slice out of range.
	for _, h := range []string{"x", "B", "Bearer"} {
		w := serveWithAuth(t, h)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", h, w.Code)
		}
	}
}

func TestAuthMiddleware_NonBearerSchemeRejected(t *testing.T) {
	w := serveWithAuth(t, "Basic dXNlcjpwYXNz")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthMiddleware_InvalidTokenRejected(t *testing.T) {
	w := serveWithAuth(t, "Bearer not-a-jwt")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthMiddleware_NoHeaderPassesThrough(t *testing.T) {
	w := serveWithAuth(t, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through 204, got %d", w.Code)
	}
}
