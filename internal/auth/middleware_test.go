package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/adventquiz/calendar-platform/internal/auth/jwt"
)

func serveAdminRoute(t *testing.T, claims *jwt.Claims) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/leaderboards/2025/rebuild", nil)
	if claims != nil {
		req = req.WithContext(context.WithValue(req.Context(), claimsKey, claims))
	}
	rec := httptest.NewRecorder()
	RequireAdmin(next).ServeHTTP(rec, req)
	return rec, called
}

func TestRequireAdminRejectsAnonymous(t *testing.T) {
	rec, called := serveAdminRoute(t, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
}

func TestRequireAdminRejectsRegisteredPlayer(t *testing.T) {
	rec, called := serveAdminRoute(t, &jwt.Claims{PlayerID: uuid.New(), UserType: UserTypeRegistered})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	rec, called := serveAdminRoute(t, &jwt.Claims{PlayerID: uuid.New(), UserType: UserTypeAdmin})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	rec := httptest.NewRecorder()
	RequireAuth(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/players/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
