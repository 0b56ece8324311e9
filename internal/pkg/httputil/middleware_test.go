package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bissquit/comment-notifications/internal/domain"
	"github.com/stretchr/testify/assert"
)

type stubValidator struct {
	tokens map[string]string
}

func (s *stubValidator) ValidateToken(_ context.Context, token string) (string, domain.Role, error) {
	switch token {
	case "expired":
		return "", "", ErrTokenExpired
	case "garbage":
		return "", "", errors.New("malformed token")
	}
	if id, ok := s.tokens[token]; ok {
		return id, domain.RoleUser, nil
	}
	return "", "", errors.New("unknown token")
}

type captured struct {
	userID  string
	expired bool
	called  bool
}

func captureHandler(c *captured) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.called = true
		c.userID = GetUserID(r.Context())
		c.expired = IsSessionExpired(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestOptionalAuthMiddleware(t *testing.T) {
	validator := &stubValidator{tokens: map[string]string{"good": "user-1"}}

	tests := []struct {
		name        string
		header      string
		cookie      string
		wantUser    string
		wantExpired bool
	}{
		{name: "anonymous"},
		{name: "bearer token", header: "Bearer good", wantUser: "user-1"},
		{name: "cookie token", cookie: "good", wantUser: "user-1"},
		{name: "expired cookie", cookie: "expired", wantExpired: true},
		{name: "invalid token", header: "Bearer garbage"},
		{name: "bad header format", header: "Token good"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tt.cookie})
			}

			var c captured
			OptionalAuthMiddleware(validator)(captureHandler(&c)).ServeHTTP(httptest.NewRecorder(), r)

			assert.True(t, c.called)
			assert.Equal(t, tt.wantUser, c.userID)
			assert.Equal(t, tt.wantExpired, c.expired)
		})
	}
}

func TestAuthMiddleware_RejectsAnonymous(t *testing.T) {
	validator := &stubValidator{tokens: map[string]string{"good": "user-1"}}

	var c captured
	w := httptest.NewRecorder()
	AuthMiddleware(validator)(captureHandler(&c)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, c.called)
}

func TestRequireRole(t *testing.T) {
	var c captured
	handler := RequireRole(domain.RoleAdmin)(captureHandler(&c))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(withUser(r.Context(), "user-1", domain.RoleUser))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, c.called)
}

func TestHandleError(t *testing.T) {
	errKnown := errors.New("known")
	mappings := []ErrorMapping{{Error: errKnown, Status: http.StatusNotFound, Message: "not here"}}

	w := httptest.NewRecorder()
	HandleError(context.Background(), w, errKnown, mappings)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":{"message":"not here"}}`, w.Body.String())

	w = httptest.NewRecorder()
	HandleError(context.Background(), w, errors.New("boom"), mappings)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
