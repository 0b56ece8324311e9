//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bissquit/comment-notifications/internal/domain"
	"github.com/bissquit/comment-notifications/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_RegisterLoginMe(t *testing.T) {
	email := uniqueEmail("auth")
	client := signedInClient(t, email, "Auth User")

	resp, err := client.GET("/api/v1/me")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var user domain.User
	testutil.DecodeData(t, resp, &user)
	assert.Equal(t, email, user.Email)
	assert.Equal(t, "Auth User", user.Name)
	assert.Equal(t, domain.RoleUser, user.Role)
}

func TestAuth_AdminEmailGetsAdminRole(t *testing.T) {
	client := adminClient(t)

	resp, err := client.GET("/api/v1/me")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var user domain.User
	testutil.DecodeData(t, resp, &user)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}

func TestAuth_DuplicateEmail(t *testing.T) {
	email := uniqueEmail("dup")
	client := newTestClient(t)
	client.Register(t, email, userPassword, "")

	resp, err := client.POST("/api/v1/auth/register", map[string]string{
		"email":    email,
		"password": userPassword,
	})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAuth_WrongPassword(t *testing.T) {
	email := uniqueEmail("wrong")
	client := newTestClient(t)
	client.Register(t, email, userPassword, "")

	resp, err := client.POST("/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": "not-the-password",
	})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_LogoutClearsCookie(t *testing.T) {
	client := signedInClient(t, uniqueEmail("logout"), "")

	resp, err := client.POST("/api/v1/auth/logout", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = client.GET("/api/v1/me")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
