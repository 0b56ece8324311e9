//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/bissquit/comment-notifications/internal/domain"
	"github.com/bissquit/comment-notifications/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const userPassword = "user-password"

// createPage inserts a page and returns its id.
func createPage(t *testing.T, title string) int64 {
	t.Helper()

	var id int64
	err := testDB.QueryRow(context.Background(),
		`INSERT INTO pages (title) VALUES ($1) RETURNING id`, title,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// uniqueEmail returns an address no other test uses.
func uniqueEmail(name string) string {
	return fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8])
}

// signedInClient registers a user and returns a client logged in as that user.
func signedInClient(t *testing.T, email, name string) *testutil.Client {
	t.Helper()

	client := newTestClient(t)
	client.Register(t, email, userPassword, name)
	client.LoginAs(t, email, userPassword)
	return client
}

// adminClient returns a client logged in with the admin role.
func adminClient(t *testing.T) *testutil.Client {
	t.Helper()

	client := newTestClient(t)
	client.Register(t, adminEmail, adminPassword, "Admin")
	client.LoginAs(t, adminEmail, adminPassword)
	return client
}

// submitComment posts a comment and returns it.
func submitComment(t *testing.T, client *testutil.Client, pageID int64, body string, notify bool) domain.Comment {
	t.Helper()

	resp, err := client.POST("/api/v1/comments", map[string]interface{}{
		"base_class":        "Page",
		"parent_id":         pageID,
		"comment":           body,
		"notify_of_updates": notify,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var comment domain.Comment
	testutil.DecodeData(t, resp, &comment)
	return comment
}

// approveComment approves a comment as admin.
func approveComment(t *testing.T, admin *testutil.Client, id int64) {
	t.Helper()

	resp, err := admin.POST(fmt.Sprintf("/api/v1/comments/%d/approve", id), nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// listSubscriptions fetches the subscriptions of the client's user.
func listSubscriptions(t *testing.T, client *testutil.Client) ([]domain.Subscription, bool) {
	t.Helper()

	resp, err := client.GET("/api/v1/comment-subscriptions")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Subscriptions    []domain.Subscription `json:"subscriptions"`
		JustUnsubscribed bool                  `json:"just_unsubscribed"`
	}
	testutil.DecodeData(t, resp, &body)
	return body.Subscriptions, body.JustUnsubscribed
}

// commentNotifyFlag reads notify_of_updates straight from the database.
func commentNotifyFlag(t *testing.T, id int64) bool {
	t.Helper()

	var notify bool
	err := testDB.QueryRow(context.Background(),
		`SELECT notify_of_updates FROM comments WHERE id = $1`, id,
	).Scan(&notify)
	require.NoError(t, err)
	return notify
}
