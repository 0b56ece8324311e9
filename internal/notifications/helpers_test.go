package notifications

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/bissquit/comment-notifications/internal/comments"
	"github.com/bissquit/comment-notifications/internal/comments/commentstest"
	"github.com/bissquit/comment-notifications/internal/content"
	"github.com/bissquit/comment-notifications/internal/domain"
	"github.com/bissquit/comment-notifications/internal/pkg/ctxlog"
	"github.com/bissquit/comment-notifications/internal/session"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL    = "https://example.com"
	testAdminEmail = "admin@example.com"
)

// titles is a content.Resolver over a fixed set of items.
type titles map[int64]string

func (t titles) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := t[id]
	return ok, nil
}

func (t titles) FetchTitle(_ context.Context, id int64) (string, error) {
	title, ok := t[id]
	if !ok {
		return "", content.ErrNotFound
	}
	return title, nil
}

// unreachable is a content.Resolver whose backing store is down.
type unreachable struct{ err error }

func (u unreachable) Exists(context.Context, int64) (bool, error) { return false, u.err }

func (u unreachable) FetchTitle(context.Context, int64) (string, error) { return "", u.err }

// captureLogs returns a context whose logger writes text records to buf.
func captureLogs(buf *bytes.Buffer) context.Context {
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger)
}

type recordingSender struct {
	mu      sync.Mutex
	sent    []Message
	failFor map[string]error
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failFor[msg.To]; err != nil {
		return err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.sent))
	for _, m := range s.sent {
		out = append(out, m.To)
	}
	return out
}

func (s *recordingSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = nil
}

type fixture struct {
	repo     *commentstest.Repository
	registry *content.Registry
	service  *comments.Service
	sender   *recordingSender
	notifier *CommentNotifier
	subs     *SubscriptionService
	sessions *session.MemoryStore
}

func newFixture(t *testing.T, requireModeration bool) *fixture {
	t.Helper()

	repo := commentstest.NewRepository()
	registry := content.NewRegistry()
	registry.Register("Page", titles{1: "Tom & Jerry", 2: "About us"})
	registry.Register("Article", titles{7: "Release notes"})

	service := comments.NewService(repo, registry, comments.Config{RequireModeration: requireModeration})

	renderer, err := NewRenderer()
	require.NoError(t, err)

	sender := &recordingSender{}
	notifier := NewCommentNotifier(service, registry, renderer, sender, NotifierConfig{
		AdminEmail: testAdminEmail,
		BaseURL:    testBaseURL,
	})
	service.AddHook(notifier)

	sessions := session.NewMemoryStore()
	subs := NewSubscriptionService(service, registry, sessions, SubscriptionConfig{BaseURL: testBaseURL})

	return &fixture{
		repo:     repo,
		registry: registry,
		service:  service,
		sender:   sender,
		notifier: notifier,
		subs:     subs,
		sessions: sessions,
	}
}

func user(id, email string) *domain.User {
	return &domain.User{ID: id, Email: email, Name: id}
}

func (f *fixture) submit(t *testing.T, baseClass string, parentID int64, author *domain.User, notify bool) *domain.Comment {
	t.Helper()

	c, err := f.service.Submit(context.Background(), comments.SubmitInput{
		BaseClass:       baseClass,
		ParentID:        parentID,
		Author:          author,
		Body:            "a comment",
		NotifyOfUpdates: notify,
	})
	require.NoError(t, err)
	return c
}
