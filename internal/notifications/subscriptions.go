package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/comment-notifications/internal/comments"
	"github.com/bissquit/comment-notifications/internal/content"
	"github.com/bissquit/comment-notifications/internal/domain"
	"github.com/bissquit/comment-notifications/internal/pkg/ctxlog"
	"github.com/bissquit/comment-notifications/internal/session"
)

// UnsubscribedFlag is the session flag set after a successful unsubscribe.
const UnsubscribedFlag = "CommentUserNotificationsUnsubscribed"

const defaultFlagTTL = 10 * time.Minute

// CommentStore reads and writes comments through the comment service,
// so that writes run the persist hooks.
type CommentStore interface {
	CommentFinder
	GetComment(ctx context.Context, id int64) (*domain.Comment, error)
	Write(ctx context.Context, comment *domain.Comment) error
}

// Viewer is the requester of a subscription operation.
type Viewer struct {
	// UserID is empty for anonymous visitors.
	UserID    string
	SessionID string
	// SessionExpired is set when the visitor presented an expired login.
	SessionExpired bool
}

// SubscriptionConfig holds subscription settings.
type SubscriptionConfig struct {
	BaseURL string
	// FlagTTL bounds how long an unread "just unsubscribed" flag is kept.
	FlagTTL time.Duration
}

// SubscriptionService lists and cancels comment notification subscriptions.
type SubscriptionService struct {
	comments CommentStore
	content  ContentResolver
	sessions session.Store
	cfg      SubscriptionConfig
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(store CommentStore, resolver ContentResolver, sessions session.Store, cfg SubscriptionConfig) *SubscriptionService {
	if cfg.FlagTTL <= 0 {
		cfg.FlagTTL = defaultFlagTTL
	}
	return &SubscriptionService{
		comments: store,
		content:  resolver,
		sessions: sessions,
		cfg:      cfg,
	}
}

// ListSubscriptions returns one subscription per thread the user opted in
// to, in the order of the user's first opted-in comment on each thread.
// Threads whose content item no longer resolves are left out.
func (s *SubscriptionService) ListSubscriptions(ctx context.Context, userID string) ([]domain.Subscription, error) {
	if userID == "" {
		return []domain.Subscription{}, nil
	}

	list, err := s.comments.FindComments(ctx, comments.OptedInByAuthor(userID))
	if err != nil {
		return nil, fmt.Errorf("find subscribed comments: %w", err)
	}

	subs := make([]domain.Subscription, 0)
	var emitted []domain.Thread

	for i := range list {
		c := &list[i]
		thread := c.Thread()
		if containsThread(emitted, thread) {
			continue
		}

		item, err := s.content.Resolve(ctx, c.BaseClass, c.ParentID)
		if err != nil {
			if errors.Is(err, content.ErrNotFound) || errors.Is(err, content.ErrUnknownType) {
				continue
			}
			return nil, fmt.Errorf("resolve %s %d: %w", c.BaseClass, c.ParentID, err)
		}

		subs = append(subs, domain.Subscription{
			BaseClass:       c.BaseClass,
			ParentID:        c.ParentID,
			CommentID:       c.ID,
			Title:           item.Title,
			UnsubscribeLink: UnsubscribeLink(s.cfg.BaseURL, c.ID),
		})
		emitted = append(emitted, thread)
	}

	return subs, nil
}

func containsThread(threads []domain.Thread, t domain.Thread) bool {
	for _, existing := range threads {
		if existing == t {
			return true
		}
	}
	return false
}

// Unsubscribe turns notifications off for the whole thread of a comment.
// Only the comment's author may do so; any other viewer gets a
// *PermissionDeniedError and nothing is changed.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, commentID int64, viewer Viewer) error {
	if commentID <= 0 {
		recordUnsubscribe("rejected")
		return ErrMissingCommentID
	}

	comment, err := s.comments.GetComment(ctx, commentID)
	if err != nil {
		recordUnsubscribe("rejected")
		return err
	}

	if reason, denied := checkAuthor(comment, viewer); denied {
		recordUnsubscribe("denied")
		return &PermissionDeniedError{Reason: reason}
	}

	ctx, logger := ctxlog.With(ctx, "comment_id", comment.ID, "user_id", viewer.UserID)

	// Every opted-in comment of the thread is switched off, not only the
	// viewer's own.
	list, err := s.comments.FindComments(ctx, comments.OptedInThread(comment.Thread()))
	if err != nil {
		return fmt.Errorf("find thread subscriptions: %w", err)
	}

	for i := range list {
		c := &list[i]
		c.NotifyOfUpdates = false
		if err := s.comments.Write(ctx, c); err != nil {
			return fmt.Errorf("unsubscribe comment %d: %w", c.ID, err)
		}
	}

	if viewer.SessionID != "" {
		if err := s.sessions.SetFlag(ctx, viewer.SessionID, UnsubscribedFlag, "1", s.cfg.FlagTTL); err != nil {
			logger.Warn("failed to set unsubscribed flag", "error", err)
		}
	}

	recordUnsubscribe("success")
	logger.Info("unsubscribed from thread",
		"base_class", comment.BaseClass,
		"parent_id", comment.ParentID,
		"comments", len(list),
	)
	return nil
}

func checkAuthor(comment *domain.Comment, viewer Viewer) (DenialReason, bool) {
	switch {
	case viewer.UserID == "" && viewer.SessionExpired:
		return ReasonSessionExpired, true
	case viewer.UserID == "":
		return ReasonNotLoggedIn, true
	case viewer.UserID != comment.AuthorID:
		return ReasonWrongUser, true
	}
	return "", false
}

// HasJustUnsubscribed reports whether the session unsubscribed since the
// last call. The flag is cleared by reading it.
func (s *SubscriptionService) HasJustUnsubscribed(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}

	value, ok, err := s.sessions.PopFlag(ctx, sessionID, UnsubscribedFlag)
	if err != nil {
		return false, fmt.Errorf("read unsubscribed flag: %w", err)
	}

	return ok && value != "", nil
}
