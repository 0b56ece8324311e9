package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bissquit/comment-notifications/internal/comments"
	"github.com/bissquit/comment-notifications/internal/content"
	"github.com/bissquit/comment-notifications/internal/domain"
	"github.com/bissquit/comment-notifications/internal/pkg/ctxlog"
	"golang.org/x/text/language"
)

// UnsubscribePath is the path prefix of unsubscribe links.
const UnsubscribePath = "/commenting/unsubscribenotification"

// CommentFinder looks up comments by field equality.
type CommentFinder interface {
	FindComments(ctx context.Context, filter comments.Filter) ([]domain.Comment, error)
}

// ContentResolver resolves the content item a comment thread belongs to.
type ContentResolver interface {
	Resolve(ctx context.Context, typeName string, id int64) (*domain.ContentItem, error)
}

// NotifierConfig holds settings for new comment emails.
type NotifierConfig struct {
	// AdminEmail is the sender address of every notification.
	AdminEmail string
	// BaseURL prefixes unsubscribe links. Empty means site-relative links.
	BaseURL  string
	Language language.Tag
}

// CommentNotifier emails the opted-in authors of a thread when a comment
// on it becomes visible. It is registered as a comments.PersistHook.
type CommentNotifier struct {
	comments CommentFinder
	content  ContentResolver
	renderer *Renderer
	sender   Sender
	cfg      NotifierConfig
}

// NewCommentNotifier creates a new CommentNotifier.
func NewCommentNotifier(
	finder CommentFinder,
	resolver ContentResolver,
	renderer *Renderer,
	sender Sender,
	cfg NotifierConfig,
) *CommentNotifier {
	if cfg.Language == language.Und {
		cfg.Language = language.English
	}
	return &CommentNotifier{
		comments: finder,
		content:  resolver,
		renderer: renderer,
		sender:   sender,
		cfg:      cfg,
	}
}

// ShouldNotify reports whether a write made a comment visible for the first
// time: either a new comment saved already approved, or an existing comment
// that has just been approved. Other writes, edits of approved comments
// included, do not notify.
func ShouldNotify(changes domain.ChangeSet) bool {
	moderated, ok := changes[domain.FieldModerated]
	if !ok || moderated.After != true {
		return false
	}

	if id, ok := changes[domain.FieldID]; ok && id.Before == int64(0) {
		return true
	}

	return moderated.Before == false
}

// OnAfterPersist implements comments.PersistHook.
func (n *CommentNotifier) OnAfterPersist(ctx context.Context, comment *domain.Comment, changes domain.ChangeSet) {
	if !ShouldNotify(changes) {
		return
	}

	logger := ctxlog.FromContext(ctx).With(
		"comment_id", comment.ID,
		"base_class", comment.BaseClass,
		"parent_id", comment.ParentID,
	)

	item, err := n.content.Resolve(ctx, comment.BaseClass, comment.ParentID)
	if errors.Is(err, content.ErrNotFound) || errors.Is(err, content.ErrUnknownType) {
		logger.Debug("skip notifications, parent not resolved", "error", err)
		return
	}
	if err != nil {
		logger.Error("failed to resolve parent", "error", err)
		return
	}

	subscribed, err := n.comments.FindComments(ctx, comments.OptedInThread(comment.Thread()))
	if err != nil {
		logger.Error("failed to find subscribed comments", "error", err)
		return
	}

	recipients := collectRecipients(subscribed)
	if len(recipients) == 0 {
		logger.Debug("no subscribers for thread")
		return
	}

	sent := 0
	for _, rcpt := range recipients {
		if err := n.notify(ctx, item, comment, rcpt); err != nil {
			logger.Error("failed to send comment notification", "to", rcpt.email, "error", err)
			continue
		}
		sent++
	}

	logger.Info("comment notifications sent", "recipients", len(recipients), "sent", sent)
}

func (n *CommentNotifier) notify(ctx context.Context, item *domain.ContentItem, comment *domain.Comment, rcpt recipient) error {
	link := ""
	if rcpt.linkable {
		link = UnsubscribeLink(n.cfg.BaseURL, rcpt.commentID)
	}

	subject, body, err := n.renderer.RenderNewComment(n.cfg.Language, item, comment, link)
	if err != nil {
		recordNotificationSent("failed")
		return fmt.Errorf("render: %w", err)
	}

	start := time.Now()
	err = n.sender.Send(ctx, Message{
		From:    n.cfg.AdminEmail,
		To:      rcpt.email,
		Subject: subject,
		Body:    body,
	})
	recordNotificationDuration(time.Since(start))

	if err != nil {
		recordNotificationSent("failed")
		return err
	}

	recordNotificationSent("success")
	ctxlog.FromContext(ctx).Debug("comment notification sent", "to", rcpt.email, "comment_id", comment.ID)
	return nil
}

type recipient struct {
	email string
	// commentID is the recipient's first signed-in opted-in comment on the
	// thread, or their first comment when all of them are guest comments.
	commentID int64
	// linkable is false for guest comments, which cannot be unsubscribed.
	linkable bool
}

// collectRecipients returns the distinct non-empty author emails in the
// order they first appear. Emails are compared case-sensitively.
func collectRecipients(list []domain.Comment) []recipient {
	seen := make(map[string]int, len(list))
	var out []recipient

	for _, c := range list {
		if c.AuthorEmail == "" {
			continue
		}
		if i, ok := seen[c.AuthorEmail]; ok {
			if !out[i].linkable && c.AuthorID != "" {
				out[i].commentID = c.ID
				out[i].linkable = true
			}
			continue
		}
		seen[c.AuthorEmail] = len(out)
		out = append(out, recipient{
			email:     c.AuthorEmail,
			commentID: c.ID,
			linkable:  c.AuthorID != "",
		})
	}

	return out
}

// UnsubscribeLink returns the unsubscribe URL for a comment.
func UnsubscribeLink(baseURL string, commentID int64) string {
	return fmt.Sprintf("%s%s/%d", strings.TrimRight(baseURL, "/"), UnsubscribePath, commentID)
}
