package comments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bissquit/comment-notifications/internal/content"
	"github.com/bissquit/comment-notifications/internal/domain"
	"github.com/bissquit/comment-notifications/internal/pkg/metrics"
	"golang.org/x/text/language"
)

// Service implements comment business logic.
type Service struct {
	repo              Repository
	parents           ParentChecker
	hooks             []PersistHook
	alterers          []FormAlterer
	requireModeration bool
}

// Config holds comment service settings.
type Config struct {
	// RequireModeration keeps new comments unapproved until an admin approves them.
	RequireModeration bool
}

// NewService creates a new comment service.
func NewService(repo Repository, parents ParentChecker, cfg Config) *Service {
	return &Service{
		repo:              repo,
		parents:           parents,
		requireModeration: cfg.RequireModeration,
	}
}

// AddHook registers a hook called after every comment write.
func (s *Service) AddHook(hook PersistHook) {
	s.hooks = append(s.hooks, hook)
}

// AddFormAlterer registers an extension of the comment form.
func (s *Service) AddFormAlterer(alterer FormAlterer) {
	s.alterers = append(s.alterers, alterer)
}

// Form returns the comment form after all extensions have altered it.
func (s *Service) Form(signedIn bool, lang language.Tag) *Form {
	form := NewForm(signedIn)
	for _, a := range s.alterers {
		a.AlterCommentForm(form, lang)
	}
	return form
}

// Write inserts a comment with a zero ID or updates an existing one,
// then runs the persist hooks with the fields changed by this write.
func (s *Service) Write(ctx context.Context, comment *domain.Comment) error {
	var before domain.Comment

	if comment.ID == 0 {
		if err := s.repo.Create(ctx, comment); err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		metrics.CommentWrites.WithLabelValues("create").Inc()
	} else {
		existing, err := s.repo.GetByID(ctx, comment.ID)
		if err != nil {
			return err
		}
		before = *existing

		if err := s.repo.Update(ctx, comment); err != nil {
			return fmt.Errorf("update comment: %w", err)
		}
		metrics.CommentWrites.WithLabelValues("update").Inc()
	}

	changes := domain.DiffComments(before, *comment)
	for _, hook := range s.hooks {
		hook.OnAfterPersist(ctx, comment, changes)
	}

	return nil
}

// GetComment returns a comment by ID.
func (s *Service) GetComment(ctx context.Context, id int64) (*domain.Comment, error) {
	return s.repo.GetByID(ctx, id)
}

// FindComments returns the comments matching the filter ordered by ID.
func (s *Service) FindComments(ctx context.Context, filter Filter) ([]domain.Comment, error) {
	return s.repo.Find(ctx, filter)
}

// SubmitInput holds data for a new comment.
type SubmitInput struct {
	BaseClass       string
	ParentID        int64
	Author          *domain.User
	AuthorName      string
	AuthorEmail     string
	Body            string
	NotifyOfUpdates bool
}

// Submit validates and stores a new comment.
// Signed-in authors are taken from Author; guests must give a name and email.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*domain.Comment, error) {
	exists, err := s.parents.Exists(ctx, input.BaseClass, input.ParentID)
	if err != nil {
		if errors.Is(err, content.ErrUnknownType) {
			return nil, ErrParentNotFound
		}
		return nil, fmt.Errorf("check parent: %w", err)
	}
	if !exists {
		return nil, ErrParentNotFound
	}

	comment := &domain.Comment{
		BaseClass:       input.BaseClass,
		ParentID:        input.ParentID,
		Body:            strings.TrimSpace(input.Body),
		Moderated:       !s.requireModeration,
		NotifyOfUpdates: input.NotifyOfUpdates,
	}

	if input.Author != nil {
		comment.AuthorID = input.Author.ID
		comment.AuthorName = input.Author.Name
		comment.AuthorEmail = input.Author.Email
	} else {
		comment.AuthorName = strings.TrimSpace(input.AuthorName)
		comment.AuthorEmail = strings.TrimSpace(input.AuthorEmail)
		if comment.AuthorName == "" || comment.AuthorEmail == "" {
			return nil, ErrAuthorRequired
		}
	}

	if err := s.Write(ctx, comment); err != nil {
		return nil, err
	}

	slog.Info("comment submitted",
		"comment_id", comment.ID,
		"base_class", comment.BaseClass,
		"parent_id", comment.ParentID,
		"moderated", comment.Moderated,
	)

	return comment, nil
}

// Approve marks a comment as passing moderation.
func (s *Service) Approve(ctx context.Context, id int64) (*domain.Comment, error) {
	comment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if comment.Moderated {
		return nil, ErrAlreadyModerated
	}

	comment.Moderated = true
	if err := s.Write(ctx, comment); err != nil {
		return nil, err
	}

	slog.Info("comment approved", "comment_id", comment.ID)
	return comment, nil
}

// ListThread returns the approved comments attached to a content item.
func (s *Service) ListThread(ctx context.Context, thread domain.Thread) ([]domain.Comment, error) {
	exists, err := s.parents.Exists(ctx, thread.BaseClass, thread.ParentID)
	if err != nil {
		if errors.Is(err, content.ErrUnknownType) {
			return nil, ErrParentNotFound
		}
		return nil, fmt.Errorf("check parent: %w", err)
	}
	if !exists {
		return nil, ErrParentNotFound
	}

	return s.repo.Find(ctx, ApprovedThread(thread))
}
