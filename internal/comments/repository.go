// Package comments provides the comment store, submission and moderation.
package comments

import (
	"context"

	"github.com/bissquit/comment-notifications/internal/domain"
)

// Repository defines the interface for comment storage.
type Repository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	Update(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id int64) (*domain.Comment, error)
	// Find returns matching comments ordered by id.
	Find(ctx context.Context, filter Filter) ([]domain.Comment, error)
}

// Filter selects comments by field equality. Nil fields are not filtered on.
type Filter struct {
	BaseClass       *string
	ParentID        *int64
	AuthorID        *string
	NotifyOfUpdates *bool
	Moderated       *bool
}

// OptedInThread selects the comments of a thread whose authors want notifications.
func OptedInThread(thread domain.Thread) Filter {
	return Filter{
		BaseClass:       &thread.BaseClass,
		ParentID:        &thread.ParentID,
		NotifyOfUpdates: ptr(true),
	}
}

// OptedInByAuthor selects the comments of an author that have notifications enabled.
func OptedInByAuthor(authorID string) Filter {
	return Filter{
		AuthorID:        &authorID,
		NotifyOfUpdates: ptr(true),
	}
}

// ApprovedThread selects the approved comments of a thread.
func ApprovedThread(thread domain.Thread) Filter {
	return Filter{
		BaseClass: &thread.BaseClass,
		ParentID:  &thread.ParentID,
		Moderated: ptr(true),
	}
}

// PersistHook is called after every successful comment write.
type PersistHook interface {
	OnAfterPersist(ctx context.Context, comment *domain.Comment, changes domain.ChangeSet)
}

// ParentChecker checks that the content a comment is attached to exists.
type ParentChecker interface {
	Exists(ctx context.Context, typeName string, id int64) (bool, error)
}

func ptr[T any](v T) *T {
	return &v
}
