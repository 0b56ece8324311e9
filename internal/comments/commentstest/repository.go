// Package commentstest provides an in-memory comments.Repository for tests.
package commentstest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bissquit/comment-notifications/internal/comments"
	"github.com/bissquit/comment-notifications/internal/domain"
)

// Repository is an in-memory comments.Repository.
// Set FindErr, CreateErr or UpdateErr to make the matching call fail.
type Repository struct {
	mu       sync.Mutex
	nextID   int64
	comments map[int64]domain.Comment

	FindErr   error
	CreateErr error
	UpdateErr error

	// Updates counts successful Update calls.
	Updates int
}

var _ comments.Repository = (*Repository)(nil)

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{comments: make(map[int64]domain.Comment)}
}

// Seed stores comments as they are, assigning ids to those without one.
func (r *Repository) Seed(list ...domain.Comment) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range list {
		if c.ID == 0 {
			r.nextID++
			c.ID = r.nextID
		} else if c.ID > r.nextID {
			r.nextID = c.ID
		}
		r.comments[c.ID] = c
	}
}

// Create implements comments.Repository.
func (r *Repository) Create(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CreateErr != nil {
		return r.CreateErr
	}

	r.nextID++
	now := time.Now().UTC()
	comment.ID = r.nextID
	comment.CreatedAt = now
	comment.UpdatedAt = now
	r.comments[comment.ID] = *comment
	return nil
}

// Update implements comments.Repository.
func (r *Repository) Update(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	if _, ok := r.comments[comment.ID]; !ok {
		return comments.ErrCommentNotFound
	}

	comment.UpdatedAt = time.Now().UTC()
	r.comments[comment.ID] = *comment
	r.Updates++
	return nil
}

// GetByID implements comments.Repository.
func (r *Repository) GetByID(_ context.Context, id int64) (*domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.comments[id]
	if !ok {
		return nil, comments.ErrCommentNotFound
	}
	return &c, nil
}

// Find implements comments.Repository.
func (r *Repository) Find(_ context.Context, filter comments.Filter) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FindErr != nil {
		return nil, r.FindErr
	}

	var out []domain.Comment
	for _, c := range r.comments {
		if matches(c, filter) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns the stored copy of a comment and panics when it is missing.
func (r *Repository) Get(id int64) domain.Comment {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.comments[id]
	if !ok {
		panic(errors.New("commentstest: no comment with that id"))
	}
	return c
}

func matches(c domain.Comment, f comments.Filter) bool {
	switch {
	case f.BaseClass != nil && c.BaseClass != *f.BaseClass:
		return false
	case f.ParentID != nil && c.ParentID != *f.ParentID:
		return false
	case f.AuthorID != nil && c.AuthorID != *f.AuthorID:
		return false
	case f.NotifyOfUpdates != nil && c.NotifyOfUpdates != *f.NotifyOfUpdates:
		return false
	case f.Moderated != nil && c.Moderated != *f.Moderated:
		return false
	}
	return true
}
