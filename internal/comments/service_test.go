package comments_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bissquit/comment-notifications/internal/comments"
	"github.com/bissquit/comment-notifications/internal/comments/commentstest"
	"github.com/bissquit/comment-notifications/internal/content"
	"github.com/bissquit/comment-notifications/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

// pages is a ParentChecker knowing a fixed set of Page ids.
type pages map[int64]bool

func (p pages) Exists(_ context.Context, typeName string, id int64) (bool, error) {
	if typeName != "Page" {
		return false, content.ErrUnknownType
	}
	return p[id], nil
}

type failingParents struct{}

func (failingParents) Exists(context.Context, string, int64) (bool, error) {
	return false, errors.New("db down")
}

type persistCall struct {
	comment domain.Comment
	changes domain.ChangeSet
}

type recordingHook struct {
	calls []persistCall
}

func (h *recordingHook) OnAfterPersist(_ context.Context, c *domain.Comment, changes domain.ChangeSet) {
	h.calls = append(h.calls, persistCall{comment: *c, changes: changes})
}

type labelAlterer string

func (a labelAlterer) AlterCommentForm(form *comments.Form, _ language.Tag) {
	form.Fields = append(form.Fields, comments.FormField{Name: string(a)})
}

func newService(requireModeration bool) (*comments.Service, *commentstest.Repository, *recordingHook) {
	repo := commentstest.NewRepository()
	svc := comments.NewService(repo, pages{1: true}, comments.Config{RequireModeration: requireModeration})
	hook := &recordingHook{}
	svc.AddHook(hook)
	return svc, repo, hook
}

func TestService_Submit(t *testing.T) {
	alice := &domain.User{ID: "alice", Name: "Alice", Email: "alice@x.test"}

	tests := []struct {
		name              string
		requireModeration bool
		input             comments.SubmitInput
		wantErr           error
		check             func(t *testing.T, c *domain.Comment)
	}{
		{
			name: "member comment approved immediately",
			input: comments.SubmitInput{
				BaseClass: "Page", ParentID: 1, Author: alice, Body: "  hello  ", NotifyOfUpdates: true,
			},
			check: func(t *testing.T, c *domain.Comment) {
				assert.Equal(t, "alice", c.AuthorID)
				assert.Equal(t, "Alice", c.AuthorName)
				assert.Equal(t, "alice@x.test", c.AuthorEmail)
				assert.Equal(t, "hello", c.Body)
				assert.True(t, c.Moderated)
				assert.True(t, c.NotifyOfUpdates)
			},
		},
		{
			name:              "comment held for moderation",
			requireModeration: true,
			input: comments.SubmitInput{
				BaseClass: "Page", ParentID: 1, Author: alice, Body: "hello",
			},
			check: func(t *testing.T, c *domain.Comment) {
				assert.False(t, c.Moderated)
			},
		},
		{
			name: "guest comment",
			input: comments.SubmitInput{
				BaseClass: "Page", ParentID: 1, AuthorName: "Guest", AuthorEmail: "guest@w.test", Body: "hi",
			},
			check: func(t *testing.T, c *domain.Comment) {
				assert.Empty(t, c.AuthorID)
				assert.Equal(t, "guest@w.test", c.AuthorEmail)
			},
		},
		{
			name: "guest without email",
			input: comments.SubmitInput{
				BaseClass: "Page", ParentID: 1, AuthorName: "Guest", Body: "hi",
			},
			wantErr: comments.ErrAuthorRequired,
		},
		{
			name: "missing parent",
			input: comments.SubmitInput{
				BaseClass: "Page", ParentID: 2, Author: alice, Body: "hi",
			},
			wantErr: comments.ErrParentNotFound,
		},
		{
			name: "unknown parent type",
			input: comments.SubmitInput{
				BaseClass: "Forum", ParentID: 1, Author: alice, Body: "hi",
			},
			wantErr: comments.ErrParentNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, hook := newService(tt.requireModeration)

			c, err := svc.Submit(context.Background(), tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, hook.calls)
				return
			}

			require.NoError(t, err)
			assert.NotZero(t, c.ID)
			require.Len(t, hook.calls, 1)
			tt.check(t, c)
		})
	}
}

func TestService_Submit_ParentCheckFails(t *testing.T) {
	svc := comments.NewService(commentstest.NewRepository(), failingParents{}, comments.Config{})

	_, err := svc.Submit(context.Background(), comments.SubmitInput{
		BaseClass: "Page", ParentID: 1, AuthorName: "G", AuthorEmail: "g@w.test", Body: "hi",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, comments.ErrParentNotFound)
}

func TestService_Write_ChangeSets(t *testing.T) {
	svc, repo, hook := newService(true)
	ctx := context.Background()

	c := &domain.Comment{BaseClass: "Page", ParentID: 1, Body: "draft"}
	require.NoError(t, svc.Write(ctx, c))

	require.Len(t, hook.calls, 1)
	insert := hook.calls[0].changes
	assert.Equal(t, domain.FieldChange{Before: int64(0), After: c.ID}, insert[domain.FieldID])
	assert.False(t, insert.Has(domain.FieldModerated), "unchanged fields are absent")

	c.Moderated = true
	require.NoError(t, svc.Write(ctx, c))

	require.Len(t, hook.calls, 2)
	update := hook.calls[1].changes
	assert.Equal(t, domain.ChangeSet{
		domain.FieldModerated: {Before: false, After: true},
	}, update)
	assert.True(t, repo.Get(c.ID).Moderated)
}

func TestService_Write_UnknownComment(t *testing.T) {
	svc, _, hook := newService(false)

	err := svc.Write(context.Background(), &domain.Comment{ID: 77})
	require.ErrorIs(t, err, comments.ErrCommentNotFound)
	assert.Empty(t, hook.calls)
}

func TestService_Write_RepositoryError(t *testing.T) {
	svc, repo, hook := newService(false)
	repo.CreateErr = errors.New("insert failed")

	err := svc.Write(context.Background(), &domain.Comment{BaseClass: "Page", ParentID: 1})
	require.Error(t, err)
	assert.Empty(t, hook.calls)
}

func TestService_Approve(t *testing.T) {
	svc, repo, hook := newService(true)
	ctx := context.Background()
	repo.Seed(domain.Comment{ID: 5, BaseClass: "Page", ParentID: 1, Body: "x"})

	c, err := svc.Approve(ctx, 5)
	require.NoError(t, err)
	assert.True(t, c.Moderated)
	require.Len(t, hook.calls, 1)
	assert.True(t, hook.calls[0].changes.Has(domain.FieldModerated))

	_, err = svc.Approve(ctx, 5)
	assert.ErrorIs(t, err, comments.ErrAlreadyModerated)

	_, err = svc.Approve(ctx, 6)
	assert.ErrorIs(t, err, comments.ErrCommentNotFound)
}

func TestService_ListThread(t *testing.T) {
	svc, repo, _ := newService(false)
	repo.Seed(
		domain.Comment{ID: 1, BaseClass: "Page", ParentID: 1, Moderated: true},
		domain.Comment{ID: 2, BaseClass: "Page", ParentID: 1, Moderated: false},
		domain.Comment{ID: 3, BaseClass: "Page", ParentID: 2, Moderated: true},
		domain.Comment{ID: 4, BaseClass: "Page", ParentID: 1, Moderated: true},
	)

	list, err := svc.ListThread(context.Background(), domain.Thread{BaseClass: "Page", ParentID: 1})
	require.NoError(t, err)

	ids := make([]int64, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []int64{1, 4}, ids)

	_, err = svc.ListThread(context.Background(), domain.Thread{BaseClass: "Page", ParentID: 9})
	assert.ErrorIs(t, err, comments.ErrParentNotFound)
}

func TestService_Form(t *testing.T) {
	svc, _, _ := newService(false)
	svc.AddFormAlterer(labelAlterer("First"))
	svc.AddFormAlterer(labelAlterer("Second"))

	form := svc.Form(true, language.English)

	names := make([]string, 0, len(form.Fields))
	for _, f := range form.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Comment", "First", "Second"}, names)
}
