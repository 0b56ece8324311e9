package notifications

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/bissquit/comment-notifications/internal/comments"
	"github.com/bissquit/comment-notifications/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldNotify(t *testing.T) {
	approved := domain.Comment{ID: 5, BaseClass: "Page", ParentID: 1, Body: "hi", Moderated: true}
	pending := approved
	pending.Moderated = false

	edited := approved
	edited.Body = "edited"

	optOut := approved
	optOut.NotifyOfUpdates = true

	tests := []struct {
		name    string
		changes domain.ChangeSet
		want    bool
	}{
		{
			name:    "new comment saved approved",
			changes: domain.DiffComments(domain.Comment{}, approved),
			want:    true,
		},
		{
			name:    "new comment awaiting moderation",
			changes: domain.DiffComments(domain.Comment{}, pending),
			want:    false,
		},
		{
			name:    "existing comment just approved",
			changes: domain.DiffComments(pending, approved),
			want:    true,
		},
		{
			name:    "approved comment edited",
			changes: domain.DiffComments(approved, edited),
			want:    false,
		},
		{
			name:    "approval revoked",
			changes: domain.DiffComments(approved, pending),
			want:    false,
		},
		{
			name:    "opt-in toggled on approved comment",
			changes: domain.DiffComments(optOut, approved),
			want:    false,
		},
		{
			name:    "no changes",
			changes: domain.ChangeSet{},
			want:    false,
		},
		{
			name: "id assigned with moderation set",
			changes: domain.ChangeSet{
				domain.FieldID:        {Before: int64(0), After: int64(9)},
				domain.FieldModerated: {Before: true, After: true},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldNotify(tt.changes))
		})
	}
}

func TestCommentNotifier_FirstApprovedComment(t *testing.T) {
	f := newFixture(t, false)

	f.submit(t, "Page", 1, user("alice", "alice@x.test"), true)

	require.Len(t, f.sender.sent, 1)
	msg := f.sender.sent[0]
	assert.Equal(t, "alice@x.test", msg.To)
	assert.Equal(t, testAdminEmail, msg.From)
	assert.Equal(t, `New Comment on "Tom &amp; Jerry"`, msg.Subject)
	assert.Contains(t, msg.Body, `on "Tom & Jerry"`)
	assert.Contains(t, msg.Body, "a comment")
}

func TestCommentNotifier_ApprovalNotifiesWholeThread(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	a := f.submit(t, "Page", 1, user("alice", "alice@x.test"), true)
	assert.Empty(t, f.sender.sent, "unapproved comments do not notify")

	_, err := f.service.Approve(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@x.test"}, f.sender.recipients())
	f.sender.reset()

	b := f.submit(t, "Page", 1, user("bob", "bob@y.test"), true)
	assert.Empty(t, f.sender.sent)

	_, err = f.service.Approve(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@x.test", "bob@y.test"}, f.sender.recipients())
}

func TestCommentNotifier_DeduplicatesEmails(t *testing.T) {
	f := newFixture(t, false)

	f.repo.Seed(
		domain.Comment{BaseClass: "Page", ParentID: 1, AuthorID: "alice", AuthorEmail: "alice@x.test", Moderated: true, NotifyOfUpdates: true},
		domain.Comment{BaseClass: "Page", ParentID: 1, AuthorID: "bob", AuthorEmail: "bob@y.test", Moderated: true, NotifyOfUpdates: true},
		domain.Comment{BaseClass: "Page", ParentID: 1, AuthorID: "alice", AuthorEmail: "alice@x.test", Moderated: true, NotifyOfUpdates: true},
		domain.Comment{BaseClass: "Page", ParentID: 1, AuthorName: "guest", AuthorEmail: "", Moderated: true, NotifyOfUpdates: true},
		domain.Comment{BaseClass: "Page", ParentID: 1, AuthorID: "carol", AuthorEmail: "carol@z.test", Moderated: true, NotifyOfUpdates: false},
		domain.Comment{BaseClass: "Page", ParentID: 2, AuthorID: "dave", AuthorEmail: "dave@z.test", Moderated: true, NotifyOfUpdates: true},
	)

	f.submit(t, "Page", 1, user("erin", "erin@z.test"), false)

	assert.Equal(t, []string{"alice@x.test", "bob@y.test"}, f.sender.recipients())
}

func TestCommentNotifier_EmailsAreCaseSensitive(t *testing.T) {
	f := newFixture(t, false)

	f.repo.Seed(
		domain.Comment{BaseClass: "Page", ParentID: 1, AuthorEmail: "Alice@x.test", Moderated: true, NotifyOfUpdates: true},
		domain.Comment{BaseClass: "Page", ParentID: 1, AuthorEmail: "alice@x.test", Moderated: true, NotifyOfUpdates: true},
	)

	f.submit(t, "Page", 1, user("bob", "bob@y.test"), false)

	assert.Equal(t, []string{"Alice@x.test", "alice@x.test"}, f.sender.recipients())
}

func TestCommentNotifier_EditDoesNotNotify(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	c := f.submit(t, "Page", 1, user("alice", "alice@x.test"), true)
	f.sender.reset()

	c.Body = "edited body"
	require.NoError(t, f.service.Write(ctx, c))

	assert.Empty(t, f.sender.sent)
}

func TestCommentNotifier_UnresolvableParent(t *testing.T) {
	f := newFixture(t, false)

	comment := &domain.Comment{ID: 1, BaseClass: "Page", ParentID: 99, Moderated: true}
	f.repo.Seed(domain.Comment{BaseClass: "Page", ParentID: 99, AuthorEmail: "alice@x.test", NotifyOfUpdates: true})

	f.notifier.OnAfterPersist(context.Background(), comment, domain.DiffComments(domain.Comment{}, *comment))

	unknownType := &domain.Comment{ID: 2, BaseClass: "Missing", ParentID: 1, Moderated: true}
	f.notifier.OnAfterPersist(context.Background(), unknownType, domain.DiffComments(domain.Comment{}, *unknownType))

	assert.Empty(t, f.sender.sent)
}

func TestCommentNotifier_ResolveFailures(t *testing.T) {
	tests := []struct {
		name      string
		baseClass string
		parentID  int64
		wantLevel string
		wantMsg   string
	}{
		{name: "missing item", baseClass: "Page", parentID: 99, wantLevel: "level=DEBUG", wantMsg: "skip notifications, parent not resolved"},
		{name: "unknown type", baseClass: "Missing", parentID: 1, wantLevel: "level=DEBUG", wantMsg: "skip notifications, parent not resolved"},
		{name: "store unavailable", baseClass: "Broken", parentID: 1, wantLevel: "level=ERROR", wantMsg: "failed to resolve parent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			f.registry.Register("Broken", unreachable{err: errors.New("connection refused")})
			f.repo.Seed(domain.Comment{BaseClass: tt.baseClass, ParentID: tt.parentID, AuthorEmail: "alice@x.test", Moderated: true, NotifyOfUpdates: true})

			var logs bytes.Buffer
			comment := &domain.Comment{ID: 1, BaseClass: tt.baseClass, ParentID: tt.parentID, Moderated: true}
			f.notifier.OnAfterPersist(captureLogs(&logs), comment, domain.DiffComments(domain.Comment{}, *comment))

			assert.Empty(t, f.sender.sent)
			assert.Contains(t, logs.String(), tt.wantLevel+` msg="`+tt.wantMsg+`"`)
		})
	}
}

func TestCommentNotifier_LogsThroughRequestLogger(t *testing.T) {
	f := newFixture(t, false)
	f.repo.Seed(domain.Comment{BaseClass: "Page", ParentID: 1, AuthorEmail: "alice@x.test", Moderated: true, NotifyOfUpdates: true})

	var logs bytes.Buffer
	_, err := f.service.Submit(captureLogs(&logs), comments.SubmitInput{
		BaseClass:   "Page",
		ParentID:    1,
		AuthorName:  "Guest",
		AuthorEmail: "guest@w.test",
		Body:        "hello",
	})
	require.NoError(t, err)

	require.Equal(t, []string{"alice@x.test"}, f.sender.recipients())
	assert.Contains(t, logs.String(), `msg="comment notification sent" to=alice@x.test`)
}

func TestCommentNotifier_FindFailureSendsNothing(t *testing.T) {
	f := newFixture(t, false)
	f.repo.FindErr = errors.New("connection reset")

	comment := &domain.Comment{ID: 1, BaseClass: "Page", ParentID: 1, Moderated: true}
	f.notifier.OnAfterPersist(context.Background(), comment, domain.DiffComments(domain.Comment{}, *comment))

	assert.Empty(t, f.sender.sent)
}

func TestCommentNotifier_SendFailureContinues(t *testing.T) {
	f := newFixture(t, false)
	f.sender.failFor = map[string]error{"alice@x.test": errors.New("550 mailbox unavailable")}

	f.repo.Seed(
		domain.Comment{BaseClass: "Page", ParentID: 1, AuthorEmail: "alice@x.test", Moderated: true, NotifyOfUpdates: true},
		domain.Comment{BaseClass: "Page", ParentID: 1, AuthorEmail: "bob@y.test", Moderated: true, NotifyOfUpdates: true},
	)

	c, err := f.service.Submit(context.Background(), comments.SubmitInput{
		BaseClass:   "Page",
		ParentID:    1,
		AuthorName:  "Guest",
		AuthorEmail: "guest@w.test",
		Body:        "hello",
	})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)

	assert.Equal(t, []string{"bob@y.test"}, f.sender.recipients())
}

func TestCommentNotifier_UnsubscribeLinkPerRecipient(t *testing.T) {
	f := newFixture(t, false)

	f.repo.Seed(
		domain.Comment{ID: 10, BaseClass: "Page", ParentID: 1, AuthorID: "alice", AuthorEmail: "alice@x.test", Moderated: true, NotifyOfUpdates: true},
		domain.Comment{ID: 11, BaseClass: "Page", ParentID: 1, AuthorID: "alice", AuthorEmail: "alice@x.test", Moderated: true, NotifyOfUpdates: true},
		domain.Comment{ID: 12, BaseClass: "Page", ParentID: 1, AuthorName: "Guest", AuthorEmail: "guest@w.test", Moderated: true, NotifyOfUpdates: true},
	)

	f.submit(t, "Page", 1, user("bob", "bob@y.test"), false)

	require.Len(t, f.sender.sent, 2)
	assert.Contains(t, f.sender.sent[0].Body, testBaseURL+"/commenting/unsubscribenotification/10")
	assert.NotContains(t, f.sender.sent[1].Body, "unsubscribenotification")
}

func TestCollectRecipients(t *testing.T) {
	list := []domain.Comment{
		{ID: 1, AuthorID: "u1", AuthorEmail: "a@x.test"},
		{ID: 2, AuthorEmail: ""},
		{ID: 3, AuthorEmail: "b@x.test"},
		{ID: 4, AuthorID: "u1", AuthorEmail: "a@x.test"},
	}

	got := collectRecipients(list)

	assert.Equal(t, []recipient{
		{email: "a@x.test", commentID: 1, linkable: true},
		{email: "b@x.test", commentID: 3, linkable: false},
	}, got)
}

func TestCollectRecipients_LinkTarget(t *testing.T) {
	tests := []struct {
		name string
		list []domain.Comment
		want recipient
	}{
		{
			name: "guest comment before signed-in comment",
			list: []domain.Comment{
				{ID: 1, AuthorEmail: "a@x.test"},
				{ID: 2, AuthorID: "u1", AuthorEmail: "a@x.test"},
				{ID: 3, AuthorID: "u1", AuthorEmail: "a@x.test"},
			},
			want: recipient{email: "a@x.test", commentID: 2, linkable: true},
		},
		{
			name: "signed-in comment first",
			list: []domain.Comment{
				{ID: 1, AuthorID: "u1", AuthorEmail: "a@x.test"},
				{ID: 2, AuthorEmail: "a@x.test"},
			},
			want: recipient{email: "a@x.test", commentID: 1, linkable: true},
		},
		{
			name: "guest comments only",
			list: []domain.Comment{
				{ID: 4, AuthorEmail: "a@x.test"},
				{ID: 5, AuthorEmail: "a@x.test"},
			},
			want: recipient{email: "a@x.test", commentID: 4, linkable: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, []recipient{tt.want}, collectRecipients(tt.list))
		})
	}
}

func TestUnsubscribeLink(t *testing.T) {
	assert.Equal(t, "/commenting/unsubscribenotification/5", UnsubscribeLink("", 5))
	assert.Equal(t, "https://example.com/commenting/unsubscribenotification/5", UnsubscribeLink("https://example.com/", 5))
}
