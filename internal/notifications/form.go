package notifications

import (
	"github.com/bissquit/comment-notifications/internal/comments"
	"github.com/bissquit/comment-notifications/internal/domain"
	"github.com/bissquit/comment-notifications/internal/pkg/i18n"
	"golang.org/x/text/language"
)

// CommentFormExtension adds the notification opt-in to the comment form.
type CommentFormExtension struct{}

// AlterCommentForm inserts the NotifyOfUpdates checkbox right after the
// comment body field.
func (CommentFormExtension) AlterCommentForm(form *comments.Form, lang language.Tag) {
	form.InsertAfter(comments.FormFieldComment, comments.FormField{
		Name:  domain.FieldNotifyOfUpdates,
		Type:  comments.FieldTypeCheckbox,
		Label: i18n.Printer(lang).Sprintf(msgNotifyOfUpdates),
	})
}
