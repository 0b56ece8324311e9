package domain

import "time"

// Comment field names used as ChangeSet keys.
const (
	FieldID              = "ID"
	FieldBaseClass       = "BaseClass"
	FieldParentID        = "ParentID"
	FieldAuthorID        = "AuthorID"
	FieldAuthorName      = "AuthorName"
	FieldAuthorEmail     = "AuthorEmail"
	FieldBody            = "Body"
	FieldModerated       = "Moderated"
	FieldNotifyOfUpdates = "NotifyOfUpdates"
)

// Comment is a comment attached to a content item identified by (BaseClass, ParentID).
type Comment struct {
	ID              int64     `json:"id"`
	BaseClass       string    `json:"base_class"`
	ParentID        int64     `json:"parent_id"`
	AuthorID        string    `json:"author_id,omitempty"`
	AuthorName      string    `json:"author_name"`
	AuthorEmail     string    `json:"-"`
	Body            string    `json:"body"`
	Moderated       bool      `json:"moderated"`
	NotifyOfUpdates bool      `json:"notify_of_updates"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Thread returns the thread key of the comment.
func (c *Comment) Thread() Thread {
	return Thread{BaseClass: c.BaseClass, ParentID: c.ParentID}
}

// Thread identifies all comments attached to the same content item.
type Thread struct {
	BaseClass string
	ParentID  int64
}

// FieldChange holds the value of a field before and after a write.
type FieldChange struct {
	Before any
	After  any
}

// ChangeSet maps field names to the changes made by a single write.
// Fields whose value did not change are absent.
type ChangeSet map[string]FieldChange

// Has reports whether the field changed.
func (cs ChangeSet) Has(field string) bool {
	_, ok := cs[field]
	return ok
}

// DiffComments compares two versions of a comment.
// An insert is described by diffing against the zero Comment.
func DiffComments(before, after Comment) ChangeSet {
	cs := make(ChangeSet)

	add := func(field string, b, a any) {
		if b != a {
			cs[field] = FieldChange{Before: b, After: a}
		}
	}

	add(FieldID, before.ID, after.ID)
	add(FieldBaseClass, before.BaseClass, after.BaseClass)
	add(FieldParentID, before.ParentID, after.ParentID)
	add(FieldAuthorID, before.AuthorID, after.AuthorID)
	add(FieldAuthorName, before.AuthorName, after.AuthorName)
	add(FieldAuthorEmail, before.AuthorEmail, after.AuthorEmail)
	add(FieldBody, before.Body, after.Body)
	add(FieldModerated, before.Moderated, after.Moderated)
	add(FieldNotifyOfUpdates, before.NotifyOfUpdates, after.NotifyOfUpdates)

	return cs
}
