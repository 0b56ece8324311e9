package domain

// Subscription is a thread a user receives comment notifications for.
// It is derived from the user's opted-in comments and never stored.
type Subscription struct {
	BaseClass       string `json:"base_class"`
	ParentID        int64  `json:"parent_id"`
	CommentID       int64  `json:"comment_id"`
	Title           string `json:"title"`
	UnsubscribeLink string `json:"unsubscribe_link"`
}
