package domain

// ContentItem is a content record comments can be attached to.
type ContentItem struct {
	Type  string `json:"type"`
	ID    int64  `json:"id"`
	Title string `json:"title"`
}
