package comments

import "errors"

// Comment errors.
var (
	ErrCommentNotFound  = errors.New("comment not found")
	ErrParentNotFound   = errors.New("parent content not found")
	ErrAuthorRequired   = errors.New("name and email are required for guest comments")
	ErrAlreadyModerated = errors.New("comment already approved")
)
