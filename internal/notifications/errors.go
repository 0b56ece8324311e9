package notifications

import "errors"

// Unsubscribe errors.
var (
	ErrMissingCommentID = errors.New("comment id is required")
	ErrPermissionDenied = errors.New("permission denied")
)

// DenialReason tells why an unsubscribe request was refused.
type DenialReason string

// Denial reasons, each with its own user-facing message.
const (
	ReasonNotLoggedIn    DenialReason = "default"
	ReasonWrongUser      DenialReason = "alreadyLoggedIn"
	ReasonSessionExpired DenialReason = "logInAgain"
)

// PermissionDeniedError is returned when the requester may not unsubscribe
// the comment's author. It matches ErrPermissionDenied with errors.Is.
type PermissionDeniedError struct {
	Reason DenialReason
}

func (e *PermissionDeniedError) Error() string {
	return "permission denied: " + string(e.Reason)
}

// Is makes errors.Is(err, ErrPermissionDenied) hold.
func (e *PermissionDeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}
