package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/comment-notifications/internal/pkg/ctxlog"
)

// ErrorMapping maps a sentinel error to an HTTP status and message.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string // defaults to err.Error()
}

// HandleError writes the response of the first mapping matching err.
// Unmapped errors are logged and reported as 500.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	if m, ok := findMapping(err, mappings); ok {
		msg := m.Message
		if msg == "" {
			msg = err.Error()
		}
		Error(w, m.Status, msg)
		return
	}

	ctxlog.FromContext(ctx).Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}

func findMapping(err error, mappings []ErrorMapping) (ErrorMapping, bool) {
	for _, m := range mappings {
		if errors.Is(err, m.Error) {
			return m, true
		}
	}
	return ErrorMapping{}, false
}
