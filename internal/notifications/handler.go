package notifications

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bissquit/comment-notifications/internal/comments"
	"github.com/bissquit/comment-notifications/internal/domain"
	"github.com/bissquit/comment-notifications/internal/pkg/httputil"
	"github.com/bissquit/comment-notifications/internal/pkg/i18n"
	"github.com/bissquit/comment-notifications/internal/session"
	"github.com/go-chi/chi/v5"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrMissingCommentID, Status: http.StatusForbidden, Message: "forbidden"},
	{Error: comments.ErrCommentNotFound, Status: http.StatusForbidden, Message: "forbidden"},
}

// HandlerConfig holds HTTP settings of the notifications module.
type HandlerConfig struct {
	// LoginURL receives visitors refused by the unsubscribe action.
	// When empty the refusal is a JSON 403.
	LoginURL string
}

// Handler handles HTTP requests for the notifications module.
type Handler struct {
	subs     *SubscriptionService
	loginURL string
}

// NewHandler creates a new notifications handler.
func NewHandler(subs *SubscriptionService, cfg HandlerConfig) *Handler {
	return &Handler{
		subs:     subs,
		loginURL: cfg.LoginURL,
	}
}

// RegisterUnsubscribeRoutes registers the unsubscribe action linked from
// emails and subscription lists. It expects optional auth and a session.
func (h *Handler) RegisterUnsubscribeRoutes(r chi.Router) {
	r.Get(UnsubscribePath, h.Unsubscribe)
	r.Get(UnsubscribePath+"/", h.Unsubscribe)
	r.Get(UnsubscribePath+"/{commentID}", h.Unsubscribe)
}

// RegisterRoutes registers the API routes (optional auth).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/comment-subscriptions", h.ListSubscriptions)
}

// SubscriptionsResponse is the body of GET /comment-subscriptions.
type SubscriptionsResponse struct {
	Subscriptions    []domain.Subscription `json:"subscriptions"`
	JustUnsubscribed bool                  `json:"just_unsubscribed"`
}

// ListSubscriptions handles GET /comment-subscriptions.
func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subs, err := h.subs.ListSubscriptions(ctx, httputil.GetUserID(ctx))
	if err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}

	just, err := h.subs.HasJustUnsubscribed(ctx, session.IDFromContext(ctx))
	if err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, SubscriptionsResponse{
		Subscriptions:    subs,
		JustUnsubscribed: just,
	})
}

// Unsubscribe handles GET /commenting/unsubscribenotification/{commentID}.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var commentID int64
	if raw := chi.URLParam(r, "commentID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.Error(w, http.StatusForbidden, "forbidden")
			return
		}
		commentID = id
	}

	viewer := Viewer{
		UserID:         httputil.GetUserID(ctx),
		SessionID:      session.IDFromContext(ctx),
		SessionExpired: httputil.IsSessionExpired(ctx),
	}

	if err := h.subs.Unsubscribe(ctx, commentID, viewer); err != nil {
		var denied *PermissionDeniedError
		if errors.As(err, &denied) {
			h.permissionFailure(w, r, denied.Reason)
			return
		}
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}

	httputil.RedirectBack(w, r)
}

// permissionFailure sends the visitor to the login page with the message
// for reason, or answers 403 when no login page is configured.
func (h *Handler) permissionFailure(w http.ResponseWriter, r *http.Request, reason DenialReason) {
	msg := PermissionMessages(i18n.Printer(i18n.FromRequest(r)))[reason]

	if h.loginURL == "" {
		httputil.Error(w, http.StatusForbidden, msg)
		return
	}

	target, err := url.Parse(h.loginURL)
	if err != nil {
		httputil.Error(w, http.StatusForbidden, msg)
		return
	}

	q := target.Query()
	q.Set(httputil.BackURLParam, r.URL.RequestURI())
	q.Set("message", msg)
	q.Set("reason", string(reason))
	target.RawQuery = q.Encode()

	http.Redirect(w, r, target.String(), http.StatusFound)
}
