package comments

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bissquit/comment-notifications/internal/domain"
	"github.com/bissquit/comment-notifications/internal/pkg/httputil"
	"github.com/bissquit/comment-notifications/internal/pkg/i18n"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrCommentNotFound, Status: http.StatusNotFound},
	{Error: ErrParentNotFound, Status: http.StatusNotFound},
	{Error: ErrAuthorRequired, Status: http.StatusBadRequest},
	{Error: ErrAlreadyModerated, Status: http.StatusConflict},
}

// UserLookup finds the signed-in author of a comment.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// Handler handles HTTP requests for the comments module.
type Handler struct {
	service   *Service
	users     UserLookup
	validator *validator.Validate
}

// NewHandler creates a new comments handler.
func NewHandler(service *Service, users UserLookup) *Handler {
	return &Handler{
		service:   service,
		users:     users,
		validator: validator.New(),
	}
}

// RegisterRoutes registers public comment routes (optional auth).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/comments/form", h.GetForm)
	r.Post("/comments", h.Submit)
	r.Get("/content/{type}/{id}/comments", h.ListThread)
}

// RegisterModerationRoutes registers routes that require the admin role.
func (h *Handler) RegisterModerationRoutes(r chi.Router) {
	r.Post("/comments/{id}/approve", h.Approve)
}

// SubmitRequest represents the comment submission body.
type SubmitRequest struct {
	BaseClass       string `json:"base_class" validate:"required,max=100"`
	ParentID        int64  `json:"parent_id" validate:"required,gt=0"`
	Name            string `json:"name" validate:"omitempty,max=255"`
	Email           string `json:"email" validate:"omitempty,email"`
	Comment         string `json:"comment" validate:"required,max=10000"`
	NotifyOfUpdates bool   `json:"notify_of_updates"`
}

// GetForm handles GET /comments/form.
func (h *Handler) GetForm(w http.ResponseWriter, r *http.Request) {
	signedIn := httputil.GetUserID(r.Context()) != ""
	httputil.Success(w, http.StatusOK, h.service.Form(signedIn, i18n.FromRequest(r)))
}

// Submit handles POST /comments.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	input := SubmitInput{
		BaseClass:       req.BaseClass,
		ParentID:        req.ParentID,
		AuthorName:      req.Name,
		AuthorEmail:     req.Email,
		Body:            req.Comment,
		NotifyOfUpdates: req.NotifyOfUpdates,
	}

	if userID := httputil.GetUserID(ctx); userID != "" {
		author, err := h.users.GetUserByID(ctx, userID)
		if err != nil {
			httputil.HandleError(ctx, w, err, errorMappings)
			return
		}
		input.Author = author
	}

	comment, err := h.service.Submit(ctx, input)
	if err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, comment)
}

// ListThread handles GET /content/{type}/{id}/comments.
func (h *Handler) ListThread(w http.ResponseWriter, r *http.Request) {
	parentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || parentID <= 0 {
		httputil.Error(w, http.StatusBadRequest, "invalid content id")
		return
	}

	list, err := h.service.ListThread(r.Context(), domain.Thread{
		BaseClass: chi.URLParam(r, "type"),
		ParentID:  parentID,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	if list == nil {
		list = []domain.Comment{}
	}
	httputil.Success(w, http.StatusOK, list)
}

// Approve handles POST /comments/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.Error(w, http.StatusBadRequest, "invalid comment id")
		return
	}

	comment, err := h.service.Approve(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, comment)
}
