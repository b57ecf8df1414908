// Package handlers contains the HTTP handlers of the posts API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"audition-backend/internal/domain"
	apperrors "audition-backend/internal/errors"
	"audition-backend/internal/observability"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PostService is the use case layer behind the handlers.
type PostService interface {
	ListPosts(ctx context.Context, filter string) ([]domain.Post, error)
	GetPost(ctx context.Context, id int) (*domain.Post, error)
	GetPostWithComments(ctx context.Context, id int) (*domain.Post, error)
	GetComments(ctx context.Context, postID int) ([]domain.Comment, error)
}

// PostHandler handles post-related HTTP requests. Handlers return errors and
// leave rendering them to the error translator.
type PostHandler struct {
	service PostService
	logger  *zap.Logger
}

// NewPostHandler creates a new post handler
func NewPostHandler(service PostService, logger *zap.Logger) *PostHandler {
	return &PostHandler{
		service: service,
		logger:  logger,
	}
}

// ListPosts handles GET /posts
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) error {
	posts, err := h.service.ListPosts(r.Context(), r.URL.Query().Get("filterString"))
	if err != nil {
		return err
	}
	h.respondJSON(w, r, http.StatusOK, posts)
	return nil
}

// GetPost handles GET /posts/{id}. With includeComments=true the post is
// returned with its comments attached.
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) error {
	id, err := h.postID(r)
	if err != nil {
		return err
	}

	var post *domain.Post
	if include, _ := strconv.ParseBool(r.URL.Query().Get("includeComments")); include {
		post, err = h.service.GetPostWithComments(r.Context(), id)
	} else {
		post, err = h.service.GetPost(r.Context(), id)
	}
	if err != nil {
		return err
	}
	h.respondJSON(w, r, http.StatusOK, post)
	return nil
}

// GetComments handles GET /posts/{id}/comments
func (h *PostHandler) GetComments(w http.ResponseWriter, r *http.Request) error {
	id, err := h.postID(r)
	if err != nil {
		return err
	}

	comments, err := h.service.GetComments(r.Context(), id)
	if err != nil {
		return err
	}
	h.respondJSON(w, r, http.StatusOK, comments)
	return nil
}

func (h *PostHandler) postID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		observability.LoggerWithContext(r.Context(), h.logger).Warn("Invalid post id",
			zap.String("id", raw),
			zap.Error(err),
		)
		return 0, apperrors.NewValidationError("id", "Invalid Post ID format.")
	}
	return id, nil
}

func (h *PostHandler) respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		observability.LoggerWithContext(r.Context(), h.logger).Error("Failed to encode response", zap.Error(err))
	}
}
