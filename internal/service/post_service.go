// Package service holds the use cases behind the posts API.
package service

import (
	"context"

	"audition-backend/internal/domain"
	apperrors "audition-backend/internal/errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// PostClient is the upstream the service reads from.
type PostClient interface {
	ListPosts(ctx context.Context) ([]domain.Post, error)
	GetPost(ctx context.Context, id int) (*domain.Post, error)
	GetComments(ctx context.Context, postID int) ([]domain.Comment, error)
	GetPostWithComments(ctx context.Context, id int) (*domain.Post, error)
}

// postLookup is the validated input of every single-post use case.
type postLookup struct {
	ID int `validate:"gt=0"`
}

// PostService serves posts and their comments. Upstream failures are returned
// unchanged so the error translator sees their classification.
type PostService struct {
	client   PostClient
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPostService creates a new post service
func NewPostService(client PostClient, logger *zap.Logger) *PostService {
	return &PostService{
		client:   client,
		validate: validator.New(),
		logger:   logger,
	}
}

// ListPosts returns all posts whose title or body contains filter, in
// upstream order. An empty filter returns every post.
func (s *PostService) ListPosts(ctx context.Context, filter string) ([]domain.Post, error) {
	posts, err := s.client.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	if filter == "" {
		return posts, nil
	}

	matched := make([]domain.Post, 0, len(posts))
	for _, post := range posts {
		if post.Matches(filter) {
			matched = append(matched, post)
		}
	}
	s.logger.Debug("Filtered posts",
		zap.String("filter", filter),
		zap.Int("total", len(posts)),
		zap.Int("matched", len(matched)),
	)
	return matched, nil
}

// GetPost returns a single post.
func (s *PostService) GetPost(ctx context.Context, id int) (*domain.Post, error) {
	if err := s.validateID(id); err != nil {
		return nil, err
	}
	return s.client.GetPost(ctx, id)
}

// GetPostWithComments returns a post with its comments attached.
func (s *PostService) GetPostWithComments(ctx context.Context, id int) (*domain.Post, error) {
	if err := s.validateID(id); err != nil {
		return nil, err
	}
	return s.client.GetPostWithComments(ctx, id)
}

// GetComments returns the comments of a post.
func (s *PostService) GetComments(ctx context.Context, postID int) ([]domain.Comment, error) {
	if err := s.validateID(postID); err != nil {
		return nil, err
	}
	return s.client.GetComments(ctx, postID)
}

func (s *PostService) validateID(id int) error {
	if err := s.validate.Struct(postLookup{ID: id}); err != nil {
		return apperrors.NewValidationError("id", "Post ID must be positive")
	}
	return nil
}
