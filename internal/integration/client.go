// Package integration is the client for the upstream posts API. Every failure
// it returns is already classified as an UpstreamError.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"audition-backend/internal/domain"
	"audition-backend/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public upstream the service proxies.
const DefaultBaseURL = "https://jsonplaceholder.typicode.com"

const maxResponseBody = 10 << 20

// ClientConfig holds configuration for the upstream client
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	// EnableCircuitBreaker guards the upstream with a circuit breaker.
	EnableCircuitBreaker bool
	Breaker              BreakerConfig
	// Transport is the underlying round tripper; http.DefaultTransport when nil.
	Transport http.RoundTripper
}

// Client reads posts and comments from the upstream API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	logger     *zap.Logger
	metrics    *observability.Collector
}

// NewClient creates a new upstream client. metrics may be nil; a nil tracer
// uses the global tracer provider.
func NewClient(config ClientConfig, logger *zap.Logger, metrics *observability.Collector, tracer trace.Tracer) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if tracer == nil {
		tracer = otel.Tracer("audition-backend/integration")
	}

	var transport http.RoundTripper = newLoggingTransport(config.Transport, logger)
	if config.EnableCircuitBreaker {
		if config.Breaker.Name == "" {
			config.Breaker = DefaultBreakerConfig("upstream")
		}
		transport = newBreakerTransport(transport, config.Breaker, logger)
	}

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		tracer:  tracer,
		logger:  logger,
		metrics: metrics,
	}
}

// operation describes one upstream read and the messages used to classify
// its failures.
type operation struct {
	name string
	path string
	// notFound is the NotFoundError message; empty means a 404 is reported as
	// a ClientError like any other non-2xx.
	notFound string
	resource string
	failure  string
}

// ListPosts returns every post in upstream order.
func (c *Client) ListPosts(ctx context.Context) ([]domain.Post, error) {
	var posts []domain.Post
	err := c.get(ctx, operation{
		name:    "listPosts",
		path:    "/posts",
		failure: "Failed to retrieve posts",
	}, &posts)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPost returns the post with the given id.
func (c *Client) GetPost(ctx context.Context, id int) (*domain.Post, error) {
	var post domain.Post
	err := c.get(ctx, operation{
		name:     "getPost",
		path:     fmt.Sprintf("/posts/%d", id),
		notFound: fmt.Sprintf("Cannot find a Post with id %d", id),
		resource: fmt.Sprintf("Post with id %d", id),
		failure:  "Failed to retrieve the post",
	}, &post)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// GetComments returns the comments of the post with the given id.
func (c *Client) GetComments(ctx context.Context, postID int) ([]domain.Comment, error) {
	var comments []domain.Comment
	err := c.get(ctx, operation{
		name:     "getComments",
		path:     fmt.Sprintf("/posts/%d/comments", postID),
		notFound: fmt.Sprintf("Cannot find comments for Post with id %d", postID),
		resource: fmt.Sprintf("comments of Post with id %d", postID),
		failure:  "Failed to retrieve comments",
	}, &comments)
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// GetPostWithComments returns the post with its comments attached. When the
// post cannot be found the comments are never requested.
func (c *Client) GetPostWithComments(ctx context.Context, id int) (*domain.Post, error) {
	post, err := c.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := c.GetComments(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	post.Comments = comments
	return post, nil
}

// get performs op inside a client span and decodes the response into out.
func (c *Client) get(ctx context.Context, op operation, out any) error {
	ctx, span := c.tracer.Start(ctx, "upstream."+op.name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodGet),
			attribute.String("url.path", op.path),
		),
	)
	defer span.End()

	start := time.Now()
	err := c.fetch(ctx, op, out)

	outcome := "success"
	if err != nil {
		var upstreamErr UpstreamError
		switch {
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil:
			outcome = "deadline_exceeded"
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			outcome = "canceled"
		case errors.As(err, &upstreamErr):
			outcome = upstreamErr.Kind()
			if status := upstreamErr.StatusCode(); status != 0 {
				span.SetAttributes(attribute.Int("http.response.status_code", status))
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if c.metrics != nil {
		c.metrics.ObserveUpstream(op.name, outcome, time.Since(start))
	}
	return err
}

// fetch classifies in order: transport failure, status code, then anything
// left over such as an undecodable body. When ctx itself ended the context
// error is returned wrapped instead of an UpstreamError.
func (c *Client) fetch(ctx context.Context, op operation, out any) error {
	url := c.baseURL + op.path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &UnexpectedError{Message: "An unexpected error occurred: " + op.failure, Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", op.failure, ctxErr)
		}
		return &NetworkError{Message: op.failure + " due to network issues", Cause: err}
	}
	defer resp.Body.Close()

	// A non-2xx status is reported even when its body cannot be read in full.
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	success := resp.StatusCode >= 200 && resp.StatusCode <= 299
	if readErr != nil && success {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", op.failure, ctxErr)
		}
		return &UnexpectedError{Message: "An unexpected error occurred: failed to read response body", Cause: readErr}
	}

	if !success {
		cause := fmt.Errorf("GET %s: %s", url, resp.Status)
		if resp.StatusCode == http.StatusNotFound && op.notFound != "" {
			return &NotFoundError{Resource: op.resource, Message: op.notFound, Cause: cause}
		}
		return &ClientError{
			Status:  resp.StatusCode,
			Body:    string(body),
			Message: op.failure,
			Cause:   cause,
		}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &UnexpectedError{Message: "An unexpected error occurred: empty response body", Cause: fmt.Errorf("GET %s: no content", url)}
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return &UnexpectedError{Message: "An unexpected error occurred: malformed response body", Cause: err}
	}
	return nil
}
