//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"audition-backend/internal/config"
	apperrors "audition-backend/internal/errors"
	"audition-backend/internal/integration"
	"audition-backend/internal/interfaces/http/rest/handlers"
	"audition-backend/internal/service"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogging,
	ProvideLogger,
	ProvideTracer,
	ProvideMetrics,
	ProvideClient,
	wire.Bind(new(service.PostClient), new(*integration.Client)),
	service.NewPostService,
	wire.Bind(new(handlers.PostService), new(*service.PostService)),
	handlers.NewPostHandler,
	apperrors.NewErrorHandler,
	ProvideChain,
	ProvideRouterConfig,
	ProvideReadinessChecks,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config, version Version) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
