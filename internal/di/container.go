package di

import (
	"audition-backend/internal/config"
	apperrors "audition-backend/internal/errors"
	"audition-backend/internal/integration"
	"audition-backend/internal/interfaces/http/rest"
	"audition-backend/internal/middleware"
	"audition-backend/internal/observability"
	"audition-backend/internal/service"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logging      *Logging
	Logger       *zap.Logger
	Tracer       trace.Tracer
	Metrics      *observability.Collector
	Client       *integration.Client
	PostService  *service.PostService
	ErrorHandler *apperrors.ErrorHandler
	Chain        *middleware.Chain
	Router       *rest.Router
}
