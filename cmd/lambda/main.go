package main

import (
	"context"
	"log"
	"time"

	"audition-backend/internal/config"
	"audition-backend/internal/di"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var version = "dev"

var (
	// chiLambda wraps the chi router for AWS Lambda integration
	chiLambda *chiadapter.ChiLambdaV2

	container *di.Container
)

// init runs during cold start
func init() {
	coldStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The container lives as long as the execution environment, so its
	// cleanup is never run.
	container, _, err = di.InitializeContainer(ctx, cfg, di.Version(version))
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	chiRouter, ok := container.Router.Setup().(*chi.Mux)
	if !ok {
		log.Fatal("Failed to cast handler to chi.Mux")
	}
	chiLambda = chiadapter.NewV2(chiRouter)

	container.Logger.Info("Lambda cold start completed",
		zap.Duration("duration", time.Since(coldStartTime)),
	)
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	container.Logger.Debug("Lambda received request",
		zap.String("path", req.RequestContext.HTTP.Path),
		zap.String("method", req.RequestContext.HTTP.Method),
		zap.String("request_id", req.RequestContext.RequestID),
	)
	return chiLambda.ProxyWithContextV2(ctx, req)
}

func main() {
	lambda.Start(Handler)
}
