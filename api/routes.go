package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/maildigest/api/handlers"
	"github.com/customeros/maildigest/api/middleware"
	"github.com/customeros/maildigest/config"
	"github.com/customeros/maildigest/internal/tracing"
	"github.com/customeros/maildigest/services"
)

const appSource = "maildigest"

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, cfg *config.Config, s *services.Services) {
	if s == nil {
		panic("Services cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))
	r.Use(middleware.CustomContextMiddleware(appSource))
	r.Use(middleware.TracingMiddleware())

	apiHandlers := handlers.InitHandlers(cfg, s)

	// info and health endpoints are never behind the api key
	r.GET("/", apiHandlers.Info.Root())
	r.GET("/api/health", apiHandlers.Info.Health())
	r.GET("/api/check-openai", apiHandlers.Info.CheckOpenAI())

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  middleware.APIKeyHeader,
		ValidAPIKey: cfg.AppConfig.APIKey,
	})

	protected := r.Group("")
	protected.Use(apiKeyMiddleware)
	{
		protected.POST("/process_email", apiHandlers.Emails.ProcessEmail())
		protected.POST("/webhook", apiHandlers.Emails.Webhook())
		protected.GET("/recent_emails", apiHandlers.Emails.RecentEmails())

		api := protected.Group("/api")
		{
			api.POST("/process-email", apiHandlers.Emails.ProcessEmailStrict())
			api.POST("/newsletter", apiHandlers.Emails.Newsletter())
			api.GET("/results", apiHandlers.Results.Recent())
			api.GET("/results/:id", apiHandlers.Results.Get())
		}
	}
}
