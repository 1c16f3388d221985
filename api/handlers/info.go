package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	api_errors "github.com/customeros/maildigest/api/errors"
	"github.com/customeros/maildigest/config"
	"github.com/customeros/maildigest/interfaces"
	"github.com/customeros/maildigest/internal/tracing"
)

const (
	APIName    = "Email Processor API"
	APIVersion = "1.0.0"

	openAIStatusConnected = "connected"
	openAIStatusError     = "error"
	openAIStatusTestMode  = "test_mode"
)

type OpenAIStatus struct {
	Status  string `json:"status"`
	Model   string `json:"model,omitempty"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	TestMode      bool   `json:"test_mode"`
	OpenAIStatus  string `json:"openai_status"`
	OpenAIMessage string `json:"openai_message"`
}

type InfoHandler struct {
	cfg *config.Config
	ai  interfaces.AIService
}

func NewInfoHandler(cfg *config.Config, ai interfaces.AIService) *InfoHandler {
	return &InfoHandler{cfg: cfg, ai: ai}
}

// Root lists the API endpoints.
func (h *InfoHandler) Root() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    APIName,
			"version": APIVersion,
			"endpoints": gin.H{
				"check_openai":        "/api/check-openai",
				"process_email":       "/api/process-email",
				"health":              "/api/health",
				"newsletter":          "/api/newsletter",
				"results":             "/api/results",
				"process_email_basic": "/process_email",
				"webhook":             "/webhook",
				"recent_emails":       "/recent_emails",
			},
		})
	}
}

// Health always answers 200; LLM reachability is reported in the body.
func (h *InfoHandler) Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		status := h.checkOpenAI(c.Request.Context())
		c.JSON(http.StatusOK, HealthResponse{
			Status:        "healthy",
			TestMode:      h.cfg.AppConfig.TestMode,
			OpenAIStatus:  status.Status,
			OpenAIMessage: status.Message,
		})
	}
}

func (h *InfoHandler) CheckOpenAI() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, h.checkOpenAI(c.Request.Context()))
	}
}

func (h *InfoHandler) checkOpenAI(ctx context.Context) OpenAIStatus {
	span, ctx := opentracing.StartSpanFromContext(ctx, "InfoHandler.checkOpenAI")
	defer span.Finish()
	tracing.SetDefaultRestSpanTags(ctx, span)

	if h.cfg.AppConfig.TestMode {
		return OpenAIStatus{Status: openAIStatusTestMode, Message: "LLM calls are disabled in test mode"}
	}
	if h.ai == nil {
		return OpenAIStatus{Status: openAIStatusError, Message: "OpenAI API key is not configured"}
	}
	if err := h.ai.Ping(ctx); err != nil {
		tracing.TraceErr(span, err)
		return OpenAIStatus{Status: openAIStatusError, Message: api_errors.LLMMessage(err, h.cfg.Secrets()...)}
	}
	return OpenAIStatus{
		Status:  openAIStatusConnected,
		Model:   h.ai.Model(),
		Message: "OpenAI API is working correctly",
	}
}
