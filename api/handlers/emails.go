package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	api_errors "github.com/customeros/maildigest/api/errors"
	"github.com/customeros/maildigest/config"
	"github.com/customeros/maildigest/dto"
	"github.com/customeros/maildigest/interfaces"
	"github.com/customeros/maildigest/internal/enum"
	mderrors "github.com/customeros/maildigest/internal/errors"
	"github.com/customeros/maildigest/internal/tracing"
	"github.com/customeros/maildigest/services"
	"github.com/customeros/maildigest/services/sink"
)

const (
	webhookTypeEmail = "email"

	defaultRecentResults = 10
	maxRecentResults     = 100
)

type ProcessEmailMetadata struct {
	Subject     string    `json:"subject"`
	Sender      string    `json:"sender"`
	ProcessedAt time.Time `json:"processed_at"`
}

type ProcessEmailResponse struct {
	Status   string               `json:"status"`
	Message  string               `json:"message"`
	Summary  string               `json:"summary"`
	Metadata ProcessEmailMetadata `json:"metadata"`
}

type EmailsHandler struct {
	pipeline interfaces.PipelineService
	source   interfaces.MessageSource
	secrets  []string
}

func NewEmailsHandler(cfg *config.Config, s *services.Services) *EmailsHandler {
	return &EmailsHandler{
		pipeline: s.PipelineService,
		source:   s.MessageSource,
		secrets:  cfg.Secrets(),
	}
}

// ProcessEmailStrict summarizes one email. Model quota and key failures are
// reported as 402 and 401.
func (h *EmailsHandler) ProcessEmailStrict() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.ProcessEmailStrict")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req EmailRequest
		if err := bindPayload(c, &req); err != nil {
			tracing.TraceErr(span, err)
			h.respondError(c, err)
			return
		}

		email := &dto.NormalizedEmail{
			ID:      newRequestEmailID(),
			Subject: req.Subject,
			Body:    req.Body,
			Sender:  req.Sender,
		}
		result, err := h.pipeline.Analyze(ctx, email, dto.SummarizeOptions{Mode: enum.SummaryShort, Strict: true})
		if err != nil {
			tracing.TraceErr(span, err)
			h.respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, ProcessEmailResponse{
			Status:  "success",
			Message: "Email processed successfully",
			Summary: result.Summary,
			Metadata: ProcessEmailMetadata{
				Subject:     req.Subject,
				Sender:      req.Sender,
				ProcessedAt: result.ProcessedAt,
			},
		})
	}
}

// ProcessEmail analyzes one email. Quota exhaustion yields a degraded 200
// result.
func (h *EmailsHandler) ProcessEmail() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.ProcessEmail")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var payload EmailPayload
		if err := bindPayload(c, &payload); err != nil {
			tracing.TraceErr(span, err)
			h.respondError(c, err)
			return
		}
		h.analyze(ctx, c, span, &payload)
	}
}

func (h *EmailsHandler) Webhook() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.Webhook")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req WebhookRequest
		if err := bindPayload(c, &req); err != nil {
			tracing.TraceErr(span, err)
			h.respondError(c, err)
			return
		}
		span.SetTag("webhook.type", req.Type)
		if req.Type != webhookTypeEmail {
			api_errors.RespondMessage(c, http.StatusBadRequest, api_errors.MessageInvalidWebhookType,
				"expected type \""+webhookTypeEmail+"\"")
			return
		}

		var payload EmailPayload
		if err := decodeWebhookData(req.Data, &payload); err != nil {
			tracing.TraceErr(span, err)
			h.respondError(c, err)
			return
		}
		h.analyze(ctx, c, span, &payload)
	}
}

func (h *EmailsHandler) analyze(ctx context.Context, c *gin.Context, span opentracing.Span, payload *EmailPayload) {
	if err := payload.validate(); err != nil {
		tracing.TraceErr(span, err)
		h.respondError(c, err)
		return
	}

	email := payload.toEmail(newRequestEmailID())
	tracing.TagEntity(span, email.ID)
	result, err := h.pipeline.Analyze(ctx, email, dto.SummarizeOptions{Mode: enum.SummaryShort})
	if err != nil {
		tracing.TraceErr(span, err)
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Newsletter runs the full pipeline: classification, long summary with
// title, and the configured sinks.
func (h *EmailsHandler) Newsletter() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.Newsletter")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req NewsletterRequest
		if err := bindPayload(c, &req); err != nil {
			tracing.TraceErr(span, err)
			h.respondError(c, err)
			return
		}

		email := &dto.NormalizedEmail{
			ID:      newRequestEmailID(),
			Subject: req.Subject,
			Body:    req.Content,
			Sender:  req.FromEmail,
		}
		tracing.TagEntity(span, email.ID)

		result, err := h.pipeline.ProcessEmail(ctx, email)
		if err != nil {
			tracing.TraceErr(span, err)
			if result == nil {
				h.respondError(c, err)
				return
			}
			// summarized but at least one sink failed
			c.JSON(http.StatusMultiStatus, gin.H{
				"result": result,
				"error":  mderrors.Redact(err.Error(), h.secrets...),
			})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// RecentEmails fetches unread mail from the configured source and analyzes
// each message. Messages that fail are left out of the response.
func (h *EmailsHandler) RecentEmails() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.RecentEmails")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		maxResults, err := parseLimit(c.Query("max_results"), defaultRecentResults, maxRecentResults, "max_results")
		if err != nil {
			h.respondError(c, err)
			return
		}
		span.SetTag("max_results", maxResults)

		collector := sink.NewCollector()
		outcomes, err := h.pipeline.AnalyzeBatch(ctx, h.source, maxResults, collector)
		if err != nil {
			tracing.TraceErr(span, err)
			h.respondError(c, err)
			return
		}
		span.SetTag("messages.fetched", len(outcomes))
		span.SetTag("messages.analyzed", len(collector.Results()))
		c.JSON(http.StatusOK, collector.Results())
	}
}

func (h *EmailsHandler) respondError(c *gin.Context, err error) {
	if errors.Is(err, errNoData) {
		api_errors.RespondMessage(c, http.StatusBadRequest, api_errors.MessageNoData, "request body is empty")
		return
	}
	api_errors.Respond(c, err, h.secrets...)
}

func parseLimit(raw string, def, max int, name string) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, mderrors.New(mderrors.ErrValidation, name+" must be a positive integer")
	}
	if n > max {
		n = max
	}
	return n, nil
}
