package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	api_errors "github.com/customeros/maildigest/api/errors"
	"github.com/customeros/maildigest/dto"
	"github.com/customeros/maildigest/internal/repository"
	"github.com/customeros/maildigest/internal/tracing"
)

const (
	defaultResultsLimit = 20
	maxResultsLimit     = 100
)

type ResultsHandler struct {
	repos   *repository.Repositories
	secrets []string
}

func NewResultsHandler(repos *repository.Repositories, secrets []string) *ResultsHandler {
	return &ResultsHandler{repos: repos, secrets: secrets}
}

// Recent returns the latest archived results, newest first.
func (h *ResultsHandler) Recent() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ResultsHandler.Recent")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		if h.repos == nil {
			api_errors.RespondMessage(c, http.StatusNotFound, "Archive not configured", "set POSTGRES_HOST to archive processed emails")
			return
		}

		limit, err := parseLimit(c.Query("limit"), defaultResultsLimit, maxResultsLimit, "limit")
		if err != nil {
			api_errors.Respond(c, err, h.secrets...)
			return
		}

		rows, err := h.repos.ProcessedEmailRepository.GetRecent(ctx, limit)
		if err != nil {
			tracing.TraceErr(span, err)
			api_errors.Respond(c, err, h.secrets...)
			return
		}

		results := make([]*dto.ProcessedResult, 0, len(rows))
		for _, row := range rows {
			results = append(results, row.ToResult())
		}
		c.JSON(http.StatusOK, results)
	}
}

// Get returns one archived result by its archive id.
func (h *ResultsHandler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ResultsHandler.Get")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		id := c.Param("id")
		tracing.TagEntity(span, id)

		if h.repos == nil {
			api_errors.RespondMessage(c, http.StatusNotFound, "Archive not configured", "set POSTGRES_HOST to archive processed emails")
			return
		}

		row, err := h.repos.ProcessedEmailRepository.GetByID(ctx, id)
		if err != nil {
			tracing.TraceErr(span, err)
			api_errors.Respond(c, err, h.secrets...)
			return
		}
		if row == nil {
			api_errors.RespondMessage(c, http.StatusNotFound, "Result not found", "no archived result with id "+id)
			return
		}
		c.JSON(http.StatusOK, row.ToResult())
	}
}
