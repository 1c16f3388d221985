package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	api_errors "github.com/customeros/maildigest/api/errors"
	"github.com/customeros/maildigest/config"
	"github.com/customeros/maildigest/dto"
	"github.com/customeros/maildigest/interfaces"
	"github.com/customeros/maildigest/internal/enum"
	mderrors "github.com/customeros/maildigest/internal/errors"
	"github.com/customeros/maildigest/internal/mocks"
	"github.com/customeros/maildigest/internal/models"
	"github.com/customeros/maildigest/internal/repository"
)

const testSecret = "sk-test-secret-123"

func newEmailsRouter(pipeline *mocks.MockPipelineService, source interfaces.MessageSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &EmailsHandler{pipeline: pipeline, source: source, secrets: []string{testSecret}}
	r := gin.New()
	r.POST("/api/process-email", h.ProcessEmailStrict())
	r.POST("/process_email", h.ProcessEmail())
	r.POST("/webhook", h.Webhook())
	r.POST("/api/newsletter", h.Newsletter())
	r.GET("/recent_emails", h.RecentEmails())
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api_errors.ErrorResponse {
	t.Helper()
	var response api_errors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.NotEmpty(t, response.Error)
	assert.NotEmpty(t, response.Detail)
	return response
}

func sampleResult(summary string, priority enum.Priority) *dto.ProcessedResult {
	return &dto.ProcessedResult{
		Subject:     "Test Meeting",
		Sender:      "john@example.com",
		Summary:     summary,
		ActionItems: []string{},
		Priority:    priority,
		ProcessedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func quotaError() error {
	return mderrors.Wrap(mderrors.ErrModelUnavailable,
		mderrors.New(mderrors.ErrQuotaExceeded, "insufficient_quota for "+testSecret),
		"llm request failed")
}

func TestEmptyPayloadsAreRejected(t *testing.T) {
	r := newEmailsRouter(new(mocks.MockPipelineService), nil)

	for _, path := range []string{"/api/process-email", "/process_email", "/webhook", "/api/newsletter"} {
		for _, body := range []string{"", "{}", "null", "  "} {
			t.Run(path+" "+body, func(t *testing.T) {
				w := do(r, http.MethodPost, path, body)
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Equal(t, api_errors.MessageNoData, decodeError(t, w).Error)
			})
		}
	}
}

func TestMalformedJSON(t *testing.T) {
	r := newEmailsRouter(new(mocks.MockPipelineService), nil)

	w := do(r, http.MethodPost, "/process_email", `{"subject": `)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	decodeError(t, w)
}

func TestProcessEmailStrict_Success(t *testing.T) {
	pipeline := new(mocks.MockPipelineService)
	pipeline.On("Analyze", mock.Anything, mock.MatchedBy(func(e *dto.NormalizedEmail) bool {
		return e.Subject == "Test Meeting" && e.Sender == "john@example.com" && strings.HasPrefix(e.ID, "api_")
	}), dto.SummarizeOptions{Mode: enum.SummaryShort, Strict: true}).
		Return(sampleResult("Meeting tomorrow at 2 PM", enum.PriorityLow), nil)
	r := newEmailsRouter(pipeline, nil)

	w := do(r, http.MethodPost, "/api/process-email",
		`{"subject":"Test Meeting","body":"Hello team, we have a meeting tomorrow at 2 PM.","sender":"john@example.com"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var response ProcessEmailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "success", response.Status)
	assert.Equal(t, "Meeting tomorrow at 2 PM", response.Summary)
	assert.Equal(t, "john@example.com", response.Metadata.Sender)
	assert.False(t, response.Metadata.ProcessedAt.IsZero())
}

func TestProcessEmailStrict_MissingFields(t *testing.T) {
	r := newEmailsRouter(new(mocks.MockPipelineService), nil)

	w := do(r, http.MethodPost, "/api/process-email", `{"subject":"Hi","body":"text"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	response := decodeError(t, w)
	assert.Contains(t, response.Fields, "sender")
}

func TestProcessEmailStrict_WrongType(t *testing.T) {
	r := newEmailsRouter(new(mocks.MockPipelineService), nil)

	w := do(r, http.MethodPost, "/api/process-email", `{"subject":5,"body":"text","sender":"a@b.c"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decodeError(t, w).Fields, "subject")
}

func TestProcessEmailStrict_ModelErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"quota", quotaError(), http.StatusPaymentRequired, "quota exceeded"},
		{"invalid key", mderrors.Wrap(mderrors.ErrModelUnavailable, mderrors.New(mderrors.ErrAuth, "invalid_api_key"), "llm request failed"), http.StatusUnauthorized, "Invalid OpenAI API key"},
		{"unavailable", mderrors.New(mderrors.ErrModelUnavailable, "timeout using "+testSecret), http.StatusInternalServerError, "OpenAI API error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := new(mocks.MockPipelineService)
			pipeline.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)
			r := newEmailsRouter(pipeline, nil)

			w := do(r, http.MethodPost, "/api/process-email", `{"subject":"s","body":"b","sender":"x@y.z"}`)

			assert.Equal(t, tt.status, w.Code)
			response := decodeError(t, w)
			assert.Contains(t, response.Detail, tt.detail)
			assert.NotContains(t, w.Body.String(), testSecret)
		})
	}
}

func TestProcessEmail_AcceptsBothAttachmentShapes(t *testing.T) {
	pipeline := new(mocks.MockPipelineService)
	pipeline.On("Analyze", mock.Anything, mock.MatchedBy(func(e *dto.NormalizedEmail) bool {
		return assert.ObjectsAreEqual([]string{"a.pdf", "b.png"}, e.AttachmentNames()) &&
			e.Attachments[1].MimeType == "image/png" && e.Sender == "john@example.com"
	}), dto.SummarizeOptions{Mode: enum.SummaryShort}).
		Return(sampleResult("summary", enum.PriorityMedium), nil)
	r := newEmailsRouter(pipeline, nil)

	w := do(r, http.MethodPost, "/process_email",
		`{"subject":"Docs","body":"see attached","sender":"john@example.com","attachments":["a.pdf",{"filename":"b.png","mime_type":"image/png"}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Medium", bodyString(t, w, "priority"))
	pipeline.AssertExpectations(t)
}

func TestProcessEmail_FromEmailShape(t *testing.T) {
	pipeline := new(mocks.MockPipelineService)
	pipeline.On("Analyze", mock.Anything, mock.MatchedBy(func(e *dto.NormalizedEmail) bool {
		return e.Sender == "news@example.com" && e.Body == "weekly digest"
	}), mock.Anything).Return(sampleResult("s", enum.PriorityLow), nil)
	r := newEmailsRouter(pipeline, nil)

	w := do(r, http.MethodPost, "/process_email", `{"from_email":"news@example.com","content":"weekly digest"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	pipeline.AssertExpectations(t)
}

func TestProcessEmail_QuotaDegradedResultIsOK(t *testing.T) {
	pipeline := new(mocks.MockPipelineService)
	degraded := sampleResult("Analysis skipped due to LLM quota limits.", enum.PriorityUnknown)
	pipeline.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(degraded, nil)
	r := newEmailsRouter(pipeline, nil)

	w := do(r, http.MethodPost, "/process_email", `{"subject":"s","body":"b","sender":"x@y.z"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Unknown", bodyString(t, w, "priority"))
	assert.Contains(t, w.Body.String(), `"action_items":[]`)
	assert.Contains(t, bodyString(t, w, "summary"), "quota")
}

func TestProcessEmail_BadAttachment(t *testing.T) {
	r := newEmailsRouter(new(mocks.MockPipelineService), nil)

	w := do(r, http.MethodPost, "/process_email", `{"subject":"s","body":"b","attachments":[42]}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestProcessEmail_NoContentFields(t *testing.T) {
	r := newEmailsRouter(new(mocks.MockPipelineService), nil)

	w := do(r, http.MethodPost, "/process_email", `{"sender":"x@y.z"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decodeError(t, w).Fields, "body")
}

func TestWebhook_InvalidType(t *testing.T) {
	r := newEmailsRouter(new(mocks.MockPipelineService), nil)

	w := do(r, http.MethodPost, "/webhook", `{"type":"not-email"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, strings.ToLower(decodeError(t, w).Error), "invalid webhook type")
}

func TestWebhook_EmptyData(t *testing.T) {
	r := newEmailsRouter(new(mocks.MockPipelineService), nil)

	w := do(r, http.MethodPost, "/webhook", `{"type":"email","data":{}}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api_errors.MessageNoData, decodeError(t, w).Error)
}

func TestWebhook_ProcessesData(t *testing.T) {
	pipeline := new(mocks.MockPipelineService)
	pipeline.On("Analyze", mock.Anything, mock.MatchedBy(func(e *dto.NormalizedEmail) bool {
		return e.Subject == "Invoice"
	}), mock.Anything).Return(sampleResult("pay", enum.PriorityHigh), nil)
	r := newEmailsRouter(pipeline, nil)

	w := do(r, http.MethodPost, "/webhook", `{"type":"email","data":{"subject":"Invoice","body":"pay asap","sender":"a@b.c"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "High", bodyString(t, w, "priority"))
}

func TestNewsletter_RunsFullPipeline(t *testing.T) {
	pipeline := new(mocks.MockPipelineService)
	result := sampleResult("digest", enum.PriorityLow)
	result.IsNewsletter = true
	result.Title = "Weekly"
	pipeline.On("ProcessEmail", mock.Anything, mock.MatchedBy(func(e *dto.NormalizedEmail) bool {
		return e.Sender == "news@example.com" && e.Body == "this week"
	})).Return(result, nil)
	r := newEmailsRouter(pipeline, nil)

	w := do(r, http.MethodPost, "/api/newsletter", `{"from_email":"news@example.com","content":"this week"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Weekly", bodyString(t, w, "title"))
}

func TestNewsletter_SinkFailureReturnsResult(t *testing.T) {
	pipeline := new(mocks.MockPipelineService)
	pipeline.On("ProcessEmail", mock.Anything, mock.Anything).
		Return(sampleResult("digest", enum.PriorityLow), mderrors.New(mderrors.ErrAuth, "notion unauthorized "+testSecret))
	r := newEmailsRouter(pipeline, nil)

	w := do(r, http.MethodPost, "/api/newsletter", `{"from_email":"news@example.com","content":"this week"}`)

	assert.Equal(t, http.StatusMultiStatus, w.Code)
	assert.Contains(t, w.Body.String(), `"result"`)
	assert.NotContains(t, w.Body.String(), testSecret)
}

func TestNewsletter_MissingContent(t *testing.T) {
	r := newEmailsRouter(new(mocks.MockPipelineService), nil)

	w := do(r, http.MethodPost, "/api/newsletter", `{"from_email":"news@example.com"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decodeError(t, w).Fields, "content")
}

func TestRecentEmails(t *testing.T) {
	source := new(mocks.MockMessageSource)
	pipeline := new(mocks.MockPipelineService)
	pipeline.On("AnalyzeBatch", mock.Anything, source, 3, mock.Anything).
		Run(func(args mock.Arguments) {
			sink := args.Get(3).(interfaces.Sink)
			_ = sink.Persist(context.Background(), sampleResult("one", enum.PriorityLow))
		}).
		Return([]dto.MessageOutcome{
			{MessageID: "1", State: enum.MessagePersisted},
			{MessageID: "2", State: enum.MessageSkipped, Reason: "llm down"},
		}, nil)
	r := newEmailsRouter(pipeline, source)

	w := do(r, http.MethodGet, "/recent_emails?max_results=3", "")

	require.Equal(t, http.StatusOK, w.Code)
	var results []dto.ProcessedResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	assert.Len(t, results, 1)
}

func TestRecentEmails_DefaultAndInvalidLimit(t *testing.T) {
	source := new(mocks.MockMessageSource)
	pipeline := new(mocks.MockPipelineService)
	pipeline.On("AnalyzeBatch", mock.Anything, source, defaultRecentResults, mock.Anything).Return([]dto.MessageOutcome{}, nil)
	r := newEmailsRouter(pipeline, source)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/recent_emails", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/recent_emails?max_results=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/recent_emails?max_results=0", "").Code)
}

func TestRecentEmails_SourceAuthFailure(t *testing.T) {
	source := new(mocks.MockMessageSource)
	pipeline := new(mocks.MockPipelineService)
	pipeline.On("AnalyzeBatch", mock.Anything, source, 10, mock.Anything).
		Return(nil, mderrors.New(mderrors.ErrAuth, "imap login failed"))
	r := newEmailsRouter(pipeline, source)

	w := do(r, http.MethodGet, "/recent_emails", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	decodeError(t, w)
}

func newInfoRouter(cfg *config.Config, ai interfaces.AIService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewInfoHandler(cfg, ai)
	r := gin.New()
	r.GET("/", h.Root())
	r.GET("/api/health", h.Health())
	r.GET("/api/check-openai", h.CheckOpenAI())
	return r
}

func infoConfig(testMode bool) *config.Config {
	return &config.Config{
		AppConfig:      &config.AppConfig{TestMode: testMode},
		OpenAIConfig:   &config.OpenAIConfig{ApiKey: testSecret},
		NotionConfig:   &config.NotionConfig{},
		MailConfig:     &config.MailConfig{},
		DatabaseConfig: &config.DatabaseConfig{},
	}
}

func TestRoot(t *testing.T) {
	w := do(newInfoRouter(infoConfig(false), nil), http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, APIName, bodyString(t, w, "name"))
	assert.Contains(t, w.Body.String(), "/api/check-openai")
}

func TestHealth_TestMode(t *testing.T) {
	w := do(newInfoRouter(infoConfig(true), nil), http.MethodGet, "/api/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.True(t, response.TestMode)
	assert.Equal(t, openAIStatusTestMode, response.OpenAIStatus)
}

func TestHealth_ReportsQuota(t *testing.T) {
	ai := new(mocks.MockAIService)
	ai.On("Ping", mock.Anything).Return(quotaError())

	w := do(newInfoRouter(infoConfig(false), ai), http.MethodGet, "/api/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, openAIStatusError, response.OpenAIStatus)
	assert.Contains(t, response.OpenAIMessage, "quota exceeded")
	assert.NotContains(t, w.Body.String(), testSecret)
}

func TestCheckOpenAI(t *testing.T) {
	ai := new(mocks.MockAIService)
	ai.On("Ping", mock.Anything).Return(nil)

	w := do(newInfoRouter(infoConfig(false), ai), http.MethodGet, "/api/check-openai", "")

	require.Equal(t, http.StatusOK, w.Code)
	var response OpenAIStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, openAIStatusConnected, response.Status)
	assert.Equal(t, "mock-model", response.Model)
}

func TestCheckOpenAI_NotConfigured(t *testing.T) {
	w := do(newInfoRouter(infoConfig(false), nil), http.MethodGet, "/api/check-openai", "")

	assert.Equal(t, openAIStatusError, bodyString(t, w, "status"))
}

func TestResults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := new(mocks.MockProcessedEmailRepository)
	repo.On("GetRecent", mock.Anything, 5).Return([]*models.ProcessedEmail{
		{ID: "pmail_1", Subject: "Hello", Priority: enum.PriorityLow},
	}, nil)

	r := gin.New()
	r.GET("/api/results", NewResultsHandler(&repository.Repositories{ProcessedEmailRepository: repo}, nil).Recent())

	w := do(r, http.MethodGet, "/api/results?limit=5", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subject":"Hello"`)
	assert.Contains(t, w.Body.String(), `"action_items":[]`)
}

func TestResults_ArchiveDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/results", NewResultsHandler(nil, nil).Recent())

	w := do(r, http.MethodGet, "/api/results", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	decodeError(t, w)
}

func TestResultByID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := new(mocks.MockProcessedEmailRepository)
	repo.On("GetByID", mock.Anything, "pmail_1").Return(&models.ProcessedEmail{
		ID: "pmail_1", Subject: "Hello", Summary: "Short", Priority: enum.PriorityHigh,
	}, nil)

	r := gin.New()
	r.GET("/api/results/:id", NewResultsHandler(&repository.Repositories{ProcessedEmailRepository: repo}, nil).Get())

	w := do(r, http.MethodGet, "/api/results/pmail_1", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello", bodyString(t, w, "subject"))
	assert.Equal(t, "Short", bodyString(t, w, "summary"))
	repo.AssertExpectations(t)
}

func TestResultByID_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := new(mocks.MockProcessedEmailRepository)
	repo.On("GetByID", mock.Anything, "pmail_missing").Return(nil, nil)

	r := gin.New()
	r.GET("/api/results/:id", NewResultsHandler(&repository.Repositories{ProcessedEmailRepository: repo}, nil).Get())

	w := do(r, http.MethodGet, "/api/results/pmail_missing", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	decodeError(t, w)
}

func TestResultByID_RepositoryError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := new(mocks.MockProcessedEmailRepository)
	repo.On("GetByID", mock.Anything, "pmail_1").Return(nil, mderrors.New(mderrors.ErrConnection, "postgres unavailable"))

	r := gin.New()
	r.GET("/api/results/:id", NewResultsHandler(&repository.Repositories{ProcessedEmailRepository: repo}, nil).Get())

	w := do(r, http.MethodGet, "/api/results/pmail_1", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	decodeError(t, w)
}

func TestResultByID_ArchiveDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/results/:id", NewResultsHandler(nil, nil).Get())

	w := do(r, http.MethodGet, "/api/results/pmail_1", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func bodyString(t *testing.T, w *httptest.ResponseRecorder, key string) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	value, _ := body[key].(string)
	return value
}
