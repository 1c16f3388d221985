package api_errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	mderrors "github.com/customeros/maildigest/internal/errors"
)

const (
	MessageNoData             = "No data provided"
	MessageInvalidWebhookType = "Invalid webhook type"

	messageQuota      = "OpenAI API quota exceeded. Please check your billing status at https://platform.openai.com/account/billing"
	messageInvalidKey = "Invalid OpenAI API key. Please check your API key in the .env file"
)

type ErrorResponse struct {
	Error  string              `json:"error"`
	Detail string              `json:"detail"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// FieldErrors collects per field validation failures of a request body.
type FieldErrors struct {
	Errors map[string][]string
}

func NewFieldErrors() *FieldErrors {
	return &FieldErrors{
		Errors: make(map[string][]string),
	}
}

func (e *FieldErrors) Add(field, message string) {
	e.Errors[field] = append(e.Errors[field], message)
}

func (e *FieldErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *FieldErrors) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var parts []string
	for _, field := range fields {
		for _, message := range e.Errors[field] {
			parts = append(parts, fmt.Sprintf("%s: %s", field, message))
		}
	}
	return strings.Join(parts, " | ")
}

// Err wraps the collected failures as a schema error, or returns nil.
func (e *FieldErrors) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return mderrors.Wrap(mderrors.ErrSchema, e, "request validation failed")
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch mderrors.KindOf(err) {
	case mderrors.ErrValidation:
		return http.StatusBadRequest
	case mderrors.ErrAuth:
		return http.StatusUnauthorized
	case mderrors.ErrQuotaExceeded:
		return http.StatusPaymentRequired
	case mderrors.ErrSchema:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func titleFor(err error) string {
	switch mderrors.KindOf(err) {
	case mderrors.ErrValidation:
		return "Invalid request"
	case mderrors.ErrAuth:
		return "Invalid credentials"
	case mderrors.ErrQuotaExceeded:
		return "Quota exceeded"
	case mderrors.ErrSchema:
		return "Schema validation failed"
	case mderrors.ErrModelUnavailable:
		return "Model unavailable"
	case mderrors.ErrConnection:
		return "Upstream unavailable"
	default:
		return "Internal error"
	}
}

// LLMMessage describes a model failure the way the health endpoints report
// it. Secrets are redacted from the provider message.
func LLMMessage(err error, secrets ...string) string {
	switch {
	case mderrors.IsQuota(err):
		return messageQuota
	case mderrors.IsAuth(err):
		return messageInvalidKey
	default:
		return "OpenAI API error: " + mderrors.Redact(err.Error(), secrets...)
	}
}

func NewErrorResponse(err error, secrets ...string) ErrorResponse {
	response := ErrorResponse{
		Error:  titleFor(err),
		Detail: mderrors.Redact(err.Error(), secrets...),
	}
	if errors.Is(err, mderrors.ErrModelUnavailable) {
		response.Detail = LLMMessage(err, secrets...)
	}

	var fieldErrors *FieldErrors
	if errors.As(err, &fieldErrors) {
		response.Fields = fieldErrors.Errors
	}
	return response
}

// Respond aborts the request with the status and body for err.
func Respond(c *gin.Context, err error, secrets ...string) {
	c.AbortWithStatusJSON(StatusFor(err), NewErrorResponse(err, secrets...))
}

// RespondMessage aborts with a fixed message, used where the client
// contract names the exact error text.
func RespondMessage(c *gin.Context, status int, message, detail string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Detail: detail})
}
