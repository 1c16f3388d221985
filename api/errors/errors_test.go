package api_errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	mderrors "github.com/customeros/maildigest/internal/errors"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", mderrors.New(mderrors.ErrValidation, "bad"), http.StatusBadRequest},
		{"auth", mderrors.New(mderrors.ErrAuth, "key"), http.StatusUnauthorized},
		{"quota inside model", mderrors.Wrap(mderrors.ErrModelUnavailable, mderrors.New(mderrors.ErrQuotaExceeded, "q"), "llm"), http.StatusPaymentRequired},
		{"schema", NewFieldErrors().withField("subject", "required").Err(), http.StatusUnprocessableEntity},
		{"model", mderrors.New(mderrors.ErrModelUnavailable, "down"), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestNewErrorResponse_RedactsSecrets(t *testing.T) {
	err := mderrors.New(mderrors.ErrConnection, "dial failed for key sk-secret-123")

	response := NewErrorResponse(err, "sk-secret-123")

	assert.Equal(t, "Upstream unavailable", response.Error)
	assert.NotContains(t, response.Detail, "sk-secret-123")
	assert.Contains(t, response.Detail, "[REDACTED]")
}

func TestNewErrorResponse_ModelErrorsUseProviderMessages(t *testing.T) {
	quota := mderrors.Wrap(mderrors.ErrModelUnavailable, mderrors.New(mderrors.ErrQuotaExceeded, "insufficient_quota"), "llm request failed")
	auth := mderrors.Wrap(mderrors.ErrModelUnavailable, mderrors.New(mderrors.ErrAuth, "invalid_api_key"), "llm request failed")

	assert.Contains(t, NewErrorResponse(quota).Detail, "quota exceeded")
	assert.Contains(t, NewErrorResponse(auth).Detail, "Invalid OpenAI API key")
}

func TestNewErrorResponse_NonModelQuotaKeepsDetail(t *testing.T) {
	err := mderrors.New(mderrors.ErrQuotaExceeded, "notion rate limited")

	response := NewErrorResponse(err)

	assert.Equal(t, "notion rate limited", response.Detail)
}

func TestNewErrorResponse_IncludesFields(t *testing.T) {
	fields := NewFieldErrors()
	fields.Add("sender", "required")
	fields.Add("body", "required")

	response := NewErrorResponse(fields.Err())

	assert.Equal(t, "Schema validation failed", response.Error)
	assert.Equal(t, map[string][]string{"sender": {"required"}, "body": {"required"}}, response.Fields)
	assert.Equal(t, "request validation failed: body: required | sender: required", response.Detail)
}

func TestLLMMessage_FallsBackToRedactedText(t *testing.T) {
	msg := LLMMessage(errors.New("timeout calling with sk-live-999"), "sk-live-999")
	assert.Equal(t, "OpenAI API error: timeout calling with [REDACTED]", msg)
}

func (e *FieldErrors) withField(field, message string) *FieldErrors {
	e.Add(field, message)
	return e
}
