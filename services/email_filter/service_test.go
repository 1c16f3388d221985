package email_filter

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/maildigest/dto"
	"github.com/customeros/maildigest/internal/enum"
	mderrors "github.com/customeros/maildigest/internal/errors"
	"github.com/customeros/maildigest/internal/logger"
	"github.com/customeros/maildigest/internal/mocks"
)

func TestClassify_RulesTruthTable(t *testing.T) {
	svc := NewEmailFilterService(nil, enum.ClassifierLLM, logger.NewNopLogger())

	tests := []struct {
		subject string
		body    string
		want    bool
	}{
		{"Weekly Digest", "", true},
		{"Meeting", "see the latest updates below", true},
		{"Hello", "just checking in", false},
		{"TECH NEWSLETTER #12", "", true},
		{"Product HIGHLIGHTS", "", true},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.subject+"|"+tt.body, func(t *testing.T) {
			got, err := svc.Classify(context.Background(), &dto.NormalizedEmail{Subject: tt.subject, Body: tt.body})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_RulesBulkHeaders(t *testing.T) {
	svc := NewEmailFilterService(nil, enum.ClassifierRules, logger.NewNopLogger())

	got, err := svc.Classify(context.Background(), &dto.NormalizedEmail{
		Subject: "Your receipt",
		Headers: map[string][]string{"Precedence": {"Bulk"}},
	})
	require.NoError(t, err)
	assert.True(t, got)

	got, err = svc.Classify(context.Background(), &dto.NormalizedEmail{
		Subject: "Offer",
		Headers: map[string][]string{"List-Unsubscribe": {"<mailto:u@example.com>"}},
	})
	require.NoError(t, err)
	assert.True(t, got)
}

func TestClassify_ModelAnswers(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"true", true},
		{"  True.\n", true},
		{"FALSE", false},
		{"maybe", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			ai := new(mocks.MockAIService)
			ai.On("Complete", mock.Anything, mock.Anything).Return(tt.answer, nil)
			svc := NewEmailFilterService(ai, enum.ClassifierLLM, logger.NewNopLogger())

			got, err := svc.Classify(context.Background(), &dto.NormalizedEmail{Subject: "Hello", Body: "content"})

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			ai.AssertExpectations(t)
		})
	}
}

func TestClassify_PromptUsesBodyPreview(t *testing.T) {
	body := strings.Repeat("x", 800)
	ai := new(mocks.MockAIService)
	ai.On("Complete", mock.Anything, mock.MatchedBy(func(req dto.CompletionRequest) bool {
		content := req.Messages[0].Content
		return req.MaxTokens == 10 &&
			req.Temperature == float32(0.3) &&
			strings.Contains(content, "Subject: Hello") &&
			strings.Contains(content, strings.Repeat("x", 500)+"...") &&
			!strings.Contains(content, strings.Repeat("x", 501))
	})).Return("false", nil)
	svc := NewEmailFilterService(ai, enum.ClassifierLLM, logger.NewNopLogger())

	_, err := svc.Classify(context.Background(), &dto.NormalizedEmail{Subject: "Hello", Body: body})

	require.NoError(t, err)
	ai.AssertExpectations(t)
}

func TestClassify_ModelFailureIsNotANegative(t *testing.T) {
	ai := new(mocks.MockAIService)
	quota := mderrors.Wrap(mderrors.ErrModelUnavailable, mderrors.New(mderrors.ErrQuotaExceeded, "insufficient_quota"), "llm request failed")
	ai.On("Complete", mock.Anything, mock.Anything).Return("", quota)
	svc := NewEmailFilterService(ai, enum.ClassifierLLM, logger.NewNopLogger())

	_, err := svc.Classify(context.Background(), &dto.NormalizedEmail{Subject: "Weekly digest"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, mderrors.ErrModelUnavailable))
	assert.True(t, errors.Is(err, mderrors.ErrQuotaExceeded))
}
