package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/customeros/maildigest/dto"
)

type MockMessageSource struct {
	mock.Mock
}

func (m *MockMessageSource) Name() string {
	return "mock"
}

func (m *MockMessageSource) Fetch(ctx context.Context, maxResults int) ([]dto.RawMessage, error) {
	args := m.Called(ctx, maxResults)
	raw, _ := args.Get(0).([]dto.RawMessage)
	return raw, args.Error(1)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Name() string {
	return "mock"
}

func (m *MockSink) Persist(ctx context.Context, result *dto.ProcessedResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

type MockEmailFilterService struct {
	mock.Mock
}

func (m *MockEmailFilterService) Classify(ctx context.Context, email *dto.NormalizedEmail) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type MockSummarizerService struct {
	mock.Mock
}

func (m *MockSummarizerService) Summarize(ctx context.Context, email *dto.NormalizedEmail, opts dto.SummarizeOptions) (*dto.Summary, error) {
	args := m.Called(ctx, email, opts)
	summary, _ := args.Get(0).(*dto.Summary)
	return summary, args.Error(1)
}
