package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/customeros/maildigest/dto"
	"github.com/customeros/maildigest/interfaces"
)

type MockPipelineService struct {
	mock.Mock
}

func (m *MockPipelineService) Run(ctx context.Context, source interfaces.MessageSource, maxResults int) ([]dto.MessageOutcome, error) {
	args := m.Called(ctx, source, maxResults)
	outcomes, _ := args.Get(0).([]dto.MessageOutcome)
	return outcomes, args.Error(1)
}

func (m *MockPipelineService) ProcessRaw(ctx context.Context, raw dto.RawMessage) dto.MessageOutcome {
	args := m.Called(ctx, raw)
	return args.Get(0).(dto.MessageOutcome)
}

func (m *MockPipelineService) ProcessEmail(ctx context.Context, email *dto.NormalizedEmail) (*dto.ProcessedResult, error) {
	args := m.Called(ctx, email)
	result, _ := args.Get(0).(*dto.ProcessedResult)
	return result, args.Error(1)
}

func (m *MockPipelineService) Analyze(ctx context.Context, email *dto.NormalizedEmail, opts dto.SummarizeOptions) (*dto.ProcessedResult, error) {
	args := m.Called(ctx, email, opts)
	result, _ := args.Get(0).(*dto.ProcessedResult)
	return result, args.Error(1)
}

func (m *MockPipelineService) AnalyzeBatch(ctx context.Context, source interfaces.MessageSource, maxResults int, sink interfaces.Sink) ([]dto.MessageOutcome, error) {
	args := m.Called(ctx, source, maxResults, sink)
	outcomes, _ := args.Get(0).([]dto.MessageOutcome)
	return outcomes, args.Error(1)
}
