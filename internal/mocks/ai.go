package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/customeros/maildigest/dto"
)

type MockAIService struct {
	mock.Mock
}

func (m *MockAIService) Complete(ctx context.Context, request dto.CompletionRequest) (string, error) {
	args := m.Called(ctx, request)
	return args.String(0), args.Error(1)
}

func (m *MockAIService) CallFunction(ctx context.Context, request dto.CompletionRequest, fn dto.FunctionSpec) (string, error) {
	args := m.Called(ctx, request, fn)
	return args.String(0), args.Error(1)
}

func (m *MockAIService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAIService) Model() string {
	return "mock-model"
}
