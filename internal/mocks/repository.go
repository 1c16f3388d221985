package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/customeros/maildigest/internal/models"
)

type MockProcessedEmailRepository struct {
	mock.Mock
}

func (m *MockProcessedEmailRepository) Create(ctx context.Context, email *models.ProcessedEmail) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockProcessedEmailRepository) GetByID(ctx context.Context, id string) (*models.ProcessedEmail, error) {
	args := m.Called(ctx, id)
	email, _ := args.Get(0).(*models.ProcessedEmail)
	return email, args.Error(1)
}

func (m *MockProcessedEmailRepository) GetRecent(ctx context.Context, limit int) ([]*models.ProcessedEmail, error) {
	args := m.Called(ctx, limit)
	emails, _ := args.Get(0).([]*models.ProcessedEmail)
	return emails, args.Error(1)
}
