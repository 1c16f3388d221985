package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/maildigest/dto"
	"github.com/customeros/maildigest/internal/enum"
	"github.com/customeros/maildigest/internal/models"
)

type mockProcessedEmailRepository struct {
	mock.Mock
}

func (m *mockProcessedEmailRepository) Create(ctx context.Context, email *models.ProcessedEmail) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *mockProcessedEmailRepository) GetByID(ctx context.Context, id string) (*models.ProcessedEmail, error) {
	args := m.Called(ctx, id)
	email, _ := args.Get(0).(*models.ProcessedEmail)
	return email, args.Error(1)
}

func (m *mockProcessedEmailRepository) GetRecent(ctx context.Context, limit int) ([]*models.ProcessedEmail, error) {
	args := m.Called(ctx, limit)
	emails, _ := args.Get(0).([]*models.ProcessedEmail)
	return emails, args.Error(1)
}

func TestArchiveSink_PersistStoresResult(t *testing.T) {
	repo := new(mockProcessedEmailRepository)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(m *models.ProcessedEmail) bool {
		return m.MessageID == "m-1" && m.Priority == enum.PriorityHigh && len(m.ActionItems) == 1
	})).Return("pmail_1", nil).Once()

	sink := NewArchiveSink(repo)
	err := sink.Persist(context.Background(), &dto.ProcessedResult{
		MessageID:   "m-1",
		Summary:     "urgent",
		ActionItems: []string{"Action: reply"},
		Priority:    enum.PriorityHigh,
		ProcessedAt: time.Now(),
	})

	require.NoError(t, err)
	assert.Equal(t, "archive", sink.Name())
	repo.AssertExpectations(t)
}
