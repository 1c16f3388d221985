package interfaces

import (
	"context"

	"github.com/customeros/maildigest/internal/models"
)

type ProcessedEmailRepository interface {
	Create(ctx context.Context, email *models.ProcessedEmail) (string, error)
	GetByID(ctx context.Context, id string) (*models.ProcessedEmail, error)
	GetRecent(ctx context.Context, limit int) ([]*models.ProcessedEmail, error)
}
