package interfaces

import (
	"context"

	"github.com/customeros/maildigest/dto"
)

type EmailFilterService interface {
	Classify(ctx context.Context, email *dto.NormalizedEmail) (bool, error)
}
