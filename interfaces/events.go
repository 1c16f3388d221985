package interfaces

import (
	"context"

	"github.com/customeros/maildigest/dto"
)

type EventPublisher interface {
	PublishProcessedEmail(ctx context.Context, result *dto.ProcessedResult) error
	Close() error
}
