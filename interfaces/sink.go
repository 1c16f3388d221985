package interfaces

import (
	"context"

	"github.com/customeros/maildigest/dto"
)

type Sink interface {
	Name() string
	Persist(ctx context.Context, result *dto.ProcessedResult) error
}

type NotionService interface {
	Sink
	CreatePage(ctx context.Context, result *dto.ProcessedResult) (string, error)
}
