package interfaces

import (
	"context"

	"github.com/customeros/maildigest/dto"
)

type SummarizerService interface {
	Summarize(ctx context.Context, email *dto.NormalizedEmail, opts dto.SummarizeOptions) (*dto.Summary, error)
}
