package interfaces

import (
	"context"

	"github.com/customeros/maildigest/dto"
)

type PipelineService interface {
	// Run fetches from source and processes every message through the
	// configured sinks. One failing message never aborts the batch.
	Run(ctx context.Context, source MessageSource, maxResults int) ([]dto.MessageOutcome, error)
	ProcessRaw(ctx context.Context, raw dto.RawMessage) dto.MessageOutcome
	ProcessEmail(ctx context.Context, email *dto.NormalizedEmail) (*dto.ProcessedResult, error)
	// Analyze summarizes a single email without classification or sinks.
	Analyze(ctx context.Context, email *dto.NormalizedEmail, opts dto.SummarizeOptions) (*dto.ProcessedResult, error)
	// AnalyzeBatch fetches from source, analyzes each message in short mode
	// and hands every result to sink.
	AnalyzeBatch(ctx context.Context, source MessageSource, maxResults int, sink Sink) ([]dto.MessageOutcome, error)
}
