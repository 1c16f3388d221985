package pipeline

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"github.com/customeros/maildigest/dto"
	"github.com/customeros/maildigest/interfaces"
	"github.com/customeros/maildigest/internal/enum"
	mderrors "github.com/customeros/maildigest/internal/errors"
	"github.com/customeros/maildigest/internal/logger"
	"github.com/customeros/maildigest/internal/tracing"
	"github.com/customeros/maildigest/internal/utils"
)

const reasonCancelled = "processing cancelled"

type pipelineService struct {
	normalizer interfaces.NormalizerService
	filter     interfaces.EmailFilterService
	summarizer interfaces.SummarizerService
	sink       interfaces.Sink
	log        logger.Logger
}

func NewPipelineService(
	normalizer interfaces.NormalizerService,
	filter interfaces.EmailFilterService,
	summarizer interfaces.SummarizerService,
	sink interfaces.Sink,
	log logger.Logger,
) interfaces.PipelineService {
	return &pipelineService{
		normalizer: normalizer,
		filter:     filter,
		summarizer: summarizer,
		sink:       sink,
		log:        log,
	}
}

func (s *pipelineService) Run(ctx context.Context, source interfaces.MessageSource, maxResults int) ([]dto.MessageOutcome, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "PipelineService.Run")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("source", source.Name())

	return s.runBatch(ctx, source, maxResults, s.ProcessRaw)
}

func (s *pipelineService) AnalyzeBatch(ctx context.Context, source interfaces.MessageSource, maxResults int, sink interfaces.Sink) ([]dto.MessageOutcome, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "PipelineService.AnalyzeBatch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("source", source.Name())

	return s.runBatch(ctx, source, maxResults, func(ctx context.Context, raw dto.RawMessage) dto.MessageOutcome {
		outcome := dto.MessageOutcome{MessageID: raw.ID, State: enum.MessageFetched}

		email, err := s.normalizer.Normalize(raw)
		if err != nil {
			return s.skip(outcome, err)
		}
		outcome.State = enum.MessageNormalized

		result, err := s.Analyze(ctx, email, dto.SummarizeOptions{Mode: enum.SummaryShort})
		if err != nil {
			return s.skip(outcome, err)
		}
		outcome.State = enum.MessageSummarized
		outcome.Result = result

		if sink != nil {
			if err := sink.Persist(ctx, result); err != nil {
				return s.skip(outcome, err)
			}
		}
		outcome.State = enum.MessagePersisted
		return outcome
	})
}

func (s *pipelineService) runBatch(
	ctx context.Context,
	source interfaces.MessageSource,
	maxResults int,
	process func(context.Context, dto.RawMessage) dto.MessageOutcome,
) ([]dto.MessageOutcome, error) {
	span := opentracing.SpanFromContext(ctx)

	raws, err := source.Fetch(ctx, maxResults)
	if err != nil {
		if span != nil {
			tracing.TraceErr(span, err)
		}
		s.log.Error("Failed to fetch messages", zap.String("source", source.Name()), zap.Error(err))
		return nil, err
	}

	outcomes := make([]dto.MessageOutcome, 0, len(raws))
	var persisted, skipped int
	for _, raw := range raws {
		if ctx.Err() != nil {
			outcomes = append(outcomes, dto.MessageOutcome{MessageID: raw.ID, State: enum.MessageSkipped, Reason: reasonCancelled})
			skipped++
			continue
		}
		outcome := process(ctx, raw)
		if outcome.State == enum.MessageSkipped {
			skipped++
		} else {
			persisted++
		}
		outcomes = append(outcomes, outcome)
	}

	if span != nil {
		span.LogKV("messages.fetched", len(raws), "messages.persisted", persisted, "messages.skipped", skipped)
	}
	s.log.Info("Batch processed",
		zap.String("source", source.Name()),
		zap.Int("fetched", len(raws)),
		zap.Int("persisted", persisted),
		zap.Int("skipped", skipped))
	return outcomes, nil
}

func (s *pipelineService) ProcessRaw(ctx context.Context, raw dto.RawMessage) dto.MessageOutcome {
	span, ctx := opentracing.StartSpanFromContext(ctx, "PipelineService.ProcessRaw")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, raw.ID)

	outcome := dto.MessageOutcome{MessageID: raw.ID, State: enum.MessageFetched}

	email, err := s.normalizer.Normalize(raw)
	if err != nil {
		tracing.TraceErr(span, err)
		return s.skip(outcome, err)
	}
	outcome.State = enum.MessageNormalized

	result, err := s.process(ctx, email, &outcome)
	outcome.Result = result
	if err != nil {
		tracing.TraceErr(span, err)
		return s.skip(outcome, err)
	}
	outcome.State = enum.MessagePersisted
	return outcome
}

func (s *pipelineService) ProcessEmail(ctx context.Context, email *dto.NormalizedEmail) (*dto.ProcessedResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "PipelineService.ProcessEmail")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, email.ID)

	outcome := dto.MessageOutcome{MessageID: email.ID, State: enum.MessageNormalized}
	result, err := s.process(ctx, email, &outcome)
	if err != nil {
		tracing.TraceErr(span, err)
		return result, err
	}
	return result, nil
}

// process classifies, summarizes and persists one email, advancing
// outcome.State as each step succeeds. The result is returned even when the
// sink fails.
func (s *pipelineService) process(ctx context.Context, email *dto.NormalizedEmail, outcome *dto.MessageOutcome) (*dto.ProcessedResult, error) {
	isNewsletter, err := s.filter.Classify(ctx, email)
	if err != nil {
		return nil, err
	}
	outcome.State = enum.MessageClassified

	opts := dto.SummarizeOptions{Mode: enum.SummaryShort}
	if isNewsletter {
		opts = dto.SummarizeOptions{Mode: enum.SummaryLong, WithTitle: true}
	}
	summary, err := s.summarizer.Summarize(ctx, email, opts)
	if err != nil {
		return nil, err
	}
	outcome.State = enum.MessageSummarized

	result := buildResult(email, summary, isNewsletter)
	if s.sink != nil {
		if err := s.sink.Persist(ctx, result); err != nil {
			return result, err
		}
	}

	s.log.Info("Email processed",
		zap.String("messageId", email.ID),
		zap.Bool("newsletter", isNewsletter),
		zap.String("priority", result.Priority.String()))
	return result, nil
}

func (s *pipelineService) Analyze(ctx context.Context, email *dto.NormalizedEmail, opts dto.SummarizeOptions) (*dto.ProcessedResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "PipelineService.Analyze")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, email.ID)

	summary, err := s.summarizer.Summarize(ctx, email, opts)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return buildResult(email, summary, false), nil
}

func (s *pipelineService) skip(outcome dto.MessageOutcome, err error) dto.MessageOutcome {
	reason := err.Error()
	if kind := mderrors.KindOf(err); kind != nil {
		s.log.Warn("Message skipped",
			zap.String("messageId", outcome.MessageID),
			zap.String("failedAfter", outcome.State.String()),
			zap.String("kind", kind.Error()),
			zap.Error(err))
	} else {
		s.log.Warn("Message skipped",
			zap.String("messageId", outcome.MessageID),
			zap.String("failedAfter", outcome.State.String()),
			zap.Error(err))
	}
	outcome.State = enum.MessageSkipped
	outcome.Reason = reason
	return outcome
}

func buildResult(email *dto.NormalizedEmail, summary *dto.Summary, isNewsletter bool) *dto.ProcessedResult {
	names := email.AttachmentNames()
	actionItems := summary.ActionItems
	if actionItems == nil {
		actionItems = []string{}
	}
	return &dto.ProcessedResult{
		MessageID:       email.ID,
		Subject:         email.Subject,
		Sender:          email.Sender,
		Title:           summary.Title,
		Summary:         summary.Text,
		ActionItems:     actionItems,
		Priority:        summary.Priority,
		IsNewsletter:    isNewsletter,
		HasAttachments:  len(names) > 0,
		AttachmentNames: names,
		ProcessedAt:     utils.Now(),
	}
}
