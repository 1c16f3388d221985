package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

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

const (
	QuotaSkippedSummary = "Analysis skipped due to LLM quota limits."

	maxTitleLength     = 100
	previewChunks      = 3
	testBodyPreview    = 200
	reduceWindow       = 3000
	maxReduceDepth     = 3
	contentTemperature = 0.7
	contentMaxTokens   = 500
	chainTemperature   = 0.5
)

type Config struct {
	TestMode  bool
	MaxTokens int
}

type summarizerService struct {
	ai  interfaces.AIService
	cfg Config
	log logger.Logger
}

func NewSummarizerService(ai interfaces.AIService, cfg Config, log logger.Logger) interfaces.SummarizerService {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 200
	}
	return &summarizerService{ai: ai, cfg: cfg, log: log}
}

func (s *summarizerService) Summarize(ctx context.Context, email *dto.NormalizedEmail, opts dto.SummarizeOptions) (*dto.Summary, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "summarizerService.Summarize")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, email.ID)
	span.SetTag("mode", opts.Mode.String())
	span.SetTag("strict", opts.Strict)

	if s.cfg.TestMode || s.ai == nil {
		return testSummary(email, opts), nil
	}

	var (
		text  string
		title string
		err   error
	)
	switch {
	case opts.Strict:
		text, err = s.complete(ctx, dto.CompletionRequest{
			Messages:    []dto.ChatMessage{{Role: dto.RoleUser, Content: contentPrompt(email)}},
			Temperature: contentTemperature,
			MaxTokens:   contentMaxTokens,
		})
	case opts.Mode == enum.SummaryLong:
		text, title, err = s.summarizeNewsletter(ctx, email, opts.WithTitle)
	default:
		text, err = s.complete(ctx, dto.CompletionRequest{
			Messages: []dto.ChatMessage{
				{Role: dto.RoleSystem, Content: analysisSystemPrompt},
				{Role: dto.RoleUser, Content: analysisPrompt(email)},
			},
			MaxTokens: s.cfg.MaxTokens,
		})
	}

	if err != nil {
		tracing.TraceErr(span, err)
		if mderrors.IsQuota(err) && !opts.Strict {
			s.log.Warn("LLM quota exceeded, falling back to basic processing", zap.String("messageId", email.ID))
			return quotaSkippedSummary(email, opts), nil
		}
		return nil, mderrors.Wrap(mderrors.ErrModelUnavailable, err, "summarization failed")
	}

	summary := &dto.Summary{
		Text:        text,
		ActionItems: ExtractActionItems(text),
		Priority:    DeterminePriority(text),
	}
	if opts.WithTitle {
		summary.Title = TruncateTitle(title)
		if summary.Title == "" {
			summary.Title = fallbackTitle(email)
		}
	}
	return summary, nil
}

// summarizeNewsletter generates a title from a short preview and then a
// map-reduce summary over all chunks.
func (s *summarizerService) summarizeNewsletter(ctx context.Context, email *dto.NormalizedEmail, withTitle bool) (string, string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "summarizerService.summarizeNewsletter")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	content := email.Body
	if strings.TrimSpace(content) == "" {
		content = email.Subject
	}
	chunks := SplitText(content, chunkSize, chunkOverlap)
	span.SetTag("chunks", len(chunks))
	if len(chunks) == 0 {
		return "", "", nil
	}

	var title string
	if withTitle {
		var err error
		title, err = s.generateTitle(ctx, chunks)
		if err != nil {
			tracing.TraceErr(span, err)
			return "", "", err
		}
	}

	summaries, err := s.mapChunks(ctx, chunks)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", "", err
	}

	text, err := s.reduce(ctx, summaries, 0)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", "", err
	}
	return text, title, nil
}

func (s *summarizerService) generateTitle(ctx context.Context, chunks []string) (string, error) {
	previewSource := chunks
	if len(previewSource) > previewChunks {
		previewSource = previewSource[:previewChunks]
	}

	preview, err := s.complete(ctx, dto.CompletionRequest{
		Messages:    []dto.ChatMessage{{Role: dto.RoleUser, Content: newsletterPreviewPrompt(strings.Join(previewSource, "\n\n"))}},
		Temperature: chainTemperature,
	})
	if err != nil {
		return "", err
	}

	args, err := s.ai.CallFunction(ctx, dto.CompletionRequest{
		Messages: []dto.ChatMessage{{Role: dto.RoleUser, Content: titlePrompt(preview)}},
	}, titleFunction)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		s.log.Warnf("Unable to parse generated title %q: %v", args, err)
		return "", nil
	}
	return strings.TrimSpace(parsed.Title), nil
}

func (s *summarizerService) mapChunks(ctx context.Context, chunks []string) ([]string, error) {
	summaries := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		summary, err := s.complete(ctx, dto.CompletionRequest{
			Messages:    []dto.ChatMessage{{Role: dto.RoleUser, Content: mapPrompt(chunk)}},
			Temperature: chainTemperature,
		})
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, strings.TrimSpace(summary))
	}
	return summaries, nil
}

// reduce combines partial summaries. Inputs larger than the reduce window are
// re-chunked and reduced again, up to maxReduceDepth levels.
func (s *summarizerService) reduce(ctx context.Context, summaries []string, depth int) (string, error) {
	combined := strings.Join(summaries, "\n")
	if len(summaries) == 1 && depth > 0 {
		return combined, nil
	}

	if utf8.RuneCountInString(combined) > reduceWindow && depth < maxReduceDepth {
		parts := SplitText(combined, reduceWindow, 0)
		partial, err := s.mapChunks(ctx, parts)
		if err != nil {
			return "", err
		}
		return s.reduce(ctx, partial, depth+1)
	}

	return s.complete(ctx, dto.CompletionRequest{
		Messages:    []dto.ChatMessage{{Role: dto.RoleUser, Content: mapPrompt(utils.FirstRunes(combined, reduceWindow))}},
		Temperature: chainTemperature,
	})
}

func (s *summarizerService) complete(ctx context.Context, request dto.CompletionRequest) (string, error) {
	out, err := s.ai.Complete(ctx, request)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ExtractActionItems returns every line mentioning an action or todo.
func ExtractActionItems(text string) []string {
	items := []string{}
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "action") || strings.Contains(lower, "todo") {
			items = append(items, strings.TrimSpace(line))
		}
	}
	return items
}

// DeterminePriority: urgent or asap is High, otherwise important is Medium.
func DeterminePriority(text string) enum.Priority {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "urgent") || strings.Contains(lower, "asap"):
		return enum.PriorityHigh
	case strings.Contains(lower, "important"):
		return enum.PriorityMedium
	default:
		return enum.PriorityLow
	}
}

func TruncateTitle(title string) string {
	return utils.TruncateWithEllipsis(strings.TrimSpace(title), maxTitleLength)
}

func fallbackTitle(email *dto.NormalizedEmail) string {
	title := utils.NormalizeEmailSubject(email.Subject)
	if title == "" {
		title = utils.FirstNonEmptyLine(email.Body)
	}
	if title == "" {
		title = "Untitled"
	}
	return TruncateTitle(title)
}

func testSummary(email *dto.NormalizedEmail, opts dto.SummarizeOptions) *dto.Summary {
	text := fmt.Sprintf("Test Summary of %s:\n\nKey points from the content:\n%s...",
		email.Subject, utils.FirstRunes(email.Body, testBodyPreview))
	summary := &dto.Summary{
		Text:        text,
		ActionItems: ExtractActionItems(text),
		Priority:    DeterminePriority(text),
	}
	if opts.WithTitle {
		summary.Title = fallbackTitle(email)
	}
	return summary
}

func quotaSkippedSummary(email *dto.NormalizedEmail, opts dto.SummarizeOptions) *dto.Summary {
	summary := &dto.Summary{
		Text:        QuotaSkippedSummary,
		ActionItems: []string{},
		Priority:    enum.PriorityUnknown,
	}
	if opts.WithTitle {
		summary.Title = fallbackTitle(email)
	}
	return summary
}
