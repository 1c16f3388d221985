package email_filter

import (
	"context"
	"fmt"
	"strings"

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
	classifyBodyPreview = 500
	classifyTemperature = 0.3
	classifyMaxTokens   = 10
)

// newsletterKeywords drive the rule based fallback.
var newsletterKeywords = []string{"newsletter", "weekly", "highlights", "updates", "digest"}

type emailFilterService struct {
	ai   interfaces.AIService
	mode enum.ClassifierMode
	log  logger.Logger
}

// NewEmailFilterService classifies with the model unless mode is rules or no
// model is configured.
func NewEmailFilterService(ai interfaces.AIService, mode enum.ClassifierMode, log logger.Logger) interfaces.EmailFilterService {
	if ai == nil {
		mode = enum.ClassifierRules
	}
	return &emailFilterService{ai: ai, mode: mode, log: log}
}

func (s *emailFilterService) Classify(ctx context.Context, email *dto.NormalizedEmail) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailFilterService.Classify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, email.ID)
	span.SetTag("mode", s.mode.String())

	if s.mode == enum.ClassifierRules {
		isNewsletter, reason := IsNewsletterByRules(email)
		span.SetTag("is_newsletter", isNewsletter)
		span.SetTag("reason", reason)
		return isNewsletter, nil
	}

	answer, err := s.ai.Complete(ctx, dto.CompletionRequest{
		Messages:    []dto.ChatMessage{{Role: dto.RoleUser, Content: classificationPrompt(email)}},
		Temperature: classifyTemperature,
		MaxTokens:   classifyMaxTokens,
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return false, mderrors.Wrap(mderrors.ErrModelUnavailable, err, "newsletter classification failed")
	}

	isNewsletter, ok := parseAnswer(answer)
	if !ok {
		s.log.Warn("ClassificationAmbiguous",
			zap.String("messageId", email.ID),
			zap.String("answer", answer))
		span.SetTag("ambiguous", true)
	}
	span.SetTag("is_newsletter", isNewsletter)
	return isNewsletter, nil
}

// IsNewsletterByRules matches newsletter keywords in subject and body and
// checks bulk mail headers.
func IsNewsletterByRules(email *dto.NormalizedEmail) (bool, string) {
	content := strings.ToLower(email.Subject + " " + email.Body)
	for _, keyword := range newsletterKeywords {
		if strings.Contains(content, keyword) {
			return true, fmt.Sprintf("content contains keyword: '%s'", keyword)
		}
	}
	return isBulkEmail(email)
}

func isBulkEmail(email *dto.NormalizedEmail) (bool, string) {
	precedence := email.Header("Precedence")
	switch {
	case email.HasHeader("List-Unsubscribe"):
		return true, "UNSUBSCRIBE header present"
	case strings.EqualFold(precedence, "bulk"):
		return true, "PRECEDENCE: BULK header present"
	case strings.EqualFold(precedence, "list"):
		return true, "PRECEDENCE: LIST header present"
	default:
		return false, ""
	}
}

func classificationPrompt(email *dto.NormalizedEmail) string {
	return fmt.Sprintf(`Analyze if this email is a newsletter:
Subject: %s
Content: %s...

Respond with only 'true' or 'false'.`, email.Subject, utils.FirstRunes(email.Body, classifyBodyPreview))
}

// parseAnswer reports the verdict and whether the answer was unambiguous.
// Anything other than true or false counts as not a newsletter.
func parseAnswer(answer string) (bool, bool) {
	normalized := strings.ToLower(strings.TrimSpace(answer))
	normalized = strings.Trim(normalized, ".!'\"` ")
	switch normalized {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}
