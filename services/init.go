package services

import (
	"strings"

	"go.uber.org/multierr"

	"github.com/customeros/maildigest/config"
	"github.com/customeros/maildigest/interfaces"
	"github.com/customeros/maildigest/internal/enum"
	mderrors "github.com/customeros/maildigest/internal/errors"
	"github.com/customeros/maildigest/internal/logger"
	"github.com/customeros/maildigest/internal/repository"
	"github.com/customeros/maildigest/services/ai"
	"github.com/customeros/maildigest/services/email_filter"
	"github.com/customeros/maildigest/services/events"
	"github.com/customeros/maildigest/services/fixture"
	"github.com/customeros/maildigest/services/gmail"
	"github.com/customeros/maildigest/services/imap"
	"github.com/customeros/maildigest/services/normalizer"
	"github.com/customeros/maildigest/services/notion"
	"github.com/customeros/maildigest/services/pipeline"
	"github.com/customeros/maildigest/services/sink"
	"github.com/customeros/maildigest/services/summarizer"
)

const (
	SinkNotion  = "notion"
	SinkConsole = "console"
	SinkArchive = "archive"
	SinkEvents  = "events"
)

type Services struct {
	// AIService is nil in test mode and when no key is configured.
	AIService          interfaces.AIService
	NormalizerService  interfaces.NormalizerService
	EmailFilterService interfaces.EmailFilterService
	SummarizerService  interfaces.SummarizerService
	MessageSource      interfaces.MessageSource
	Sink               *sink.Multi
	PipelineService    interfaces.PipelineService
	// Repositories is nil when the archive database is not configured.
	Repositories *repository.Repositories

	publisher interfaces.EventPublisher
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	var aiService interfaces.AIService
	if !cfg.AppConfig.TestMode && cfg.OpenAIConfig.ApiKey != "" {
		aiService = ai.NewAIService(cfg.OpenAIConfig)
	}

	classifierMode := enum.ClassifierMode(strings.ToLower(cfg.AppConfig.ClassifierMode))
	if cfg.AppConfig.TestMode {
		classifierMode = enum.ClassifierRules
	}

	source, err := NewMessageSource(cfg, log)
	if err != nil {
		return nil, err
	}

	s := &Services{
		AIService:          aiService,
		NormalizerService:  normalizer.NewNormalizerService(),
		EmailFilterService: email_filter.NewEmailFilterService(aiService, classifierMode, log),
		SummarizerService: summarizer.NewSummarizerService(aiService, summarizer.Config{
			TestMode:  cfg.AppConfig.TestMode,
			MaxTokens: cfg.OpenAIConfig.SummaryMaxTokens,
		}, log),
		MessageSource: source,
		Repositories:  repos,
	}

	sinks, err := s.buildSinks(cfg, log)
	if err != nil {
		return nil, err
	}
	s.Sink = sink.NewMulti(sinks...)
	s.PipelineService = pipeline.NewPipelineService(s.NormalizerService, s.EmailFilterService, s.SummarizerService, s.Sink, log)

	log.Infof("Services initialized: source=%s sinks=%v testMode=%t classifier=%s",
		source.Name(), s.Sink.Names(), cfg.AppConfig.TestMode, classifierMode)
	return s, nil
}

// NewMessageSource picks the source named by MAIL_SOURCE. Test mode always
// reads the embedded fixtures.
func NewMessageSource(cfg *config.Config, log logger.Logger) (interfaces.MessageSource, error) {
	if cfg.AppConfig.TestMode {
		return fixture.NewFixtureSource()
	}
	switch enum.SourceType(strings.ToLower(cfg.MailConfig.Source)) {
	case enum.SourceIMAP:
		return imap.NewIMAPSource(cfg.MailConfig, log), nil
	case enum.SourceGmail:
		return gmail.NewGmailSource(cfg.GmailConfig, log), nil
	case enum.SourceFixture:
		return fixture.NewFixtureSource()
	default:
		return nil, mderrors.New(mderrors.ErrValidation, "unknown mail source: "+cfg.MailConfig.Source)
	}
}

// buildSinks resolves SINKS. In test mode Notion writes go to the console
// instead. The archive and the event publisher join automatically when
// configured.
func (s *Services) buildSinks(cfg *config.Config, log logger.Logger) ([]interfaces.Sink, error) {
	wanted := make([]string, 0, len(cfg.AppConfig.Sinks)+2)
	for _, name := range cfg.AppConfig.Sinks {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == SinkNotion && cfg.AppConfig.TestMode {
			name = SinkConsole
		}
		if name != "" {
			wanted = append(wanted, name)
		}
	}
	if s.Repositories != nil {
		wanted = append(wanted, SinkArchive)
	}
	if cfg.AppConfig.RabbitMQURL != "" {
		wanted = append(wanted, SinkEvents)
	}

	seen := make(map[string]bool, len(wanted))
	sinks := make([]interfaces.Sink, 0, len(wanted))
	for _, name := range wanted {
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case SinkNotion:
			sinks = append(sinks, notion.NewNotionService(cfg.NotionConfig, log))
		case SinkConsole:
			sinks = append(sinks, sink.NewConsole())
		case SinkArchive:
			if s.Repositories == nil {
				return nil, mderrors.New(mderrors.ErrValidation, "archive sink requires POSTGRES_HOST")
			}
			sinks = append(sinks, repository.NewArchiveSink(s.Repositories.ProcessedEmailRepository))
		case SinkEvents:
			if cfg.AppConfig.RabbitMQURL == "" {
				return nil, mderrors.New(mderrors.ErrValidation, "events sink requires RABBITMQ_URL")
			}
			publisher, err := events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log, events.DefaultPublisherConfig())
			if err != nil {
				return nil, err
			}
			s.publisher = publisher
			sinks = append(sinks, publisher)
		default:
			return nil, mderrors.New(mderrors.ErrValidation, "unknown sink: "+name)
		}
	}
	return sinks, nil
}

func (s *Services) Close() error {
	var err error
	if s.publisher != nil {
		err = multierr.Append(err, s.publisher.Close())
	}
	return err
}
