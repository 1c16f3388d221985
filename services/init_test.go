package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/maildigest/config"
	"github.com/customeros/maildigest/internal/enum"
	mderrors "github.com/customeros/maildigest/internal/errors"
	"github.com/customeros/maildigest/internal/logger"
	"github.com/customeros/maildigest/internal/mocks"
	"github.com/customeros/maildigest/internal/repository"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)
	return cfg
}

func TestInitServices_TestModeUsesFixturesAndConsole(t *testing.T) {
	cfg := testConfig(t)
	cfg.AppConfig.TestMode = true
	cfg.OpenAIConfig.ApiKey = "sk-unused"

	s, err := InitServices(cfg, logger.NewNopLogger(), nil)

	require.NoError(t, err)
	assert.Nil(t, s.AIService)
	assert.Equal(t, enum.SourceFixture.String(), s.MessageSource.Name())
	assert.Equal(t, []string{SinkConsole}, s.Sink.Names())
	assert.NotNil(t, s.PipelineService)
	assert.NoError(t, s.Close())
}

func TestInitServices_ArchiveJoinsWhenConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.AppConfig.Sinks = []string{"console", "Console"}
	cfg.MailConfig.Source = "imap"
	repos := &repository.Repositories{ProcessedEmailRepository: new(mocks.MockProcessedEmailRepository)}

	s, err := InitServices(cfg, logger.NewNopLogger(), repos)

	require.NoError(t, err)
	assert.Equal(t, []string{SinkConsole, SinkArchive}, s.Sink.Names())
	assert.Equal(t, enum.SourceIMAP.String(), s.MessageSource.Name())
}

func TestInitServices_RejectsUnknownSink(t *testing.T) {
	cfg := testConfig(t)
	cfg.AppConfig.Sinks = []string{"fax"}

	_, err := InitServices(cfg, logger.NewNopLogger(), nil)

	assert.ErrorIs(t, err, mderrors.ErrValidation)
}

func TestInitServices_ArchiveWithoutDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.AppConfig.Sinks = []string{SinkArchive}

	_, err := InitServices(cfg, logger.NewNopLogger(), nil)

	assert.ErrorIs(t, err, mderrors.ErrValidation)
}

func TestNewMessageSource(t *testing.T) {
	cfg := testConfig(t)

	cfg.MailConfig.Source = "gmail"
	source, err := NewMessageSource(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, enum.SourceGmail.String(), source.Name())

	cfg.MailConfig.Source = "pop3"
	_, err = NewMessageSource(cfg, logger.NewNopLogger())
	assert.ErrorIs(t, err, mderrors.ErrValidation)
}
