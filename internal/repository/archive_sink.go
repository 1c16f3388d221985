package repository

import (
	"context"

	"github.com/customeros/maildigest/dto"
	"github.com/customeros/maildigest/interfaces"
	"github.com/customeros/maildigest/internal/models"
)

// ArchiveSink stores every processed result as a processed_emails row.
type ArchiveSink struct {
	repo interfaces.ProcessedEmailRepository
}

func NewArchiveSink(repo interfaces.ProcessedEmailRepository) *ArchiveSink {
	return &ArchiveSink{repo: repo}
}

func (s *ArchiveSink) Name() string {
	return "archive"
}

func (s *ArchiveSink) Persist(ctx context.Context, result *dto.ProcessedResult) error {
	_, err := s.repo.Create(ctx, models.NewProcessedEmail(result))
	return err
}
