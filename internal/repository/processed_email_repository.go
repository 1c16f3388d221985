package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/maildigest/interfaces"
	mderrors "github.com/customeros/maildigest/internal/errors"
	"github.com/customeros/maildigest/internal/models"
	"github.com/customeros/maildigest/internal/tracing"
	"github.com/customeros/maildigest/internal/utils"
)

const maxRecentLimit = 100

type processedEmailRepository struct {
	db *gorm.DB
}

func NewProcessedEmailRepository(db *gorm.DB) interfaces.ProcessedEmailRepository {
	return &processedEmailRepository{db: db}
}

func (r *processedEmailRepository) Create(ctx context.Context, email *models.ProcessedEmail) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processedEmailRepository.Create")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if email == nil {
		err := mderrors.New(mderrors.ErrValidation, "processed email cannot be nil")
		tracing.TraceErr(span, err)
		return "", err
	}

	if email.ProcessedAt.IsZero() {
		email.ProcessedAt = utils.Now()
	}
	email.CreatedAt = utils.Now()

	if err := r.db.WithContext(ctx).Create(email).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrap(err, "failed to create processed email")
	}

	tracing.TagEntity(span, email.ID)
	return email.ID, nil
}

func (r *processedEmailRepository) GetByID(ctx context.Context, id string) (*models.ProcessedEmail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processedEmailRepository.GetByID")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, id)

	var email models.ProcessedEmail
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.LogKV("result", "not found")
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to get processed email")
	}

	return &email, nil
}

// GetRecent returns the newest archived results first.
func (r *processedEmailRepository) GetRecent(ctx context.Context, limit int) ([]*models.ProcessedEmail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processedEmailRepository.GetRecent")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if limit <= 0 || limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	span.LogKV("limit", limit)

	var emails []*models.ProcessedEmail
	err := r.db.WithContext(ctx).
		Order("processed_at DESC").
		Limit(limit).
		Find(&emails).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to list processed emails")
	}

	return emails, nil
}
