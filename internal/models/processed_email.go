package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/customeros/maildigest/dto"
	"github.com/customeros/maildigest/internal/enum"
	"github.com/customeros/maildigest/internal/utils"
)

type ProcessedEmail struct {
	ID              string         `gorm:"column:id;type:varchar(50);primaryKey"`
	MessageID       string         `gorm:"column:message_id;type:varchar(1000);index"`
	Subject         string         `gorm:"column:subject;type:text"`
	Sender          string         `gorm:"column:sender;type:varchar(255);index"`
	Title           string         `gorm:"column:title;type:varchar(255)"`
	Summary         string         `gorm:"column:summary;type:text"`
	ActionItems     pq.StringArray `gorm:"column:action_items;type:text[]"`
	Priority        enum.Priority  `gorm:"column:priority;type:varchar(20)"`
	IsNewsletter    bool           `gorm:"column:is_newsletter;type:boolean;index"`
	AttachmentNames pq.StringArray `gorm:"column:attachment_names;type:text[]"`
	ProcessedAt     time.Time      `gorm:"column:processed_at;type:timestamp;index"`
	CreatedAt       time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
}

func (ProcessedEmail) TableName() string {
	return "processed_emails"
}

func (m *ProcessedEmail) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateNanoIDWithPrefix("pmail", 16)
	}
	return nil
}

func NewProcessedEmail(result *dto.ProcessedResult) *ProcessedEmail {
	return &ProcessedEmail{
		MessageID:       result.MessageID,
		Subject:         result.Subject,
		Sender:          result.Sender,
		Title:           result.Title,
		Summary:         result.Summary,
		ActionItems:     pq.StringArray(result.ActionItems),
		Priority:        result.Priority,
		IsNewsletter:    result.IsNewsletter,
		AttachmentNames: pq.StringArray(result.AttachmentNames),
		ProcessedAt:     result.ProcessedAt,
	}
}

func (m *ProcessedEmail) ToResult() *dto.ProcessedResult {
	return &dto.ProcessedResult{
		MessageID:       m.MessageID,
		Subject:         m.Subject,
		Sender:          m.Sender,
		Title:           m.Title,
		Summary:         m.Summary,
		ActionItems:     []string(m.ActionItems),
		Priority:        m.Priority,
		IsNewsletter:    m.IsNewsletter,
		HasAttachments:  len(m.AttachmentNames) > 0,
		AttachmentNames: []string(m.AttachmentNames),
		ProcessedAt:     m.ProcessedAt,
	}
}
