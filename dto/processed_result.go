package dto

import (
	"encoding/json"
	"time"

	"github.com/customeros/maildigest/internal/enum"
)

type Summary struct {
	Text        string
	ActionItems []string
	Priority    enum.Priority
	Title       string
}

type SummarizeOptions struct {
	Mode      enum.SummaryMode
	WithTitle bool
	// Strict propagates quota errors instead of degrading the summary.
	Strict bool
}

type ProcessedResult struct {
	MessageID       string        `json:"message_id,omitempty"`
	Subject         string        `json:"subject"`
	Sender          string        `json:"sender"`
	Title           string        `json:"title,omitempty"`
	Summary         string        `json:"summary"`
	ActionItems     []string      `json:"action_items"`
	Priority        enum.Priority `json:"priority"`
	IsNewsletter    bool          `json:"is_newsletter"`
	HasAttachments  bool          `json:"has_attachments"`
	AttachmentNames []string      `json:"attachment_names"`
	ProcessedAt     time.Time     `json:"processed_at"`
}

func (r ProcessedResult) MarshalJSON() ([]byte, error) {
	type alias ProcessedResult
	out := alias(r)
	if out.ActionItems == nil {
		out.ActionItems = []string{}
	}
	if out.AttachmentNames == nil {
		out.AttachmentNames = []string{}
	}
	return json.Marshal(out)
}

// MessageOutcome records where a message ended up in the pipeline.
type MessageOutcome struct {
	MessageID string            `json:"message_id"`
	State     enum.MessageState `json:"state"`
	Reason    string            `json:"reason,omitempty"`
	Result    *ProcessedResult  `json:"result,omitempty"`
}
